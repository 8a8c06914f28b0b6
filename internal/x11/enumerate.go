package x11

import (
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"

	"github.com/adscrub/adscrub/internal/domain"
)

// System implements domain.WindowSystem against one X11 connection.
type System struct {
	conn    *Connection
	locator domain.ProcessLocator
}

// NewSystem wraps an existing X11 connection. The locator distinguishes
// "target running but has no windows yet" from "target gone" during
// enumeration.
func NewSystem(conn *Connection, locator domain.ProcessLocator) *System {
	return &System{conn: conn, locator: locator}
}

// Enumerate rebuilds the window snapshot for the target process: every
// top-level window stamped with the target's PID, plus all of its
// descendants. The snapshot is rebuilt in full on each call; descriptors are
// emitted depth-first so parents always precede their children.
//
// Child windows are included without a PID check: the target client does not
// stamp _NET_WM_PID below its top-level windows, and a subtree hangs off its
// owner anyway.
func (s *System) Enumerate(target domain.TargetProcess) ([]domain.WindowDescriptor, error) {
	if target.PID == 0 || !s.locator.IsRunning(target.PID) {
		return nil, domain.ErrProcessNotFound
	}

	// _NET_CLIENT_LIST may legitimately be unset (no EWMH window manager),
	// so only the root query is fatal.
	clients, _ := ewmh.ClientListGet(s.conn.XUtil)

	tree, err := xproto.QueryTree(s.conn.XUtil.Conn(), s.conn.Root).Reply()
	if err != nil {
		return nil, &domain.EnumerationError{Err: err}
	}

	var out []domain.WindowDescriptor
	for _, top := range subtreeRoots(clients, tree.Children, s.windowPID, target.PID) {
		out = s.appendSubtree(out, top, 0)
	}

	return out, nil
}

// subtreeRoots selects the windows whose subtrees belong to the target: the
// WM-managed client windows from _NET_CLIENT_LIST, plus PID-stamped direct
// root children the WM never adopted (override-redirect popups). A
// reparenting WM wraps each managed client in a frame window that carries no
// _NET_WM_PID, so matching the root's direct children alone would miss every
// managed window. Under a non-reparenting WM a client appears in both lists;
// the root is emitted once.
func subtreeRoots(clients, rootChildren []xproto.Window, pidOf func(xproto.Window) int, targetPID int) []xproto.Window {
	var roots []xproto.Window
	seen := make(map[xproto.Window]struct{})

	pick := func(win xproto.Window) {
		if _, dup := seen[win]; dup || pidOf(win) != targetPID {
			return
		}
		seen[win] = struct{}{}
		roots = append(roots, win)
	}

	for _, win := range clients {
		pick(win)
	}
	for _, win := range rootChildren {
		pick(win)
	}
	return roots
}

// windowPID reads _NET_WM_PID, 0 when absent or unreadable.
func (s *System) windowPID(win xproto.Window) int {
	pid, err := ewmh.WmPidGet(s.conn.XUtil, win)
	if err != nil {
		return 0
	}
	return int(pid)
}

// appendSubtree appends the descriptor for win and, depth-first, those of
// all its descendants. A window whose attributes cannot be read (destroyed
// mid-walk) is skipped together with its subtree; the next cycle re-observes.
func (s *System) appendSubtree(out []domain.WindowDescriptor, win xproto.Window, parent xproto.Window) []domain.WindowDescriptor {
	d, ok := s.describe(win, parent)
	if !ok {
		return out
	}
	out = append(out, d)

	tree, err := xproto.QueryTree(s.conn.XUtil.Conn(), win).Reply()
	if err != nil {
		return out
	}
	for _, child := range tree.Children {
		out = s.appendSubtree(out, child, win)
	}
	return out
}

func (s *System) describe(win xproto.Window, parent xproto.Window) (domain.WindowDescriptor, bool) {
	attrs, err := xproto.GetWindowAttributes(s.conn.XUtil.Conn(), win).Reply()
	if err != nil {
		return domain.WindowDescriptor{}, false
	}

	rect, ok := s.windowRect(win)
	if !ok {
		return domain.WindowDescriptor{}, false
	}

	return domain.WindowDescriptor{
		ID:      domain.WindowID(win),
		Class:   s.windowClass(win),
		Parent:  domain.WindowID(parent),
		Rect:    rect,
		Visible: attrs.MapState == xproto.MapStateViewable,
		Popup:   attrs.OverrideRedirect,
	}, true
}

func (s *System) windowClass(win xproto.Window) string {
	wmClass, err := icccm.WmClassGet(s.conn.XUtil, win)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(wmClass.Class)
}

func (s *System) windowRect(win xproto.Window) (domain.Rect, bool) {
	geom, err := xproto.GetGeometry(s.conn.XUtil.Conn(), xproto.Drawable(win)).Reply()
	if err != nil {
		return domain.Rect{}, false
	}

	translate, err := xproto.TranslateCoordinates(
		s.conn.XUtil.Conn(),
		win,
		s.conn.Root,
		0, 0,
	).Reply()
	if err != nil {
		return domain.Rect{}, false
	}

	return domain.Rect{
		X:      int(translate.DstX),
		Y:      int(translate.DstY),
		Width:  int(geom.Width),
		Height: int(geom.Height),
	}, true
}

// Ensure System implements domain.WindowSystem.
var _ domain.WindowSystem = (*System)(nil)
