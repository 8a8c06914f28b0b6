package x11

import (
	"github.com/BurntSushi/xgb/xproto"

	"github.com/adscrub/adscrub/internal/domain"
)

// X11 rejects zero-extent windows with BadValue, so a "resize to nothing"
// request clamps to a single pixel.
const minDim = 1

// Hide unmaps the window without destroying it. Unmapping an already
// unmapped window is a no-op on the server side, so Hide is idempotent.
func (s *System) Hide(id domain.WindowID) error {
	err := xproto.UnmapWindowChecked(s.conn.XUtil.Conn(), xproto.Window(id)).Check()
	if err != nil {
		return &domain.ActuationError{Window: id, Kind: domain.ActionHide, Err: err}
	}
	return nil
}

// Resize changes the window's width and height only, preserving position.
func (s *System) Resize(id domain.WindowID, width, height int) error {
	if width < minDim {
		width = minDim
	}
	if height < minDim {
		height = minDim
	}

	err := xproto.ConfigureWindowChecked(
		s.conn.XUtil.Conn(),
		xproto.Window(id),
		xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
		[]uint32{uint32(width), uint32(height)},
	).Check()
	if err != nil {
		return &domain.ActuationError{Window: id, Kind: domain.ActionResize, Err: err}
	}
	return nil
}

// Close unmaps the window immediately, then requests graceful destruction
// via WM_DELETE_WINDOW. The unmap comes first so a blocked popup never stays
// on screen while its owner processes the close request.
func (s *System) Close(id domain.WindowID) error {
	win := xproto.Window(id)

	if err := xproto.UnmapWindowChecked(s.conn.XUtil.Conn(), win).Check(); err != nil {
		return &domain.ActuationError{Window: id, Kind: domain.ActionBlock, Err: err}
	}

	deleteReply, err := xproto.InternAtom(s.conn.XUtil.Conn(), false,
		uint16(len("WM_DELETE_WINDOW")), "WM_DELETE_WINDOW").Reply()
	if err != nil {
		return &domain.ActuationError{Window: id, Kind: domain.ActionBlock, Err: err}
	}
	protocolsReply, err := xproto.InternAtom(s.conn.XUtil.Conn(), false,
		uint16(len("WM_PROTOCOLS")), "WM_PROTOCOLS").Reply()
	if err != nil {
		return &domain.ActuationError{Window: id, Kind: domain.ActionBlock, Err: err}
	}

	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: win,
		Type:   protocolsReply.Atom,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{uint32(deleteReply.Atom), 0, 0, 0, 0}),
	}

	err = xproto.SendEventChecked(
		s.conn.XUtil.Conn(),
		false,
		win,
		xproto.EventMaskNoEvent,
		string(ev.Bytes()),
	).Check()
	if err != nil {
		return &domain.ActuationError{Window: id, Kind: domain.ActionBlock, Err: err}
	}
	return nil
}
