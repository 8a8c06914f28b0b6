// Package signature implements the window signature table and classifier.
// The table is data-driven: an ordered list of class-name patterns mapped to
// suppression actions, so new ad formats are added without touching control
// flow.
package signature

import (
	"fmt"
	"path"

	"github.com/adscrub/adscrub/internal/domain"
)

// KeepDim marks a resize dimension that preserves the window's observed size.
const KeepDim = -1

// RectPolicy describes the target size for a resize rule. A KeepDim
// dimension resolves to the descriptor's current extent at classify time.
type RectPolicy struct {
	Width  int
	Height int
}

// Rule maps a class-name pattern (and optional structural constraints) to a
// suppression action. Patterns use path.Match syntax; the built-in table
// only needs literal class names.
type Rule struct {
	// ClassPattern matches the window's own class name. Required.
	ClassPattern string

	// ParentPattern, when non-empty, additionally requires the parent
	// descriptor's class name to match.
	ParentPattern string

	// PopupOnly, when set, requires the window to be popup-style
	// (override-redirect, no WM frame).
	PopupOnly bool

	// Action to apply on match.
	Action domain.ActionKind

	// Resize is the target geometry for ActionResize rules.
	Resize RectPolicy
}

// BuiltinRules is the known ad-window signature set, ordered most specific
// first (rules with a parent constraint before rules without). First match
// wins.
//
// The EVA_* classes are the target client's own window classes: the main
// view carries an ad banner in a child EVA_Window, the lock screen embeds
// an ad in an EVA_ChildWindow, and ad popups are frameless Chrome_WidgetWin
// browser windows.
func BuiltinRules() []Rule {
	return []Rule{
		// Main-view ad banner: shrink to zero height instead of hiding,
		// hiding the parent would also hide legitimate sibling content.
		{
			ClassPattern:  "EVA_Window",
			ParentPattern: "EVA_MainWindow",
			Action:        domain.ActionResize,
			Resize:        RectPolicy{Width: KeepDim, Height: 0},
		},
		{
			ClassPattern:  "EVA_Window",
			ParentPattern: "EVA_Window_Dblclk",
			Action:        domain.ActionResize,
			Resize:        RectPolicy{Width: KeepDim, Height: 0},
		},
		// Lock-screen ad area.
		{
			ClassPattern:  "EVA_ChildWindow",
			ParentPattern: "EVA_LockWindow",
			Action:        domain.ActionHide,
		},
		{
			ClassPattern:  "EVA_ChildWindow",
			ParentPattern: "EVA_LockModeView",
			Action:        domain.ActionHide,
		},
		// Embedded-browser ad popups. Popup-only so legitimate framed
		// browser windows of the same class are left alone.
		{
			ClassPattern: "Chrome_WidgetWin_0",
			PopupOnly:    true,
			Action:       domain.ActionBlock,
		},
		{
			ClassPattern: "Chrome_WidgetWin_1",
			PopupOnly:    true,
			Action:       domain.ActionBlock,
		},
	}
}

// Validate checks a rule table for build-time defects. A malformed table is
// a *domain.ConfigurationError and must abort startup; validation never runs
// per cycle.
func Validate(rules []Rule) error {
	if len(rules) == 0 {
		return &domain.ConfigurationError{Detail: "signature table is empty"}
	}

	for i, r := range rules {
		if r.ClassPattern == "" {
			return &domain.ConfigurationError{
				Detail: fmt.Sprintf("rule %d: class pattern is empty", i),
			}
		}
		if _, err := path.Match(r.ClassPattern, ""); err != nil {
			return &domain.ConfigurationError{
				Detail: fmt.Sprintf("rule %d: bad class pattern %q", i, r.ClassPattern),
			}
		}
		if r.ParentPattern != "" {
			if _, err := path.Match(r.ParentPattern, ""); err != nil {
				return &domain.ConfigurationError{
					Detail: fmt.Sprintf("rule %d: bad parent pattern %q", i, r.ParentPattern),
				}
			}
		}

		switch r.Action {
		case domain.ActionHide, domain.ActionBlock:
		case domain.ActionResize:
			if r.Resize.Width < KeepDim || r.Resize.Height < KeepDim {
				return &domain.ConfigurationError{
					Detail: fmt.Sprintf("rule %d: negative resize dimensions", i),
				}
			}
		case domain.ActionNoOp:
			return &domain.ConfigurationError{
				Detail: fmt.Sprintf("rule %d: no-op rules are implicit, remove it", i),
			}
		default:
			return &domain.ConfigurationError{
				Detail: fmt.Sprintf("rule %d: unknown action %d", i, r.Action),
			}
		}
	}

	return nil
}
