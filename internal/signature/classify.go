package signature

import (
	"path"

	"github.com/adscrub/adscrub/internal/domain"
)

// Classifier matches window descriptors against an ordered rule table.
// Classify is pure: no side effects, no mutable state, so it can be unit
// tested with literal fixtures.
type Classifier struct {
	rules []Rule
}

// NewClassifier validates the table once and returns a classifier.
// Validation failure is a *domain.ConfigurationError, fatal at startup.
func NewClassifier(rules []Rule) (*Classifier, error) {
	if err := Validate(rules); err != nil {
		return nil, err
	}
	return &Classifier{rules: rules}, nil
}

// NewBuiltinClassifier returns a classifier over the built-in signature set.
func NewBuiltinClassifier() (*Classifier, error) {
	return NewClassifier(BuiltinRules())
}

// Rules returns the rule table in match order (for the rules command).
func (c *Classifier) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Classify returns the suppression action for one descriptor. parent is the
// parent's descriptor from the same snapshot, nil for top-level windows.
// The first rule whose constraints all match wins; a descriptor with an
// empty or unknown class name yields NoOp.
func (c *Classifier) Classify(d domain.WindowDescriptor, parent *domain.WindowDescriptor) domain.Action {
	if d.Class == "" {
		return domain.Action{Kind: domain.ActionNoOp}
	}

	for _, r := range c.rules {
		if !matchPattern(r.ClassPattern, d.Class) {
			continue
		}
		if r.ParentPattern != "" {
			if parent == nil || !matchPattern(r.ParentPattern, parent.Class) {
				continue
			}
		}
		if r.PopupOnly && !d.Popup {
			continue
		}

		action := domain.Action{Kind: r.Action}
		if r.Action == domain.ActionResize {
			action.Width = resolveDim(r.Resize.Width, d.Rect.Width)
			action.Height = resolveDim(r.Resize.Height, d.Rect.Height)
		}
		return action
	}

	return domain.Action{Kind: domain.ActionNoOp}
}

func matchPattern(pattern, name string) bool {
	// Patterns are validated at construction; Match cannot fail here.
	ok, _ := path.Match(pattern, name)
	return ok
}

func resolveDim(policy, observed int) int {
	if policy == KeepDim {
		return observed
	}
	return policy
}

// Ensure Classifier implements domain.Classifier.
var _ domain.Classifier = (*Classifier)(nil)
