package overlay

import (
	"sort"

	"github.com/matzehuels/wafermap/pkg/errors"
	"github.com/matzehuels/wafermap/pkg/wafer"
)

// Policy decides whether an incoming cell replaces the current composite
// cell. Engines only consult a Policy for a non-blank incoming cell that
// differs from the current one.
type Policy interface {
	Name() string
	ShouldReplace(current, incoming wafer.Cell) bool
}

// Policy names accepted by PolicyByName.
const (
	PolicyHigherBin = "higher-bin"
	PolicyNonPass   = "non-pass"
)

// DefaultPolicy is used when no policy is configured.
const DefaultPolicy = PolicyHigherBin

// HigherBin lets a higher digit replace a lower one, fills blank cells, and
// lets any non-digit code replace.
type HigherBin struct{}

func (HigherBin) Name() string { return PolicyHigherBin }

func (HigherBin) ShouldReplace(current, incoming wafer.Cell) bool {
	if incoming.IsBlank() {
		return false
	}
	if current.IsDigit() && incoming.IsDigit() {
		return incoming > current
	}
	if current.IsBlank() {
		return true
	}
	return !incoming.IsDigit()
}

// NonPass lets every non-blank code except a pass ('1') replace.
type NonPass struct{}

func (NonPass) Name() string { return PolicyNonPass }

func (NonPass) ShouldReplace(current, incoming wafer.Cell) bool {
	if incoming.IsBlank() {
		return false
	}
	return incoming != wafer.Pass
}

var policies = map[string]Policy{
	PolicyHigherBin: HigherBin{},
	PolicyNonPass:   NonPass{},
}

// PolicyByName returns the named policy. An empty name selects DefaultPolicy.
func PolicyByName(name string) (Policy, error) {
	if name == "" {
		name = DefaultPolicy
	}
	p, ok := policies[name]
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidPolicy,
			"unknown replacement policy %q (must be one of: %s, %s)", name, PolicyHigherBin, PolicyNonPass)
	}
	return p, nil
}

// PolicyNames lists the registered policy names in sorted order.
func PolicyNames() []string {
	names := make([]string, 0, len(policies))
	for n := range policies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
