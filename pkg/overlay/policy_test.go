package overlay

import (
	"testing"

	"github.com/matzehuels/wafermap/pkg/errors"
	"github.com/matzehuels/wafermap/pkg/wafer"
)

func TestHigherBin(t *testing.T) {
	tests := []struct {
		current, incoming wafer.Cell
		want              bool
	}{
		{'1', '3', true},
		{'3', '1', false},
		{'.', '1', true},
		{' ', 'X', true},
		{'1', '.', false},
		{'1', ' ', false},
		{'3', 'X', true},
		{'X', '3', false},
		{'X', 'Y', true},
	}
	p := HigherBin{}
	for _, tt := range tests {
		if got := p.ShouldReplace(tt.current, tt.incoming); got != tt.want {
			t.Errorf("HigherBin.ShouldReplace(%q, %q) = %v, want %v", tt.current, tt.incoming, got, tt.want)
		}
	}
}

func TestNonPass(t *testing.T) {
	tests := []struct {
		current, incoming wafer.Cell
		want              bool
	}{
		{'5', '1', false},
		{'5', '2', true},
		{'1', 'X', true},
		{'3', '.', false},
		{'.', '1', false},
	}
	p := NonPass{}
	for _, tt := range tests {
		if got := p.ShouldReplace(tt.current, tt.incoming); got != tt.want {
			t.Errorf("NonPass.ShouldReplace(%q, %q) = %v, want %v", tt.current, tt.incoming, got, tt.want)
		}
	}
}

func TestPolicyByName(t *testing.T) {
	for _, name := range []string{"", PolicyHigherBin, PolicyNonPass} {
		p, err := PolicyByName(name)
		if err != nil {
			t.Errorf("PolicyByName(%q) error = %v", name, err)
			continue
		}
		want := name
		if want == "" {
			want = DefaultPolicy
		}
		if p.Name() != want {
			t.Errorf("PolicyByName(%q).Name() = %q, want %q", name, p.Name(), want)
		}
	}
	if _, err := PolicyByName("lowest"); !errors.Is(err, errors.ErrCodeInvalidPolicy) {
		t.Errorf("PolicyByName(lowest) error = %v, want INVALID_POLICY", err)
	}
}

func TestPriorityTable(t *testing.T) {
	tbl := PriorityFromOrder([]string{"AOI", "CP1", "CP2"})
	if p, _ := tbl.Lookup("CP2"); p != 3 {
		t.Errorf("CP2 priority = %d, want 3", p)
	}
	if got := tbl.Order(); len(got) != 3 || got[0] != "AOI" || got[2] != "CP2" {
		t.Errorf("Order() = %v", got)
	}
	if err := tbl.Validate([]string{"AOI", "CP1", "WLBI"}); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	tbl["WLBI"] = 1
	if err := tbl.Validate([]string{"AOI", "WLBI"}); !errors.Is(err, errors.ErrCodeInvalidPriority) {
		t.Errorf("Validate() error = %v, want INVALID_PRIORITY", err)
	}
}
