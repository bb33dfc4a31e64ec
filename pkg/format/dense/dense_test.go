package dense

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/wafermap/pkg/errors"
	"github.com/matzehuels/wafermap/pkg/wafer"
)

const sample = `Device: S1M032120B
Lot: B003332
Total Tested: 0
Total Pass: 0
Total Fail: 0
Yield: 0.00%
Notes without separator

..*123
..S11.
.1131.
`

func TestDecode(t *testing.T) {
	m, err := Decode([]byte(sample))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}

	wantKeys := []string{"Device", "Lot", "Total Tested", "Total Pass", "Total Fail", "Yield"}
	if diff := cmp.Diff(wantKeys, m.Header.Keys()); diff != "" {
		t.Errorf("header keys mismatch (-want +got):\n%s", diff)
	}
	if v, _ := m.Header.Get("Lot"); v != "B003332" {
		t.Errorf("Lot = %q, want B003332", v)
	}

	wantRows := []string{"..*123", "..S11.", ".1131."}
	if diff := cmp.Diff(wantRows, m.Grid.Strings()); diff != "" {
		t.Errorf("grid mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeWithoutAnchor(t *testing.T) {
	m, err := Decode([]byte("A.1\n\n1..\n"))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if m.Header.Len() != 0 {
		t.Errorf("header should be empty, got %v", m.Header.Keys())
	}
	if diff := cmp.Diff([]string{"A.1", "1.."}, m.Grid.Strings()); diff != "" {
		t.Errorf("grid mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeMapMarker(t *testing.T) {
	m, err := Decode([]byte("Wafer: 01\r\n[MAP]:\r\n.1.\r\n"))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if v, _ := m.Header.Get("Wafer"); v != "01" {
		t.Errorf("Wafer = %q, want 01", v)
	}
	if diff := cmp.Diff([]string{"[MAP]:", ".1."}, m.Grid.Strings()); diff != "" {
		t.Errorf("marker line is kept verbatim as a row (-want +got):\n%s", diff)
	}
}

func TestDecodeEmpty(t *testing.T) {
	for _, in := range []string{"", "\n\n  \n"} {
		_, err := Decode([]byte(in))
		if !errors.Is(err, errors.ErrCodeFormat) {
			t.Errorf("Decode(%q) error = %v, want FORMAT_ERROR", in, err)
		}
	}
}

func TestEncodeRewritesStats(t *testing.T) {
	m, err := Decode([]byte(sample))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	stats := wafer.ComputeStats(m.Grid)
	out := string(Encode(m.Header, m.Grid, stats))

	want := `Device: S1M032120B
Lot: B003332
Total Tested: 9
Total Pass: 6
Total Fail: 3
Yield: 66.67%

..*123
..S11.
.1131.
`
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("Encode() mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTrip(t *testing.T) {
	grids := [][]string{
		{"..*12", ".S111", "11311"},
		{".S", "1"},
		{"..*", "A.1", "", "1.."},
	}
	for _, rows := range grids {
		g := wafer.ParseRows(rows...)
		h := wafer.NewHeader()
		h.Set("Device", "X")
		h.Set("Yield", "ignored")

		m, err := Decode(Encode(h, g, wafer.ComputeStats(g)))
		if err != nil {
			t.Fatalf("Decode(Encode(%q)) error: %v", rows, err)
		}

		var want []string
		for _, r := range rows {
			if strings.TrimSpace(r) != "" {
				want = append(want, r)
			}
		}
		if diff := cmp.Diff(want, m.Grid.Strings()); diff != "" {
			t.Errorf("round trip grid mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(h.Keys(), m.Header.Keys()); diff != "" {
			t.Errorf("round trip header mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestRead(t *testing.T) {
	m, err := Read(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if m.Grid.Rows() != 3 {
		t.Errorf("Rows() = %d, want 3", m.Grid.Rows())
	}
}
