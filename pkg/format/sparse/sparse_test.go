package sparse

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/wafermap/pkg/errors"
	"github.com/matzehuels/wafermap/pkg/wafer"
)

const sample = `WaferID: B003332-01
Total Tested: 0
Total Pass: 0
Total Fail: 0
Yield: 0.00%
[MAP]:
10 5 1
11 5 42
12 5 257
10 6 3
11 6 x
12 6 2
Total Prober Test Dies: 3
Bin 000: 0      Bin 001: 1
## END ##
`

func TestDecodeScenario(t *testing.T) {
	m := Decode([]byte("[MAP]:\n0 0 1\n2 0 257\n0 1 3\n"))

	want := []string{"1.S", "3.."}
	if diff := cmp.Diff(want, m.Grid.Strings()); diff != "" {
		t.Errorf("grid mismatch (-want +got):\n%s", diff)
	}
	if len(m.Records) != 3 {
		t.Errorf("Records = %d, want 3", len(m.Records))
	}
}

func TestDecode(t *testing.T) {
	m := Decode([]byte(sample))

	if diff := cmp.Diff([]string{"1#S", "3.2"}, m.Grid.Strings()); diff != "" {
		t.Errorf("grid mismatch (-want +got):\n%s", diff)
	}
	if m.Malformed != 1 {
		t.Errorf("Malformed = %d, want 1", m.Malformed)
	}
	if len(m.HeaderLines) != 5 || m.HeaderLines[0] != "WaferID: B003332-01" {
		t.Errorf("HeaderLines = %q", m.HeaderLines)
	}
	wantOrder := []Record{{10, 5, '1', 1}, {11, 5, '#', 42}, {12, 5, 'S', 257}, {10, 6, '3', 3}, {12, 6, '2', 2}}
	if diff := cmp.Diff(wantOrder, m.Records); diff != "" {
		t.Errorf("record order mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeUnsortedInput(t *testing.T) {
	m := Decode([]byte("[MAP]:\n3 2 1\n1 1 4\n2 2 5\n"))
	want := []string{"4..", ".51"}
	if diff := cmp.Diff(want, m.Grid.Strings()); diff != "" {
		t.Errorf("grid mismatch (-want +got):\n%s", diff)
	}
	if m.Records[0].X != 3 {
		t.Error("Records should keep file order")
	}
}

func TestDecodeNoRecords(t *testing.T) {
	tests := []string{
		"",
		"Header: only\n",
		"[MAP]:\nTotal Prober Test Dies: 0\n## END ##\n",
		"[MAP]:\na b c\n",
	}
	for _, in := range tests {
		m := Decode([]byte(in))
		if !m.Grid.Empty() {
			t.Errorf("Decode(%q) grid = %q, want empty", in, m.Grid.Strings())
		}
	}
}

func TestDecodeMultiDigitBins(t *testing.T) {
	m := Decode([]byte("Total Tested: 0\n[MAP]:\n0 0 1\n1 0 42\n2 0 12\n"))
	if len(m.Records) != 3 {
		t.Fatalf("Records = %d, want 3", len(m.Records))
	}
	if diff := cmp.Diff([]string{"1##"}, m.Grid.Strings()); diff != "" {
		t.Errorf("grid mismatch (-want +got):\n%s", diff)
	}

	out, err := m.Reencode(m.Grid)
	if err != nil {
		t.Fatalf("Reencode() error: %v", err)
	}
	for _, want := range []string{"0 0 1\n1 0 42\n2 0 12\n", "Bin 012: 1", "Bin 042: 1"} {
		if !strings.Contains(string(out), want) {
			t.Errorf("Reencode() output missing %q:\n%s", want, out)
		}
	}
}

func TestCellForBin(t *testing.T) {
	tests := []struct {
		bin  int
		want wafer.Cell
	}{
		{0, '0'},
		{9, '9'},
		{257, 'S'},
		{10, wafer.Wide},
		{150, wafer.Wide},
		{-1, wafer.Wide},
	}
	for _, tt := range tests {
		if got := CellForBin(tt.bin); got != tt.want {
			t.Errorf("CellForBin(%d) = %q, want %q", tt.bin, got, tt.want)
		}
	}
}

func TestRecordLabel(t *testing.T) {
	r := Record{X: 1, Y: 2, Cell: wafer.Wide, Bin: 42}
	tests := []struct {
		code wafer.Cell
		want string
	}{
		{wafer.Wide, "42"},
		{'7', "7"},
		{wafer.Skip, "257"},
		{'A', "A"},
	}
	for _, tt := range tests {
		if got := r.Label(tt.code); got != tt.want {
			t.Errorf("Label(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
	if got := r.String(); got != "1 2 42" {
		t.Errorf("String() = %q, want %q", got, "1 2 42")
	}
}

func TestIdentityRoundTrip(t *testing.T) {
	m := Decode([]byte(sample))
	out, err := m.Reencode(m.Grid)
	if err != nil {
		t.Fatalf("Reencode() error: %v", err)
	}

	again := Decode(out)
	if diff := cmp.Diff(m.Records, again.Records); diff != "" {
		t.Errorf("records changed in identity round trip (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(m.Grid.Strings(), again.Grid.Strings()); diff != "" {
		t.Errorf("grid changed in identity round trip (-want +got):\n%s", diff)
	}
	if !strings.Contains(string(out), "\n11 5 42\n") {
		t.Errorf("identity output lost the multi-digit bin:\n%s", out)
	}
}

func TestEncode(t *testing.T) {
	m := Decode([]byte(sample))
	composite := wafer.ParseRows("1#S", "1.A")

	out, err := Encode(m.Records, composite, m.HeaderLines)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")

	wantHead := []string{
		"WaferID: B003332-01",
		"Total Tested: 3",
		"Total Pass: 3",
		"Total Fail: 0",
		"Yield: 100.00%",
		"[MAP]:",
		"10 5 1",
		"11 5 42",
		"12 5 257",
		"10 6 1",
		"12 6 A",
		"Total Prober Test Dies: 3",
		"Total Prober Pass Dies: 3",
	}
	if diff := cmp.Diff(wantHead, lines[:len(wantHead)]); diff != "" {
		t.Errorf("Encode() head mismatch (-want +got):\n%s", diff)
	}

	table := lines[len(wantHead) : len(lines)-1]
	if len(table) != 22 {
		t.Fatalf("histogram lines = %d, want 22 (bins 0..150, seven per line)", len(table))
	}
	if !strings.HasPrefix(table[0], "Bin 000: 0") || !strings.Contains(table[0], "Bin 001: 2") {
		t.Errorf("first histogram line = %q", table[0])
	}
	if !strings.HasPrefix(table[6], "Bin 042: 1 ") {
		t.Errorf("histogram line for bins 42..48 = %q", table[6])
	}
	if table[21] != "Bin 147: 0      Bin 148: 0      Bin 149: 0      Bin 150: 0" {
		t.Errorf("last histogram line = %q", table[21])
	}
	if lines[len(lines)-1] != "## END ##" {
		t.Errorf("last line = %q, want end marker", lines[len(lines)-1])
	}
}

func TestSummarize(t *testing.T) {
	records := []Record{{0, 0, '1', 1}, {1, 0, '1', 1}, {0, 1, '1', 1}, {1, 1, '1', 1}, {2, 1, '1', 1}}
	s, err := Summarize(records, wafer.ParseRows("13", "1S1.9"))
	if err != nil {
		t.Fatalf("Summarize() error: %v", err)
	}
	if diff := cmp.Diff([]string{"1", "3", "1", "257", "1"}, s.Bins); diff != "" {
		t.Errorf("Bins mismatch (-want +got):\n%s", diff)
	}
	if s.Surplus != 1 {
		t.Errorf("Surplus = %d, want 1", s.Surplus)
	}
	if s.Stats.Tested != 3 || s.Stats.Pass != 3 || s.Stats.Fail != 0 {
		t.Errorf("Stats = %+v, want tested=3 pass=3 fail=0", s.Stats)
	}
}

func TestSummarizeDieMismatch(t *testing.T) {
	records := []Record{{0, 0, '1', 1}, {1, 0, '1', 1}}
	_, err := Summarize(records, wafer.ParseRows("1."))
	if !errors.Is(err, errors.ErrCodeDieMismatch) {
		t.Errorf("Summarize() error = %v, want DIE_MISMATCH", err)
	}
}

func TestSummarizeWideBins(t *testing.T) {
	records := []Record{{0, 0, wafer.Wide, 42}, {1, 0, wafer.Wide, 12}, {2, 0, '1', 1}}
	s, err := Summarize(records, wafer.ParseRows("#5#"))
	if err != nil {
		t.Fatalf("Summarize() error: %v", err)
	}
	if diff := cmp.Diff([]string{"42", "5", "1"}, s.Bins); diff != "" {
		t.Errorf("Bins mismatch (-want +got):\n%s", diff)
	}
	if s.Histogram["42"] != 1 || s.Histogram["5"] != 1 || s.Histogram["1"] != 1 {
		t.Errorf("Histogram = %v", s.Histogram)
	}
}
