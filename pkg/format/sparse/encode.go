package sparse

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/matzehuels/wafermap/pkg/errors"
	"github.com/matzehuels/wafermap/pkg/wafer"
)

const (
	// testedAdjustment is subtracted from the record count to obtain the
	// tested total. Inherited from the legacy WLBI writer; confirm against
	// the prober output specification before using it for yield reporting.
	testedAdjustment = 2

	// histogramMaxBin is the highest bin listed in the trailer table.
	histogramMaxBin = 150

	// histogramPerLine is the number of bins printed per trailer line.
	histogramPerLine = 7
)

// Summary is the result of laying a composite grid over the original record
// order.
type Summary struct {
	// Bins holds the bin label of each record, in record order.
	Bins []string

	// Histogram counts records per bin label.
	Histogram map[string]int

	// Stats uses the legacy tested total (records minus two).
	Stats wafer.Stats

	// Surplus counts composite codes left over after every record was
	// assigned a code.
	Surplus int
}

// Summarize assigns the composite's non-blank codes, in row-major order, to
// records in their original order. The composite must hold at least one code
// per record; fewer codes fail with DIE_MISMATCH. A code still equal to
// wafer.Wide writes the record's original bin.
func Summarize(records []Record, composite wafer.Grid) (*Summary, error) {
	codes := composite.Codes()
	if len(codes) < len(records) {
		return nil, errors.New(errors.ErrCodeDieMismatch,
			"composite has %d dies, sparse source has %d records", len(codes), len(records))
	}

	s := &Summary{
		Bins:      make([]string, len(records)),
		Histogram: make(map[string]int),
		Surplus:   len(codes) - len(records),
	}
	for i, r := range records {
		bin := r.Label(codes[i])
		s.Bins[i] = bin
		s.Histogram[bin]++
	}

	tested := len(records) - testedAdjustment
	pass := s.Histogram[wafer.Pass.String()] + s.Histogram[wafer.PassAlt.String()]
	s.Stats = wafer.Stats{Tested: tested, Pass: pass, Fail: tested - pass}
	if tested > 0 {
		s.Stats.Yield = 100 * float64(pass) / float64(tested)
	}
	return s, nil
}

// Encode regenerates a sparse file from the original header lines and
// record order, taking each die's bin from composite.
func Encode(records []Record, composite wafer.Grid, headerLines []string) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, records, composite, headerLines); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Reencode is Encode using m's own records and header.
func (m *Map) Reencode(composite wafer.Grid) ([]byte, error) {
	return Encode(m.Records, composite, m.HeaderLines)
}

// Write streams the sparse encoding to w.
func Write(w io.Writer, records []Record, composite wafer.Grid, headerLines []string) error {
	s, err := Summarize(records, composite)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	for _, line := range headerLines {
		bw.WriteString(rewriteHeaderLine(line, s.Stats))
		bw.WriteString("\n")
	}
	bw.WriteString(Marker + "\n")
	for i, r := range records {
		fmt.Fprintf(bw, "%d %d %s\n", r.X, r.Y, s.Bins[i])
	}

	fmt.Fprintf(bw, "Total Prober Test Dies: %d\n", s.Stats.Tested)
	fmt.Fprintf(bw, "Total Prober Pass Dies: %d\n", s.Stats.Pass)
	writeHistogram(bw, s.Histogram)
	bw.WriteString("## END ##\n")
	return bw.Flush()
}

// rewriteHeaderLine replaces the value of the four statistics keys.
func rewriteHeaderLine(line string, stats wafer.Stats) string {
	trimmed := strings.TrimSpace(line)
	for _, key := range []string{wafer.KeyTotalTested, wafer.KeyTotalPass, wafer.KeyTotalFail, wafer.KeyYield} {
		if !strings.HasPrefix(trimmed, key+":") {
			continue
		}
		value, _ := stats.Value(key)
		return key + ": " + value
	}
	return line
}

func writeHistogram(w *bufio.Writer, hist map[string]int) {
	entries := make([]string, 0, histogramPerLine)
	for bin := 0; bin <= histogramMaxBin; bin++ {
		entries = append(entries, fmt.Sprintf("Bin %03d: %-6d", bin, hist[strconv.Itoa(bin)]))
		if len(entries) == histogramPerLine || bin == histogramMaxBin {
			w.WriteString(strings.TrimRight(strings.Join(entries, " "), " "))
			w.WriteString("\n")
			entries = entries[:0]
		}
	}
}
