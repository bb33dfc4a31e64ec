package overlay

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/matzehuels/wafermap/pkg/wafer"
)

// WriteReport writes a human-readable trace of the merge: the order, the
// seed grid, every applied source with its changes, the final composite and
// its statistics.
func WriteReport(w io.Writer, res *Result) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "Overlay order: %s\n", strings.Join(res.Order, ", "))
	fmt.Fprintf(bw, "Policy: %s\n", res.Policy)
	for _, ex := range res.Excluded {
		fmt.Fprintf(bw, "Excluded: %s (%s: %s)\n", ex.Station, ex.Code, ex.Reason)
	}
	fmt.Fprintln(bw)

	fmt.Fprintln(bw, "===== overlay start =====")
	fmt.Fprintln(bw, "Initial map:")
	writeGrid(bw, res.Initial)
	fmt.Fprintln(bw)

	for i, s := range res.Steps {
		fmt.Fprintf(bw, "Apply map %d (%s, priority %d):\n", i+1, s.Station, s.Priority)
		writeGrid(bw, s.Source)
		fmt.Fprintln(bw)
		fmt.Fprintln(bw, "Result after overlay:")
		fmt.Fprintf(bw, "%d positions changed\n", len(s.Changes))
		writeGrid(bw, s.Composite)
		fmt.Fprintln(bw)
		if len(s.Unaligned) > 0 {
			fmt.Fprintf(bw, "Unaligned rows: %s\n\n", joinInts(s.Unaligned))
		}
		fmt.Fprintln(bw, "Changes:")
		for _, c := range s.Changes {
			fmt.Fprintln(bw, c.String())
		}
		fmt.Fprintln(bw)
	}

	fmt.Fprintln(bw, "===== overlay end =====")
	fmt.Fprintln(bw, "Final map:")
	writeGrid(bw, res.Composite)

	st := wafer.ComputeStats(res.Composite)
	fmt.Fprintln(bw)
	fmt.Fprintln(bw, "Statistics:")
	fmt.Fprintf(bw, "%s: %d\n", wafer.KeyTotalTested, st.Tested)
	fmt.Fprintf(bw, "%s: %d\n", wafer.KeyTotalPass, st.Pass)
	fmt.Fprintf(bw, "%s: %d\n", wafer.KeyTotalFail, st.Fail)
	fmt.Fprintf(bw, "%s: %s\n", wafer.KeyYield, st.YieldString())

	return bw.Flush()
}

// Report renders WriteReport into a byte slice.
func Report(res *Result) []byte {
	var buf bytes.Buffer
	_ = WriteReport(&buf, res)
	return buf.Bytes()
}

func writeGrid(w io.Writer, g wafer.Grid) {
	for _, row := range g {
		fmt.Fprintln(w, string(row))
	}
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprint(x)
	}
	return strings.Join(parts, ", ")
}
