package pipeline

import (
	"bytes"
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/wafermap/pkg/errors"
	"github.com/matzehuels/wafermap/pkg/format/dense"
	"github.com/matzehuels/wafermap/pkg/format/hex"
	pkgio "github.com/matzehuels/wafermap/pkg/io"
	"github.com/matzehuels/wafermap/pkg/observability"
	"github.com/matzehuels/wafermap/pkg/overlay"
	"github.com/matzehuels/wafermap/pkg/wafer"
)

// Encode renders the composite in every format the job requests.
//
// Dense outputs take their header from the first dense source in merge
// order; without one a header holding only the statistics keys is written.
// The sparse output re-encodes the first sparse source in merge order and is
// skipped with a warning when there is none or its die count does not match
// the composite.
func Encode(ctx context.Context, job Job, sources map[string]*Decoded, res *overlay.Result, logger *log.Logger) map[string][]byte {
	start := time.Now()
	observability.Pipeline().OnEncodeStart(ctx, job.Formats)

	stats := wafer.ComputeStats(res.Composite)
	out := make(map[string][]byte, len(job.Formats))

	for _, format := range job.Formats {
		switch format {
		case FormatMapEx, FormatWaferMap:
			out[format] = dense.Encode(denseHeader(sources, res.Order), res.Composite, stats)
		case FormatHex:
			out[format] = hex.Encode(res.Composite)
		case FormatSparse:
			data, err := encodeSparse(sources, res)
			if err != nil {
				logger.Warn("skipping sparse output", "wafer", job.WaferID, "error", err)
				continue
			}
			out[format] = data
		case FormatJSON:
			var buf bytes.Buffer
			if err := pkgio.WriteJSON(pkgio.FromResult(job.WaferID, job.Name, res), &buf); err != nil {
				logger.Warn("skipping json output", "wafer", job.WaferID, "error", err)
				continue
			}
			out[format] = buf.Bytes()
		case FormatDebug:
			out[format] = overlay.Report(res)
		}
	}

	observability.Pipeline().OnEncodeComplete(ctx, job.Formats, time.Since(start), nil)
	return out
}

func denseHeader(sources map[string]*Decoded, order []string) *wafer.Header {
	for _, station := range order {
		if d := sources[station]; d != nil && d.Header != nil {
			return d.Header
		}
	}
	h := wafer.NewHeader()
	for _, k := range []string{wafer.KeyTotalTested, wafer.KeyTotalPass, wafer.KeyTotalFail, wafer.KeyYield} {
		h.Set(k, "")
	}
	return h
}

func encodeSparse(sources map[string]*Decoded, res *overlay.Result) ([]byte, error) {
	for _, station := range res.Order {
		if d := sources[station]; d != nil && d.Sparse != nil {
			return d.Sparse.Reencode(res.Composite)
		}
	}
	return nil, errors.New(errors.ErrCodeInvalidFormat, "no sparse source to re-encode")
}
