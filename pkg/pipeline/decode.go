package pipeline

import (
	"context"
	"os"
	"time"

	"github.com/matzehuels/wafermap/pkg/cache"
	"github.com/matzehuels/wafermap/pkg/errors"
	"github.com/matzehuels/wafermap/pkg/format/dense"
	"github.com/matzehuels/wafermap/pkg/format/sparse"
	"github.com/matzehuels/wafermap/pkg/observability"
	"github.com/matzehuels/wafermap/pkg/wafer"
)

// Decoded is one station source after parsing.
type Decoded struct {
	Station string
	Format  string

	// Header is set for dense sources.
	Header *wafer.Header

	// Sparse is set for sparse sources; it keeps the record order needed
	// to re-encode the sparse output.
	Sparse *sparse.Map

	Grid wafer.Grid
}

// Load summarises d for display.
func (d *Decoded) Load() SourceLoad {
	l := SourceLoad{
		Station: d.Station,
		Format:  d.Format,
		Rows:    d.Grid.Rows(),
		Cols:    d.Grid.Width(),
	}
	if d.Sparse != nil {
		l.Malformed = d.Sparse.Malformed
	}
	return l
}

// ReadSource returns the raw bytes of spec. A missing file fails with
// MISSING_SOURCE, any other read failure with FORMAT_ERROR.
func ReadSource(spec SourceSpec) ([]byte, error) {
	if spec.Content != nil {
		return spec.Content, nil
	}
	data, err := os.ReadFile(spec.Path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeMissingSource, err, "station %s: %s does not exist", spec.Station, spec.Path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFormat, err, "station %s: read %s", spec.Station, spec.Path)
	}
	return data, nil
}

// DecodeBytes parses data as the given source format. A source without any
// grid rows fails with EMPTY_SOURCE.
func DecodeBytes(station, format string, data []byte) (*Decoded, error) {
	d := &Decoded{Station: station, Format: format}
	switch format {
	case SourceSparse:
		m := sparse.Decode(data)
		d.Sparse = m
		d.Grid = m.Grid
	case SourceDense, "":
		d.Format = SourceDense
		m, err := dense.Decode(data)
		if err != nil {
			return nil, errors.Wrap(errors.GetCode(err), err, "station %s", station)
		}
		d.Header = m.Header
		d.Grid = m.Grid
	default:
		return nil, ValidateSourceFormat(format)
	}
	if d.Grid.Empty() {
		return nil, errors.New(errors.ErrCodeEmptySource, "station %s: no map data", station)
	}
	return d, nil
}

// Decode reads and parses one source without caching.
func Decode(spec SourceSpec) (*Decoded, error) {
	data, err := ReadSource(spec)
	if err != nil {
		return nil, err
	}
	return DecodeBytes(spec.Station, spec.Format, data)
}

// gridPayload is the cached form of a decoded source.
type gridPayload struct {
	HeaderKeys   []string        `msgpack:"hk,omitempty"`
	HeaderValues []string        `msgpack:"hv,omitempty"`
	HeaderLines  []string        `msgpack:"hl,omitempty"`
	Rows         []string        `msgpack:"rows"`
	Records      []sparse.Record `msgpack:"recs,omitempty"`
	Malformed    int             `msgpack:"mal,omitempty"`
}

func toPayload(d *Decoded) gridPayload {
	p := gridPayload{Rows: d.Grid.Strings()}
	if d.Header != nil {
		for _, k := range d.Header.Keys() {
			v, _ := d.Header.Get(k)
			p.HeaderKeys = append(p.HeaderKeys, k)
			p.HeaderValues = append(p.HeaderValues, v)
		}
	}
	if d.Sparse != nil {
		p.HeaderLines = d.Sparse.HeaderLines
		p.Records = d.Sparse.Records
		p.Malformed = d.Sparse.Malformed
	}
	return p
}

func fromPayload(station, format string, p gridPayload) *Decoded {
	d := &Decoded{Station: station, Format: format, Grid: wafer.ParseRows(p.Rows...)}
	if format == SourceSparse {
		d.Sparse = &sparse.Map{
			HeaderLines: p.HeaderLines,
			Records:     p.Records,
			Grid:        d.Grid,
			Malformed:   p.Malformed,
		}
		return d
	}
	d.Header = wafer.NewHeader()
	for i, k := range p.HeaderKeys {
		if i < len(p.HeaderValues) {
			d.Header.Set(k, p.HeaderValues[i])
		}
	}
	return d
}

// DecodeWithCacheInfo reads and parses one source, consulting the cache by
// content hash. It reports whether the grid came from the cache. Cache
// failures are logged and never fail the decode.
func (r *Runner) DecodeWithCacheInfo(ctx context.Context, spec SourceSpec) (*Decoded, bool, error) {
	if spec.Format == "" {
		spec.Format = DefaultSourceFormat
	}
	start := time.Now()
	observability.Pipeline().OnDecodeStart(ctx, spec.Station, spec.Format)

	d, hit, err := r.decode(ctx, spec)

	rows := 0
	if d != nil {
		rows = d.Grid.Rows()
	}
	observability.Pipeline().OnDecodeComplete(ctx, spec.Station, spec.Format, rows, time.Since(start), err)
	return d, hit, err
}

func (r *Runner) decode(ctx context.Context, spec SourceSpec) (*Decoded, bool, error) {
	data, err := ReadSource(spec)
	if err != nil {
		return nil, false, err
	}

	key := r.Keyer.GridKey(spec.Format, data)
	var p gridPayload
	if hit, err := cache.GetValue(ctx, r.Cache, "grid", key, &p); err != nil {
		r.Logger.Debug("cache read failed", "station", spec.Station, "error", err)
	} else if hit && len(p.Rows) > 0 {
		return fromPayload(spec.Station, spec.Format, p), true, nil
	}

	d, err := DecodeBytes(spec.Station, spec.Format, data)
	if err != nil {
		return nil, false, err
	}
	if err := cache.SetValue(ctx, r.Cache, "grid", key, toPayload(d), cache.GridTTL); err != nil {
		r.Logger.Debug("cache write failed", "station", spec.Station, "error", err)
	}
	return d, false, nil
}
