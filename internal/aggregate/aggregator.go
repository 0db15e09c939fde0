package aggregate

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/kylixs/flareon/internal/decoder"
	"github.com/kylixs/flareon/internal/logging"
	"github.com/labstack/gommon/log"
)

// SpanMode selects how the time span of a file is derived.
type SpanMode string

const (
	// SpanFirstLast takes the first timestamp seen as start and the last one
	// seen as end. The span follows decoder order and is wrong for out-of-order input.
	SpanFirstLast SpanMode = "first-last"
	// SpanMinMax takes the smallest and largest timestamps.
	SpanMinMax SpanMode = "min-max"
)

// nanosPerMilli converts decoder time (ns) to milliseconds.
const nanosPerMilli = int64(time.Millisecond)

// ParseSpanMode converts a config value. Empty means SpanFirstLast.
func ParseSpanMode(s string) (SpanMode, error) {
	switch SpanMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", SpanFirstLast:
		return SpanFirstLast, nil
	case SpanMinMax:
		return SpanMinMax, nil
	}
	return SpanFirstLast, fmt.Errorf("unknown time span mode: %s", s)
}

// ErrAlreadyParsed is returned when Populate is called on a parsed aggregation.
var ErrAlreadyParsed = errors.New("aggregation already parsed")

// Aggregator fills aggregations from raw trace bytes.
type Aggregator struct {
	decoders *decoder.Registry
	mode     SpanMode
	logger   *log.Logger
}

// NewAggregator creates an aggregator using the given decoder registry.
func NewAggregator(decoders *decoder.Registry, mode SpanMode) *Aggregator {
	if mode == "" {
		mode = SpanFirstLast
	}
	return &Aggregator{
		decoders: decoders,
		mode:     mode,
		logger:   logging.New("aggregate"),
	}
}

// Mode returns the span mode in use.
func (ag *Aggregator) Mode() SpanMode {
	return ag.mode
}

// timeSpan accumulates start/end timestamps.
type timeSpan struct {
	mode  SpanMode
	seen  bool
	start int64
	end   int64
}

func (s *timeSpan) observe(t int64) {
	switch s.mode {
	case SpanMinMax:
		if !s.seen || t < s.start {
			s.start = t
		}
		if !s.seen || t > s.end {
			s.end = t
		}
	default:
		if !s.seen {
			s.start = t
		}
		s.end = t
	}
	s.seen = true
}

// Populate decodes data into agg. Records are bucketed by type and the time
// span is derived from their startTime attribute.
//
// A decode failure keeps the buckets filled so far and the span captured so
// far; the failure is logged and returned. Either way agg is marked parsed.
func (ag *Aggregator) Populate(agg *Aggregation, data []byte) error {
	if agg.Parsed() {
		return ErrAlreadyParsed
	}

	start := time.Now()
	order := make([]string, 0, 16)
	buckets := make(map[string][]map[string]any)
	span := timeSpan{mode: ag.mode}

	decodeErr := ag.consume(data, func(rec decoder.Record) {
		bucket, ok := buckets[rec.Type]
		if !ok {
			order = append(order, rec.Type)
		}
		buckets[rec.Type] = append(bucket, rec.Attributes)

		if t, ok := TimeValue(rec.Attributes[decoder.StartTimeKey]); ok {
			span.observe(t)
		}
	})

	if !agg.commit(order, buckets, span, decodeErr) {
		return ErrAlreadyParsed
	}

	if decodeErr != nil {
		ag.logger.Errorf("Failed to load %s after %d types: %v", fileName(agg), len(order), decodeErr)
		return decodeErr
	}
	ag.logger.Infof("Parsed %s: %d event types in %v", fileName(agg), len(order), time.Since(start))
	return nil
}

// Fail marks agg parsed with no events when its bytes could not be decoded
// at all (a corrupt compressed stream). cause is kept as agg.Err().
func (ag *Aggregator) Fail(agg *Aggregation, cause error) error {
	if !agg.commit(nil, map[string][]map[string]any{}, timeSpan{mode: ag.mode}, cause) {
		return ErrAlreadyParsed
	}
	ag.logger.Errorf("Failed to load %s: %v", fileName(agg), cause)
	return nil
}

func fileName(agg *Aggregation) string {
	if agg.File == nil {
		return ""
	}
	return agg.File.Name
}

// consume feeds every decoded record to fn until the stream ends or fails.
func (ag *Aggregator) consume(data []byte, fn func(decoder.Record)) error {
	it, d, err := ag.decoders.Decode(data)
	if err != nil {
		return err
	}
	ag.logger.Debugf("Using decoder %s", d.Name())

	for {
		rec, err := it.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		fn(rec)
	}
}

// TimeValue converts a startTime attribute to int64. Non-numeric values and
// values outside the int64 range (including NaN and infinities) are rejected.
func TimeValue(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int16:
		return int64(n), true
	case int8:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint8:
		return int64(n), true
	case float64:
		return floatTime(n)
	case float32:
		return floatTime(float64(n))
	case time.Duration:
		return int64(n), true
	case time.Time:
		return n.UnixNano(), true
	}
	return 0, false
}

// floatTime truncates f toward zero. Accepted range is [-2^63, 2^63).
func floatTime(f float64) (int64, bool) {
	if math.IsNaN(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}
