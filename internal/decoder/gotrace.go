package decoder

import (
	"bytes"
	"errors"
	"io"

	"golang.org/x/exp/trace"
)

// goTraceMagic is the prefix of every Go execution trace header ("go 1.22 trace\x00...").
var goTraceMagic = []byte("go 1.")

// GoTraceDecoder decodes Go runtime execution traces (runtime/trace output).
// Record types are event kind names; timestamps are nanoseconds.
type GoTraceDecoder struct{}

// NewGoTraceDecoder creates a new Go trace decoder.
func NewGoTraceDecoder() *GoTraceDecoder {
	return &GoTraceDecoder{}
}

func (d *GoTraceDecoder) Name() string {
	return "go_trace"
}

func (d *GoTraceDecoder) CanDecode(header []byte) bool {
	return bytes.HasPrefix(header, goTraceMagic) && bytes.Contains(header, []byte(" trace"))
}

func (d *GoTraceDecoder) Decode(data []byte) (Iterator, error) {
	r, err := trace.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, newDecodeError(d.Name(), 0, err)
	}
	return &goTraceIterator{name: d.Name(), r: r}, nil
}

type goTraceIterator struct {
	name  string
	r     *trace.Reader
	count int64
}

func (it *goTraceIterator) Next() (Record, error) {
	ev, err := it.r.ReadEvent()
	if errors.Is(err, io.EOF) {
		return Record{}, io.EOF
	}
	if err != nil {
		return Record{}, newDecodeError(it.name, -1, err)
	}
	it.count++

	attrs := map[string]any{
		StartTimeKey: int64(ev.Time()),
		"goroutine":  int64(ev.Goroutine()),
		"proc":       int64(ev.Proc()),
		"thread":     int64(ev.Thread()),
	}

	switch ev.Kind() {
	case trace.EventMetric:
		m := ev.Metric()
		attrs["name"] = m.Name
		if m.Value.Kind() == trace.ValueUint64 {
			attrs["value"] = m.Value.Uint64()
		}
	case trace.EventLog:
		l := ev.Log()
		attrs["task"] = uint64(l.Task)
		attrs["category"] = l.Category
		attrs["message"] = l.Message
	case trace.EventRegionBegin, trace.EventRegionEnd:
		r := ev.Region()
		attrs["task"] = uint64(r.Task)
		attrs["region"] = r.Type
	case trace.EventRangeBegin, trace.EventRangeActive, trace.EventRangeEnd:
		attrs["range"] = ev.Range().Name
	case trace.EventTaskBegin, trace.EventTaskEnd:
		t := ev.Task()
		attrs["task"] = uint64(t.ID)
		attrs["taskType"] = t.Type
	case trace.EventLabel:
		attrs["label"] = ev.Label().Label
	}

	return Record{Type: ev.Kind().String(), Attributes: attrs}, nil
}
