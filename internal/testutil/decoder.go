package testutil

import (
	"errors"
	"io"
	"sync/atomic"
	"time"

	"github.com/kylixs/flareon/internal/decoder"
)

// CountingDecoder is a decoder with a fixed emission order that counts how
// often it is asked to decode. It accepts any input.
type CountingDecoder struct {
	records   []decoder.Record
	failAfter int // Emit this many records then fail; <0 never fails
	delay     time.Duration
	gate      chan struct{}
	decodes   atomic.Int64
}

// NewCountingDecoder creates a decoder that emits records in the given order.
func NewCountingDecoder(records ...decoder.Record) *CountingDecoder {
	return &CountingDecoder{records: records, failAfter: -1}
}

// FailAfter makes iteration fail with a DecodeError after n records.
func (d *CountingDecoder) FailAfter(n int) *CountingDecoder {
	d.failAfter = n
	return d
}

// WithDelay makes every Decode call sleep first.
func (d *CountingDecoder) WithDelay(delay time.Duration) *CountingDecoder {
	d.delay = delay
	return d
}

// Blocked makes Decode wait until Release is called.
func (d *CountingDecoder) Blocked() *CountingDecoder {
	d.gate = make(chan struct{})
	return d
}

// Release unblocks pending and future Decode calls.
func (d *CountingDecoder) Release() {
	if d.gate != nil {
		close(d.gate)
	}
}

// Decodes returns the number of Decode calls.
func (d *CountingDecoder) Decodes() int {
	return int(d.decodes.Load())
}

func (d *CountingDecoder) Name() string {
	return "counting"
}

func (d *CountingDecoder) CanDecode(header []byte) bool {
	return true
}

func (d *CountingDecoder) Decode(data []byte) (decoder.Iterator, error) {
	d.decodes.Add(1)
	if d.gate != nil {
		<-d.gate
	}
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	return &sliceIterator{records: d.records, failAfter: d.failAfter}, nil
}

type sliceIterator struct {
	records   []decoder.Record
	failAfter int
	pos       int
}

func (it *sliceIterator) Next() (decoder.Record, error) {
	if it.failAfter >= 0 && it.pos >= it.failAfter {
		return decoder.Record{}, &decoder.DecodeError{
			Decoder: "counting",
			Offset:  int64(it.pos),
			Err:     errors.New("truncated record"),
		}
	}
	if it.pos >= len(it.records) {
		return decoder.Record{}, io.EOF
	}
	rec := it.records[it.pos]
	it.pos++
	return rec, nil
}

// Event builds a record carrying a startTime attribute.
func Event(typ string, startTime int64) decoder.Record {
	return decoder.Record{
		Type:       typ,
		Attributes: map[string]any{decoder.StartTimeKey: startTime},
	}
}
