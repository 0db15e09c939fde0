package decoder

import (
	"bytes"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

/*
Event stream format:

	[Magic]   4 bytes  "FEVT"
	[Version] 1 byte   EventStreamVersion
	[Records] msgpack maps {"type": string, "attrs": map}, back to back

Integers decode as int64/uint64 and floats as float64.
*/

var eventStreamMagic = []byte("FEVT")

// EventStreamVersion is the current format version.
const EventStreamVersion uint8 = 1

const eventStreamHeaderLen = 5

type wireRecord struct {
	Type  string         `msgpack:"type"`
	Attrs map[string]any `msgpack:"attrs"`
}

// EventStreamDecoder decodes the compact msgpack event stream.
type EventStreamDecoder struct {
	intern *StringIntern
}

// NewEventStreamDecoder creates a new event stream decoder.
func NewEventStreamDecoder() *EventStreamDecoder {
	return &EventStreamDecoder{intern: NewStringIntern()}
}

func (d *EventStreamDecoder) Name() string {
	return "event_stream"
}

func (d *EventStreamDecoder) CanDecode(header []byte) bool {
	return bytes.HasPrefix(header, eventStreamMagic)
}

func (d *EventStreamDecoder) Decode(data []byte) (Iterator, error) {
	if len(data) < eventStreamHeaderLen {
		return nil, newDecodeError(d.Name(), 0, fmt.Errorf("header truncated: %d bytes", len(data)))
	}
	if !bytes.Equal(data[:4], eventStreamMagic) {
		return nil, newDecodeError(d.Name(), 0, fmt.Errorf("invalid magic: %q", data[:4]))
	}
	if data[4] != EventStreamVersion {
		return nil, newDecodeError(d.Name(), 4, fmt.Errorf("unsupported version: %d", data[4]))
	}

	r := bytes.NewReader(data[eventStreamHeaderLen:])
	dec := msgpack.NewDecoder(r)
	dec.UseLooseInterfaceDecoding(true)

	return &eventStreamIterator{
		name:   d.Name(),
		r:      r,
		dec:    dec,
		size:   int64(len(data)),
		intern: d.intern,
	}, nil
}

type eventStreamIterator struct {
	name   string
	r      *bytes.Reader
	dec    *msgpack.Decoder
	size   int64
	intern *StringIntern
	failed error
}

func (it *eventStreamIterator) Next() (Record, error) {
	if it.failed != nil {
		return Record{}, it.failed
	}
	if it.r.Len() == 0 {
		return Record{}, io.EOF
	}

	offset := it.size - int64(it.r.Len())
	var w wireRecord
	if err := it.dec.Decode(&w); err != nil {
		// Any failure here is mid-record, including a bare io.EOF
		it.failed = newDecodeError(it.name, offset, fmt.Errorf("reading record: %w", err))
		return Record{}, it.failed
	}
	if w.Type == "" {
		it.failed = newDecodeError(it.name, offset, fmt.Errorf("record without type"))
		return Record{}, it.failed
	}

	attrs := make(map[string]any, len(w.Attrs))
	for k, v := range w.Attrs {
		attrs[it.intern.Intern(k)] = v
	}
	return Record{Type: it.intern.Intern(w.Type), Attributes: attrs}, nil
}

// EventStreamWriter writes records in the event stream format.
type EventStreamWriter struct {
	enc *msgpack.Encoder
}

// NewEventStreamWriter writes the stream header to w and returns a writer for records.
func NewEventStreamWriter(w io.Writer) (*EventStreamWriter, error) {
	header := append(append([]byte{}, eventStreamMagic...), EventStreamVersion)
	if _, err := w.Write(header); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}
	enc := msgpack.NewEncoder(w)
	enc.SetSortMapKeys(true)
	return &EventStreamWriter{enc: enc}, nil
}

// Write appends one record.
func (w *EventStreamWriter) Write(rec Record) error {
	attrs := rec.Attributes
	if attrs == nil {
		attrs = map[string]any{}
	}
	if err := w.enc.Encode(&wireRecord{Type: rec.Type, Attrs: attrs}); err != nil {
		return fmt.Errorf("writing record: %w", err)
	}
	return nil
}
