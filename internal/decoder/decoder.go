// Package decoder turns raw trace file bytes into a lazy sequence of typed event records.
//
// Decoders are selected by sniffing the leading bytes of a file, so the registry can hold
// several formats side by side:
//
//   - Go runtime execution traces (golang.org/x/exp/trace)
//   - the compact "FEVT" event stream (msgpack records)
//   - newline-delimited JSON event records
package decoder

import (
	"errors"
	"fmt"
)

// StartTimeKey is the attribute carrying an event's timestamp in the decoder's native unit.
const StartTimeKey = "startTime"

// Record is one decoded event.
type Record struct {
	Type       string
	Attributes map[string]any
}

// Iterator yields records lazily.
type Iterator interface {
	// Next returns the next record. It returns io.EOF when the stream is
	// exhausted and a *DecodeError when the input is malformed.
	Next() (Record, error)
}

// Decoder decodes one trace format.
type Decoder interface {
	// Name returns the unique name of the decoder.
	Name() string
	// CanDecode reports whether the leading bytes of a file look like this format.
	CanDecode(header []byte) bool
	// Decode validates the stream header and returns an iterator over its records.
	Decode(data []byte) (Iterator, error)
}

// DecodeError reports a structural failure: truncated input, bad magic or an
// unsupported version. It is distinct from io.EOF, which only means "no more records".
type DecodeError struct {
	Decoder string
	Offset  int64 // Byte offset or line number, -1 if unknown
	Err     error
}

func (e *DecodeError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s: decode failed at %d: %v", e.Decoder, e.Offset, e.Err)
	}
	return fmt.Sprintf("%s: decode failed: %v", e.Decoder, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsDecodeError reports whether err is or wraps a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

func newDecodeError(decoder string, offset int64, err error) *DecodeError {
	return &DecodeError{Decoder: decoder, Offset: offset, Err: err}
}
