package storage

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/kylixs/flareon/internal/decoder"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// ReadTrace reads a whole trace file, inflating it if it is gzip or zstd compressed.
// I/O failures are returned as plain errors; a corrupt compressed
// stream is a *decoder.DecodeError.
func ReadTrace(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading trace file: %w", err)
	}
	return Decompress(data)
}

// Decompress inflates gzip or zstd data, sniffed by magic bytes.
// Other data is returned unchanged.
func Decompress(data []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(data, gzipMagic):
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, &decoder.DecodeError{Decoder: "gzip", Offset: 0, Err: err}
		}
		defer zr.Close()
		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, &decoder.DecodeError{Decoder: "gzip", Offset: -1, Err: err}
		}
		return out, nil

	case bytes.HasPrefix(data, zstdMagic):
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("creating zstd decoder: %w", err)
		}
		defer dec.Close()
		out, err := dec.DecodeAll(data, nil)
		if err != nil {
			return nil, &decoder.DecodeError{Decoder: "zstd", Offset: -1, Err: err}
		}
		return out, nil
	}
	return data, nil
}
