package storage

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/kylixs/flareon/internal/decoder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadTrace(t *testing.T) {
	payload := []byte("FEVT\x01 raw trace payload")

	t.Run("plain file", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "plain.jfr", string(payload))
		data, err := ReadTrace(path)
		require.NoError(t, err)
		assert.Equal(t, payload, data)
	})

	t.Run("gzip file", func(t *testing.T) {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		_, err := zw.Write(payload)
		require.NoError(t, err)
		require.NoError(t, zw.Close())

		path := writeFile(t, t.TempDir(), "gz.jfr", buf.String())
		data, err := ReadTrace(path)
		require.NoError(t, err)
		assert.Equal(t, payload, data)
	})

	t.Run("zstd file", func(t *testing.T) {
		enc, err := zstd.NewWriter(nil)
		require.NoError(t, err)
		compressed := enc.EncodeAll(payload, nil)
		require.NoError(t, enc.Close())

		path := writeFile(t, t.TempDir(), "zst.jfr", string(compressed))
		data, err := ReadTrace(path)
		require.NoError(t, err)
		assert.Equal(t, payload, data)
	})

	t.Run("corrupt gzip is a decode error", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "bad.jfr", "\x1f\x8bnot really gzip")
		_, err := ReadTrace(path)
		require.Error(t, err)
		assert.True(t, decoder.IsDecodeError(err))
	})

	t.Run("missing file is an io error", func(t *testing.T) {
		_, err := ReadTrace(filepath.Join(t.TempDir(), "missing.jfr"))
		require.Error(t, err)
		assert.False(t, decoder.IsDecodeError(err))
	})
}
