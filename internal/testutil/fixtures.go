package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/kylixs/flareon/internal/decoder"
	"github.com/stretchr/testify/require"
)

// EncodeEventStream returns records in the FEVT event stream format.
func EncodeEventStream(t *testing.T, records ...decoder.Record) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := decoder.NewEventStreamWriter(&buf)
	require.NoError(t, err)
	for _, rec := range records {
		require.NoError(t, w.Write(rec))
	}
	return buf.Bytes()
}

// WriteEventStream writes records as an event stream file and returns its path.
func WriteEventStream(t *testing.T, dir, name string, records ...decoder.Record) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, EncodeEventStream(t, records...), 0644))
	return path
}
