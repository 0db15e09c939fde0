package decoder

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeStream(t *testing.T, records ...Record) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewEventStreamWriter(&buf)
	require.NoError(t, err)
	for _, rec := range records {
		require.NoError(t, w.Write(rec))
	}
	return buf.Bytes()
}

func drain(t *testing.T, it Iterator) ([]Record, error) {
	t.Helper()
	var out []Record
	for {
		rec, err := it.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}

func TestEventStreamDecoder(t *testing.T) {
	d := NewEventStreamDecoder()

	t.Run("decodes records in order", func(t *testing.T) {
		data := writeStream(t,
			Record{Type: "X", Attributes: map[string]any{StartTimeKey: int64(100), "thread": "main"}},
			Record{Type: "Y", Attributes: map[string]any{StartTimeKey: int64(200)}},
			Record{Type: "X", Attributes: map[string]any{StartTimeKey: int64(300), "nested": map[string]any{"depth": int64(2)}}},
		)
		require.True(t, d.CanDecode(data))

		it, err := d.Decode(data)
		require.NoError(t, err)
		records, err := drain(t, it)
		require.NoError(t, err)
		require.Len(t, records, 3)

		assert.Equal(t, "X", records[0].Type)
		assert.Equal(t, "Y", records[1].Type)
		assert.Equal(t, "X", records[2].Type)
		assert.EqualValues(t, 100, records[0].Attributes[StartTimeKey])
		assert.Equal(t, "main", records[0].Attributes["thread"])
		nested, ok := records[2].Attributes["nested"].(map[string]any)
		require.True(t, ok)
		assert.EqualValues(t, 2, nested["depth"])
	})

	t.Run("empty stream ends immediately", func(t *testing.T) {
		it, err := d.Decode(writeStream(t))
		require.NoError(t, err)
		_, err = it.Next()
		assert.Equal(t, io.EOF, err)
	})

	t.Run("record without attributes", func(t *testing.T) {
		it, err := d.Decode(writeStream(t, Record{Type: "Bare"}))
		require.NoError(t, err)
		rec, err := it.Next()
		require.NoError(t, err)
		assert.Equal(t, "Bare", rec.Type)
		assert.Empty(t, rec.Attributes)
	})

	t.Run("truncated record is a decode error", func(t *testing.T) {
		data := writeStream(t,
			Record{Type: "A", Attributes: map[string]any{StartTimeKey: int64(1)}},
			Record{Type: "B", Attributes: map[string]any{StartTimeKey: int64(2)}},
			Record{Type: "C", Attributes: map[string]any{StartTimeKey: int64(3), "payload": "some longer value"}},
		)
		it, err := d.Decode(data[:len(data)-6])
		require.NoError(t, err)

		records, err := drain(t, it)
		require.Error(t, err)
		assert.True(t, IsDecodeError(err))
		assert.Len(t, records, 2)

		// The failure is sticky
		_, err2 := it.Next()
		assert.Equal(t, err, err2)
	})

	t.Run("bad magic", func(t *testing.T) {
		_, err := d.Decode([]byte("NOPE\x01"))
		assert.True(t, IsDecodeError(err))
		assert.False(t, d.CanDecode([]byte("NOPE\x01")))
	})

	t.Run("unsupported version", func(t *testing.T) {
		_, err := d.Decode([]byte("FEVT\x09"))
		require.Error(t, err)
		assert.True(t, IsDecodeError(err))
		assert.Contains(t, err.Error(), "unsupported version")
	})

	t.Run("truncated header", func(t *testing.T) {
		_, err := d.Decode([]byte("FEV"))
		assert.True(t, IsDecodeError(err))
	})
}
