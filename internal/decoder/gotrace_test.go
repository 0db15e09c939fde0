package decoder

import (
	"bytes"
	"context"
	"runtime/trace"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordGoTrace(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := trace.Start(&buf); err != nil {
		t.Skipf("runtime tracing unavailable: %v", err)
	}
	ctx, task := trace.NewTask(context.Background(), "decoder-test")
	trace.WithRegion(ctx, "work", func() {
		trace.Log(ctx, "phase", "one")
	})
	task.End()
	trace.Stop()
	return buf.Bytes()
}

func TestGoTraceDecoder(t *testing.T) {
	d := NewGoTraceDecoder()
	data := recordGoTrace(t)
	require.True(t, d.CanDecode(data[:16]))

	it, err := d.Decode(data)
	if err != nil {
		// The reader only understands trace versions it was built for
		t.Skipf("trace version not supported by reader: %v", err)
	}

	records, err := drain(t, it)
	if err != nil {
		t.Skipf("trace not fully decodable by reader: %v", err)
	}
	require.NotEmpty(t, records)

	var logs []Record
	for _, rec := range records {
		assert.NotEmpty(t, rec.Type)
		assert.Contains(t, rec.Attributes, StartTimeKey)
		if rec.Type == "Log" {
			logs = append(logs, rec)
		}
	}
	require.Len(t, logs, 1)
	assert.Equal(t, "phase", logs[0].Attributes["category"])
	assert.Equal(t, "one", logs[0].Attributes["message"])
}

func TestGoTraceDecoderRejectsGarbage(t *testing.T) {
	d := NewGoTraceDecoder()
	assert.False(t, d.CanDecode([]byte("FEVT\x01")))

	_, err := d.Decode([]byte("go 1.99 trace\x00\x00\x00garbage"))
	require.Error(t, err)
	assert.True(t, IsDecodeError(err))
}
