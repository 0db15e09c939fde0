package decoder

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLinesDecoder(t *testing.T) {
	d := NewJSONLinesDecoder()

	t.Run("decodes lines and skips blanks", func(t *testing.T) {
		data := []byte(`{"type":"jdk.ExecutionSample","attrs":{"startTime":100,"state":"RUNNABLE"}}

{"type":"jdk.GCPhasePause","attrs":{"startTime":250,"duration":1.5,"tags":["young",true],"gc":{"id":7}}}
{"type":"jdk.CPULoad"}
`)
		require.True(t, d.CanDecode(data))

		it, err := d.Decode(data)
		require.NoError(t, err)
		records, err := drain(t, it)
		require.NoError(t, err)
		require.Len(t, records, 3)

		assert.Equal(t, "jdk.ExecutionSample", records[0].Type)
		assert.Equal(t, int64(100), records[0].Attributes[StartTimeKey])
		assert.Equal(t, "RUNNABLE", records[0].Attributes["state"])

		assert.Equal(t, 1.5, records[1].Attributes["duration"])
		assert.Equal(t, []any{"young", true}, records[1].Attributes["tags"])
		assert.Equal(t, map[string]any{"id": int64(7)}, records[1].Attributes["gc"])

		assert.Equal(t, "jdk.CPULoad", records[2].Type)
		assert.Empty(t, records[2].Attributes)
	})

	t.Run("malformed line reports line number", func(t *testing.T) {
		data := []byte("{\"type\":\"A\"}\n{\"type\":\"B\"}\n{\"type\": \n")
		it, err := d.Decode(data)
		require.NoError(t, err)

		records, err := drain(t, it)
		assert.Len(t, records, 2)

		var de *DecodeError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, int64(3), de.Offset)
		assert.Equal(t, "json_lines", de.Decoder)
	})

	t.Run("missing type", func(t *testing.T) {
		it, err := d.Decode([]byte(`{"attrs":{}}`))
		require.NoError(t, err)
		_, err = it.Next()
		assert.True(t, IsDecodeError(err))
	})

	t.Run("non-object line", func(t *testing.T) {
		it, err := d.Decode([]byte("{\"type\":\"A\"}\n[1,2]\n"))
		require.NoError(t, err)
		records, err := drain(t, it)
		assert.Len(t, records, 1)
		assert.True(t, IsDecodeError(err))
	})

	t.Run("sniffing", func(t *testing.T) {
		assert.True(t, d.CanDecode([]byte("  \n{\"type\"")))
		assert.False(t, d.CanDecode([]byte("FEVT")))
		assert.False(t, d.CanDecode(nil))
	})
}
