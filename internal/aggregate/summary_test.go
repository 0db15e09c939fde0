package aggregate

import (
	"encoding/json"
	"testing"

	"github.com/kylixs/flareon/internal/decoder"
	"github.com/kylixs/flareon/internal/models"
	"github.com/kylixs/flareon/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSummary(t *testing.T) {
	d := testutil.NewCountingDecoder(
		testutil.Event("X", 100),
		testutil.Event("Y", 200),
		testutil.Event("X", 300),
	)
	agg, err := populate(t, d, SpanFirstLast)
	require.NoError(t, err)

	s, err := BuildSummary(agg)
	require.NoError(t, err)
	assert.Equal(t, int64(100), s.StartTime)
	assert.Equal(t, int64(300), s.EndTime)
	assert.Equal(t, int64(0), s.DurationMs)
	assert.Equal(t, map[string]int{"X": 2, "Y": 1}, s.EventStats)
	assert.Equal(t, []models.EventStat{{Type: "X", Count: 2}, {Type: "Y", Count: 1}}, s.Stats())
}

func TestBuildSummary_CountsSumToEvents(t *testing.T) {
	types := []string{"c", "a", "b", "a", "c", "c", "d"}
	for n := 0; n <= len(types); n++ {
		records := make([]decoder.Record, 0, n)
		for i := 0; i < n; i++ {
			records = append(records, testutil.Event(types[i], int64(i*10)))
		}
		agg, err := populate(t, testutil.NewCountingDecoder(records...), SpanFirstLast)
		require.NoError(t, err)

		s, err := BuildSummary(agg)
		require.NoError(t, err)
		assert.Equal(t, n, s.TotalEvents(), "n=%d", n)
		assert.LessOrEqual(t, s.StartTime, s.EndTime)
		assert.Equal(t, (s.EndTime-s.StartTime)/1_000_000, s.DurationMs)
	}
}

func TestBuildSummary_Empty(t *testing.T) {
	s, err := BuildSummary(NewAggregation(nil))
	require.NoError(t, err)
	assert.NotNil(t, s.EventStats)
	assert.Empty(t, s.EventStats)
	assert.Zero(t, s.StartTime)

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"startTime":0,"endTime":0,"durationMs":0,"eventStats":{}}`, string(out))
}

func TestBuildSummary_JSONKeysSorted(t *testing.T) {
	d := testutil.NewCountingDecoder(
		testutil.Event("zeta", 1),
		testutil.Event("alpha", 2),
		testutil.Event("mid", 3),
	)
	agg, err := populate(t, d, SpanFirstLast)
	require.NoError(t, err)
	s, err := BuildSummary(agg)
	require.NoError(t, err)

	out, err := json.Marshal(s.EventStats)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":1,"mid":1,"zeta":1}`, string(out))
}

func TestBuildSummary_Nil(t *testing.T) {
	_, err := BuildSummary(nil)
	assert.ErrorIs(t, err, ErrNoAggregation)
}
