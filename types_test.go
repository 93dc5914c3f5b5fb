package presto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullSlice(t *testing.T) {
	var s NullSlice[string]
	require.NoError(t, s.Scan(`["a","b"]`))
	assert.True(t, s.Valid)
	assert.Equal(t, []string{"a", "b"}, s.Slice)

	require.NoError(t, s.Scan(nil))
	assert.False(t, s.Valid)
	assert.Nil(t, s.Slice)

	v, err := NullSlice[int]{Slice: []int{1, 2}, Valid: true}.Value()
	require.NoError(t, err)
	assert.Equal(t, "[1,2]", v)

	v, err = NullSlice[int]{}.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	assert.ErrorContains(t, s.Scan(42), "cannot scan int into array value")
	assert.ErrorContains(t, s.Scan(`{"a":1}`), "decoding array")
}

func TestNullMap(t *testing.T) {
	var m NullMap[string, int64]
	require.NoError(t, m.Scan([]byte(`{"x":1,"y":2}`)))
	assert.True(t, m.Valid)
	assert.Equal(t, map[string]int64{"x": 1, "y": 2}, m.Map)

	v, err := m.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":1,"y":2}`, v.(string))
}

func TestNullRow(t *testing.T) {
	type address struct {
		Street string `json:"street"`
		Zip    *int   `json:"zip"`
	}

	var r NullRow[address]
	require.NoError(t, r.Scan(`{"street":"Main","zip":null}`))
	assert.True(t, r.Valid)
	assert.Equal(t, "Main", r.Row.Street)
	assert.Nil(t, r.Row.Zip)

	require.NoError(t, r.Scan(nil))
	assert.False(t, r.Valid)
	assert.Empty(t, r.Row.Street)

	t.Run("anonymous fields", func(t *testing.T) {
		var m NullRow[map[string]any]
		require.NoError(t, m.Scan(`{"field0":1,"field1":"b"}`))
		assert.Equal(t, map[string]any{"field0": float64(1), "field1": "b"}, m.Row)
	})
}
