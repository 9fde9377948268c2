package utils

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWireTime(t *testing.T) {
	got, err := ParseWireTime("2024-01-01T00:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), got)
	assert.Equal(t, time.UTC, got.Location())
}

func TestParseWireTime_Rejects(t *testing.T) {
	inputs := []string{
		"2024-01-01T00:00:00.123Z",
		"2024-01-01T00:00:00+00:00",
		"2024-01-01 00:00:00",
		"2024-01-01",
		"",
		"not a date at all!!",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			_, err := ParseWireTime(in)
			assert.Error(t, err)
		})
	}
}

func TestFormatTime_RoundTripsWireFormat(t *testing.T) {
	ts, err := ParseWireTime("2023-01-05T12:30:45Z")
	require.NoError(t, err)
	assert.Equal(t, "2023-01-05T12:30:45Z", FormatTime(ts))
}

func TestConvertToFloat(t *testing.T) {
	cases := []struct {
		in   interface{}
		want float64
	}{
		{100.0, 100},
		{float32(0.5), 0.5},
		{3, 3},
		{int64(7), 7},
		{json.Number("0.05"), 0.05},
	}
	for _, c := range cases {
		got, err := ConvertToFloat(c.in)
		require.NoError(t, err)
		assert.Equal(t, c.want, got)
	}

	_, err := ConvertToFloat("12")
	assert.Error(t, err)
}

func TestJoinValues(t *testing.T) {
	got := JoinValues([]interface{}{"b", "a", "b", 1.5, true}, ", ")
	assert.Equal(t, "b, a, b, 1.5, true", got)
	assert.Equal(t, "", JoinValues(nil, ", "))
}

func TestCompareValues(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	c, err := CompareValues(mar, jan)
	require.NoError(t, err)
	assert.Equal(t, 1, c)

	c, err = CompareValues("2024-01-01", "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, -1, c)

	c, err = CompareValues(2, 2.0)
	require.NoError(t, err)
	assert.Equal(t, 0, c)

	_, err = CompareValues(jan, "2024-01-01")
	assert.Error(t, err)
}
