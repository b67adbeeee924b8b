package index

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertIncreasing(t *testing.T, keys []Key) {
	t.Helper()
	for i := 1; i < len(keys); i++ {
		assert.Less(t, keys[i-1].Surrogate(), keys[i].Surrogate(), "keys %s and %s", keys[i-1], keys[i])
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected string
	}{
		{KindInt64, "int64"},
		{KindFloat64, "float64"},
		{KindString, "string"},
		{KindBool, "bool"},
		{KindTime, "time"},
		{Kind(0), "unknown"},
		{Kind(99), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.kind.String())
	}

	k, err := ParseKind("float64")
	require.NoError(t, err)
	assert.Equal(t, KindFloat64, k)
	_, err = ParseKind("decimal")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestInt64KeyOrder(t *testing.T) {
	values := []int64{math.MinInt64, -7, 0, 3, math.MaxInt64}
	keys := make([]Key, len(values))
	for i, v := range values {
		keys[i] = Int64Key(v)
		assert.Equal(t, v, keys[i].Int64())
	}
	assertIncreasing(t, keys)
}

func TestFloat64KeyOrder(t *testing.T) {
	values := []float64{
		math.Inf(-1), -math.MaxFloat64, -1e10, -1, -math.SmallestNonzeroFloat64,
		math.Copysign(0, -1), 0, math.SmallestNonzeroFloat64, 0.5, 1, 1e300,
		math.MaxFloat64, math.Inf(1), math.NaN(),
	}
	keys := make([]Key, len(values))
	for i, v := range values {
		keys[i] = Float64Key(v)
	}
	assertIncreasing(t, keys)
}

func TestFloat64KeyRoundTrip(t *testing.T) {
	for _, v := range []float64{-2.75, math.Copysign(0, -1), 0, 1e-300, 3.14159, math.Inf(1), math.Inf(-1)} {
		got := Float64Key(v).Float64()
		assert.Equal(t, math.Float64bits(v), math.Float64bits(got), "value %v", v)
	}

	negNaN := math.Float64frombits(0xFFF8000000000001)
	assert.Equal(t, Float64Key(math.NaN()), Float64Key(negNaN), "NaNs share one key")
	assert.True(t, math.IsNaN(Float64Key(negNaN).Float64()))
}

func TestStringKeyOrder(t *testing.T) {
	values := []string{"", "\x01", "A", "a", "ab", "abc", "b", "zzzzzzzz", "\x80", "\xff\xff"}
	keys := make([]Key, len(values))
	for i, v := range values {
		keys[i] = StringKey(v)
	}
	assertIncreasing(t, keys)
}

func TestStringKeyRoundTrip(t *testing.T) {
	for _, v := range []string{"", "a", "alice", "12345678", "\xff\x00x"} {
		assert.Equal(t, v, StringKey(v).String())
	}

	// Only the first 8 bytes take part.
	assert.Equal(t, StringKey("abcdefgh1"), StringKey("abcdefgh2"))
	assert.Equal(t, "abcdefgh", StringKey("abcdefghij").String())
}

func TestBoolKey(t *testing.T) {
	assertIncreasing(t, []Key{BoolKey(false), BoolKey(true)})
	assert.True(t, BoolKey(true).Bool())
	assert.False(t, BoolKey(false).Bool())
	assert.Equal(t, "true", BoolKey(true).String())
}

func TestTimeKey(t *testing.T) {
	a := time.Date(1999, 12, 31, 23, 59, 59, 999, time.UTC)
	b := time.Date(2026, 1, 2, 15, 4, 5, 0, time.FixedZone("x", 3600))

	assertIncreasing(t, []Key{TimeKey(a), TimeKey(b)})
	assert.True(t, a.Equal(TimeKey(a).Time()))
	assert.True(t, b.Equal(TimeKey(b).Time()))
	assert.Equal(t, "2026-01-02T14:04:05Z", TimeKey(b).String())
}

func TestKeyFromSurrogate(t *testing.T) {
	k := Float64Key(-8.5)
	got := KeyFromSurrogate(KindFloat64, k.Surrogate())
	assert.Equal(t, k, got)
	assert.Equal(t, -8.5, got.Float64())
	assert.Equal(t, "-8.5", got.String())
}
