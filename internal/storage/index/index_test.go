package index

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KilimcininKorOglu/oodb/internal/storage"
	"github.com/KilimcininKorOglu/oodb/internal/storage/btree"
)

func newTestChannel(t *testing.T) *storage.Channel {
	t.Helper()
	ch, err := storage.NewChannel(storage.NewMemRegion(), storage.DefaultOptions().WithPageSize(256), nil)
	require.NoError(t, err)
	return ch
}

// =============================================================================
// OID Index Tests
// =============================================================================

func TestLocationPack(t *testing.T) {
	tests := []Location{
		{},
		{Page: 1, Offset: 2},
		{Page: math.MaxUint32, Offset: math.MaxUint32},
		{Page: 1 << 31, Offset: 17},
	}

	for _, loc := range tests {
		assert.Equal(t, loc, UnpackLocation(loc.Pack()))
	}
	assert.Equal(t, "7:128", Location{Page: 7, Offset: 128}.String())
}

func TestOIDIndex(t *testing.T) {
	idx, err := NewOIDIndex(newTestChannel(t))
	require.NoError(t, err)

	next, err := idx.NextOID()
	require.NoError(t, err)
	assert.Equal(t, int64(1), next)

	for oid := int64(1); oid <= 1000; oid++ {
		require.NoError(t, idx.Insert(oid, Location{Page: uint32(oid / 10), Offset: uint32(oid % 10 * 64)}))
	}

	loc, err := idx.Find(123)
	require.NoError(t, err)
	assert.Equal(t, Location{Page: 12, Offset: 192}, loc)

	maxOID, err := idx.MaxOID()
	require.NoError(t, err)
	assert.Equal(t, int64(1000), maxOID)

	removed, err := idx.Remove(1000)
	require.NoError(t, err)
	assert.Equal(t, Location{Page: 100}, removed)
	next, err = idx.NextOID()
	require.NoError(t, err)
	assert.Equal(t, int64(1000), next)

	_, err = idx.Find(1000)
	assert.ErrorIs(t, err, btree.ErrEntryNotFound)
	_, err = idx.Remove(1000)
	assert.ErrorIs(t, err, btree.ErrEntryNotFound)

	entries, err := idx.Iterator(10, 12).Collect()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, Location{Page: 1, Offset: 0}, UnpackLocation(entries[0].Value))

	n, err := idx.Len()
	require.NoError(t, err)
	assert.Equal(t, int64(999), n)
	require.NoError(t, idx.Verify())
}

func TestOIDIndexRejectsInvalidOID(t *testing.T) {
	idx, err := NewOIDIndex(newTestChannel(t))
	require.NoError(t, err)

	assert.ErrorIs(t, idx.Insert(0, Location{}), ErrInvalidOID)
	assert.ErrorIs(t, idx.Insert(-4, Location{}), ErrInvalidOID)
}

func TestOIDIndexReload(t *testing.T) {
	ch := newTestChannel(t)
	idx, err := NewOIDIndex(ch)
	require.NoError(t, err)
	for oid := int64(1); oid <= 300; oid++ {
		require.NoError(t, idx.Insert(oid, Location{Page: uint32(oid)}))
	}
	root, err := idx.Write()
	require.NoError(t, err)
	_, err = ch.Flush(storage.Roots{OIDIndex: root})
	require.NoError(t, err)

	loaded := LoadOIDIndex(ch, ch.Header().Roots.OIDIndex)
	all, err := loaded.All().Collect()
	require.NoError(t, err)
	assert.Len(t, all, 300)
	maxOID, err := loaded.MaxOID()
	require.NoError(t, err)
	assert.Equal(t, int64(300), maxOID)

	require.NoError(t, loaded.Clear())
	maxOID, err = loaded.MaxOID()
	require.NoError(t, err)
	assert.Zero(t, maxOID)
}

// =============================================================================
// Field Index Tests
// =============================================================================

func TestFieldIndexStrings(t *testing.T) {
	idx, err := NewFieldIndex(newTestChannel(t), 1, KindString)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), idx.ID())
	assert.Equal(t, KindString, idx.Kind())

	names := map[int64]string{1: "carol", 2: "alice", 3: "bob", 4: "alice", 5: "dave", 6: "alice"}
	for oid, name := range names {
		require.NoError(t, idx.Insert(StringKey(name), oid))
	}

	oids, err := idx.OIDs(StringKey("alice"))
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 4, 6}, oids)

	entries, err := idx.Range(StringKey("b"), StringKey("czzz")).Collect()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "bob", KeyFromSurrogate(KindString, entries[0].Key).String())
	assert.Equal(t, "carol", KeyFromSurrogate(KindString, entries[1].Key).String())

	require.NoError(t, idx.Remove(StringKey("alice"), 4))
	assert.ErrorIs(t, idx.Remove(StringKey("alice"), 4), btree.ErrEntryNotFound)
	oids, err = idx.OIDs(StringKey("alice"))
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 6}, oids)
}

func TestFieldIndexKindMismatch(t *testing.T) {
	idx, err := NewFieldIndex(newTestChannel(t), 2, KindInt64)
	require.NoError(t, err)

	assert.ErrorIs(t, idx.Insert(Float64Key(1), 1), ErrKindMismatch)
	assert.ErrorIs(t, idx.Remove(StringKey("x"), 1), ErrKindMismatch)

	_, err = NewFieldIndex(newTestChannel(t), 3, Kind(42))
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestFieldIndexFloatRange(t *testing.T) {
	idx, err := NewFieldIndex(newTestChannel(t), 4, KindFloat64)
	require.NoError(t, err)

	values := []float64{-3.5, -1, 0, 0.25, 2, 1e9, math.NaN()}
	for i, v := range values {
		require.NoError(t, idx.Insert(Float64Key(v), int64(i+1)))
	}

	entries, err := idx.Range(Float64Key(-1), Float64Key(2)).Collect()
	require.NoError(t, err)
	var got []float64
	for _, e := range entries {
		got = append(got, KeyFromSurrogate(KindFloat64, e.Key).Float64())
	}
	assert.Equal(t, []float64{-1, 0, 0.25, 2}, got)

	oids, err := idx.OIDs(Float64Key(math.NaN()))
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, oids)
}

func TestFieldIndexManyDuplicates(t *testing.T) {
	ch := newTestChannel(t)
	idx, err := NewFieldIndex(ch, 5, KindBool)
	require.NoError(t, err)

	for oid := int64(1); oid <= 2000; oid++ {
		require.NoError(t, idx.Insert(BoolKey(oid%3 == 0), oid))
	}
	root, err := idx.Write()
	require.NoError(t, err)
	_, err = ch.Flush(storage.Roots{})
	require.NoError(t, err)

	loaded := LoadFieldIndex(ch, 5, KindBool, root)
	trues, err := loaded.OIDs(BoolKey(true))
	require.NoError(t, err)
	assert.Len(t, trues, 666)
	falses, err := loaded.OIDs(BoolKey(false))
	require.NoError(t, err)
	assert.Len(t, falses, 1334)
	require.NoError(t, loaded.Verify())

	stats, err := loaded.Stats()
	require.NoError(t, err)
	assert.Equal(t, "non-unique", stats.Policy)
	assert.Equal(t, int64(2000), stats.Entries)
}
