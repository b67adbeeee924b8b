package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Page Header Tests
// =============================================================================

func testPage(size int, kind PageKind, fill byte) []byte {
	buf := make([]byte, size)
	for i := PageHeaderSize; i < size; i++ {
		buf[i] = fill
	}
	PutPageHeader(buf, kind, 0, 3)
	return buf
}

func TestPageKindString(t *testing.T) {
	assert.Equal(t, "None", PageKindNone.String())
	assert.Equal(t, "Inner", PageKindInner.String())
	assert.Equal(t, "Leaf", PageKindLeaf.String())
	assert.Equal(t, "Unknown", PageKind(9).String())
}

func TestPageViewAccessors(t *testing.T) {
	buf := make([]byte, 128)
	PutPageHeader(buf, PageKindInner, PageFlagPairs, 517)
	stampPage(buf, 42, true)

	v := PageView{id: 7, data: buf}
	assert.Equal(t, PageID(7), v.ID())
	assert.Equal(t, PageKindInner, v.Kind())
	assert.Equal(t, PageFlagPairs, v.Flags())
	assert.Equal(t, 517, v.Count())
	assert.Equal(t, uint64(42), v.Generation())
	assert.Len(t, v.Body(), 128-PageHeaderSize)
	assert.Len(t, v.Bytes(), 128)
}

// =============================================================================
// Checksum Tests
// =============================================================================

func TestValidatePage(t *testing.T) {
	buf := testPage(128, PageKindLeaf, 0xAB)
	stampPage(buf, 1, true)
	require.NoError(t, validatePage(buf, true))

	buf[100] ^= 0xFF
	assert.ErrorIs(t, validatePage(buf, true), ErrCorruptPage)
	assert.NoError(t, validatePage(buf, false), "checksum ignored when disabled")
}

func TestValidatePageRejectsUnknownKind(t *testing.T) {
	buf := testPage(128, PageKindNone, 0)
	stampPage(buf, 1, true)
	assert.ErrorIs(t, validatePage(buf, true), ErrCorruptPage)
	assert.ErrorIs(t, validatePage(buf, false), ErrCorruptPage)
}

func TestStampPageCoversGeneration(t *testing.T) {
	buf := testPage(128, PageKindLeaf, 1)
	stampPage(buf, 1, true)
	first := pageChecksum(buf)

	stampPage(buf, 2, true)
	assert.NotEqual(t, first, pageChecksum(buf))
	assert.NoError(t, validatePage(buf, true))
}

// =============================================================================
// Options Tests
// =============================================================================

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name     string
		pageSize int
		wantErr  bool
	}{
		{"default", 0, false},
		{"minimum", MinPageSize, false},
		{"maximum", MaxPageSize, false},
		{"too small", 64, true},
		{"too large", MaxPageSize + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions().WithPageSize(tt.pageSize)
			err := opts.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrCapacityExceeded)
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, opts.PageSize)
		})
	}
}

func TestOptionsBuilders(t *testing.T) {
	opts := DefaultOptions().
		WithPageSize(512).
		WithCacheSize(1 << 20).
		WithChecksums(false).
		WithSyncOnWrite(true).
		WithReadOnly(true).
		WithMmap(true).
		WithReuseDelay(3)

	assert.Equal(t, 512, opts.PageSize)
	assert.Equal(t, int64(1<<20), opts.CacheSize)
	assert.False(t, opts.Checksums)
	assert.True(t, opts.SyncOnWrite)
	assert.True(t, opts.ReadOnly)
	assert.True(t, opts.Mmap)
	assert.Equal(t, uint64(3), opts.ReuseDelay)

	opts.ReuseDelay = 0
	require.NoError(t, opts.Validate())
	assert.Equal(t, uint64(1), opts.ReuseDelay)
}
