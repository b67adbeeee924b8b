package btree

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func largeN() int64 {
	if testing.Short() {
		return 100_000
	}
	return 1_000_000
}

// =============================================================================
// Deletion Completeness
// =============================================================================

func TestDeletionCompleteness(t *testing.T) {
	for _, policy := range []Policy{Unique, NonUnique} {
		t.Run(policy.Name(), func(t *testing.T) {
			tree := newTestTree(t, policy, 128)
			rng := rand.New(rand.NewSource(3))

			keys := rng.Perm(20000)
			for i, k := range keys {
				require.NoError(t, tree.Insert(int64(k), int64(k%13)))
				if i%1000 == 0 {
					commit(t, tree)
				}
			}
			commit(t, tree)

			rng.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })
			for i, k := range keys {
				require.NoError(t, tree.RemoveEntry(int64(k), int64(k%13)))
				if i%1000 == 0 {
					commit(t, tree)
				}
			}
			root := commit(t, tree)

			inner, err := tree.InnerPageCount()
			require.NoError(t, err)
			leaves, err := tree.LeafPageCount()
			require.NoError(t, err)
			assert.LessOrEqual(t, inner, int64(1))
			assert.LessOrEqual(t, leaves, int64(1))
			require.NoError(t, tree.Verify())

			// Counting from disk agrees with the tracked counters.
			loaded := Load(tree.Channel(), policy, root)
			inner, err = loaded.InnerPageCount()
			require.NoError(t, err)
			leaves, err = loaded.LeafPageCount()
			require.NoError(t, err)
			assert.LessOrEqual(t, inner, int64(1))
			assert.LessOrEqual(t, leaves, int64(1))
			assert.Zero(t, mustLen(t, loaded))
		})
	}
}

// =============================================================================
// Rebalancing Bound
// =============================================================================

func TestRebalancingBound(t *testing.T) {
	n := largeN()
	tree := newTestTree(t, Unique, 128)

	for k := int64(0); k < n; k++ {
		require.NoError(t, tree.Insert(k, k))
	}
	commit(t, tree)
	before, err := tree.LeafPageCount()
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(11))
	order := rng.Perm(int(n))
	removed := n * 95 / 100
	for _, k := range order[:removed] {
		_, err := tree.Remove(int64(k))
		require.NoError(t, err)
	}
	commit(t, tree)

	after, err := tree.LeafPageCount()
	require.NoError(t, err)
	assert.Equal(t, n-removed, mustLen(t, tree))
	assert.LessOrEqual(t, after*2, before, "leaf pages %d -> %d", before, after)
	require.NoError(t, tree.Verify())
}

// =============================================================================
// Dirty-Page Bound
// =============================================================================

func TestDirtyPageBound(t *testing.T) {
	n := largeN()
	tree := newTestTree(t, Unique, 128)

	for k := int64(0); k < n; k++ {
		require.NoError(t, tree.Insert(k, k))
	}
	commit(t, tree)

	height, err := tree.Height()
	require.NoError(t, err)
	require.Greater(t, height, 3)

	written := tree.WrittenPageCount()
	require.NoError(t, tree.Insert(n*2, 1))
	commit(t, tree)
	assert.LessOrEqual(t, tree.WrittenPageCount()-written, uint64(height))

	written = tree.WrittenPageCount()
	_, err = tree.Remove(n * 2)
	require.NoError(t, err)
	commit(t, tree)
	assert.LessOrEqual(t, tree.WrittenPageCount()-written, uint64(height))
}

func TestSequentialLoadPacksPages(t *testing.T) {
	tree := newTestTree(t, Unique, 128)
	capacity := int64(LeafCapacity(128))

	const n = 7001
	for k := int64(0); k < n; k++ {
		require.NoError(t, tree.Insert(k, k))
	}

	leaves, err := tree.LeafPageCount()
	require.NoError(t, err)
	assert.Equal(t, (n+capacity-1)/capacity, leaves)
	require.NoError(t, tree.Verify())
}
