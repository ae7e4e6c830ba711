package indexing

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reldb/reldb/common"
)

func intKey(v int64) []byte {
	key := make([]byte, 8)
	binary.LittleEndian.PutUint64(key, uint64(v))
	return key
}

func TestMemBTreeIndex_InsertDelete(t *testing.T) {
	index := NewMemBTreeIndex()
	rid := common.Rid{PageNo: 0, Slot: 1}

	require.NoError(t, index.InsertEntry(intKey(5), rid))
	assert.Equal(t, 1, index.Len())

	rids := index.ScanKey(intKey(5), nil)
	assert.Equal(t, []common.Rid{rid}, rids)

	require.NoError(t, index.DeleteEntry(intKey(5), rid))
	assert.Equal(t, 0, index.Len())
	assert.Empty(t, index.ScanKey(intKey(5), nil))

	// Deleting an absent pair fails with KeyNotFound
	err := index.DeleteEntry(intKey(5), rid)
	assert.True(t, common.HasCode(err, common.KeyNotFound))
}

func TestMemBTreeIndex_NonUniqueKeys(t *testing.T) {
	index := NewMemBTreeIndex()
	r1 := common.Rid{PageNo: 0, Slot: 1}
	r2 := common.Rid{PageNo: 0, Slot: 2}
	r3 := common.Rid{PageNo: 1, Slot: 0}

	require.NoError(t, index.InsertEntry(intKey(7), r1))
	require.NoError(t, index.InsertEntry(intKey(7), r2))
	require.NoError(t, index.InsertEntry(intKey(7), r3))
	require.NoError(t, index.InsertEntry(intKey(8), common.Rid{PageNo: 9, Slot: 9}))

	rids := index.ScanKey(intKey(7), nil)
	assert.Equal(t, []common.Rid{r1, r2, r3}, rids)

	// Removing one pair leaves the other entries for the same key
	require.NoError(t, index.DeleteEntry(intKey(7), r2))
	rids = index.ScanKey(intKey(7), nil)
	assert.Equal(t, []common.Rid{r1, r3}, rids)

	// The same key with a different rid is still KeyNotFound
	err := index.DeleteEntry(intKey(7), r2)
	assert.True(t, common.HasCode(err, common.KeyNotFound))
}

func TestMemBTreeIndex_KeyIsCopied(t *testing.T) {
	index := NewMemBTreeIndex()
	rid := common.Rid{PageNo: 2, Slot: 3}

	key := intKey(42)
	require.NoError(t, index.InsertEntry(key, rid))

	// Clobber the caller's buffer; the index must keep its own copy
	for i := range key {
		key[i] = 0xFF
	}
	assert.Equal(t, []common.Rid{rid}, index.ScanKey(intKey(42), nil))
}

func TestDirectory_Lookup(t *testing.T) {
	dir := NewDirectory()
	index := NewMemBTreeIndex()

	_, err := dir.Get("users", 0)
	assert.True(t, common.HasCode(err, common.IndexNotFound))

	dir.Register("users", 0, index)
	got, err := dir.Get("users", 0)
	require.NoError(t, err)
	assert.Same(t, Index(index), got)

	// A different column of the same table is a distinct binding
	_, err = dir.Get("users", 1)
	assert.True(t, common.HasCode(err, common.IndexNotFound))

	dir.Drop("users", 0)
	_, err = dir.Get("users", 0)
	assert.True(t, common.HasCode(err, common.IndexNotFound))
}
