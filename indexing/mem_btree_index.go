package indexing

import (
	"bytes"

	"github.com/tidwall/btree"

	"github.com/reldb/reldb/common"
)

type btreeItem struct {
	key []byte
	rid common.Rid
}

// MemBTreeIndex is a B+Tree index over encoded key bytes. It wraps
// github.com/tidwall/btree, ordered primarily by key and secondarily by Rid
// so that non-unique keys coexist as distinct entries.
type MemBTreeIndex struct {
	tree *btree.BTreeG[btreeItem]
}

func NewMemBTreeIndex() *MemBTreeIndex {
	less := func(a, b btreeItem) bool {
		cmp := bytes.Compare(a.key, b.key)
		if cmp != 0 {
			return cmp < 0
		}
		// Tie-breaker: Rid makes the (key, rid) pair unique in the Set
		if a.rid.PageNo != b.rid.PageNo {
			return a.rid.PageNo < b.rid.PageNo
		}
		return a.rid.Slot < b.rid.Slot
	}
	return &MemBTreeIndex{tree: btree.NewBTreeG(less)}
}

func (index *MemBTreeIndex) InsertEntry(key []byte, rid common.Rid) error {
	// Defensive copy: the key aliases a row buffer that may be reused.
	keyCopy := make([]byte, len(key))
	copy(keyCopy, key)
	index.tree.Set(btreeItem{key: keyCopy, rid: rid})
	return nil
}

func (index *MemBTreeIndex) DeleteEntry(key []byte, rid common.Rid) error {
	_, deleted := index.tree.Delete(btreeItem{key: key, rid: rid})
	if !deleted {
		return common.NewError(common.KeyNotFound, "no entry for key %x at %s", key, rid.String())
	}
	return nil
}

func (index *MemBTreeIndex) ScanKey(key []byte, output []common.Rid) []common.Rid {
	pivot := btreeItem{key: key, rid: common.Rid{}}
	index.tree.Ascend(pivot, func(item btreeItem) bool {
		if !bytes.Equal(item.key, key) {
			return false // Stop iterating once the key changes
		}
		output = append(output, item.rid)
		return true
	})
	return output
}

func (index *MemBTreeIndex) Len() int {
	return index.tree.Len()
}
