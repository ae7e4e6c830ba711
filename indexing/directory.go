package indexing

import (
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/reldb/reldb/common"
)

// Directory is the registry of index handles, keyed by (table, column index).
// Lookups return the stable shared handle registered for that column, so
// handle lifetime is decoupled from the lookup itself.
type Directory struct {
	indexes *xsync.MapOf[string, Index]
}

func NewDirectory() *Directory {
	return &Directory{
		indexes: xsync.NewMapOf[string, Index](),
	}
}

// indexName derives the registry key for a (table, column) pair. The same
// convention names on-disk index files in the schema layer.
func indexName(table string, columnIndex int) string {
	return fmt.Sprintf("%s_%d.idx", table, columnIndex)
}

// Register binds an index handle to (table, columnIndex), replacing any
// previous binding.
func (d *Directory) Register(table string, columnIndex int, index Index) {
	d.indexes.Store(indexName(table, columnIndex), index)
}

// Get resolves the index handle for (table, columnIndex). It fails with
// IndexNotFound if no index is registered for that column.
func (d *Directory) Get(table string, columnIndex int) (Index, error) {
	index, ok := d.indexes.Load(indexName(table, columnIndex))
	if !ok {
		return nil, common.NewError(common.IndexNotFound, "no index on %s column %d", table, columnIndex)
	}
	return index, nil
}

// Drop removes the binding for (table, columnIndex), if present.
func (d *Directory) Drop(table string, columnIndex int) {
	d.indexes.Delete(indexName(table, columnIndex))
}
