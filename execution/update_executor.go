package execution

import (
	"bytes"

	"github.com/reldb/reldb/catalog"
	"github.com/reldb/reldb/common"
	"github.com/reldb/reldb/indexing"
	"github.com/reldb/reldb/logging"
	"github.com/reldb/reldb/storage"
	"github.com/reldb/reldb/transaction"
)

// RowUpdate names one row to rewrite and the full new row image for it.
type RowUpdate struct {
	Rid common.Rid
	Row []byte
}

// UpdateExecutor rewrites a batch of rows in place, fixing up the secondary
// index entries whose key bytes actually changed, and records one write
// record per row (carrying the pre-update image) in the active transaction.
type UpdateExecutor struct {
	table   *catalog.Table
	updates []RowUpdate
	fh      *storage.RecordFile
	dir     *indexing.Directory
	txn     *transaction.Context

	// Runtime state
	indexedCols []int
	indexes     []indexing.Index
	executed    bool
	cnt         int
	err         error
}

// NewUpdateExecutor builds an update operator over the given batch. Each new
// row image must already be encoded at the table's fixed row size.
func NewUpdateExecutor(table *catalog.Table, updates []RowUpdate, fh *storage.RecordFile, dir *indexing.Directory, txn *transaction.Context) *UpdateExecutor {
	return &UpdateExecutor{
		table:   table,
		updates: updates,
		fh:      fh,
		dir:     dir,
		txn:     txn,
	}
}

// Init resolves the index handle for every indexed column up front, so a
// missing index aborts the batch before any mutation.
func (e *UpdateExecutor) Init() error {
	e.indexedCols = e.table.IndexedColumns()
	e.indexes = make([]indexing.Index, len(e.indexedCols))
	for i, colIdx := range e.indexedCols {
		index, err := e.dir.Get(e.table.Name, colIdx)
		if err != nil {
			return err
		}
		e.indexes[i] = index
	}
	e.executed = false
	e.cnt = 0
	e.err = nil
	return nil
}

// Next runs the batch on first call and returns false: an update produces no
// output tuples. A failure aborts the invocation; the caller is expected to
// trigger transaction abort to roll back rows already rewritten.
func (e *UpdateExecutor) Next() bool {
	if e.executed || e.err != nil {
		return false
	}
	e.executed = true

	for _, upd := range e.updates {
		common.Assert(len(upd.Row) == e.table.RowSize(),
			"row of %d bytes written to table %q with row size %d",
			len(upd.Row), e.table.Name, e.table.RowSize())

		prior, err := e.fh.Get(upd.Rid)
		if err != nil {
			e.err = err
			return false
		}

		if err := e.fh.Update(upd.Rid, upd.Row); err != nil {
			e.err = err
			return false
		}

		for i, colIdx := range e.indexedCols {
			col := e.table.Column(colIdx)
			oldKey := col.Slice(prior)
			newKey := col.Slice(upd.Row)
			if bytes.Equal(oldKey, newKey) {
				continue
			}
			if err := e.indexes[i].DeleteEntry(oldKey, upd.Rid); err != nil {
				e.err = err
				return false
			}
			if err := e.indexes[i].InsertEntry(newKey, upd.Rid); err != nil {
				e.err = err
				return false
			}
		}

		e.txn.AppendWriteRecord(logging.NewUpdateWriteRecord(e.table.Name, upd.Rid, prior))
		e.cnt++
	}
	return false
}

// Count returns the number of rows rewritten so far.
func (e *UpdateExecutor) Count() int {
	return e.cnt
}

// Error returns the failure that aborted the batch, if any.
func (e *UpdateExecutor) Error() error {
	return e.err
}

// Close releases the operator's resources.
func (e *UpdateExecutor) Close() error {
	return nil
}
