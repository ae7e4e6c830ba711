// Package execution contains the mutating operators that keep a table's heap
// storage and its secondary indexes consistent, and the undo hooks the
// transaction manager uses to roll their effects back.
package execution

import (
	"github.com/reldb/reldb/catalog"
	"github.com/reldb/reldb/common"
	"github.com/reldb/reldb/indexing"
	"github.com/reldb/reldb/logging"
	"github.com/reldb/reldb/storage"
	"github.com/reldb/reldb/transaction"
)

// DeleteExecutor removes a batch of rows, already selected by an upstream
// predicate stage, from a table's heap file and from every secondary index on
// it, recording one write record per row in the active transaction.
//
// Index entries are removed before the heap row. A failure between the two
// leaves at most an orphaned heap row, which vacuum can tolerate; the reverse
// order could leave a dangling index entry pointing at a vanished row, which
// nothing downstream can detect. Keep this order.
type DeleteExecutor struct {
	table *catalog.Table
	rids  []common.Rid
	fh    *storage.RecordFile
	dir   *indexing.Directory
	txn   *transaction.Context

	// Runtime state
	indexedCols []int
	indexes     []indexing.Index
	executed    bool
	cnt         int
	err         error
}

// NewDeleteExecutor builds a delete operator over the given rid batch. The
// rids are processed strictly in the order supplied.
func NewDeleteExecutor(table *catalog.Table, rids []common.Rid, fh *storage.RecordFile, dir *indexing.Directory, txn *transaction.Context) *DeleteExecutor {
	return &DeleteExecutor{
		table: table,
		rids:  rids,
		fh:    fh,
		dir:   dir,
		txn:   txn,
	}
}

// Init resolves the index handle for every indexed column. Resolution happens
// up front so a missing index (IndexNotFound) aborts the batch before any
// mutation.
func (e *DeleteExecutor) Init() error {
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

// Next runs the batch on first call and returns false: a delete produces no
// output tuples. Any failure aborts the whole invocation with no
// partial-batch continuation; rows already processed stay deleted, and the
// caller is expected to trigger transaction abort to roll them back.
func (e *DeleteExecutor) Next() bool {
	if e.executed || e.err != nil {
		return false
	}
	e.executed = true

	for _, rid := range e.rids {
		row, err := e.fh.Get(rid)
		if err != nil {
			e.err = err
			return false
		}

		// Index entries first, heap row second; see type comment.
		for i, colIdx := range e.indexedCols {
			col := e.table.Column(colIdx)
			if err := e.indexes[i].DeleteEntry(col.Slice(row), rid); err != nil {
				e.err = err
				return false
			}
		}

		if err := e.fh.Delete(rid); err != nil {
			e.err = err
			return false
		}

		e.txn.AppendWriteRecord(logging.NewDeleteWriteRecord(e.table.Name, rid, row))
		e.cnt++
	}
	return false
}

// Count returns the number of rows deleted so far.
func (e *DeleteExecutor) Count() int {
	return e.cnt
}

// Error returns the failure that aborted the batch, if any.
func (e *DeleteExecutor) Error() error {
	return e.err
}

// Close releases the operator's resources.
func (e *DeleteExecutor) Close() error {
	return nil
}
