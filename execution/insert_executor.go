package execution

import (
	"github.com/reldb/reldb/catalog"
	"github.com/reldb/reldb/common"
	"github.com/reldb/reldb/indexing"
	"github.com/reldb/reldb/logging"
	"github.com/reldb/reldb/storage"
	"github.com/reldb/reldb/transaction"
)

// InsertExecutor adds a batch of pre-encoded rows to a table's heap file and
// to every secondary index on it, recording one write record per row in the
// active transaction.
//
// The heap insert comes first so the rid exists before any index entry points
// at it; the mirror image of the delete ordering.
type InsertExecutor struct {
	table *catalog.Table
	rows  [][]byte
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

// NewInsertExecutor builds an insert operator over the given row batch. Each
// row must already be encoded at the table's fixed row size.
func NewInsertExecutor(table *catalog.Table, rows [][]byte, fh *storage.RecordFile, dir *indexing.Directory, txn *transaction.Context) *InsertExecutor {
	return &InsertExecutor{
		table: table,
		rows:  rows,
		fh:    fh,
		dir:   dir,
		txn:   txn,
	}
}

// Init resolves the index handle for every indexed column up front, so a
// missing index aborts the batch before any mutation.
func (e *InsertExecutor) Init() error {
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

// Next runs the batch on first call and returns false: an insert produces no
// output tuples. A failure aborts the invocation; rows already inserted stay,
// and the caller is expected to trigger transaction abort to roll them back.
func (e *InsertExecutor) Next() bool {
	if e.executed || e.err != nil {
		return false
	}
	e.executed = true

	for _, row := range e.rows {
		common.Assert(len(row) == e.table.RowSize(),
			"row of %d bytes inserted into table %q with row size %d",
			len(row), e.table.Name, e.table.RowSize())

		rid, err := e.fh.Insert(row)
		if err != nil {
			e.err = err
			return false
		}

		for i, colIdx := range e.indexedCols {
			col := e.table.Column(colIdx)
			if err := e.indexes[i].InsertEntry(col.Slice(row), rid); err != nil {
				e.err = err
				return false
			}
		}

		e.txn.AppendWriteRecord(logging.NewInsertWriteRecord(e.table.Name, rid))
		e.cnt++
	}
	return false
}

// Count returns the number of rows inserted so far.
func (e *InsertExecutor) Count() int {
	return e.cnt
}

// Error returns the failure that aborted the batch, if any.
func (e *InsertExecutor) Error() error {
	return e.err
}

// Close releases the operator's resources.
func (e *InsertExecutor) Close() error {
	return nil
}
