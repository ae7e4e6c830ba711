package execution

import (
	"github.com/reldb/reldb/catalog"
	"github.com/reldb/reldb/common"
	"github.com/reldb/reldb/indexing"
	"github.com/reldb/reldb/logging"
	"github.com/reldb/reldb/storage"
)

// TableUndo reverses write records against one table's heap file and
// secondary indexes. The transaction manager calls it in reverse append order
// during abort.
type TableUndo struct {
	table *catalog.Table
	fh    *storage.RecordFile
	dir   *indexing.Directory
}

func NewTableUndo(table *catalog.Table, fh *storage.RecordFile, dir *indexing.Directory) *TableUndo {
	return &TableUndo{table: table, fh: fh, dir: dir}
}

// Undo reverses a single write record. A delete is undone by reinserting the
// prior row image at its original rid and restoring every index entry; an
// insert by removing the row and its entries; an update by restoring the
// prior bytes and swapping the affected index entries.
func (u *TableUndo) Undo(rec *logging.WriteRecord) error {
	common.Assert(rec.TableName == u.table.Name,
		"write record for table %q reached undo for %q", rec.TableName, u.table.Name)

	switch rec.Kind {
	case logging.DeleteTuple:
		if err := u.fh.InsertAt(rec.Rid, rec.PriorRow); err != nil {
			return err
		}
		return u.forEachIndex(func(col *catalog.Column, index indexing.Index) error {
			return index.InsertEntry(col.Slice(rec.PriorRow), rec.Rid)
		})

	case logging.InsertTuple:
		row, err := u.fh.Get(rec.Rid)
		if err != nil {
			return err
		}
		if err := u.forEachIndex(func(col *catalog.Column, index indexing.Index) error {
			return index.DeleteEntry(col.Slice(row), rec.Rid)
		}); err != nil {
			return err
		}
		return u.fh.Delete(rec.Rid)

	case logging.UpdateTuple:
		row, err := u.fh.Get(rec.Rid)
		if err != nil {
			return err
		}
		if err := u.forEachIndex(func(col *catalog.Column, index indexing.Index) error {
			if err := index.DeleteEntry(col.Slice(row), rec.Rid); err != nil {
				return err
			}
			return index.InsertEntry(col.Slice(rec.PriorRow), rec.Rid)
		}); err != nil {
			return err
		}
		return u.fh.Update(rec.Rid, rec.PriorRow)
	}

	common.Assert(false, "unknown write kind %s", rec.Kind)
	return nil
}

func (u *TableUndo) forEachIndex(fn func(col *catalog.Column, index indexing.Index) error) error {
	for _, colIdx := range u.table.IndexedColumns() {
		index, err := u.dir.Get(u.table.Name, colIdx)
		if err != nil {
			return err
		}
		if err := fn(u.table.Column(colIdx), index); err != nil {
			return err
		}
	}
	return nil
}
