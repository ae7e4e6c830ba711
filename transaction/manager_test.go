package transaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reldb/reldb/common"
	"github.com/reldb/reldb/logging"
	"github.com/reldb/reldb/storage"
)

// recordingApplier remembers the write records handed to Undo, in call order.
type recordingApplier struct {
	undone []*logging.WriteRecord
	fail   error
}

func (a *recordingApplier) Undo(rec *logging.WriteRecord) error {
	if a.fail != nil {
		return a.fail
	}
	a.undone = append(a.undone, rec)
	return nil
}

// loggedRecord captures one log record's contents; the reader's view is only
// valid until the next advance, so tests copy what they assert on.
type loggedRecord struct {
	typ   logging.LogRecordType
	txnID common.TransactionID
	write *logging.WriteRecord
}

func readAll(t *testing.T, dm *storage.DiskManager) []loggedRecord {
	t.Helper()
	reader := logging.NewLogReader(dm, 0)
	var out []loggedRecord
	for reader.Next() {
		rec := reader.Record()
		entry := loggedRecord{typ: rec.RecordType(), txnID: rec.TxnID()}
		switch entry.typ {
		case logging.LogInsert, logging.LogDelete, logging.LogUpdate:
			entry.write = rec.AsWriteRecord()
		}
		out = append(out, entry)
	}
	require.NoError(t, reader.Err())
	return out
}

func TestManager_BeginAssignsDistinctIDs(t *testing.T) {
	dm := storage.NewDiskManager(t.TempDir(), nil)
	mgr := NewManager(dm, nil)

	t1 := mgr.Begin()
	t2 := mgr.Begin()
	assert.NotEqual(t, t1.ID(), t2.ID())
	assert.True(t, t1.Active())
	assert.True(t, t2.Active())
}

func TestManager_CommitLogsBatch(t *testing.T) {
	dm := storage.NewDiskManager(t.TempDir(), nil)
	mgr := NewManager(dm, nil)

	txn := mgr.Begin()
	w1 := logging.NewDeleteWriteRecord("t", common.Rid{PageNo: 0, Slot: 1}, []byte("one"))
	w2 := logging.NewDeleteWriteRecord("t", common.Rid{PageNo: 0, Slot: 2}, []byte("two"))
	txn.AppendWriteRecord(w1)
	txn.AppendWriteRecord(w2)

	require.NoError(t, mgr.Commit(txn))
	assert.False(t, txn.Active())

	recs := readAll(t, dm)
	require.Len(t, recs, 4)
	assert.Equal(t, logging.LogBegin, recs[0].typ)
	assert.Equal(t, logging.LogDelete, recs[1].typ)
	assert.Equal(t, logging.LogDelete, recs[2].typ)
	assert.Equal(t, logging.LogCommit, recs[3].typ)

	for _, rec := range recs {
		assert.Equal(t, txn.ID(), rec.txnID)
	}
	assert.Equal(t, w1, recs[1].write)
	assert.Equal(t, w2, recs[2].write)
}

func TestManager_CommitEmptyTransaction(t *testing.T) {
	dm := storage.NewDiskManager(t.TempDir(), nil)
	mgr := NewManager(dm, nil)

	txn := mgr.Begin()
	require.NoError(t, mgr.Commit(txn))

	recs := readAll(t, dm)
	require.Len(t, recs, 2)
	assert.Equal(t, logging.LogBegin, recs[0].typ)
	assert.Equal(t, logging.LogCommit, recs[1].typ)
}

func TestManager_AbortUndoesInReverse(t *testing.T) {
	dm := storage.NewDiskManager(t.TempDir(), nil)
	mgr := NewManager(dm, nil)

	txn := mgr.Begin()
	w1 := logging.NewDeleteWriteRecord("t", common.Rid{PageNo: 0, Slot: 1}, []byte("one"))
	w2 := logging.NewDeleteWriteRecord("t", common.Rid{PageNo: 0, Slot: 2}, []byte("two"))
	w3 := logging.NewDeleteWriteRecord("t", common.Rid{PageNo: 1, Slot: 0}, []byte("three"))
	txn.AppendWriteRecord(w1)
	txn.AppendWriteRecord(w2)
	txn.AppendWriteRecord(w3)

	applier := &recordingApplier{}
	require.NoError(t, mgr.Abort(txn, applier))
	assert.False(t, txn.Active())

	assert.Equal(t, []*logging.WriteRecord{w3, w2, w1}, applier.undone)

	recs := readAll(t, dm)
	require.Len(t, recs, 1)
	assert.Equal(t, logging.LogAbort, recs[0].typ)
	assert.Equal(t, txn.ID(), recs[0].txnID)
}

func TestManager_AbortStopsOnUndoFailure(t *testing.T) {
	dm := storage.NewDiskManager(t.TempDir(), nil)
	mgr := NewManager(dm, nil)

	txn := mgr.Begin()
	txn.AppendWriteRecord(logging.NewDeleteWriteRecord("t", common.NilRid(), []byte("x")))

	applier := &recordingApplier{fail: common.NewError(common.RecordNotFound, "gone")}
	err := mgr.Abort(txn, applier)
	assert.True(t, common.HasCode(err, common.RecordNotFound))
	assert.False(t, txn.Active())

	// Nothing reached the log
	assert.Empty(t, readAll(t, dm))
}
