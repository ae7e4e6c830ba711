package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reldb/reldb/common"
	"github.com/reldb/reldb/storage"
)

func appendMutation(t *testing.T, dm *storage.DiskManager, txn common.TransactionID, rec *WriteRecord) {
	t.Helper()
	buf := make([]byte, MutationRecordSize(rec))
	r := NewMutationRecord(buf, txn, rec)
	r.Seal()
	require.NoError(t, dm.WriteLog(r.Bytes()))
}

func TestLogReader_WalksStreamInOrder(t *testing.T) {
	dm := storage.NewDiskManager(t.TempDir(), nil)

	written := []*WriteRecord{
		NewDeleteWriteRecord("orders", common.Rid{PageNo: 0, Slot: 1}, []byte("row one")),
		NewDeleteWriteRecord("orders", common.Rid{PageNo: 0, Slot: 2}, []byte("row two, longer than one")),
		NewUpdateWriteRecord("customers", common.Rid{PageNo: 3, Slot: 0}, []byte("old image")),
	}
	for _, rec := range written {
		appendMutation(t, dm, common.TransactionID(9), rec)
	}

	reader := NewLogReader(dm, 0)
	var got []*WriteRecord
	for reader.Next() {
		assert.Equal(t, common.TransactionID(9), reader.Record().TxnID())
		got = append(got, reader.Record().AsWriteRecord())
	}
	require.NoError(t, reader.Err())
	assert.Equal(t, written, got)
}

func TestLogReader_EmptyLog(t *testing.T) {
	dm := storage.NewDiskManager(t.TempDir(), nil)

	reader := NewLogReader(dm, 0)
	assert.False(t, reader.Next())
	assert.NoError(t, reader.Err())
}

func TestLogReader_StartsAtCursor(t *testing.T) {
	dm := storage.NewDiskManager(t.TempDir(), nil)

	first := NewDeleteWriteRecord("t", common.Rid{PageNo: 0, Slot: 0}, []byte("first"))
	second := NewDeleteWriteRecord("t", common.Rid{PageNo: 0, Slot: 1}, []byte("second"))
	appendMutation(t, dm, 1, first)
	prevEnd := int64(MutationRecordSize(first))
	appendMutation(t, dm, 1, second)

	// A reader whose cursor is the end of the first record sees only the rest
	reader := NewLogReader(dm, prevEnd)
	require.True(t, reader.Next())
	assert.Equal(t, second, reader.Record().AsWriteRecord())
	assert.False(t, reader.Next())
	require.NoError(t, reader.Err())
}

// A maximum-size record must not read back as an end-of-log marker, and must
// not hide the records appended after it.
func TestLogReader_MaxSizeRecordInStream(t *testing.T) {
	dm := storage.NewDiskManager(t.TempDir(), nil)

	overhead := MutationRecordSize(NewDeleteWriteRecord("t", common.Rid{PageNo: 0, Slot: 0}, nil))
	big := NewDeleteWriteRecord("t", common.Rid{PageNo: 0, Slot: 0},
		make([]byte, MaxLogRecordSize-overhead))
	small := NewDeleteWriteRecord("t", common.Rid{PageNo: 0, Slot: 1}, []byte("tail"))
	appendMutation(t, dm, 1, big)
	appendMutation(t, dm, 1, small)

	reader := NewLogReader(dm, 0)
	require.True(t, reader.Next())
	assert.Equal(t, MaxLogRecordSize, reader.Record().Size())
	assert.Equal(t, big, reader.Record().AsWriteRecord())
	require.True(t, reader.Next())
	assert.Equal(t, small, reader.Record().AsWriteRecord())
	assert.False(t, reader.Next())
	require.NoError(t, reader.Err())
}

func TestLogReader_TruncatedTail(t *testing.T) {
	dm := storage.NewDiskManager(t.TempDir(), nil)

	rec := NewDeleteWriteRecord("t", common.Rid{PageNo: 0, Slot: 0}, []byte("whole"))
	appendMutation(t, dm, 1, rec)

	// A torn append: only the first few bytes of the next record made it out
	buf := make([]byte, MutationRecordSize(rec))
	r := NewMutationRecord(buf, 1, rec)
	r.Seal()
	require.NoError(t, dm.WriteLog(r.Bytes()[:6]))

	reader := NewLogReader(dm, 0)
	require.True(t, reader.Next())
	assert.False(t, reader.Next())
	assert.Error(t, reader.Err())
}
