package storage

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reldb/reldb/common"
)

const testRecordSize = 64

func newTestRecordFile(t *testing.T) *RecordFile {
	t.Helper()
	dm, _ := newTestManager(t)
	path := filepath.Join(t.TempDir(), "records.dat")
	rf, err := CreateRecordFile(dm, path, testRecordSize)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rf.Close() })
	return rf
}

func testRow(tag string) []byte {
	row := make([]byte, testRecordSize)
	copy(row, tag)
	return row
}

func TestRecordFile_InsertGetDelete(t *testing.T) {
	rf := newTestRecordFile(t)

	rid, err := rf.Insert(testRow("first"))
	require.NoError(t, err)
	assert.False(t, rid.IsNil())

	got, err := rf.Get(rid)
	require.NoError(t, err)
	assert.Equal(t, testRow("first"), got)

	require.NoError(t, rf.Delete(rid))

	_, err = rf.Get(rid)
	assert.True(t, common.HasCode(err, common.RecordNotFound))
	err = rf.Delete(rid)
	assert.True(t, common.HasCode(err, common.RecordNotFound))
}

func TestRecordFile_GetUnknownRid(t *testing.T) {
	rf := newTestRecordFile(t)

	_, err := rf.Get(common.Rid{PageNo: 42, Slot: 0})
	assert.True(t, common.HasCode(err, common.RecordNotFound))

	rid, err := rf.Insert(testRow("row"))
	require.NoError(t, err)

	_, err = rf.Get(common.Rid{PageNo: rid.PageNo, Slot: rid.Slot + 1})
	assert.True(t, common.HasCode(err, common.RecordNotFound))
}

func TestRecordFile_Update(t *testing.T) {
	rf := newTestRecordFile(t)

	rid, err := rf.Insert(testRow("before"))
	require.NoError(t, err)

	require.NoError(t, rf.Update(rid, testRow("after")))
	got, err := rf.Get(rid)
	require.NoError(t, err)
	assert.Equal(t, testRow("after"), got)

	err = rf.Update(common.Rid{PageNo: 0, Slot: 5}, testRow("x"))
	assert.True(t, common.HasCode(err, common.RecordNotFound))
}

func TestRecordFile_InsertAtRestoresDeletedSlot(t *testing.T) {
	rf := newTestRecordFile(t)

	rid, err := rf.Insert(testRow("victim"))
	require.NoError(t, err)
	require.NoError(t, rf.Delete(rid))

	require.NoError(t, rf.InsertAt(rid, testRow("victim")))
	got, err := rf.Get(rid)
	require.NoError(t, err)
	assert.Equal(t, testRow("victim"), got)
}

func TestRecordFile_SlotReuseAndExtension(t *testing.T) {
	rf := newTestRecordFile(t)

	// Fill the first page completely
	slots, _ := slotGeometry(testRecordSize)
	rids := make([]common.Rid, 0, slots)
	for i := 0; i < slots; i++ {
		rid, err := rf.Insert(testRow(fmt.Sprintf("row-%d", i)))
		require.NoError(t, err)
		require.Equal(t, common.PageNum(0), rid.PageNo)
		rids = append(rids, rid)
	}
	assert.Equal(t, common.PageNum(1), rf.NumPages())

	// Next insert spills to a fresh page
	rid, err := rf.Insert(testRow("overflow"))
	require.NoError(t, err)
	assert.Equal(t, common.PageNum(1), rid.PageNo)
	assert.Equal(t, common.PageNum(2), rf.NumPages())

	// Deleting frees the slot for reuse before any further extension
	require.NoError(t, rf.Delete(rids[3]))
	reused, err := rf.Insert(testRow("reuse"))
	require.NoError(t, err)
	assert.Equal(t, rids[3], reused)
}

func TestRecordFile_ReopenKeepsRecords(t *testing.T) {
	dm, _ := newTestManager(t)
	path := filepath.Join(t.TempDir(), "persist.dat")

	rf, err := CreateRecordFile(dm, path, testRecordSize)
	require.NoError(t, err)
	rid, err := rf.Insert(testRow("durable"))
	require.NoError(t, err)
	require.NoError(t, rf.Close())

	rf, err = OpenRecordFile(dm, path, testRecordSize)
	require.NoError(t, err)
	defer rf.Close()

	got, err := rf.Get(rid)
	require.NoError(t, err)
	assert.Equal(t, testRow("durable"), got)

	// New inserts land on existing pages, not on reissued page numbers
	rid2, err := rf.Insert(testRow("second"))
	require.NoError(t, err)
	assert.Equal(t, common.PageNum(0), rid2.PageNo)
	assert.NotEqual(t, rid, rid2)
}
