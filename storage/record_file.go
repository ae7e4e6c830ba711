package storage

import (
	"sync"

	"github.com/reldb/reldb/common"
)

// RecordFile stores fixed-size records in the pages of a single file. Each
// page begins with an 8-byte-aligned slot bitmap followed by the record
// slots; a set bit marks a live record. There is no buffer pool: pages are
// read on demand and written through immediately.
//
// Callers serialize access per the storage layer's concurrency model; the
// internal mutex only protects the page-count bookkeeping against concurrent
// file extension.
type RecordFile struct {
	dm         *DiskManager
	path       string
	id         common.FileID
	recordSize int

	slotsPerPage int
	bitmapBytes  int

	mu       sync.Mutex
	numPages common.PageNum
}

// slotGeometry computes how many records of the given size fit on a page
// alongside their slot bitmap, and the byte length of that bitmap.
func slotGeometry(recordSize int) (slots, bitmapBytes int) {
	common.Assert(recordSize > 0 && recordSize <= common.PageSize-8,
		"record size %d does not fit a page", recordSize)
	slots = (common.PageSize - 8) / recordSize
	for slots > 0 {
		bitmapBytes = common.Align8((slots + 7) / 8)
		if bitmapBytes+slots*recordSize <= common.PageSize {
			return slots, bitmapBytes
		}
		slots--
	}
	panic("unreachable")
}

// CreateRecordFile creates the backing file and returns an opened RecordFile.
func CreateRecordFile(dm *DiskManager, path string, recordSize int) (*RecordFile, error) {
	if err := dm.CreateFile(path); err != nil {
		return nil, err
	}
	return OpenRecordFile(dm, path, recordSize)
}

// OpenRecordFile opens an existing file as a RecordFile with the given record
// size. The page count is derived from the file's current size.
func OpenRecordFile(dm *DiskManager, path string, recordSize int) (*RecordFile, error) {
	id, err := dm.OpenFile(path)
	if err != nil {
		return nil, err
	}
	slots, bitmapBytes := slotGeometry(recordSize)

	rf := &RecordFile{
		dm:           dm,
		path:         path,
		id:           id,
		recordSize:   recordSize,
		slotsPerPage: slots,
		bitmapBytes:  bitmapBytes,
	}
	if size := dm.FileSize(path); size > 0 {
		rf.numPages = common.PageNum(pagesIn(size))
	}
	return rf, nil
}

// RecordSize returns the fixed byte length of every record in the file.
func (rf *RecordFile) RecordSize() int {
	return rf.recordSize
}

// FileID returns the DiskManager handle backing this RecordFile.
func (rf *RecordFile) FileID() common.FileID {
	return rf.id
}

// Close closes the backing file handle.
func (rf *RecordFile) Close() error {
	return rf.dm.CloseFile(rf.id)
}

// Get returns a copy of the record at rid. It fails with RecordNotFound if
// the rid does not resolve to a live record.
func (rf *RecordFile) Get(rid common.Rid) ([]byte, error) {
	page, err := rf.readPage(rid.PageNo)
	if err != nil {
		return nil, err
	}
	if err := rf.checkLive(page, rid); err != nil {
		return nil, err
	}
	out := make([]byte, rf.recordSize)
	copy(out, rf.slot(page, int(rid.Slot)))
	return out, nil
}

// Insert places row in the first free slot, extending the file with a fresh
// page when every existing slot is occupied. It returns the new record's rid.
func (rf *RecordFile) Insert(row []byte) (common.Rid, error) {
	common.Assert(len(row) == rf.recordSize, "row is %d bytes, record size is %d", len(row), rf.recordSize)

	rf.mu.Lock()
	numPages := rf.numPages
	rf.mu.Unlock()

	for pageNo := common.PageNum(0); pageNo < numPages; pageNo++ {
		page, err := rf.readPage(pageNo)
		if err != nil {
			return common.NilRid(), err
		}
		bm := AsBitmap(page[:rf.bitmapBytes], rf.slotsPerPage)
		slot := bm.FindFirstZero(0)
		if slot == -1 {
			continue
		}
		bm.SetBit(slot, true)
		copy(rf.slot(page, slot), row)
		if err := rf.writePage(pageNo, page); err != nil {
			return common.NilRid(), err
		}
		return common.Rid{PageNo: pageNo, Slot: int32(slot)}, nil
	}

	pageNo, err := rf.extend()
	if err != nil {
		return common.NilRid(), err
	}
	page := make([]byte, common.PageSize)
	bm := AsBitmap(page[:rf.bitmapBytes], rf.slotsPerPage)
	bm.SetBit(0, true)
	copy(rf.slot(page, 0), row)
	if err := rf.writePage(pageNo, page); err != nil {
		return common.NilRid(), err
	}
	return common.Rid{PageNo: pageNo, Slot: 0}, nil
}

// InsertAt reinstates row at a specific rid. This is the undo path for a
// deleted record; the slot must exist and must currently be free.
func (rf *RecordFile) InsertAt(rid common.Rid, row []byte) error {
	common.Assert(len(row) == rf.recordSize, "row is %d bytes, record size is %d", len(row), rf.recordSize)

	page, err := rf.readPage(rid.PageNo)
	if err != nil {
		return err
	}
	bm := AsBitmap(page[:rf.bitmapBytes], rf.slotsPerPage)
	occupied := bm.SetBit(int(rid.Slot), true)
	common.Assert(!occupied, "InsertAt into live slot %s", rid.String())
	copy(rf.slot(page, int(rid.Slot)), row)
	return rf.writePage(rid.PageNo, page)
}

// Delete removes the record at rid. It fails with RecordNotFound if the rid
// does not resolve to a live record.
func (rf *RecordFile) Delete(rid common.Rid) error {
	page, err := rf.readPage(rid.PageNo)
	if err != nil {
		return err
	}
	if err := rf.checkLive(page, rid); err != nil {
		return err
	}
	bm := AsBitmap(page[:rf.bitmapBytes], rf.slotsPerPage)
	bm.SetBit(int(rid.Slot), false)
	return rf.writePage(rid.PageNo, page)
}

// Update overwrites the record at rid in place. It fails with RecordNotFound
// if the rid does not resolve to a live record.
func (rf *RecordFile) Update(rid common.Rid, row []byte) error {
	common.Assert(len(row) == rf.recordSize, "row is %d bytes, record size is %d", len(row), rf.recordSize)

	page, err := rf.readPage(rid.PageNo)
	if err != nil {
		return err
	}
	if err := rf.checkLive(page, rid); err != nil {
		return err
	}
	copy(rf.slot(page, int(rid.Slot)), row)
	return rf.writePage(rid.PageNo, page)
}

// NumPages returns the number of pages currently in the file.
func (rf *RecordFile) NumPages() common.PageNum {
	rf.mu.Lock()
	defer rf.mu.Unlock()
	return rf.numPages
}

func (rf *RecordFile) slot(page []byte, slot int) []byte {
	start := rf.bitmapBytes + slot*rf.recordSize
	return page[start : start+rf.recordSize]
}

func (rf *RecordFile) checkLive(page []byte, rid common.Rid) error {
	if rid.Slot < 0 || int(rid.Slot) >= rf.slotsPerPage {
		return common.NewError(common.RecordNotFound, "no record at %s", rid.String())
	}
	bm := AsBitmap(page[:rf.bitmapBytes], rf.slotsPerPage)
	if !bm.LoadBit(int(rid.Slot)) {
		return common.NewError(common.RecordNotFound, "no record at %s", rid.String())
	}
	return nil
}

func (rf *RecordFile) readPage(pageNo common.PageNum) ([]byte, error) {
	rf.mu.Lock()
	numPages := rf.numPages
	rf.mu.Unlock()
	if pageNo < 0 || pageNo >= numPages {
		return nil, common.NewError(common.RecordNotFound, "page %d out of range (%d pages)", pageNo, numPages)
	}
	page := make([]byte, common.PageSize)
	if err := rf.dm.ReadPage(rf.id, pageNo, page, common.PageSize); err != nil {
		return nil, err
	}
	return page, nil
}

func (rf *RecordFile) writePage(pageNo common.PageNum, page []byte) error {
	return rf.dm.WritePage(rf.id, pageNo, page, common.PageSize)
}

// extend allocates a fresh zeroed page at the end of the file.
func (rf *RecordFile) extend() (common.PageNum, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()
	pageNo, err := rf.dm.AllocatePage(rf.id)
	if err != nil {
		return common.InvalidPageNum, err
	}
	common.Assert(pageNo == rf.numPages, "page allocation should be sequential: got %d, have %d pages", pageNo, rf.numPages)
	zero := make([]byte, common.PageSize)
	if err := rf.dm.WritePage(rf.id, pageNo, zero, common.PageSize); err != nil {
		return common.InvalidPageNum, err
	}
	rf.numPages++
	return pageNo, nil
}
