// Package storage implements the disk layer: page-granular file I/O behind
// an open file table, the append-only log stream, and a fixed-size-record
// heap file built on top of both.
package storage

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/reldb/reldb/common"
)

// openFile is one entry of the open file table.
type openFile struct {
	path string
	file *os.File
	// nextPage is the page allocation counter for this handle. It is seeded
	// from the file's current size at open time so that reopening a populated
	// file never reissues page numbers that are already in use.
	nextPage common.PageNum
}

// DiskManager owns the open file table and performs all page- and log-level
// I/O for the database instance. Every other component addresses files by the
// stable FileID handles it issues, so "is this file currently open" is an
// O(1) check before destructive filesystem operations.
//
// The open file table and the per-handle allocation counters are guarded by a
// single mutex. Page I/O itself uses positioned reads/writes on the
// underlying *os.File and needs no serialization beyond what the caller's
// concurrency-control layer provides for a given page.
type DiskManager struct {
	rootPath string
	log      *zap.Logger

	mu       sync.Mutex
	pathToID map[string]common.FileID
	files    map[common.FileID]*openFile
	nextID   common.FileID

	logMu   sync.Mutex
	logFile *os.File
}

// NewDiskManager creates a manager rooted at rootPath. The log stream lives
// at rootPath/db.log. A nil logger disables logging.
func NewDiskManager(rootPath string, logger *zap.Logger) *DiskManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiskManager{
		rootPath: rootPath,
		log:      logger,
		pathToID: make(map[string]common.FileID),
		files:    make(map[common.FileID]*openFile),
	}
}

// OpenFile opens the regular file at path for page I/O and returns its
// handle. Opening a path that is already open returns the existing handle;
// this is an explicit branch, not an error path.
func (dm *DiskManager) OpenFile(path string) (common.FileID, error) {
	if !isRegularFile(path) {
		return common.InvalidFileID, common.NewError(common.FileNotFound, "no such file: %s", path)
	}

	dm.mu.Lock()
	defer dm.mu.Unlock()

	if id, ok := dm.pathToID[path]; ok {
		return id, nil
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0666)
	if err != nil {
		return common.InvalidFileID, common.WrapIO("open "+path, err)
	}
	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return common.InvalidFileID, common.WrapIO("stat "+path, err)
	}

	id := dm.nextID
	dm.nextID++
	dm.pathToID[path] = id
	dm.files[id] = &openFile{
		path:     path,
		file:     f,
		nextPage: common.PageNum(pagesIn(stat.Size())),
	}

	dm.log.Debug("opened file",
		zap.String("path", path),
		zap.Int32("handle", int32(id)),
		zap.Int32("next_page", int32(dm.files[id].nextPage)))
	return id, nil
}

// CloseFile closes the handle and removes both directions of the path↔handle
// mapping. Closing a handle that is not open fails with FileNotOpen.
func (dm *DiskManager) CloseFile(id common.FileID) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	of, ok := dm.files[id]
	if !ok {
		return common.NewError(common.FileNotOpen, "handle %d is not open", id)
	}
	delete(dm.files, id)
	delete(dm.pathToID, of.path)
	if err := of.file.Close(); err != nil {
		return common.WrapIO("close "+of.path, err)
	}
	dm.log.Debug("closed file", zap.String("path", of.path), zap.Int32("handle", int32(id)))
	return nil
}

// CreateFile creates an empty regular file at path and leaves it closed.
// It fails with FileExists if any filesystem entry already exists there.
func (dm *DiskManager) CreateFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return common.NewError(common.FileExists, "file already exists: %s", path)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0666)
	if err != nil {
		return common.WrapIO("create "+path, err)
	}
	if err := f.Close(); err != nil {
		return common.WrapIO("close "+path, err)
	}
	dm.log.Debug("created file", zap.String("path", path))
	return nil
}

// DestroyFile removes the file at path. A file that is currently open must be
// closed first; destroying it (or a path that does not exist) fails with
// FileNotFound.
func (dm *DiskManager) DestroyFile(path string) error {
	dm.mu.Lock()
	_, open := dm.pathToID[path]
	dm.mu.Unlock()
	if open {
		return common.NewError(common.FileNotFound, "file is open, close before destroy: %s", path)
	}
	if _, err := os.Stat(path); err != nil {
		return common.NewError(common.FileNotFound, "no such file: %s", path)
	}
	if err := os.Remove(path); err != nil {
		return common.WrapIO("remove "+path, err)
	}
	dm.log.Debug("destroyed file", zap.String("path", path))
	return nil
}

// ReadPage reads n bytes of the page identified by (id, pageNo) into buf.
// n must not exceed PageSize. A short read or OS failure is an IOError; the
// caller must treat it as fatal to the current operation.
func (dm *DiskManager) ReadPage(id common.FileID, pageNo common.PageNum, buf []byte, n int) error {
	common.Assert(buf != nil, "ReadPage: nil buffer")
	common.Assert(n <= common.PageSize, "ReadPage: %d bytes exceeds page size", n)

	of, err := dm.lookup(id)
	if err != nil {
		return err
	}
	offset := int64(pageNo) * int64(common.PageSize)
	if _, err := of.file.ReadAt(buf[:n], offset); err != nil {
		return common.WrapIO("read page", err)
	}
	return nil
}

// WritePage writes n bytes of buf to the page identified by (id, pageNo).
// n must not exceed PageSize. No partial-write recovery is attempted.
func (dm *DiskManager) WritePage(id common.FileID, pageNo common.PageNum, buf []byte, n int) error {
	common.Assert(buf != nil, "WritePage: nil buffer")
	common.Assert(n <= common.PageSize, "WritePage: %d bytes exceeds page size", n)

	of, err := dm.lookup(id)
	if err != nil {
		return err
	}
	offset := int64(pageNo) * int64(common.PageSize)
	if _, err := of.file.WriteAt(buf[:n], offset); err != nil {
		return common.WrapIO("write page", err)
	}
	return nil
}

// AllocatePage returns the next page number for the handle and advances the
// counter. Page numbers are never reused; see DeallocatePage.
func (dm *DiskManager) AllocatePage(id common.FileID) (common.PageNum, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	of, ok := dm.files[id]
	if !ok {
		return common.InvalidPageNum, common.NewError(common.FileNotOpen, "handle %d is not open", id)
	}
	pageNo := of.nextPage
	of.nextPage++
	return pageNo, nil
}

// DeallocatePage is a placeholder. Freed page numbers are not tracked and are
// never reissued; space reclamation is future work.
func (dm *DiskManager) DeallocatePage(pageNo common.PageNum) {
}

// FileSize returns the size of the file at path in bytes, or -1 if the path
// cannot be stat'ed. This is a non-fatal query, not an error.
func (dm *DiskManager) FileSize(path string) int64 {
	stat, err := os.Stat(path)
	if err != nil {
		return -1
	}
	return stat.Size()
}

// GetFilePath returns the path bound to an open handle.
func (dm *DiskManager) GetFilePath(id common.FileID) (string, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	of, ok := dm.files[id]
	if !ok {
		return "", common.NewError(common.FileNotOpen, "handle %d is not open", id)
	}
	return of.path, nil
}

// GetFileID returns the handle for path, opening the file if it is not
// already open.
func (dm *DiskManager) GetFileID(path string) (common.FileID, error) {
	dm.mu.Lock()
	id, ok := dm.pathToID[path]
	dm.mu.Unlock()
	if ok {
		return id, nil
	}
	return dm.OpenFile(path)
}

// NumOpenFiles returns the number of entries in the open file table.
func (dm *DiskManager) NumOpenFiles() int {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return len(dm.files)
}

// LogPath returns the filesystem path of the log stream.
func (dm *DiskManager) LogPath() string {
	return filepath.Join(dm.rootPath, common.LogFileName)
}

// ReadLog reads up to size bytes of the log stream into buf, starting at
// offset relative to the caller-tracked cursor prevEnd. It returns false
// without error when the absolute offset is at or beyond the current end of
// the log. The read size is clamped to the remaining bytes; a short read of
// the clamped size is an IOError.
func (dm *DiskManager) ReadLog(buf []byte, size int, offset int64, prevEnd int64) (int, bool, error) {
	dm.logMu.Lock()
	defer dm.logMu.Unlock()

	if err := dm.ensureLogOpen(); err != nil {
		return 0, false, err
	}
	stat, err := dm.logFile.Stat()
	if err != nil {
		return 0, false, common.WrapIO("stat log", err)
	}

	absolute := offset + prevEnd
	if absolute >= stat.Size() {
		return 0, false, nil
	}
	if remaining := stat.Size() - absolute; int64(size) > remaining {
		size = int(remaining)
	}
	if _, err := dm.logFile.ReadAt(buf[:size], absolute); err != nil {
		return 0, false, common.WrapIO("read log", err)
	}
	return size, true, nil
}

// WriteLog appends buf to the end of the log stream. Writes are always
// appends; the log is never rewritten in place.
func (dm *DiskManager) WriteLog(buf []byte) error {
	dm.logMu.Lock()
	defer dm.logMu.Unlock()

	if err := dm.ensureLogOpen(); err != nil {
		return err
	}
	if _, err := dm.logFile.Seek(0, io.SeekEnd); err != nil {
		return common.WrapIO("seek log", err)
	}
	if _, err := dm.logFile.Write(buf); err != nil {
		return common.WrapIO("write log", err)
	}
	return nil
}

// SyncLog flushes the log stream to stable storage.
func (dm *DiskManager) SyncLog() error {
	dm.logMu.Lock()
	defer dm.logMu.Unlock()
	if dm.logFile == nil {
		return nil
	}
	if err := dm.logFile.Sync(); err != nil {
		return common.WrapIO("sync log", err)
	}
	return nil
}

// ensureLogOpen lazily opens (creating if missing) the log file.
// Callers must hold logMu.
func (dm *DiskManager) ensureLogOpen() error {
	if dm.logFile != nil {
		return nil
	}
	f, err := os.OpenFile(dm.LogPath(), os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		return common.WrapIO("open log", err)
	}
	dm.logFile = f
	return nil
}

func (dm *DiskManager) lookup(id common.FileID) (*openFile, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	of, ok := dm.files[id]
	if !ok {
		return nil, common.NewError(common.FileNotOpen, "handle %d is not open", id)
	}
	return of, nil
}

// pagesIn returns the number of pages a file of the given size spans,
// rounding up for a trailing partial page.
func pagesIn(size int64) int64 {
	return (size + int64(common.PageSize) - 1) / int64(common.PageSize)
}

func isRegularFile(path string) bool {
	stat, err := os.Stat(path)
	return err == nil && stat.Mode().IsRegular()
}
