package logging

import (
	"encoding/binary"
	"io"

	"github.com/reldb/reldb/storage"
)

// LogReader walks the durable log stream forward, one record at a time.
// Reads are cursor-based: the reader tracks its own byte offset relative to
// the prevEnd position it was created with, matching the storage manager's
// log read contract. Hitting the current end of the log is a clean stop, not
// an error.
type LogReader struct {
	dm      *storage.DiskManager
	prevEnd int64
	offset  int64

	buf        []byte
	currentRec LogRecord
	err        error
}

// NewLogReader creates a reader positioned at prevEnd bytes into the log.
func NewLogReader(dm *storage.DiskManager, prevEnd int64) *LogReader {
	return &LogReader{
		dm:      dm,
		prevEnd: prevEnd,
		buf:     make([]byte, MaxLogRecordSize),
	}
}

// Next advances to the next record. It returns true if a record is available,
// false at end of log or on error.
func (r *LogReader) Next() bool {
	if r.err != nil {
		return false
	}
	if !r.currentRec.IsNil() {
		r.offset += int64(r.currentRec.Size())
	}

	n, ok, err := r.dm.ReadLog(r.buf[:2], 2, r.offset, r.prevEnd)
	if err != nil {
		r.err = err
		return false
	}
	if !ok {
		return false
	}
	if n < 2 {
		r.err = io.ErrUnexpectedEOF
		return false
	}

	recordLen := int(binary.LittleEndian.Uint16(r.buf[:2]))
	if recordLen == 0 {
		// Clean end (pre-allocated zeros at the tail of the log file)
		return false
	}
	if recordLen < logRecordHeaderSize || recordLen > MaxLogRecordSize {
		r.err = ErrCorruptRecord
		return false
	}

	n, ok, err = r.dm.ReadLog(r.buf[:recordLen], recordLen, r.offset, r.prevEnd)
	if err != nil {
		r.err = err
		return false
	}
	if !ok || n < recordLen {
		r.err = io.ErrUnexpectedEOF
		return false
	}

	r.currentRec, r.err = AsVerifiedLogRecord(r.buf[:recordLen])
	return r.err == nil
}

// Record returns the record at the current cursor.
func (r *LogReader) Record() LogRecord {
	return r.currentRec
}

// Offset returns the byte offset of the current record, relative to the
// prevEnd the reader was created with.
func (r *LogReader) Offset() int64 {
	return r.offset
}

// Err returns the first unexpected error encountered by the reader.
func (r *LogReader) Err() error {
	return r.err
}
