package logging

import (
	"encoding/binary"
	"errors"
	"hash/crc32"

	"github.com/reldb/reldb/common"
)

// LogRecordType identifies a record in the durable log stream.
type LogRecordType uint16

const (
	LogInvalid LogRecordType = iota // So we can catch uninitialized values
	LogBegin
	LogCommit
	LogAbort
	LogInsert
	LogDelete
	LogUpdate
)

func (t LogRecordType) String() string {
	switch t {
	case LogInvalid:
		return "INVALID"
	case LogBegin:
		return "BEGIN"
	case LogCommit:
		return "COMMIT"
	case LogAbort:
		return "ABORT"
	case LogInsert:
		return "INSERT"
	case LogDelete:
		return "DELETE"
	case LogUpdate:
		return "UPDATE"
	}
	return "UNKNOWN"
}

// LogType returns the durable log record type for a write kind.
func (k WriteKind) LogType() LogRecordType {
	switch k {
	case InsertTuple:
		return LogInsert
	case DeleteTuple:
		return LogDelete
	case UpdateTuple:
		return LogUpdate
	}
	return LogInvalid
}

// LogRecord is a view over one serialized record of the log stream. The log
// stream itself is a flat byte sequence with no built-in framing; framing is
// this layout's responsibility:
//
//	Size (2) | Checksum (4) | Type (2) | TxnID (8) | Type-dependent payload
//
// Type-dependent payload:
//
//	Begin, Commit, Abort: header-only
//	Insert, Delete, Update: Rid (8) | TableNameLen (2) | TableName | PriorRow
//
// The checksum is CRC32-IEEE over everything after the checksum field.
type LogRecord struct {
	data []byte
}

// MaxLogRecordSize bounds a serialized record. The 2-byte size prefix must
// hold the full record length, so the bound is the largest uint16 value, not
// the power of two above it.
const MaxLogRecordSize = 1<<16 - 1

const logRecordHeaderSize = 16

const (
	offsetSize     = 0
	offsetChecksum = offsetSize + 2
	offsetType     = offsetChecksum + 4
	offsetTxnID    = offsetType + 2
	offsetRid      = offsetTxnID + 8
	offsetNameLen  = offsetRid + common.RidSize
	offsetName     = offsetNameLen + 2
)

// IsNil returns true if the underlying log data is empty.
func (r LogRecord) IsNil() bool {
	return len(r.data) == 0
}

// Size returns the total size of the log record in bytes.
func (r LogRecord) Size() int {
	return len(r.data)
}

// Bytes returns the serialized record, valid for appending to the log stream
// once the record has been sealed.
func (r LogRecord) Bytes() []byte {
	return r.data
}

// RecordType returns the type identifier for this log record.
func (r LogRecord) RecordType() LogRecordType {
	return LogRecordType(binary.LittleEndian.Uint16(r.data[offsetType:]))
}

// TxnID returns the transaction ID stored in this record.
func (r LogRecord) TxnID() common.TransactionID {
	return common.TransactionID(binary.LittleEndian.Uint64(r.data[offsetTxnID:]))
}

func (r LogRecord) isMutation() bool {
	t := r.RecordType()
	return t == LogInsert || t == LogDelete || t == LogUpdate
}

// Rid returns the row locator, for mutation records.
func (r LogRecord) Rid() common.Rid {
	common.Assert(r.isMutation(), "log type %s does not carry a Rid", r.RecordType())
	var rid common.Rid
	rid.LoadFrom(r.data[offsetRid:])
	return rid
}

// TableName returns the mutated table's name, for mutation records.
func (r LogRecord) TableName() string {
	common.Assert(r.isMutation(), "log type %s does not carry a table name", r.RecordType())
	nameLen := int(binary.LittleEndian.Uint16(r.data[offsetNameLen:]))
	return string(r.data[offsetName : offsetName+nameLen])
}

// PriorRow returns the pre-mutation row image, for mutation records.
func (r LogRecord) PriorRow() []byte {
	common.Assert(r.isMutation(), "log type %s does not carry a row image", r.RecordType())
	nameLen := int(binary.LittleEndian.Uint16(r.data[offsetNameLen:]))
	return r.data[offsetName+nameLen:]
}

// AsWriteRecord reconstructs the in-memory write record a mutation log
// record was serialized from.
func (r LogRecord) AsWriteRecord() *WriteRecord {
	var kind WriteKind
	switch r.RecordType() {
	case LogInsert:
		kind = InsertTuple
	case LogDelete:
		kind = DeleteTuple
	case LogUpdate:
		kind = UpdateTuple
	default:
		common.Assert(false, "log type %s is not a mutation", r.RecordType())
	}
	return &WriteRecord{
		Kind:      kind,
		TableName: r.TableName(),
		Rid:       r.Rid(),
		PriorRow:  copyBytes(r.PriorRow()),
	}
}

// MarkerRecordSize returns the size of a Begin/Commit/Abort record.
func MarkerRecordSize() int {
	return logRecordHeaderSize
}

// NewMarkerRecord initializes a header-only record (Begin, Commit or Abort)
// in the provided buffer.
func NewMarkerRecord(buf []byte, t LogRecordType, txnID common.TransactionID) LogRecord {
	common.Assert(t == LogBegin || t == LogCommit || t == LogAbort, "%s is not a marker type", t)
	r := LogRecord{data: buf[:MarkerRecordSize()]}
	binary.LittleEndian.PutUint16(r.data[offsetType:], uint16(t))
	binary.LittleEndian.PutUint64(r.data[offsetTxnID:], uint64(txnID))
	return r
}

// MutationRecordSize returns the serialized size of a write record.
func MutationRecordSize(rec *WriteRecord) int {
	return offsetName + len(rec.TableName) + len(rec.PriorRow)
}

// NewMutationRecord serializes a write record into the provided buffer.
func NewMutationRecord(buf []byte, txnID common.TransactionID, rec *WriteRecord) LogRecord {
	size := MutationRecordSize(rec)
	common.Assert(size <= MaxLogRecordSize, "log record of %d bytes exceeds maximum", size)
	r := LogRecord{data: buf[:size]}
	binary.LittleEndian.PutUint16(r.data[offsetType:], uint16(rec.Kind.LogType()))
	binary.LittleEndian.PutUint64(r.data[offsetTxnID:], uint64(txnID))
	rec.Rid.WriteTo(r.data[offsetRid:])
	binary.LittleEndian.PutUint16(r.data[offsetNameLen:], uint16(len(rec.TableName)))
	copy(r.data[offsetName:], rec.TableName)
	copy(r.data[offsetName+len(rec.TableName):], rec.PriorRow)
	return r
}

// Seal finalizes the record in place: it stamps the size prefix and computes
// the checksum. Must be called after the payload is fully written and before
// the record enters the log stream.
func (r LogRecord) Seal() {
	binary.LittleEndian.PutUint16(r.data[offsetSize:], uint16(r.Size()))
	checksum := crc32.ChecksumIEEE(r.data[offsetChecksum+4:])
	binary.LittleEndian.PutUint32(r.data[offsetChecksum:], checksum)
}

var ErrCorruptRecord = errors.New("log record corrupted: checksum mismatch")

// AsVerifiedLogRecord parses a raw byte slice into a LogRecord and verifies
// its checksum. It returns ErrCorruptRecord if the data is too short or the
// checksum does not match.
func AsVerifiedLogRecord(data []byte) (LogRecord, error) {
	if len(data) < logRecordHeaderSize {
		return LogRecord{}, ErrCorruptRecord
	}
	recordLen := int(binary.LittleEndian.Uint16(data))
	if recordLen < logRecordHeaderSize || recordLen > len(data) {
		return LogRecord{}, ErrCorruptRecord
	}
	storedChecksum := binary.LittleEndian.Uint32(data[offsetChecksum:])
	computedChecksum := crc32.ChecksumIEEE(data[offsetChecksum+4 : recordLen])
	if storedChecksum != computedChecksum {
		return LogRecord{}, ErrCorruptRecord
	}
	return LogRecord{data: data[:recordLen]}, nil
}
