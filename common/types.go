// Package common holds the kernel types shared across the storage engine:
// page and file identifiers, row locators, column encoding, and the typed
// error model.
package common

import (
	"encoding/binary"
	"fmt"
)

const (
	// PageSize is the fixed size of every page in a data file. All page reads
	// and writes are bounded to at most PageSize bytes.
	PageSize int = 4096

	// LogFileName is the name of the append-only log stream, relative to the
	// database root directory.
	LogFileName = "db.log"
)

// FileID is a small integer handle identifying an open file. Handles are
// issued by the DiskManager and stay stable until the file is closed.
type FileID int32

const InvalidFileID FileID = -1

// PageNum is a zero-based page number within a file. The byte offset of a
// page is PageNum * PageSize.
type PageNum int32

const InvalidPageNum PageNum = -1

// Rid locates a row inside a record file: the page it lives on and the slot
// within that page. Components outside the record store treat Rids as opaque
// tokens.
type Rid struct {
	PageNo PageNum
	Slot   int32
}

// RidSize is the serialized size of a Rid (PageNo (4) + Slot (4)).
const RidSize = 8

// IsNil reports whether the Rid is the invalid locator.
func (r *Rid) IsNil() bool {
	return r.PageNo < 0
}

func (r *Rid) String() string {
	return fmt.Sprintf("rid(%d, %d)", r.PageNo, r.Slot)
}

// WriteTo serializes the Rid into the provided buffer. The buffer must be
// large enough to hold a Rid.
func (r *Rid) WriteTo(data []byte) {
	Assert(len(data) >= RidSize, "buffer too small for a Rid")
	binary.LittleEndian.PutUint32(data, uint32(r.PageNo))
	binary.LittleEndian.PutUint32(data[4:], uint32(r.Slot))
}

// LoadFrom deserializes a Rid from the provided buffer.
func (r *Rid) LoadFrom(data []byte) {
	Assert(len(data) >= RidSize, "buffer too small for a Rid")
	r.PageNo = PageNum(binary.LittleEndian.Uint32(data))
	r.Slot = int32(binary.LittleEndian.Uint32(data[4:]))
}

// NilRid returns the sentinel Rid used for "no row".
func NilRid() Rid {
	return Rid{PageNo: InvalidPageNum, Slot: -1}
}

// TransactionID identifies a transaction for the lifetime of the process.
type TransactionID uint64

const InvalidTransactionID TransactionID = 0
