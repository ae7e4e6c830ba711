// Package logging defines the write records operators hand to their
// transaction, the durable framing those records take in the log stream, and
// a forward reader over that stream.
package logging

import (
	"github.com/reldb/reldb/common"
)

// WriteKind identifies the row mutation a WriteRecord describes.
type WriteKind uint16

const (
	InsertTuple WriteKind = iota + 1
	DeleteTuple
	UpdateTuple
)

func (k WriteKind) String() string {
	switch k {
	case InsertTuple:
		return "INSERT_TUPLE"
	case DeleteTuple:
		return "DELETE_TUPLE"
	case UpdateTuple:
		return "UPDATE_TUPLE"
	}
	return "UNKNOWN"
}

// WriteRecord describes a single row mutation performed by an operator. It is
// created by the operator, appended to the owning transaction's ordered
// write-record list, and owned by the transaction from then on: consulted for
// undo on abort and serialized into the durable log at commit.
//
// PriorRow is the full row image before the mutation. For a delete it is the
// deleted row (enabling undo by reinsertion); for an update, the
// pre-update bytes; for an insert it is empty.
type WriteRecord struct {
	Kind      WriteKind
	TableName string
	Rid       common.Rid
	PriorRow  []byte
}

// NewInsertWriteRecord records an insert of a new row at rid.
func NewInsertWriteRecord(table string, rid common.Rid) *WriteRecord {
	return &WriteRecord{Kind: InsertTuple, TableName: table, Rid: rid}
}

// NewDeleteWriteRecord records a delete, snapshotting the full prior row.
func NewDeleteWriteRecord(table string, rid common.Rid, priorRow []byte) *WriteRecord {
	return &WriteRecord{
		Kind:      DeleteTuple,
		TableName: table,
		Rid:       rid,
		PriorRow:  copyBytes(priorRow),
	}
}

// NewUpdateWriteRecord records an in-place update, snapshotting the
// pre-update row.
func NewUpdateWriteRecord(table string, rid common.Rid, priorRow []byte) *WriteRecord {
	return &WriteRecord{
		Kind:      UpdateTuple,
		TableName: table,
		Rid:       rid,
		PriorRow:  copyBytes(priorRow),
	}
}

func copyBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
