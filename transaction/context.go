// Package transaction holds per-transaction runtime state and the manager
// that drives commit and abort. Concurrency control (locking) is the job of a
// layer above; this package assumes operators run while appropriate locks are
// held.
package transaction

import (
	"github.com/reldb/reldb/common"
	"github.com/reldb/reldb/logging"
)

type txnState int

const (
	txnActive txnState = iota
	txnCommitted
	txnAborted
)

// Context holds the runtime state of a single transaction: its identity and
// the ordered list of write records its operators have produced. Append order
// is the order of logical application; undo walks the list in reverse.
type Context struct {
	id     common.TransactionID
	state  txnState
	writes []*logging.WriteRecord
}

// ID returns the transaction's identifier.
func (txn *Context) ID() common.TransactionID {
	return txn.id
}

// AppendWriteRecord adds a write record to the transaction's list. This is an
// in-memory append and always succeeds; durability is deferred to commit.
func (txn *Context) AppendWriteRecord(rec *logging.WriteRecord) {
	common.Assert(txn.state == txnActive, "append on finished transaction %d", txn.id)
	txn.writes = append(txn.writes, rec)
}

// WriteRecords returns the write records in append order. The slice is owned
// by the transaction; callers must not mutate it.
func (txn *Context) WriteRecords() []*logging.WriteRecord {
	return txn.writes
}

// NumWrites returns the number of write records appended so far.
func (txn *Context) NumWrites() int {
	return len(txn.writes)
}

// Active reports whether the transaction can still accept work.
func (txn *Context) Active() bool {
	return txn.state == txnActive
}
