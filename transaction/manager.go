package transaction

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/reldb/reldb/common"
	"github.com/reldb/reldb/logging"
	"github.com/reldb/reldb/storage"
)

// UndoApplier reverses the effect of a single write record against the
// stores it touched. The execution layer supplies the implementation, since
// undo needs heap and index access this package must not depend on.
type UndoApplier interface {
	Undo(rec *logging.WriteRecord) error
}

// Manager creates transactions and drives their commit and abort paths.
//
// The original design defers durability to commit: operators only append
// write records to in-memory transaction state, and Commit serializes the
// whole batch (begin marker, mutations, commit marker) to the log stream in
// one pass. The write-ahead inversion this implies is recorded in DESIGN.md.
type Manager struct {
	dm     *storage.DiskManager
	log    *zap.Logger
	nextID atomic.Uint64
}

// NewManager creates a transaction manager writing through the given disk
// manager's log stream. A nil logger disables logging.
func NewManager(dm *storage.DiskManager, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{dm: dm, log: logger}
}

// Begin starts a new transaction.
func (m *Manager) Begin() *Context {
	id := common.TransactionID(m.nextID.Add(1))
	return &Context{id: id}
}

// Commit makes the transaction's effects durable: it appends the begin
// marker, every write record in append order, and the commit marker to the
// log stream, then syncs the log. The context is finished afterwards.
func (m *Manager) Commit(txn *Context) error {
	common.Assert(txn.state == txnActive, "commit on finished transaction %d", txn.id)

	if err := m.appendMarker(logging.LogBegin, txn.id); err != nil {
		return err
	}
	for _, rec := range txn.writes {
		buf := make([]byte, logging.MutationRecordSize(rec))
		r := logging.NewMutationRecord(buf, txn.id, rec)
		r.Seal()
		if err := m.dm.WriteLog(r.Bytes()); err != nil {
			return err
		}
	}
	if err := m.appendMarker(logging.LogCommit, txn.id); err != nil {
		return err
	}
	if err := m.dm.SyncLog(); err != nil {
		return err
	}

	txn.state = txnCommitted
	m.log.Debug("committed transaction",
		zap.Uint64("txn", uint64(txn.id)),
		zap.Int("writes", len(txn.writes)))
	return nil
}

// Abort rolls the transaction back: it walks the write-record list in reverse
// and asks the applier to undo each mutation, then appends an abort marker to
// the log. An undo failure stops the rollback and is returned; the
// transaction is left aborted either way.
func (m *Manager) Abort(txn *Context, applier UndoApplier) error {
	common.Assert(txn.state == txnActive, "abort on finished transaction %d", txn.id)
	txn.state = txnAborted

	for i := len(txn.writes) - 1; i >= 0; i-- {
		if err := applier.Undo(txn.writes[i]); err != nil {
			return err
		}
	}
	if err := m.appendMarker(logging.LogAbort, txn.id); err != nil {
		return err
	}

	m.log.Debug("aborted transaction",
		zap.Uint64("txn", uint64(txn.id)),
		zap.Int("undone", len(txn.writes)))
	return nil
}

func (m *Manager) appendMarker(t logging.LogRecordType, id common.TransactionID) error {
	buf := make([]byte, logging.MarkerRecordSize())
	r := logging.NewMarkerRecord(buf, t, id)
	r.Seal()
	return m.dm.WriteLog(r.Bytes())
}
