package common

import "fmt"

type ErrorCode int

const (
	// FileExists indicates an attempt to create a file at a path where a
	// filesystem entry already exists.
	FileExists ErrorCode = iota
	// FileNotFound indicates the path does not name a regular file, or a
	// destroy was attempted on a file that is still open.
	FileNotFound
	// FileNotOpen indicates a handle that is not present in the open file
	// table.
	FileNotOpen
	// IOError wraps an OS-level I/O failure, including short reads/writes.
	IOError
	// RecordNotFound indicates a Rid that no longer resolves to a live row.
	RecordNotFound
	// KeyNotFound indicates an index entry that is absent. During a delete
	// this signals index/heap divergence and is fatal to the batch.
	KeyNotFound
	// IndexNotFound indicates no index is registered for (table, column).
	IndexNotFound
	// TxnAborted indicates an operation on a transaction that has already
	// been rolled back.
	TxnAborted
)

func (ec ErrorCode) String() string {
	switch ec {
	case FileExists:
		return "FileExists"
	case FileNotFound:
		return "FileNotFound"
	case FileNotOpen:
		return "FileNotOpen"
	case IOError:
		return "IOError"
	case RecordNotFound:
		return "RecordNotFound"
	case KeyNotFound:
		return "KeyNotFound"
	case IndexNotFound:
		return "IndexNotFound"
	case TxnAborted:
		return "TxnAborted"
	}
	return "unknown"
}

// Error is the engine's error type. It carries a code the kernel can branch
// on (e.g., idempotent-open, batch abort) and a human-readable detail string.
// IOError values additionally wrap the underlying OS error.
type Error struct {
	Code   ErrorCode
	Detail string
	cause  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("err: %s; msg: %s", e.Code.String(), e.Detail)
}

// Unwrap exposes the OS-level cause of an IOError, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches against another *Error by code, so callers can use errors.Is
// with a bare code sentinel such as common.NewError(common.RecordNotFound, "").
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// NewError builds an Error with a formatted detail message.
func NewError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// WrapIO builds an IOError that records the failed operation and wraps the
// OS error for errors.Unwrap.
func WrapIO(op string, cause error) *Error {
	return &Error{
		Code:   IOError,
		Detail: fmt.Sprintf("%s: %v", op, cause),
		cause:  cause,
	}
}

// HasCode reports whether err is an *Error carrying the given code.
func HasCode(err error, code ErrorCode) bool {
	e, ok := err.(*Error)
	return ok && e.Code == code
}
