// Package indexing provides the secondary-index access facade: per-column
// B+Tree indexes mapping encoded key bytes to row identifiers, and a
// directory resolving (table, column) to a stable index handle.
package indexing

import (
	"github.com/reldb/reldb/common"
)

// Index is the access facade for one secondary index. Keys are the encoded
// byte range of the indexed column within a row; values are Rids. Keys are
// not unique, but the (key, rid) pair is.
type Index interface {
	// InsertEntry adds a mapping from the given key to the specified Rid.
	InsertEntry(key []byte, rid common.Rid) error

	// DeleteEntry removes the mapping between the given key and the specified
	// Rid. It fails with KeyNotFound if the pair is absent.
	DeleteEntry(key []byte, rid common.Rid) error

	// ScanKey performs a point lookup, appending every Rid stored under the
	// exact key to output. The output slice is returned to allow the caller
	// to reuse memory across lookups.
	ScanKey(key []byte, output []common.Rid) []common.Rid

	// Len returns the number of entries in the index.
	Len() int
}
