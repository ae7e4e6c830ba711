package common

import "encoding/binary"

const IntSize int = 8

// Type enumerates the column types the storage layer understands. Rows are
// fixed-format: every column occupies Type-determined (or declared, for
// strings) bytes at a fixed offset.
type Type int8

const (
	// For uninitialized columns
	DefaultType Type = iota
	IntType
	StringType
)

func (t Type) String() string {
	switch t {
	case IntType:
		return "int"
	case StringType:
		return "string"
	}
	return "unknown"
}

// EncodeInt writes v into data in the on-disk column format.
func EncodeInt(data []byte, v int64) {
	Assert(len(data) >= IntSize, "buffer too small for int column")
	binary.LittleEndian.PutUint64(data, uint64(v))
}

// DecodeInt reads an int column value from data.
func DecodeInt(data []byte) int64 {
	Assert(len(data) >= IntSize, "buffer too small for int column")
	return int64(binary.LittleEndian.Uint64(data))
}

// EncodeString writes s into data, NUL-padding to the column width. The
// string must fit in the declared width.
func EncodeString(data []byte, s string) {
	Assert(len(s) <= len(data), "string %q exceeds column width %d", s, len(data))
	n := copy(data, s)
	for i := n; i < len(data); i++ {
		data[i] = 0
	}
}

// DecodeString reads a NUL-padded string column value from data.
func DecodeString(data []byte) string {
	end := len(data)
	for i, b := range data {
		if b == 0 {
			end = i
			break
		}
	}
	return string(data[:end])
}
