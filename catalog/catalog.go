// Package catalog holds the table metadata the storage and execution layers
// need: column layout within the fixed-format row, and which columns carry a
// secondary index. Schema management proper (DDL, persistence, statistics)
// lives above this layer.
package catalog

import (
	"encoding/json"

	"github.com/reldb/reldb/common"
)

// Column describes one column of a fixed-format row.
type Column struct {
	Name string      `json:"name"`
	Type common.Type `json:"type"`
	// Len is the encoded byte length of the column. For IntType it is always
	// common.IntSize; for StringType it is the declared fixed width.
	Len int `json:"len"`
	// Offset is the column's byte offset within the row, assigned by NewTable.
	Offset int `json:"offset"`
	// Indexed marks columns that carry a secondary B+Tree index.
	Indexed bool `json:"indexed"`
}

// Slice returns the column's encoded byte range within a full row image.
func (c *Column) Slice(row []byte) []byte {
	return row[c.Offset : c.Offset+c.Len]
}

// Table groups the columns of one table. Rows are fixed-format: columns are
// laid out back to back at the offsets assigned when the table was built.
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
	rowSize int
}

// IntColumn builds an int column definition.
func IntColumn(name string, indexed bool) Column {
	return Column{Name: name, Type: common.IntType, Len: common.IntSize, Indexed: indexed}
}

// StringColumn builds a fixed-width string column definition.
func StringColumn(name string, width int, indexed bool) Column {
	common.Assert(width > 0, "string column %q must have positive width", name)
	return Column{Name: name, Type: common.StringType, Len: width, Indexed: indexed}
}

// NewTable assembles a table schema, assigning each column its byte offset.
func NewTable(name string, columns ...Column) *Table {
	common.Assert(len(columns) > 0, "table %q must have at least one column", name)
	t := &Table{Name: name, Columns: make([]Column, len(columns))}
	offset := 0
	for i, col := range columns {
		col.Offset = offset
		offset += col.Len
		t.Columns[i] = col
	}
	t.rowSize = offset
	return t
}

// RowSize returns the byte length of a full row.
func (t *Table) RowSize() int {
	return t.rowSize
}

// IndexedColumns returns the indices (into Columns) of every indexed column,
// in declaration order.
func (t *Table) IndexedColumns() []int {
	var out []int
	for i := range t.Columns {
		if t.Columns[i].Indexed {
			out = append(out, i)
		}
	}
	return out
}

// Column returns the column at index i.
func (t *Table) Column(i int) *Column {
	return &t.Columns[i]
}

func (t *Table) String() string {
	b, _ := json.MarshalIndent(t, "", "  ")
	return string(b)
}
