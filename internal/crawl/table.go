package crawl

import (
	"fmt"
	"strings"
)

// Table kinds.
const (
	KindPrices       = "prices"
	KindFundamentals = "fundamentals"
)

// MergeError rejects one symbol's contribution to one table.
type MergeError struct {
	Symbol string
	Kind   string
	Row    int // index within the contribution
	Reason string
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("merge %s rows of %s: row %d: %s", e.Kind, e.Symbol, e.Row, e.Reason)
}

// Row is anything a Table can hold.
type Row interface {
	Validate() error
}

// Table is an append-only row builder. Each Append is all-or-nothing: a
// contribution with any bad row leaves the table unchanged.
type Table[T Row] struct {
	kind     string
	rows     []T
	symbolOf func(T) string
}

// NewTable creates an empty table. symbolOf extracts the symbol a row
// belongs to; rows of another symbol are rejected.
func NewTable[T Row](kind string, symbolOf func(T) string) *Table[T] {
	return &Table[T]{kind: kind, symbolOf: symbolOf}
}

// Append adds rows for symbol in order. It returns a *MergeError and appends
// nothing if any row is malformed or belongs to a different symbol.
func (t *Table[T]) Append(symbol string, rows []T) error {
	for i, r := range rows {
		if err := r.Validate(); err != nil {
			return &MergeError{Symbol: symbol, Kind: t.kind, Row: i, Reason: err.Error()}
		}
		if t.symbolOf != nil {
			if got := t.symbolOf(r); !strings.EqualFold(got, symbol) {
				return &MergeError{Symbol: symbol, Kind: t.kind, Row: i, Reason: fmt.Sprintf("row belongs to %q", got)}
			}
		}
	}
	t.rows = append(t.rows, rows...)
	return nil
}

// Rows returns the accumulated rows. The slice must not be modified.
func (t *Table[T]) Rows() []T { return t.rows }

func (t *Table[T]) Len() int { return len(t.rows) }

func (t *Table[T]) Kind() string { return t.kind }

// Reset empties the table for the next batch.
func (t *Table[T]) Reset() { t.rows = nil }
