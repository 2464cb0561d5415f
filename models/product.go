package models

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// KeySeparator joins the six identity fields into a ProductKey. It must not
// occur inside any field; records violating that are rejected at ingestion.
const KeySeparator = "|"

// ProductKey is the canonical composite identity of a product, stable across
// snapshots and across competitors.
type ProductKey string

// Identity holds the six fields that identify a product.
type Identity struct {
	Name         string
	ItemType     string
	ItemForm     string
	Prescription string
	Manufacturer string
	Country      string
}

// Fields returns the identity fields in key order.
func (id Identity) Fields() [6]string {
	return [6]string{id.Name, id.ItemType, id.ItemForm, id.Prescription, id.Manufacturer, id.Country}
}

// Normalize trims each field and collapses internal whitespace runs.
// Case is preserved.
func (id Identity) Normalize() Identity {
	return Identity{
		Name:         normalizeField(id.Name),
		ItemType:     normalizeField(id.ItemType),
		ItemForm:     normalizeField(id.ItemForm),
		Prescription: normalizeField(id.Prescription),
		Manufacturer: normalizeField(id.Manufacturer),
		Country:      normalizeField(id.Country),
	}
}

// Key joins the normalized fields with KeySeparator. It fails if any field
// contains the separator, since that would collide with another product.
func (id Identity) Key() (ProductKey, error) {
	norm := id.Normalize()
	fields := norm.Fields()
	for _, f := range fields {
		if strings.Contains(f, KeySeparator) {
			return "", fmt.Errorf("identity field %q contains separator %q", f, KeySeparator)
		}
	}
	return ProductKey(strings.Join(fields[:], KeySeparator)), nil
}

func normalizeField(s string) string {
	parts := strings.FieldsFunc(s, unicode.IsSpace)
	return strings.Join(parts, " ")
}

// RawRecord is one scraped catalog row. Price and Quantity keep the free-text
// form from the page ("123,45 р.", "от 3 упаковок"); OnlyQuantity is the
// best-effort numeric extraction done at scrape time. Immutable after ingestion.
type RawRecord struct {
	Identity
	Key          ProductKey
	Price        string
	Quantity     string
	OnlyQuantity string
}

// Snapshot is one timestamped scrape of a competitor's catalog, read back
// from a single file. Index orders snapshots; Taken is informational only
// (clock drift makes it unsafe for ordering).
type Snapshot struct {
	Index   int
	Taken   time.Time
	File    string
	Records []*RawRecord
}

// Meta strips the record payload for use as a wide-table column label.
func (s *Snapshot) Meta() SnapshotMeta {
	return SnapshotMeta{Index: s.Index, Taken: s.Taken}
}

// SnapshotMeta labels one column pair of the wide table.
type SnapshotMeta struct {
	Index int
	Taken time.Time
}

// Label renders the column suffix "{index}_{YYYY-MM-DD_HH-MM}".
func (m SnapshotMeta) Label() string {
	return fmt.Sprintf("%d_%s", m.Index, m.Taken.Format("2006-01-02_15-04"))
}

// WideRow is one product's quantity time series across a competitor's
// snapshots. Quantities[i] belongs to column i of the owning table;
// Observed[i] is false where the product was absent from snapshot i
// (the value there is the zero sentinel, not missing data to interpolate).
type WideRow struct {
	Identity
	Key        ProductKey
	Quantities []float64
	Observed   []bool
}

// WideTable is the merged view of one competitor: one row per product in the
// analysis list, one quantity column per snapshot, ordered by snapshot index.
type WideTable struct {
	Competitor string
	Columns    []SnapshotMeta
	Rows       []*WideRow
	RowIndex   map[ProductKey]int
}
