package services

import (
	"fmt"
	"regexp"
	"strings"

	"pharmacy-tracker/models"
	"pharmacy-tracker/storage"
	"pharmacy-tracker/utils"
)

// quantityRegexp captures the leading numeric token of a quantity phrase
// like "от 3 упаковок".
var quantityRegexp = regexp.MustCompile(`\d+\.?\d*`)

var requiredColumns = []string{
	"name", "item_type", "item_form", "prescription", "manufacturer", "country", "price", "quantity",
}

// Ingestor normalizes one raw snapshot table into RawRecords keyed by the
// composite product identity.
type Ingestor struct {
	logger *utils.Logger
}

// NewIngestor creates an Ingestor with the given logger.
func NewIngestor(logger *utils.Logger) *Ingestor {
	return &Ingestor{logger: logger}
}

// Ingest maps a raw table to RawRecords. A header missing any required
// column is a schema mismatch and rejects the whole file. Individual rows
// with empty identity fields, or with the key separator inside a field, are
// dropped with a warning; the rest of the file survives.
func (n *Ingestor) Ingest(table *storage.Table) ([]*models.RawRecord, error) {
	cols := make(map[string]int, len(table.Header))
	for i, h := range table.Header {
		cols[strings.TrimSpace(strings.ToLower(h))] = i
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("snapshot %q: missing column %q", table.Path, c)
		}
	}
	onlyQty, hasOnlyQty := cols["only_quantity"]

	records := make([]*models.RawRecord, 0, len(table.Rows))
	for i, row := range table.Rows {
		cell := func(name string) string {
			idx := cols[name]
			if idx >= len(row) {
				return ""
			}
			return row[idx]
		}

		id := models.Identity{
			Name:         cell("name"),
			ItemType:     cell("item_type"),
			ItemForm:     cell("item_form"),
			Prescription: cell("prescription"),
			Manufacturer: cell("manufacturer"),
			Country:      cell("country"),
		}.Normalize()

		if id.Name == "" {
			n.logger.Warn("[ingest] %s row %d: empty name, dropping row", table.Path, i)
			continue
		}

		key, err := id.Key()
		if err != nil {
			n.logger.Warn("[ingest] %s row %d: %v, dropping row", table.Path, i, err)
			continue
		}

		rec := &models.RawRecord{
			Identity: id,
			Key:      key,
			Price:    strings.TrimSpace(cell("price")),
			Quantity: strings.TrimSpace(cell("quantity")),
		}
		if hasOnlyQty && onlyQty < len(row) && strings.TrimSpace(row[onlyQty]) != "" {
			rec.OnlyQuantity = strings.TrimSpace(row[onlyQty])
		} else {
			// Legacy files lack only_quantity; derive it here so the
			// merger sees one schema.
			rec.OnlyQuantity = quantityRegexp.FindString(rec.Quantity)
		}

		records = append(records, rec)
	}

	n.logger.Debug("[ingest] %s: %d rows → %d records", table.Path, len(table.Rows), len(records))
	return records, nil
}

// IngestSnapshot wraps Ingest for a named snapshot file.
func (n *Ingestor) IngestSnapshot(file *storage.SnapshotFile) (*models.Snapshot, error) {
	records, err := n.Ingest(file.Table)
	if err != nil {
		return nil, err
	}
	return &models.Snapshot{
		Index:   file.Meta.Index,
		Taken:   file.Meta.Taken,
		File:    file.Table.Path,
		Records: records,
	}, nil
}
