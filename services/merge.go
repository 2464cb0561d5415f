package services

import (
	"strconv"

	"pharmacy-tracker/models"
	"pharmacy-tracker/utils"
)

// Merger folds a competitor's time-ordered filtered snapshots into one wide
// table: a row per distinct product, a quantity column per snapshot.
type Merger struct {
	logger *utils.Logger
}

// NewMerger creates a Merger with the given logger.
func NewMerger(logger *utils.Logger) *Merger {
	return &Merger{logger: logger}
}

// BuildProductList walks the snapshots in order and collects the distinct
// products that define the table rows. First occurrence wins: the record
// seen earliest fixes the identity fields for its key. Excluded item types
// (supplements, cosmetics, food) never enter the list.
func (m *Merger) BuildProductList(snapshots []*models.Snapshot) []*models.RawRecord {
	seen := utils.NewKeySet()
	var list []*models.RawRecord
	for _, snap := range snapshots {
		for _, rec := range snap.Records {
			if IsExcludedType(rec.ItemType) {
				continue
			}
			if !seen.Add(string(rec.Key)) {
				continue
			}
			list = append(list, rec)
		}
	}
	m.logger.Debug("[merge] product list: %d distinct products from %d snapshots",
		len(list), len(snapshots))
	return list
}

// Merge builds the wide table for one competitor. The product list defines
// the rows; each snapshot appends one quantity column, in sequence-index
// order. A product absent from a snapshot gets an unobserved zero slot:
// "not in stock", never missing data to interpolate.
func (m *Merger) Merge(competitor string, products []*models.RawRecord, snapshots []*models.Snapshot) *models.WideTable {
	table := &models.WideTable{
		Competitor: competitor,
		Columns:    make([]models.SnapshotMeta, 0, len(snapshots)),
		Rows:       make([]*models.WideRow, 0, len(products)),
		RowIndex:   make(map[models.ProductKey]int, len(products)),
	}

	for _, p := range products {
		row := &models.WideRow{
			Identity:   p.Identity,
			Key:        p.Key,
			Quantities: make([]float64, 0, len(snapshots)),
			Observed:   make([]bool, 0, len(snapshots)),
		}
		table.RowIndex[p.Key] = len(table.Rows)
		table.Rows = append(table.Rows, row)
	}

	for _, snap := range snapshots {
		table.Columns = append(table.Columns, snap.Meta())

		// First occurrence wins within one snapshot too.
		quantities := make(map[models.ProductKey]float64, len(snap.Records))
		for _, rec := range snap.Records {
			if _, dup := quantities[rec.Key]; dup {
				continue
			}
			quantities[rec.Key] = m.parseQuantity(snap, rec)
		}

		for _, row := range table.Rows {
			q, ok := quantities[row.Key]
			row.Quantities = append(row.Quantities, q)
			row.Observed = append(row.Observed, ok)
		}
	}

	return table
}

// parseQuantity converts the best-effort numeric extraction to a float.
// A record present in the snapshot but without a parsable quantity counts
// as observed with quantity zero.
func (m *Merger) parseQuantity(snap *models.Snapshot, rec *models.RawRecord) float64 {
	if rec.OnlyQuantity == "" {
		return 0
	}
	q, err := strconv.ParseFloat(rec.OnlyQuantity, 64)
	if err != nil {
		m.logger.Warn("[merge] %s: unparsable quantity %q for %q, treating as 0",
			snap.File, rec.OnlyQuantity, rec.Name)
		return 0
	}
	return q
}
