package storage

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"pharmacy-tracker/models"
)

// Column aliases seen across pipeline iterations; headers are matched after
// lower-casing and trimming so legacy run files still consolidate.
var aggregatedAliases = map[string]string{
	"цена min":        "min",
	"цена мин":        "min",
	"цена max":        "max",
	"цена макс":       "max",
	"медианная цена":  "median",
	"цена медиум":     "median",
	"индекс изменений": "units",
	"заработали":      "revenue",
}

// ReadAggregated reads back one cross-competitor run file (the output of
// WriteAggregated) for final consolidation. A file missing required columns
// is a schema mismatch: the whole file is rejected and the caller skips it.
func (r *SnapshotReader) ReadAggregated(path string) ([]*models.AggregatedProduct, error) {
	table, err := r.ReadTable(path)
	if err != nil {
		return nil, err
	}

	cols := map[string]int{}
	for i, h := range table.Header {
		name := strings.ToLower(strings.TrimSpace(h))
		if canon, ok := aggregatedAliases[name]; ok {
			if _, dup := cols[canon]; !dup {
				cols[canon] = i
			}
			continue
		}
		cols[name] = i
	}
	for _, required := range []string{"min", "max", "median", "units", "revenue"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("aggregated file %q: missing column %q", path, required)
		}
	}

	var products []*models.AggregatedProduct
	for i, row := range table.Rows {
		if len(row) < 6 {
			r.logger.Warn("[consolidate] %s row %d: too few columns, skipping", path, i)
			continue
		}
		id := models.Identity{
			Name: row[0], ItemType: row[1], ItemForm: row[2],
			Prescription: row[3], Manufacturer: row[4], Country: row[5],
		}.Normalize()
		key, err := id.Key()
		if err != nil {
			r.logger.Warn("[consolidate] %s row %d: %v, skipping", path, i, err)
			continue
		}

		p := &models.AggregatedProduct{Identity: id, Key: key}
		var ok bool
		if p.PriceMin, ok = readDecimal(row, cols["min"]); !ok {
			r.logger.Warn("[consolidate] %s row %d: unparsable min price, skipping", path, i)
			continue
		}
		if p.PriceMax, ok = readDecimal(row, cols["max"]); !ok {
			r.logger.Warn("[consolidate] %s row %d: unparsable max price, skipping", path, i)
			continue
		}
		if p.MedianPrice, ok = readDecimal(row, cols["median"]); !ok {
			r.logger.Warn("[consolidate] %s row %d: unparsable median price, skipping", path, i)
			continue
		}
		if p.UnitsSold, ok = readFloat(row, cols["units"]); !ok {
			r.logger.Warn("[consolidate] %s row %d: unparsable units sold, skipping", path, i)
			continue
		}
		if p.Revenue, ok = readDecimal(row, cols["revenue"]); !ok {
			r.logger.Warn("[consolidate] %s row %d: unparsable revenue, skipping", path, i)
			continue
		}
		if idx, found := cols["источники"]; found && idx < len(row) && row[idx] != "" {
			p.Sources = strings.Split(row[idx], "; ")
		}
		products = append(products, p)
	}
	return products, nil
}

func readDecimal(row []string, idx int) (decimal.Decimal, bool) {
	if idx >= len(row) {
		return decimal.Zero, false
	}
	raw := strings.ReplaceAll(strings.TrimSpace(row[idx]), ",", ".")
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func readFloat(row []string, idx int) (float64, bool) {
	if idx >= len(row) {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(row[idx]), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
