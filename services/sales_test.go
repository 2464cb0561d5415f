package services

import (
	"testing"

	"github.com/shopspring/decimal"

	"pharmacy-tracker/models"
)

func TestAnalyzeSegmentation(t *testing.T) {
	e := NewInferenceEngine(newTestLogger())

	// The boundary sits exactly at the first strict increase:
	// [5,5,3,3] then [6,2].
	m := e.Analyze([]float64{5, 5, 3, 3, 6, 2})

	if m.UnitsSold != 6 {
		t.Errorf("units sold: got %.0f, want 6", m.UnitsSold)
	}
	if m.SegmentCount != 2 {
		t.Errorf("segment count: got %d, want 2", m.SegmentCount)
	}
	if m.NegativeTransitions != 2 {
		t.Errorf("negative transitions: got %d, want 2", m.NegativeTransitions)
	}
	if len(m.SegmentStarts) != 1 || m.SegmentStarts[0] != 4 {
		t.Errorf("segment starts: got %v, want [4]", m.SegmentStarts)
	}
}

func TestAnalyzeShortSeries(t *testing.T) {
	e := NewInferenceEngine(newTestLogger())

	for _, series := range [][]float64{nil, {7}} {
		m := e.Analyze(series)
		if m.UnitsSold != 0 {
			t.Errorf("Analyze(%v): units sold %.0f, want 0", series, m.UnitsSold)
		}
	}

	// Non-empty series always has at least one segment.
	if m := e.Analyze([]float64{7}); m.SegmentCount != 1 {
		t.Errorf("single-point series: segment count %d, want 1", m.SegmentCount)
	}
}

func TestAnalyzeConstantSeries(t *testing.T) {
	e := NewInferenceEngine(newTestLogger())
	m := e.Analyze([]float64{4, 4, 4, 4})
	if m.UnitsSold != 0 || m.SegmentCount != 1 || m.NegativeTransitions != 0 {
		t.Errorf("constant series: got %+v, want no sales, one segment", m)
	}
}

func TestAnalyzeOnlyRestocks(t *testing.T) {
	e := NewInferenceEngine(newTestLogger())
	m := e.Analyze([]float64{1, 2, 3})
	if m.UnitsSold != 0 {
		t.Errorf("increasing series: units sold %.0f, want 0", m.UnitsSold)
	}
	if m.SegmentCount != 3 {
		t.Errorf("increasing series: segment count %d, want 3", m.SegmentCount)
	}
}

func wideTestTable(rows map[string][]float64) *models.WideTable {
	table := &models.WideTable{
		Competitor: "apteka_test",
		RowIndex:   map[models.ProductKey]int{},
	}
	for name, series := range rows {
		rec := testRecord(name, "100 р.", "")
		observed := make([]bool, len(series))
		for i := range observed {
			observed[i] = true
		}
		table.RowIndex[rec.Key] = len(table.Rows)
		table.Rows = append(table.Rows, &models.WideRow{
			Identity:   rec.Identity,
			Key:        rec.Key,
			Quantities: series,
			Observed:   observed,
		})
	}
	return table
}

func TestRankExcludesZeroSales(t *testing.T) {
	e := NewInferenceEngine(newTestLogger())
	table := wideTestTable(map[string][]float64{
		"Продаётся":    {5, 3},
		"Не продаётся": {5, 5},
	})

	rep := e.Rank(table, map[models.ProductKey]models.PriceStats{}, nil)
	if len(rep.Products) != 1 {
		t.Fatalf("ranked products: got %d, want 1", len(rep.Products))
	}
	if rep.Products[0].Name != "Продаётся" {
		t.Errorf("ranked product: got %q", rep.Products[0].Name)
	}
}

func TestRankRevenueOrdering(t *testing.T) {
	e := NewInferenceEngine(newTestLogger())
	table := wideTestTable(map[string][]float64{})

	// Insert in fixed order so tie-breaking is observable.
	for _, row := range []struct {
		name   string
		series []float64
		price  int64
	}{
		{"Дешёвый", []float64{10, 0}, 1},   // 10 sold × 1 = 10
		{"Дорогой", []float64{5, 0}, 100},  // 5 sold × 100 = 500
		{"Средний", []float64{10, 5}, 2},   // 5 sold × 2 = 10, ties with Дешёвый
	} {
		rec := testRecord(row.name, "", "")
		observed := []bool{true, true}
		table.RowIndex[rec.Key] = len(table.Rows)
		table.Rows = append(table.Rows, &models.WideRow{
			Identity: rec.Identity, Key: rec.Key,
			Quantities: row.series, Observed: observed,
		})
	}

	stats := map[models.ProductKey]models.PriceStats{}
	for i, price := range []int64{1, 100, 2} {
		row := table.Rows[i]
		d := decimal.NewFromInt(price)
		stats[row.Key] = models.PriceStats{Min: d, Max: d, Median: d, Observations: 1}
	}

	rep := e.Rank(table, stats, nil)
	if len(rep.Products) != 3 {
		t.Fatalf("ranked products: got %d, want 3", len(rep.Products))
	}
	if rep.Products[0].Name != "Дорогой" {
		t.Errorf("top product: got %q, want Дорогой", rep.Products[0].Name)
	}
	// Stable sort keeps insertion order on the revenue tie.
	if rep.Products[1].Name != "Дешёвый" || rep.Products[2].Name != "Средний" {
		t.Errorf("tie order: got %q, %q; want Дешёвый, Средний",
			rep.Products[1].Name, rep.Products[2].Name)
	}
	want := decimal.NewFromInt(500)
	if !rep.Products[0].Metrics.Revenue.Equal(want) {
		t.Errorf("top revenue: got %s, want %s", rep.Products[0].Metrics.Revenue, want)
	}
}

func TestRankRecordsSegmentStarts(t *testing.T) {
	e := NewInferenceEngine(newTestLogger())
	table := wideTestTable(map[string][]float64{
		"Товар": {5, 3, 6, 2},
	})

	var audit []models.AuditEntry
	e.Rank(table, map[models.ProductKey]models.PriceStats{}, &audit)

	if len(audit) != 1 {
		t.Fatalf("audit entries: got %d, want 1", len(audit))
	}
	if audit[0].Column != 2 || audit[0].Reason != models.AuditSegmentStart {
		t.Errorf("audit entry: got %+v, want segment-start at column 2", audit[0])
	}
}
