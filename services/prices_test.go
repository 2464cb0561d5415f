package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pharmacy-tracker/models"
	"pharmacy-tracker/utils"
)

func newTestLogger() *utils.Logger { return utils.NewLogger() }

func TestParsePrice(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"1 234,50 р.", 1234.50, true},
		{"1234.50", 1234.50, true},
		{"от 300 р.", 300, true},
		{"123,45 р.", 123.45, true},
		{"99", 99, true},
		{"", 0, false},
		{"нет в наличии", 0, false},
		{"р.", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParsePrice(tt.raw)
		if ok != tt.ok {
			t.Errorf("ParsePrice(%q) ok = %v; want %v", tt.raw, ok, tt.ok)
			continue
		}
		if ok && !got.Equal(decimal.NewFromFloat(tt.want)) {
			t.Errorf("ParsePrice(%q) = %s; want %.2f", tt.raw, got, tt.want)
		}
	}
}

func TestParsePriceIdempotence(t *testing.T) {
	a, okA := ParsePrice("1 234,50 р.")
	b, okB := ParsePrice("1234.50")
	if !okA || !okB {
		t.Fatal("both forms should parse")
	}
	if !a.Equal(b) {
		t.Errorf("formatted and plain forms differ: %s vs %s", a, b)
	}
}

func TestStatsOddCount(t *testing.T) {
	s := Stats(decimals(10, 30, 20))
	if !s.Min.Equal(decimal.NewFromInt(10)) || !s.Max.Equal(decimal.NewFromInt(30)) {
		t.Errorf("min/max: got %s/%s, want 10/30", s.Min, s.Max)
	}
	if !s.Median.Equal(decimal.NewFromInt(20)) {
		t.Errorf("median: got %s, want 20", s.Median)
	}
}

func TestStatsEvenCountMedian(t *testing.T) {
	s := Stats(decimals(10, 20, 30, 40))
	if !s.Median.Equal(decimal.NewFromInt(25)) {
		t.Errorf("even-count median: got %s, want 25", s.Median)
	}
}

func TestStatsMonotone(t *testing.T) {
	series := [][]float64{
		{5}, {5, 5}, {1, 100, 50}, {3.5, 2.1, 9.9, 7},
	}
	for _, vals := range series {
		var prices []decimal.Decimal
		for _, v := range vals {
			prices = append(prices, decimal.NewFromFloat(v))
		}
		s := Stats(prices)
		if s.Min.GreaterThan(s.Median) || s.Median.GreaterThan(s.Max) {
			t.Errorf("Stats(%v): min ≤ median ≤ max violated: %s/%s/%s",
				vals, s.Min, s.Median, s.Max)
		}
	}
}

func TestStatsEmpty(t *testing.T) {
	s := Stats(nil)
	if s.HasData() {
		t.Error("empty series should report no data")
	}
	if !s.Representative().IsZero() {
		t.Errorf("representative price for no data: got %s, want 0", s.Representative())
	}
}

func TestAggregateDiscardsUnparsable(t *testing.T) {
	agg := NewPriceAggregator(newTestLogger())
	snap := testSnapshot(0, []*models.RawRecord{
		testRecord("Аспирин", "100 р.", "5"),
		testRecord("Аспирин", "нет цены", "4"),
		testRecord("Аспирин", "200 р.", "3"),
	})

	stats := agg.Aggregate([]*models.Snapshot{snap})
	key := snap.Records[0].Key
	s, ok := stats[key]
	if !ok {
		t.Fatal("expected stats for the product")
	}
	if s.Observations != 2 {
		t.Errorf("observations: got %d, want 2 (unparsable price discarded, not zeroed)", s.Observations)
	}
	if !s.Median.Equal(decimal.NewFromInt(150)) {
		t.Errorf("median: got %s, want 150", s.Median)
	}
}

func decimals(vals ...int64) []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(vals))
	for _, v := range vals {
		out = append(out, decimal.NewFromInt(v))
	}
	return out
}

func testRecord(name, price, qty string) *models.RawRecord {
	id := models.Identity{
		Name:         name,
		ItemType:     "Лекарства",
		ItemForm:     "таблетки",
		Prescription: "без рецепта",
		Manufacturer: "Тест",
		Country:      "Россия",
	}.Normalize()
	key, _ := id.Key()
	return &models.RawRecord{Identity: id, Key: key, Price: price, Quantity: qty, OnlyQuantity: qty}
}

func testSnapshot(index int, records []*models.RawRecord) *models.Snapshot {
	return &models.Snapshot{
		Index:   index,
		Taken:   time.Date(2025, 2, 1, 9, 20, 0, 0, time.UTC).Add(time.Duration(index) * time.Hour),
		File:    "test.csv",
		Records: records,
	}
}
