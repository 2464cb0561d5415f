package services

import (
	"testing"

	"github.com/shopspring/decimal"

	"pharmacy-tracker/models"
)

func aggregatedProduct(t *testing.T, name string, min, max, median string, units float64, revenue string) *models.AggregatedProduct {
	t.Helper()
	id := models.Identity{
		Name:         name,
		ItemType:     "Лекарства",
		ItemForm:     "таблетки",
		Prescription: "без рецепта",
		Manufacturer: "Тест",
		Country:      "Россия",
	}.Normalize()
	key, err := id.Key()
	if err != nil {
		t.Fatalf("key for %q: %v", name, err)
	}
	return &models.AggregatedProduct{
		Identity:        id,
		Key:             key,
		PriceMin:        decimal.RequireFromString(min),
		PriceMax:        decimal.RequireFromString(max),
		MedianPrice:     decimal.RequireFromString(median),
		UnitsSold:       units,
		Revenue:         decimal.RequireFromString(revenue),
		CompetitorCount: 1,
	}
}

func TestConsolidateMergesRuns(t *testing.T) {
	c := NewConsolidator(newTestLogger())

	runs := []*AggregationRun{
		{
			Label: "run-1",
			Products: []*models.AggregatedProduct{
				aggregatedProduct(t, "Аспирин", "100", "120", "110", 3, "330"),
			},
		},
		{
			Label: "run-2",
			Products: []*models.AggregatedProduct{
				aggregatedProduct(t, "Аспирин", "95", "125", "108", 2, "216"),
			},
		},
	}

	out := c.Consolidate(runs)
	if len(out) != 1 {
		t.Fatalf("products: got %d, want 1", len(out))
	}
	p := out[0]
	if !p.PriceMin.Equal(decimal.RequireFromString("95")) {
		t.Errorf("price min: got %s, want 95", p.PriceMin)
	}
	if !p.PriceMax.Equal(decimal.RequireFromString("125")) {
		t.Errorf("price max: got %s, want 125", p.PriceMax)
	}
	if !p.MedianPrice.Equal(decimal.RequireFromString("110")) {
		t.Errorf("median should stay the first run's: got %s, want 110", p.MedianPrice)
	}
	if p.UnitsSold != 5 {
		t.Errorf("units sold: got %v, want 5", p.UnitsSold)
	}
	if !p.Revenue.Equal(decimal.RequireFromString("546")) {
		t.Errorf("revenue: got %s, want 546", p.Revenue)
	}
	if p.PharmacyCount != 2 {
		t.Errorf("pharmacy count: got %d, want 2", p.PharmacyCount)
	}
	if len(p.Sources) != 2 {
		t.Errorf("sources: got %d, want 2", len(p.Sources))
	}
}

func TestConsolidateRanksByRevenue(t *testing.T) {
	c := NewConsolidator(newTestLogger())

	runs := []*AggregationRun{
		{
			Label: "run-1",
			Products: []*models.AggregatedProduct{
				aggregatedProduct(t, "Дешёвый", "10", "10", "10", 1, "10"),
				aggregatedProduct(t, "Дорогой", "500", "500", "500", 2, "1000"),
			},
		},
	}

	out := c.Consolidate(runs)
	if len(out) != 2 {
		t.Fatalf("products: got %d, want 2", len(out))
	}
	if out[0].Identity.Name != "Дорогой" {
		t.Errorf("expected highest revenue first, got %q", out[0].Identity.Name)
	}
	if out[0].PharmacyCount != 1 {
		t.Errorf("single-run pharmacy count: got %d, want 1", out[0].PharmacyCount)
	}
}
