package models

import "github.com/shopspring/decimal"

// PriceStats aggregates every numeric price parsed for one product across a
// competitor's snapshots. Observations == 0 means no price ever parsed; the
// report writer renders the "-" sentinel in that case.
type PriceStats struct {
	Min          decimal.Decimal
	Max          decimal.Decimal
	Median       decimal.Decimal
	Observations int
}

// HasData reports whether at least one price was parsed.
func (p PriceStats) HasData() bool { return p.Observations > 0 }

// Representative returns the price used for revenue estimation: the median,
// falling back to the min/max midpoint, falling back to zero.
func (p PriceStats) Representative() decimal.Decimal {
	if !p.HasData() {
		return decimal.Zero
	}
	if p.Median.IsPositive() {
		return p.Median
	}
	return p.Min.Add(p.Max).Div(decimal.NewFromInt(2))
}

// SalesMetrics is the outcome of walking one product's quantity series.
type SalesMetrics struct {
	UnitsSold           float64
	SegmentCount        int
	NegativeTransitions int
	Revenue             decimal.Decimal
	// SegmentStarts holds the column indices where a new demand segment
	// begins (a strict increase over the previous value).
	SegmentStarts []int
}

// ProductReport is one row of a competitor's ranked sales table.
type ProductReport struct {
	Identity
	Key        ProductKey
	Stats      PriceStats
	Metrics    SalesMetrics
	Quantities []float64
	Observed   []bool
	ChartRef   string
}

// CompetitorReport is the full ranked output for one competitor, sorted
// descending by revenue estimate.
type CompetitorReport struct {
	Competitor string
	Columns    []SnapshotMeta
	Products   []*ProductReport
}

// AggregatedProduct is one product's totals across competitors.
type AggregatedProduct struct {
	Identity
	Key             ProductKey
	PriceMin        decimal.Decimal
	PriceMax        decimal.Decimal
	MedianPrice     decimal.Decimal
	UnitsSold       float64
	Revenue         decimal.Decimal
	CompetitorCount int
	Sources         []string
}

// FinalProduct is one row of the consolidated report across own-pharmacy runs.
type FinalProduct struct {
	Identity
	Key           ProductKey
	PriceMin      decimal.Decimal
	PriceMax      decimal.Decimal
	MedianPrice   decimal.Decimal
	UnitsSold     float64
	Revenue       decimal.Decimal
	PharmacyCount int
	Sources       []string
}

// Audit reasons attached to highlighted cells.
const (
	AuditCorrected    = "corrected"
	AuditSegmentStart = "segment-start"
)

// AuditEntry records one cell the pipeline wants highlighted: either a value
// the anomaly corrector rewrote or the start of a new demand segment.
// Rendering is the report writer's business; stages only record what changed.
type AuditEntry struct {
	Key    ProductKey
	Column int
	Reason string
}
