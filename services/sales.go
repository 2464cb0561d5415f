package services

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"pharmacy-tracker/models"
	"pharmacy-tracker/utils"
)

// InferenceEngine walks each product's quantity series and derives sales
// metrics: every decrease is read as units sold, every strict increase as a
// restock that closes the current demand segment.
type InferenceEngine struct {
	logger *utils.Logger
}

// NewInferenceEngine creates an InferenceEngine with the given logger.
func NewInferenceEngine(logger *utils.Logger) *InferenceEngine {
	return &InferenceEngine{logger: logger}
}

// Analyze computes the metrics for one quantity series. A series shorter
// than two points has no deltas and yields zero units sold. Revenue is left
// for the caller, which knows the representative price.
func (e *InferenceEngine) Analyze(series []float64) models.SalesMetrics {
	var m models.SalesMetrics
	if len(series) == 0 {
		return m
	}

	segmentLen := 0
	for i, curr := range series {
		if i > 0 {
			delta := curr - series[i-1]
			switch {
			case delta < 0:
				m.UnitsSold += -delta
				m.NegativeTransitions++
			case delta > 0:
				if segmentLen > 0 {
					m.SegmentCount++
				}
				segmentLen = 0
				m.SegmentStarts = append(m.SegmentStarts, i)
			}
		}
		segmentLen++
	}
	if segmentLen > 0 {
		m.SegmentCount++
	}
	return m
}

// Rank analyzes every row of a (corrected) wide table, attaches revenue
// estimates, and produces the competitor's ranked report: products with
// inferred sales only, sorted descending by revenue, ties kept in insertion
// order. Segment starts are also appended to the audit list for highlighting.
func (e *InferenceEngine) Rank(table *models.WideTable, stats map[models.ProductKey]models.PriceStats, audit *[]models.AuditEntry) *models.CompetitorReport {
	report := &models.CompetitorReport{
		Competitor: table.Competitor,
		Columns:    table.Columns,
	}

	for _, row := range table.Rows {
		metrics := e.Analyze(row.Quantities)
		if metrics.UnitsSold == 0 {
			continue
		}

		st := stats[row.Key]
		metrics.Revenue = st.Representative().Mul(decimal.NewFromFloat(metrics.UnitsSold))

		if audit != nil {
			for _, col := range metrics.SegmentStarts {
				*audit = append(*audit, models.AuditEntry{
					Key:    row.Key,
					Column: col,
					Reason: models.AuditSegmentStart,
				})
			}
		}

		report.Products = append(report.Products, &models.ProductReport{
			Identity:   row.Identity,
			Key:        row.Key,
			Stats:      st,
			Metrics:    metrics,
			Quantities: row.Quantities,
			Observed:   row.Observed,
		})
	}

	sort.SliceStable(report.Products, func(i, j int) bool {
		return report.Products[i].Metrics.Revenue.GreaterThan(report.Products[j].Metrics.Revenue)
	})

	// Chart references follow ranking order; rendering is the report
	// layer's concern, only the relative path is recorded here.
	for i, p := range report.Products {
		p.ChartRef = fmt.Sprintf("graphs/%s_row_%d_graph.html", table.Competitor, i)
	}

	e.logger.Info("[sales] %s: %d of %d products show sales",
		table.Competitor, len(report.Products), len(table.Rows))
	return report
}
