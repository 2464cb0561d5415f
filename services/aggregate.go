package services

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"pharmacy-tracker/models"
	"pharmacy-tracker/utils"
)

// CrossAggregator unions per-competitor ranked reports by product key.
type CrossAggregator struct {
	logger *utils.Logger
}

// NewCrossAggregator creates a CrossAggregator with the given logger.
func NewCrossAggregator(logger *utils.Logger) *CrossAggregator {
	return &CrossAggregator{logger: logger}
}

// Aggregate groups products across competitors: units sold and revenue are
// summed, price min/max reduced, and the median taken as the arithmetic mean
// of each competitor's median. Each contributing competitor adds one
// annotation string and increments the presence counter.
func (a *CrossAggregator) Aggregate(reports []*models.CompetitorReport) []*models.AggregatedProduct {
	byKey := make(map[models.ProductKey]*models.AggregatedProduct)
	medianSums := make(map[models.ProductKey]decimal.Decimal)
	var order []models.ProductKey

	for _, rep := range reports {
		for _, p := range rep.Products {
			agg, exists := byKey[p.Key]
			if !exists {
				agg = &models.AggregatedProduct{
					Identity: p.Identity,
					Key:      p.Key,
					PriceMin: p.Stats.Min,
					PriceMax: p.Stats.Max,
				}
				byKey[p.Key] = agg
				order = append(order, p.Key)
			} else {
				if p.Stats.Min.LessThan(agg.PriceMin) {
					agg.PriceMin = p.Stats.Min
				}
				if p.Stats.Max.GreaterThan(agg.PriceMax) {
					agg.PriceMax = p.Stats.Max
				}
			}

			agg.UnitsSold += p.Metrics.UnitsSold
			agg.Revenue = agg.Revenue.Add(p.Metrics.Revenue)
			agg.CompetitorCount++
			medianSums[p.Key] = medianSums[p.Key].Add(p.Stats.Median)
			agg.Sources = append(agg.Sources, sourceAnnotation(rep.Competitor,
				p.Stats.Min, p.Stats.Max, p.Stats.Median, p.Metrics.UnitsSold, p.Metrics.Revenue))
		}
	}

	out := make([]*models.AggregatedProduct, 0, len(order))
	for _, key := range order {
		agg := byKey[key]
		agg.MedianPrice = medianSums[key].Div(decimal.NewFromInt(int64(agg.CompetitorCount)))
		out = append(out, agg)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Revenue.GreaterThan(out[j].Revenue)
	})

	a.logger.Info("[aggregate] %d competitors → %d distinct products", len(reports), len(out))
	return out
}

func sourceAnnotation(source string, min, max, median decimal.Decimal, units float64, revenue decimal.Decimal) string {
	return fmt.Sprintf("%s, цена мин = %s, цена макс = %s, цена медиум = %s, индекс изменений = %s, заработали = %s",
		source, min.String(), max.String(), median.String(),
		decimal.NewFromFloat(units).String(), revenue.String())
}
