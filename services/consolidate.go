package services

import (
	"sort"

	"pharmacy-tracker/models"
	"pharmacy-tracker/utils"
)

// AggregationRun is one cross-competitor table, tagged with the own-pharmacy
// run it was produced for.
type AggregationRun struct {
	Label    string
	Products []*models.AggregatedProduct
}

// Consolidator merges multiple own-pharmacy runs into the final ranked report.
type Consolidator struct {
	logger *utils.Logger
}

// NewConsolidator creates a Consolidator with the given logger.
func NewConsolidator(logger *utils.Logger) *Consolidator {
	return &Consolidator{logger: logger}
}

// Consolidate groups runs by product key: price min/max are reduced, units
// sold and revenue summed, and each contributing run increments the pharmacy
// counter and appends an annotation. The median kept is the first run's.
// Output is ranked descending by revenue.
func (c *Consolidator) Consolidate(runs []*AggregationRun) []*models.FinalProduct {
	byKey := make(map[models.ProductKey]*models.FinalProduct)
	var order []models.ProductKey

	for _, run := range runs {
		for _, p := range run.Products {
			annotation := sourceAnnotation(run.Label,
				p.PriceMin, p.PriceMax, p.MedianPrice, p.UnitsSold, p.Revenue)

			fin, exists := byKey[p.Key]
			if !exists {
				byKey[p.Key] = &models.FinalProduct{
					Identity:      p.Identity,
					Key:           p.Key,
					PriceMin:      p.PriceMin,
					PriceMax:      p.PriceMax,
					MedianPrice:   p.MedianPrice,
					UnitsSold:     p.UnitsSold,
					Revenue:       p.Revenue,
					PharmacyCount: 1,
					Sources:       []string{annotation},
				}
				order = append(order, p.Key)
				continue
			}

			if p.PriceMin.LessThan(fin.PriceMin) {
				fin.PriceMin = p.PriceMin
			}
			if p.PriceMax.GreaterThan(fin.PriceMax) {
				fin.PriceMax = p.PriceMax
			}
			fin.UnitsSold += p.UnitsSold
			fin.Revenue = fin.Revenue.Add(p.Revenue)
			fin.PharmacyCount++
			fin.Sources = append(fin.Sources, annotation)
		}
	}

	out := make([]*models.FinalProduct, 0, len(order))
	for _, key := range order {
		out = append(out, byKey[key])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Revenue.GreaterThan(out[j].Revenue)
	})

	c.logger.Info("[consolidate] %d runs → %d products in final report", len(runs), len(out))
	return out
}
