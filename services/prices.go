package services

import (
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"pharmacy-tracker/models"
	"pharmacy-tracker/utils"
)

// priceRegexp captures the numeric token of a price phrase: digits with
// optional thousands spaces and an optional comma or dot decimal part,
// as in "1 234,50 р." or "от 300 р.".
var priceRegexp = regexp.MustCompile(`[\d\s]+[.,]?\d*`)

var two = decimal.NewFromInt(2)

// PriceAggregator collects every parsed price per product across a
// competitor's snapshots and reduces them to min/max/median.
type PriceAggregator struct {
	logger *utils.Logger
}

// NewPriceAggregator creates a PriceAggregator with the given logger.
func NewPriceAggregator(logger *utils.Logger) *PriceAggregator {
	return &PriceAggregator{logger: logger}
}

// ParsePrice extracts a numeric price from free text. Currency words and
// suffixes are ignored, the decimal comma is normalized to a dot, and
// thousands spaces inside the number are stripped. The second return is
// false when no number could be extracted; unparsable prices are discarded,
// never coerced to zero.
func ParsePrice(raw string) (decimal.Decimal, bool) {
	raw = strings.ReplaceAll(raw, " ", " ")
	match := priceRegexp.FindString(raw)
	if match == "" {
		return decimal.Zero, false
	}
	cleaned := strings.ReplaceAll(match, " ", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Collect builds the price series per product key over all snapshots.
// Built once per competitor; the statistics are a pure function over it.
func (a *PriceAggregator) Collect(snapshots []*models.Snapshot) map[models.ProductKey][]decimal.Decimal {
	prices := make(map[models.ProductKey][]decimal.Decimal)
	for _, snap := range snapshots {
		for _, rec := range snap.Records {
			p, ok := ParsePrice(rec.Price)
			if !ok {
				if rec.Price != "" {
					a.logger.Debug("[prices] %s: discarding unparsable price %q for %q",
						snap.File, rec.Price, rec.Name)
				}
				continue
			}
			prices[rec.Key] = append(prices[rec.Key], p)
		}
	}
	return prices
}

// Stats reduces one price series to min/max/median. The even-count median
// is the arithmetic mean of the two middle values.
func Stats(prices []decimal.Decimal) models.PriceStats {
	if len(prices) == 0 {
		return models.PriceStats{}
	}

	sorted := make([]decimal.Decimal, len(prices))
	copy(sorted, prices)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	stats := models.PriceStats{
		Min:          sorted[0],
		Max:          sorted[len(sorted)-1],
		Observations: len(sorted),
	}
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		stats.Median = sorted[mid]
	} else {
		stats.Median = sorted[mid-1].Add(sorted[mid]).Div(two)
	}
	return stats
}

// Aggregate computes PriceStats for every product seen in the snapshots.
func (a *PriceAggregator) Aggregate(snapshots []*models.Snapshot) map[models.ProductKey]models.PriceStats {
	collected := a.Collect(snapshots)
	stats := make(map[models.ProductKey]models.PriceStats, len(collected))
	for key, series := range collected {
		stats[key] = Stats(series)
	}
	return stats
}
