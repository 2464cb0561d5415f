package services

import (
	"pharmacy-tracker/models"
	"pharmacy-tracker/utils"
)

// Item types excluded from the analysis list: not medicines, not worth
// tracking against competitors.
var excludedItemTypes = map[string]struct{}{
	"БАД":                  {},
	"Косметика":            {},
	"Питание":              {},
	"Прочее":               {},
	"зубные пасты и проч.": {},
	"Продукты питания":     {},
}

// GapFilter performs the set subtraction that defines the gap assortment:
// competitor items whose key is absent from the operator's own catalog.
type GapFilter struct {
	logger *utils.Logger
}

// NewGapFilter creates a GapFilter with the given logger.
func NewGapFilter(logger *utils.Logger) *GapFilter {
	return &GapFilter{logger: logger}
}

// Apply returns the records not present in the own-catalog key set. Pure set
// subtraction: duplicate keys within the snapshot are all retained here;
// deduplication happens later at merge time.
func (f *GapFilter) Apply(records []*models.RawRecord, own *utils.KeySet) []*models.RawRecord {
	if own == nil || own.Size() == 0 {
		return records
	}
	out := make([]*models.RawRecord, 0, len(records))
	for _, rec := range records {
		if own.Contains(string(rec.Key)) {
			continue
		}
		out = append(out, rec)
	}
	f.logger.Debug("[filter] %d records → %d after own-catalog exclusion", len(records), len(out))
	return out
}

// OwnKeys builds the exclusion set from the operator's own catalog records.
func OwnKeys(records []*models.RawRecord) *utils.KeySet {
	set := utils.NewKeySet()
	for _, rec := range records {
		set.Add(string(rec.Key))
	}
	return set
}

// IsExcludedType reports whether an item type is outside the tracked
// assortment (supplements, cosmetics, food and similar).
func IsExcludedType(itemType string) bool {
	_, ok := excludedItemTypes[itemType]
	return ok
}
