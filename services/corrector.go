package services

import (
	"pharmacy-tracker/models"
	"pharmacy-tracker/utils"
)

// Corrector repairs transient scrape glitches in quantity series before
// segmentation, so a one-snapshot spike is not double-counted as a sale
// plus a restock.
//
// Policy: forward-looking ceiling repair. Scanning left to right, when a
// positive value p1 is followed within the lookahead window by a value p2
// with 0 < p2 <= p1, every cell between them is overwritten with p2; the
// plateau is treated as already at the lower level. Applying the repair to
// an already-repaired series changes nothing.
type Corrector struct {
	lookahead int
	logger    *utils.Logger
}

// NewCorrector creates a Corrector with the given lookahead window (steps).
func NewCorrector(lookahead int, logger *utils.Logger) *Corrector {
	if lookahead < 1 {
		lookahead = 1
	}
	return &Corrector{lookahead: lookahead, logger: logger}
}

// Repair rewrites glitched cells in place and returns an audit entry for
// every cell it changed. This is the only stage allowed to mutate the wide
// table; everything downstream sees the corrected series.
func (c *Corrector) Repair(table *models.WideTable) []models.AuditEntry {
	var audit []models.AuditEntry
	for _, row := range table.Rows {
		changed := c.repairSeries(row.Quantities)
		for _, col := range changed {
			audit = append(audit, models.AuditEntry{
				Key:    row.Key,
				Column: col,
				Reason: models.AuditCorrected,
			})
		}
	}
	if len(audit) > 0 {
		c.logger.Info("[corrector] %s: rewrote %d cells", table.Competitor, len(audit))
	}
	return audit
}

func (c *Corrector) repairSeries(q []float64) []int {
	var changed []int
	i := 0
	for i < len(q) {
		if q[i] <= 0 {
			i++
			continue
		}
		j := c.findCeiling(q, i)
		if j < 0 {
			i++
			continue
		}
		for k := i + 1; k < j; k++ {
			if q[k] != q[j] {
				q[k] = q[j]
				changed = append(changed, k)
			}
		}
		i = j
	}
	return changed
}

// findCeiling returns the first index after i, within the lookahead window,
// holding a positive value not above q[i]; -1 if none exists.
func (c *Corrector) findCeiling(q []float64, i int) int {
	limit := i + c.lookahead
	if limit >= len(q) {
		limit = len(q) - 1
	}
	for j := i + 1; j <= limit; j++ {
		if q[j] > 0 && q[j] <= q[i] {
			return j
		}
	}
	return -1
}
