package storage

import "pharmacy-tracker/models"

// ReportSink is the interface the reconciliation pipeline writes through.
type ReportSink interface {
	WriteCompetitorReport(rep *models.CompetitorReport) (string, error)
	WriteAudit(competitor string, entries []models.AuditEntry) (string, error)
	WriteAggregated(name string, products []*models.AggregatedProduct) (string, error)
	WriteFinal(products []*models.FinalProduct) (string, error)
}

// SnapshotSink is the interface the scraper persists snapshots through.
type SnapshotSink interface {
	WriteSnapshot(path string, records []*models.RawRecord) error
}
