package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"pharmacy-tracker/models"
	"pharmacy-tracker/utils"
)

var keyColumns = []string{"name", "item_type", "item_form", "prescription", "manufacturer", "country"}

// ReportWriter renders pipeline outputs as CSV files. Every file is written
// to a temporary path and renamed on completion, so an aborted run never
// leaves a truncated report behind.
type ReportWriter struct {
	logger   *utils.Logger
	outDir   string
	sentinel string
}

// NewReportWriter creates the output directory and returns a writer using
// sentinel for missing observations and absent price stats.
func NewReportWriter(outDir, sentinel string, logger *utils.Logger) (*ReportWriter, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("reports: create output dir: %w", err)
	}
	return &ReportWriter{logger: logger, outDir: outDir, sentinel: sentinel}, nil
}

func (w *ReportWriter) writeCSV(path string, header []string, rows [][]string) error {
	tmp := path + ".tmp-" + uuid.NewString()
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("csv: create %q: %w", tmp, err)
	}

	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("csv: write header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
			return fmt.Errorf("csv: write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("csv: flush: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("csv: close: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("csv: rename into place: %w", err)
	}
	return nil
}

// WriteCompetitorReport writes one competitor's ranked wide table.
func (w *ReportWriter) WriteCompetitorReport(rep *models.CompetitorReport) (string, error) {
	header := append([]string{}, keyColumns...)
	for _, col := range rep.Columns {
		header = append(header, "Количество "+col.Label())
	}
	header = append(header,
		"Цена min", "Цена max", "Медианная цена",
		"Индекс изменений", "Сегменты", "Частота изменений в минус",
		"Заработали", "Ссылка на график")

	rows := make([][]string, 0, len(rep.Products))
	for _, p := range rep.Products {
		row := keyFields(p.Identity)
		for i, q := range p.Quantities {
			if i < len(p.Observed) && !p.Observed[i] {
				row = append(row, w.sentinel)
				continue
			}
			row = append(row, formatQuantity(q))
		}
		if p.Stats.HasData() {
			row = append(row, p.Stats.Min.String(), p.Stats.Max.String(), p.Stats.Median.String())
		} else {
			row = append(row, w.sentinel, w.sentinel, w.sentinel)
		}
		row = append(row,
			formatQuantity(p.Metrics.UnitsSold),
			strconv.Itoa(p.Metrics.SegmentCount),
			strconv.Itoa(p.Metrics.NegativeTransitions),
			p.Metrics.Revenue.String(),
			p.ChartRef)
		rows = append(rows, row)
	}

	path := filepath.Join(w.outDir, fmt.Sprintf("sorted_%s.csv", rep.Competitor))
	if err := w.writeCSV(path, header, rows); err != nil {
		return "", err
	}
	return path, nil
}

// WriteAudit writes the highlight sidecar for one competitor: every cell the
// corrector rewrote and every segment start.
func (w *ReportWriter) WriteAudit(competitor string, entries []models.AuditEntry) (string, error) {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{string(e.Key), strconv.Itoa(e.Column), e.Reason})
	}
	path := filepath.Join(w.outDir, fmt.Sprintf("audit_%s.csv", competitor))
	if err := w.writeCSV(path, []string{"key", "column", "reason"}, rows); err != nil {
		return "", err
	}
	return path, nil
}

// WriteAggregated writes the cross-competitor table.
func (w *ReportWriter) WriteAggregated(name string, products []*models.AggregatedProduct) (string, error) {
	header := append([]string{}, keyColumns...)
	header = append(header,
		"Цена min", "Цена max", "Медианная цена",
		"Индекс изменений", "Заработали", "Как часто в аптеках", "Источники")

	rows := make([][]string, 0, len(products))
	for _, p := range products {
		row := keyFields(p.Identity)
		row = append(row,
			p.PriceMin.String(), p.PriceMax.String(), p.MedianPrice.String(),
			formatQuantity(p.UnitsSold), p.Revenue.String(),
			strconv.Itoa(p.CompetitorCount), joinSources(p.Sources))
		rows = append(rows, row)
	}

	path := filepath.Join(w.outDir, fmt.Sprintf("aggregated_%s.csv", name))
	if err := w.writeCSV(path, header, rows); err != nil {
		return "", err
	}
	return path, nil
}

// WriteFinal writes the consolidated ranked report across own-pharmacy runs.
func (w *ReportWriter) WriteFinal(products []*models.FinalProduct) (string, error) {
	header := append([]string{}, keyColumns...)
	header = append(header,
		"Цена Мин", "Цена Макс", "Цена Медиум",
		"Индекс Изменений", "Заработали", "Аптеки", "Источники")

	rows := make([][]string, 0, len(products))
	for _, p := range products {
		row := keyFields(p.Identity)
		row = append(row,
			p.PriceMin.String(), p.PriceMax.String(), p.MedianPrice.String(),
			formatQuantity(p.UnitsSold), p.Revenue.String(),
			strconv.Itoa(p.PharmacyCount), joinSources(p.Sources))
		rows = append(rows, row)
	}

	path := filepath.Join(w.outDir, "final_result.csv")
	if err := w.writeCSV(path, header, rows); err != nil {
		return "", err
	}
	return path, nil
}

// WriteSnapshot writes a freshly scraped snapshot in the canonical schema.
// The scraper accumulates all pages first so the file appears atomically.
func (w *ReportWriter) WriteSnapshot(path string, records []*models.RawRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("snapshot: create dir: %w", err)
	}
	header := append(append([]string{}, keyColumns...), "price", "quantity", "only_quantity")
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		row := keyFields(rec.Identity)
		row = append(row, rec.Price, rec.Quantity, rec.OnlyQuantity)
		rows = append(rows, row)
	}
	return w.writeCSV(path, header, rows)
}

func keyFields(id models.Identity) []string {
	f := id.Fields()
	return append([]string{}, f[:]...)
}

func formatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

func joinSources(sources []string) string {
	out := ""
	for i, s := range sources {
		if i > 0 {
			out += "; "
		}
		out += s
	}
	return out
}
