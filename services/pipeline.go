package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"pharmacy-tracker/config"
	"pharmacy-tracker/models"
	"pharmacy-tracker/storage"
	"pharmacy-tracker/utils"
)

// Pipeline drives the reconciliation batch: one worker-pool job per
// competitor, no shared mutable state between units, failures isolated so
// one bad competitor never aborts its siblings.
type Pipeline struct {
	cfg    *config.Config
	logger *utils.Logger
	reader *storage.SnapshotReader
	sink   storage.ReportSink
	runID  string

	ingestor  *Ingestor
	filter    *GapFilter
	merger    *Merger
	prices    *PriceAggregator
	corrector *Corrector
	engine    *InferenceEngine
}

// NewPipeline assembles the pipeline stages around shared config and logging.
func NewPipeline(cfg *config.Config, logger *utils.Logger, reader *storage.SnapshotReader, sink storage.ReportSink) *Pipeline {
	runID := uuid.NewString()[:8]
	tagged := logger.With("[run " + runID + "]")
	return &Pipeline{
		cfg:       cfg,
		logger:    tagged,
		reader:    reader,
		sink:      sink,
		runID:     runID,
		ingestor:  NewIngestor(tagged),
		filter:    NewGapFilter(tagged),
		merger:    NewMerger(tagged),
		prices:    NewPriceAggregator(tagged),
		corrector: NewCorrector(cfg.CorrectionLookahead, tagged),
		engine:    NewInferenceEngine(tagged),
	}
}

// LoadOwnKeys reads the operator's own catalog and builds the exclusion set.
// An unset path yields an empty set with a warning: every competitor item
// then counts as gap assortment.
func (p *Pipeline) LoadOwnKeys() (*utils.KeySet, error) {
	if p.cfg.OwnCatalogPath == "" {
		p.logger.Warn("[pipeline] OWN_CATALOG_PATH not set, no own-catalog exclusion applied")
		return utils.NewKeySet(), nil
	}
	table, err := p.reader.ReadTable(p.cfg.OwnCatalogPath)
	if err != nil {
		return nil, fmt.Errorf("own catalog: %w", err)
	}
	records, err := p.ingestor.Ingest(table)
	if err != nil {
		return nil, fmt.Errorf("own catalog: %w", err)
	}
	set := OwnKeys(records)
	p.logger.Info("[pipeline] own catalog: %d keys in exclusion set", set.Size())
	return set, nil
}

// ProcessCompetitor runs the full per-competitor unit: read snapshots,
// ingest, filter against the own catalog, merge, aggregate prices, repair
// anomalies, infer sales, and write the ranked report plus the audit sidecar.
func (p *Pipeline) ProcessCompetitor(name, dir string, own *utils.KeySet) (*models.CompetitorReport, error) {
	files, err := p.reader.ReadSnapshotDir(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("competitor %q: no usable snapshot files in %s", name, dir)
	}

	var snapshots []*models.Snapshot
	for _, f := range files {
		snap, err := p.ingestor.IngestSnapshot(f)
		if err != nil {
			p.logger.Warn("[pipeline] %s: %v, skipping file", name, err)
			continue
		}
		snap.Records = p.filter.Apply(snap.Records, own)
		snapshots = append(snapshots, snap)
	}
	if len(snapshots) == 0 {
		return nil, fmt.Errorf("competitor %q: every snapshot file was rejected", name)
	}

	products := p.merger.BuildProductList(snapshots)
	table := p.merger.Merge(name, products, snapshots)
	stats := p.prices.Aggregate(snapshots)

	var audit []models.AuditEntry
	if p.cfg.CorrectionEnabled {
		audit = p.corrector.Repair(table)
	}

	report := p.engine.Rank(table, stats, &audit)

	if _, err := p.sink.WriteCompetitorReport(report); err != nil {
		return nil, fmt.Errorf("competitor %q: write report: %w", name, err)
	}
	if _, err := p.sink.WriteAudit(name, audit); err != nil {
		return nil, fmt.Errorf("competitor %q: write audit: %w", name, err)
	}
	return report, nil
}

// Run processes every competitor directory in parallel and writes the
// cross-competitor aggregation under runLabel.
func (p *Pipeline) Run(runLabel string) ([]*models.AggregatedProduct, error) {
	own, err := p.LoadOwnKeys()
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(p.cfg.CompetitorsDir)
	if err != nil {
		return nil, fmt.Errorf("competitors dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no competitor directories under %s", p.cfg.CompetitorsDir)
	}

	pool := utils.NewWorkerPool(p.cfg.MaxConcurrency, 0)
	progress := utils.NewProgressCounter(len(names))

	var mu sync.Mutex
	reports := make(map[string]*models.CompetitorReport, len(names))

	for _, name := range names {
		name := name
		dir := filepath.Join(p.cfg.CompetitorsDir, name)
		pool.Submit(func() {
			rep, err := p.ProcessCompetitor(name, dir, own)
			done, total := progress.Step()
			if err != nil {
				p.logger.Error("[pipeline] %s failed (%d/%d): %v", name, done, total, err)
				return
			}
			p.logger.Info("[pipeline] %s done (%d/%d)", name, done, total)
			mu.Lock()
			reports[name] = rep
			mu.Unlock()
		})
	}
	pool.Wait()

	if len(reports) == 0 {
		return nil, fmt.Errorf("all %d competitor units failed", len(names))
	}

	// Deterministic aggregation order regardless of worker completion.
	ordered := make([]*models.CompetitorReport, 0, len(reports))
	for _, name := range names {
		if rep, ok := reports[name]; ok {
			ordered = append(ordered, rep)
		}
	}

	aggregated := NewCrossAggregator(p.logger).Aggregate(ordered)
	if _, err := p.sink.WriteAggregated(runLabel, aggregated); err != nil {
		return nil, fmt.Errorf("write aggregated table: %w", err)
	}
	return aggregated, nil
}

// ConsolidateDir reads every aggregated run file in dir and writes the final
// consolidated report. Files that fail schema checks are skipped with a
// warning; the batch continues.
func (p *Pipeline) ConsolidateDir(dir string) ([]*models.FinalProduct, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("runs dir: %w", err)
	}

	var runs []*AggregationRun
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		products, err := p.reader.ReadAggregated(path)
		if err != nil {
			p.logger.Warn("[consolidate] skipping %s: %v", e.Name(), err)
			continue
		}
		runs = append(runs, &AggregationRun{
			Label:    strings.TrimSuffix(e.Name(), ".csv"),
			Products: products,
		})
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("no usable run files under %s", dir)
	}

	final := NewConsolidator(p.logger).Consolidate(runs)
	if _, err := p.sink.WriteFinal(final); err != nil {
		return nil, fmt.Errorf("write final report: %w", err)
	}
	return final, nil
}
