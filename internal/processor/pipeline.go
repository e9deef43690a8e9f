package processor

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/searchlens/ctrpipeline/internal/config"
	"github.com/searchlens/ctrpipeline/internal/loader"
	"github.com/searchlens/ctrpipeline/internal/report"
	"github.com/searchlens/ctrpipeline/internal/session"
	"github.com/searchlens/ctrpipeline/internal/storage"
)

// Exporter pushes finished product stats to an analytics store.
type Exporter interface {
	InsertProductStats(ctx context.Context, runID string, generatedAt time.Time, stats []report.ProductStat) error
}

// Pipeline runs one batch transformation: load, attribute, partition,
// aggregate, write. Each run is independent; no state survives it.
type Pipeline struct {
	cfg      *config.Config
	exporter Exporter
	now      func() time.Time
}

// Summary describes one completed run.
type Summary struct {
	RunID              string
	RowsLoaded         int
	RowsDropped        int
	Sessions           int
	Products           int
	UnattributedClicks int
	ReportPath         string
	ErrorReportPath    string
}

// New creates a pipeline. exporter may be nil to skip the analytics export.
func New(cfg *config.Config, exporter Exporter) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		exporter: exporter,
		now:      time.Now,
	}
}

// Run processes inputPath end to end. Fatal errors (schema violation, no
// usable rows) are returned before any output file is created; an export
// failure is logged but does not fail a run whose CSV outputs are written.
func (p *Pipeline) Run(ctx context.Context, inputPath string) (*Summary, error) {
	runID := uuid.New().String()
	logger := log.With().Str("run_id", runID).Logger()
	logger.Info().Str("input", inputPath).Msg("Starting CTR calculation")

	events, stats, err := loader.Load(inputPath, p.cfg.Pipeline)
	if err != nil {
		return nil, err
	}

	attributed := session.Attribute(events, p.cfg.Pipeline)
	valid, clicks, orphans := session.Partition(attributed, p.cfg.Pipeline)
	productStats := report.Aggregate(valid, clicks)

	outDir := p.cfg.Output.Dir
	if outDir == "" {
		outDir = filepath.Dir(inputPath)
	}

	// Both outputs share one generation time so a run's files pair up.
	generatedAt := p.now()

	reportPath, err := storage.WriteReport(outDir, p.cfg.Output.ReportPrefix, generatedAt, productStats)
	if err != nil {
		return nil, err
	}

	errorPath, err := storage.WriteErrorReport(outDir, p.cfg.Output.ErrorsPrefix, generatedAt, orphans)
	if err != nil {
		return nil, err
	}

	if p.exporter != nil {
		if err := p.exporter.InsertProductStats(ctx, runID, generatedAt, productStats); err != nil {
			logger.Error().Err(err).Msg("Failed to export product stats")
		} else {
			logger.Info().Int("products", len(productStats)).Msg("Product stats exported")
		}
	}

	summary := &Summary{
		RunID:              runID,
		RowsLoaded:         stats.Loaded,
		RowsDropped:        stats.Dropped,
		Sessions:           countSessions(events),
		Products:           len(productStats),
		UnattributedClicks: len(orphans),
		ReportPath:         reportPath,
		ErrorReportPath:    errorPath,
	}

	logger.Info().
		Int("rows_loaded", summary.RowsLoaded).
		Int("rows_dropped", summary.RowsDropped).
		Int("sessions", summary.Sessions).
		Int("products", summary.Products).
		Int("unattributed_clicks", summary.UnattributedClicks).
		Str("report", summary.ReportPath).
		Msg("CTR calculation complete")

	return summary, nil
}

func countSessions(events []loader.Event) int {
	seen := make(map[string]struct{}, len(events))
	for _, ev := range events {
		seen[ev.SessionID] = struct{}{}
	}
	return len(seen)
}
