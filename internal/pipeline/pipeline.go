// Package pipeline runs one research pass: read the keyword list, search
// each keyword in turn, then rebuild the results sheet.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/FranksOps/scout/internal/marketplace"
	"github.com/FranksOps/scout/internal/metrics"
	"github.com/FranksOps/scout/internal/report"
	"github.com/FranksOps/scout/internal/table"
	"github.com/FranksOps/scout/internal/workbook"
	"github.com/FranksOps/scout/pkg/ratelimit"
)

// Config controls a run.
type Config struct {
	// Variant labels metrics and the summary ("html" or "api").
	Variant       string
	KeywordsSheet string
	ResultsSheet  string
	Layout        table.Layout
	// Delay is the pause after every search.
	Delay time.Duration
}

// Pipeline wires a searcher to a workbook.
type Pipeline struct {
	Searcher marketplace.Searcher
	Book     workbook.Workbook
	Config   Config
	Logger   *slog.Logger

	// Now stamps rows and the summary. Defaults to time.Now.
	Now func() time.Time
}

// Run executes the research pass. Search failures are written as empty
// rows and never stop the run. A workbook error or a cancelled ctx aborts
// it before anything is written; the partial summary is still returned.
func (p *Pipeline) Run(ctx context.Context) (*report.Summary, error) {
	if p.Searcher == nil {
		return nil, errors.New("pipeline: searcher is nil")
	}
	if p.Book == nil {
		return nil, errors.New("pipeline: workbook is nil")
	}

	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}

	summary := report.New(p.Config.Variant, now())
	logger = logger.With("run_id", summary.RunID, "variant", p.Config.Variant)
	defer func() { summary.Finish(now()) }()

	kw, err := table.ReadKeywords(ctx, p.Book, p.Config.KeywordsSheet)
	if err != nil {
		return summary, fmt.Errorf("pipeline: %w", err)
	}
	summary.Skipped = len(kw.SkippedRows)
	for _, row := range kw.SkippedRows {
		logger.Warn("skipping blank keyword", "sheet", p.Config.KeywordsSheet, "row", row)
	}
	pacer := ratelimit.NewPacer(p.Config.Delay)
	logger.Info("loaded keywords", "count", len(kw.Values), "skipped", summary.Skipped, "delay", pacer.Delay())

	rows := make([][]any, 0, len(kw.Values))

	for i, keyword := range kw.Values {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("pipeline: aborted before %q: %w", keyword, err)
		}

		logger.Info("searching", "keyword", keyword, "n", i+1, "of", len(kw.Values))
		start := time.Now()
		res := p.Searcher.Search(ctx, keyword)
		metrics.RecordSearch(p.Config.Variant, res, time.Since(start))
		summary.Record(keyword, res)

		if res.Failed() {
			logger.Warn("search failed", "keyword", keyword, "url", res.SearchURL, "err", res.ErrorText())
		} else {
			logger.Debug("search done", "keyword", keyword, "total", res.Total, "items", len(res.Items))
		}

		rows = append(rows, p.Config.Layout.Row(keyword, res, now()))

		if err := pacer.Wait(ctx); err != nil {
			return summary, fmt.Errorf("pipeline: aborted after %q: %w", keyword, err)
		}
	}

	if err := table.WriteResults(ctx, p.Book, p.Config.ResultsSheet, p.Config.Layout.Header(), rows); err != nil {
		return summary, fmt.Errorf("pipeline: %w", err)
	}
	summary.Written = true
	logger.Info("results written", "sheet", p.Config.ResultsSheet, "rows", len(rows))

	return summary, nil
}
