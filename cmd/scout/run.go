package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/FranksOps/scout/internal/metrics"
	"github.com/FranksOps/scout/internal/pipeline"
	"github.com/FranksOps/scout/internal/report"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Search every keyword and rebuild the results sheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.research(ctx, cmd)
		},
	}

	f := cmd.Flags()
	f.String("variant", "html", "search variant: html or api")
	f.String("backend", "gsheets", "spreadsheet backend: gsheets, xlsx or csv")
	f.String("spreadsheet-id", "", "Google spreadsheet ID")
	f.String("spreadsheet", "ebay_searchword", "Google spreadsheet name, used when no ID is given")
	f.String("path", "", "workbook file (xlsx) or directory (csv)")
	f.String("credentials", "./config/google-credentials.json", "service-account key file")
	f.Duration("delay", 0, "pause after each search (default 5s html, 1s api)")
	f.String("fingerprint", "chrome", "TLS fingerprint: chrome, firefox, safari, go or random")
	f.String("proxies", "", "file listing proxy URLs, one per line")
	f.String("ua-order", "round_robin", "user agent order: round_robin or random")
	f.Duration("timeout", 0, "per-request timeout (default 30s)")
	f.Int("metrics-port", 0, "serve Prometheus metrics on this port while running")
	f.String("report", "text", "summary format: text or json")
	return cmd
}

func (a *app) research(ctx context.Context, cmd *cobra.Command) error {
	cfg := a.cfg
	logger := a.logger

	searcher, layout, err := newSearcher(cfg, logger)
	if err != nil {
		return err
	}

	book, err := openWorkbook(ctx, cfg.Spreadsheet, logger)
	if err != nil {
		return err
	}
	defer book.Close()

	p := &pipeline.Pipeline{
		Searcher: searcher,
		Book:     book,
		Logger:   logger,
		Config: pipeline.Config{
			Variant:       cfg.Variant,
			KeywordsSheet: cfg.Spreadsheet.KeywordsSheet,
			ResultsSheet:  cfg.Spreadsheet.ResultsSheet,
			Layout:        layout,
			Delay:         cfg.DelayFor(),
		},
	}

	var summary *report.Summary
	g, gctx := errgroup.WithContext(ctx)

	var ms *metrics.Server
	if cfg.Metrics.Port > 0 {
		ms = metrics.NewServer(cfg.Metrics.Port)
		logger.Info("metrics server listening", "port", cfg.Metrics.Port)
		g.Go(ms.ListenAndServe)
	}

	g.Go(func() error {
		defer ms.Stop(context.Background())
		var err error
		summary, err = p.Run(gctx)
		return err
	})

	err = g.Wait()
	if summary != nil {
		if werr := report.Write(cmd.OutOrStdout(), cfg.Report.Format, summary); werr != nil {
			logger.Error("write summary", "err", werr)
		}
	}
	return err
}
