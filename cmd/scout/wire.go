package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/FranksOps/scout/internal/config"
	"github.com/FranksOps/scout/internal/fingerprint"
	"github.com/FranksOps/scout/internal/marketplace"
	"github.com/FranksOps/scout/internal/marketplace/browseapi"
	"github.com/FranksOps/scout/internal/marketplace/htmlsearch"
	"github.com/FranksOps/scout/internal/table"
	"github.com/FranksOps/scout/internal/workbook"
	"github.com/FranksOps/scout/internal/workbook/csvbook"
	"github.com/FranksOps/scout/internal/workbook/gsheets"
	"github.com/FranksOps/scout/internal/workbook/xlsx"
	"github.com/FranksOps/scout/pkg/proxy"
	"github.com/FranksOps/scout/pkg/useragent"
)

// openWorkbook opens the configured spreadsheet backend.
func openWorkbook(ctx context.Context, cfg config.Spreadsheet, logger *slog.Logger) (workbook.Workbook, error) {
	switch cfg.Backend {
	case config.BackendGSheets:
		b, err := gsheets.Open(ctx, gsheets.Config{
			ID:              cfg.ID,
			Name:            cfg.Name,
			CredentialsFile: cfg.CredentialsFile,
			Logger:          logger,
		})
		if err != nil {
			return nil, err
		}
		return b, nil
	case config.BackendXLSX:
		return xlsx.Open(cfg.Path)
	case config.BackendCSV:
		return csvbook.Open(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown spreadsheet backend %q", cfg.Backend)
	}
}

// newSearcher builds the searcher for the configured variant together with
// the result table layout it fills.
func newSearcher(cfg *config.Config, logger *slog.Logger) (marketplace.Searcher, table.Layout, error) {
	m := cfg.Marketplace

	switch cfg.Variant {
	case config.VariantAPI:
		c, err := browseapi.New(browseapi.Config{
			BaseURL:       m.APIBaseURL,
			StoreURL:      m.BaseURL,
			Token:         m.APIToken,
			MarketplaceID: m.MarketplaceID,
			Timeout:       m.Timeout,
			Logger:        logger,
		})
		if err != nil {
			return nil, table.Layout{}, err
		}
		return c, table.Layout{Condition: true}, nil

	case config.VariantHTML:
		profile, err := fingerprint.ParseProfile(m.Fingerprint)
		if err != nil {
			return nil, table.Layout{}, err
		}

		var proxies *proxy.Pool
		if m.ProxiesFile != "" {
			proxies = proxy.NewPool(proxy.Config{})
			if err := proxies.LoadFile(m.ProxiesFile); err != nil {
				return nil, table.Layout{}, err
			}
			logger.Info("loaded proxies", "count", proxies.Len(), "file", m.ProxiesFile)
		}

		c, err := htmlsearch.New(htmlsearch.Config{
			BaseURL:         m.BaseURL,
			Timeout:         m.Timeout,
			Fingerprint:     profile,
			UserAgents:      useragent.NewPool(m.UserAgents),
			RandomUserAgent: m.UserAgentOrder == config.UserAgentRandom,
			Proxies:         proxies,
			Logger:          logger,
		})
		if err != nil {
			return nil, table.Layout{}, err
		}
		return c, table.Layout{}, nil

	default:
		return nil, table.Layout{}, fmt.Errorf("unknown variant %q", cfg.Variant)
	}
}
