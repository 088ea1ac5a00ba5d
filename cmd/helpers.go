package main

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/pricing-cli/internal/fetcher"
	"github.com/sells-group/pricing-cli/internal/model"
	"github.com/sells-group/pricing-cli/internal/pipeline"
	"github.com/sells-group/pricing-cli/internal/store"
)

// loadDomains reads the publisher list, dispatching on file extension.
func loadDomains(path string, opts pipeline.IngestOptions) ([]model.DomainRecord, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return pipeline.ParseDomainsXLSX(path, opts)
	case ".csv":
		return pipeline.ParseDomainsCSV(path, opts)
	default:
		return nil, eris.Errorf("unsupported input format %q (want .csv or .xlsx)", filepath.Ext(path))
	}
}

// openStore opens the configured store backend and runs migrations.
func openStore(ctx context.Context) (store.Store, error) {
	var st store.Store
	var err error
	switch cfg.Store.Driver {
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		st, err = store.NewSQLite(cfg.Store.DatabaseURL)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

// newProbeFetcher builds the fetcher for live publisher sites.
func newProbeFetcher() *fetcher.HTTPFetcher {
	return fetcher.New(fetcher.Options{
		UserAgent: cfg.Probe.UserAgent,
		Timeout:   cfg.Probe.Timeout(),
	})
}

// newArchiveFetcher builds a worker-owned fetcher for the web archive.
// Each worker gets its own instance; archive load is bounded by the
// per-host limiter times the worker count.
func newArchiveFetcher() *fetcher.HTTPFetcher {
	return fetcher.New(fetcher.Options{
		UserAgent:    cfg.Probe.UserAgent,
		Timeout:      cfg.Archive.Timeout(),
		DefaultLimit: rate.Limit(cfg.Archive.RatePerSec),
		DefaultBurst: cfg.Archive.RateBurst,
	})
}
