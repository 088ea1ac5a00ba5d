package main

import (
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/pricing-cli/internal/archive"
	"github.com/sells-group/pricing-cli/internal/model"
	"github.com/sells-group/pricing-cli/internal/pipeline"
	"github.com/sells-group/pricing-cli/internal/pricing"
	"github.com/sells-group/pricing-cli/internal/timeline"
)

var (
	collectInput       string
	collectOutput      string
	collectLimit       int
	collectConcurrency int
	collectDryRun      bool
	collectSave        bool
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Reconstruct weekly pricing histories from the web archive",
	Long: `Reads a domain list with pricing URLs and, for each domain, samples one
archived capture per week across the configured date range, extracts the
advertised prices, and writes one CSV row per (week, price) observation.

Weeks with no usable capture or no visible price get an explicit sentinel
row; no week in range is ever silently dropped.

Examples:
  # Dry run - parse the input only
  pricing-cli collect --input pricing_pages.csv --dry-run

  # Collect three domains, persist rows to the store
  pricing-cli collect --input pricing_pages.csv --limit 3 --save`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		domains, err := loadDomains(collectInput, pipeline.IngestOptions{RequirePricingURL: true})
		if err != nil {
			return eris.Wrap(err, "collect: parse input")
		}
		zap.L().Info("collect: parsed input", zap.Int("domains", len(domains)))

		if collectLimit > 0 && collectLimit < len(domains) {
			domains = domains[:collectLimit]
		}

		if collectDryRun {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(domains)
		}

		from, to, err := cfg.Archive.DateRange()
		if err != nil {
			return err
		}
		anchor, err := cfg.Archive.WeekAnchorDay()
		if err != nil {
			return err
		}

		rules := pricing.DefaultRules()
		rules.WindowRadius = cfg.Extract.WindowRadius
		rules.AnnualOverrideRadius = cfg.Extract.AnnualOverrideRadius

		concurrency := collectConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Batch.MaxConcurrentDomains
		}

		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)

		var mu sync.Mutex
		var all []model.TimelineRow
		var withPrices, sentinelOnly atomic.Int64

		for _, rec := range domains {
			g.Go(func() error {
				// Worker-owned archive session: no connection state
				// crosses worker boundaries.
				client := archive.NewClient(newArchiveFetcher(), archive.Options{
					CDXBaseURL: cfg.Archive.CDXBaseURL,
					WebBaseURL: cfg.Archive.WebBaseURL,
				})
				asm := timeline.NewAssembler(client, rules, from, to, anchor)

				rows := asm.BuildTimeline(gCtx, rec.Domain, rec.PricingURL)

				observed := false
				for _, r := range rows {
					if !r.IsSentinel() {
						observed = true
						break
					}
				}
				if observed {
					withPrices.Add(1)
				} else {
					sentinelOnly.Add(1)
				}

				zap.L().Info("collect: domain done",
					zap.String("domain", rec.Domain),
					zap.Int("rows", len(rows)),
					zap.Bool("prices_observed", observed),
				)

				mu.Lock()
				all = append(all, rows...)
				mu.Unlock()
				return nil
			})
		}

		_ = g.Wait()

		pipeline.SortTimeline(all)

		zap.L().Info("collect: batch complete",
			zap.Int("domains", len(domains)),
			zap.Int64("with_prices", withPrices.Load()),
			zap.Int64("sentinel_only", sentinelOnly.Load()),
			zap.Int("rows", len(all)),
		)

		if err := pipeline.WriteTimelineCSV(all, collectOutput); err != nil {
			return err
		}
		zap.L().Info("collect: wrote csv", zap.String("path", collectOutput))

		if collectSave {
			st, err := openStore(ctx)
			if err != nil {
				return eris.Wrap(err, "collect: open store")
			}
			defer func() { _ = st.Close() }()

			run, err := st.CreateRun(ctx, "collect")
			if err != nil {
				return err
			}
			if err := st.SaveTimeline(ctx, run.ID, all); err != nil {
				return err
			}
			if err := st.CompleteRun(ctx, run.ID, model.RunComplete, len(domains), len(all)); err != nil {
				return err
			}
			zap.L().Info("collect: persisted run", zap.String("run_id", run.ID))
		}

		return nil
	},
}

func init() {
	collectCmd.Flags().StringVar(&collectInput, "input", "", "domain list with pricing_url column (.csv or .xlsx, required)")
	collectCmd.Flags().StringVar(&collectOutput, "output", "historical_pricing_snapshots.csv", "output CSV path")
	collectCmd.Flags().IntVar(&collectLimit, "limit", 0, "max domains to process (0 = all)")
	collectCmd.Flags().IntVar(&collectConcurrency, "concurrency", 0, "worker pool size (0 = config default)")
	collectCmd.Flags().BoolVar(&collectDryRun, "dry-run", false, "parse input and print domains, skip collection")
	collectCmd.Flags().BoolVar(&collectSave, "save", false, "persist rows to the configured store")
	_ = collectCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(collectCmd)
}
