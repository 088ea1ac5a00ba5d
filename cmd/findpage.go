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

	"github.com/sells-group/pricing-cli/internal/model"
	"github.com/sells-group/pricing-cli/internal/pipeline"
	"github.com/sells-group/pricing-cli/internal/subscription"
)

var (
	findpageInput       string
	findpageOutput      string
	findpageLimit       int
	findpageConcurrency int
	findpageDryRun      bool
)

var findpageCmd = &cobra.Command{
	Use:   "findpage",
	Short: "Locate and verify each domain's subscription pricing page",
	Long: `For each domain, probes a list of common pricing paths, then falls back
to scanning homepage links, then to the homepage itself. The chosen page is
fetched and inspected for visible prices, dynamic pricing components and
popup overlays, and its web archive coverage is recorded.

The output CSV feeds the collect command's pricing_url column.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		domains, err := loadDomains(findpageInput, pipeline.IngestOptions{})
		if err != nil {
			return eris.Wrap(err, "findpage: parse input")
		}
		zap.L().Info("findpage: parsed input", zap.Int("domains", len(domains)))

		if findpageLimit > 0 && findpageLimit < len(domains) {
			domains = domains[:findpageLimit]
		}

		if findpageDryRun {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(domains)
		}

		concurrency := findpageConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Batch.MaxConcurrentDomains
		}

		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)

		var mu sync.Mutex
		var reports []model.PricingPageReport
		var found, missed atomic.Int64

		for _, rec := range domains {
			g.Go(func() error {
				finder := subscription.NewFinder(newProbeFetcher(), cfg.Archive.AvailabilityBaseURL)
				report := finder.FindPricingPage(gCtx, rec.Domain)

				if report.PricingURL != "" {
					found.Add(1)
				} else {
					missed.Add(1)
				}

				zap.L().Info("findpage: domain done",
					zap.String("domain", rec.Domain),
					zap.String("pricing_url", report.PricingURL),
					zap.String("method", report.Method),
					zap.Int("detected_prices", len(report.DetectedPrices)),
				)

				mu.Lock()
				reports = append(reports, report)
				mu.Unlock()
				return nil
			})
		}

		_ = g.Wait()

		zap.L().Info("findpage: batch complete",
			zap.Int("domains", len(domains)),
			zap.Int64("found", found.Load()),
			zap.Int64("missed", missed.Load()),
		)

		if err := pipeline.WriteReportCSV(reports, findpageOutput); err != nil {
			return err
		}
		zap.L().Info("findpage: wrote csv", zap.String("path", findpageOutput))
		return nil
	},
}

func init() {
	findpageCmd.Flags().StringVar(&findpageInput, "input", "", "domain list (.csv or .xlsx, required)")
	findpageCmd.Flags().StringVar(&findpageOutput, "output", "pricing_pages.csv", "output CSV path")
	findpageCmd.Flags().IntVar(&findpageLimit, "limit", 0, "max domains to process (0 = all)")
	findpageCmd.Flags().IntVar(&findpageConcurrency, "concurrency", 0, "worker pool size (0 = config default)")
	findpageCmd.Flags().BoolVar(&findpageDryRun, "dry-run", false, "parse input and print domains, skip probing")
	_ = findpageCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(findpageCmd)
}
