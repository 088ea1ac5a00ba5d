package main

import (
	"encoding/csv"
	"os"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/pricing-cli/internal/htmlx"
	"github.com/sells-group/pricing-cli/internal/pipeline"
	"github.com/sells-group/pricing-cli/internal/subscription"
)

var (
	verifyInput       string
	verifyOutput      string
	verifyLimit       int
	verifyConcurrency int
)

type verifyResult struct {
	domain     string
	pricingURL string
	reachable  bool
	hasPrice   bool
	dynamic    bool
	popup      bool
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify pricing signals are visible in static HTML",
	Long: `Fetches each pricing page live and checks whether price signals survive
in static HTML without script execution. Pages that only render prices
client-side will produce no_prices_visible_static rows during collection,
so this stage flags them ahead of time.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		domains, err := loadDomains(verifyInput, pipeline.IngestOptions{RequirePricingURL: true})
		if err != nil {
			return eris.Wrap(err, "verify: parse input")
		}
		zap.L().Info("verify: parsed input", zap.Int("domains", len(domains)))

		if verifyLimit > 0 && verifyLimit < len(domains) {
			domains = domains[:verifyLimit]
		}

		concurrency := verifyConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Batch.MaxConcurrentDomains
		}

		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)

		var mu sync.Mutex
		var results []verifyResult
		var visible atomic.Int64

		for _, rec := range domains {
			g.Go(func() error {
				fetch := newProbeFetcher()
				res := verifyResult{domain: rec.Domain, pricingURL: rec.PricingURL}

				resp, err := fetch.Get(gCtx, rec.PricingURL)
				if err == nil && resp.StatusCode == 200 {
					res.reachable = true
					raw := resp.HTML()
					text, terr := htmlx.FlattenText(raw)
					if terr != nil {
						text = raw
					}
					res.hasPrice = subscription.HasPricingSignal(text)
					res.dynamic = subscription.LooksDynamic(raw, text)
					res.popup = subscription.LooksPopup(raw)
				}

				if res.hasPrice {
					visible.Add(1)
				}

				zap.L().Info("verify: domain done",
					zap.String("domain", rec.Domain),
					zap.Bool("reachable", res.reachable),
					zap.Bool("static_price", res.hasPrice),
					zap.Bool("dynamic", res.dynamic),
				)

				mu.Lock()
				results = append(results, res)
				mu.Unlock()
				return nil
			})
		}

		_ = g.Wait()

		zap.L().Info("verify: batch complete",
			zap.Int("domains", len(domains)),
			zap.Int64("static_price_visible", visible.Load()),
		)

		f, err := os.Create(verifyOutput)
		if err != nil {
			return eris.Wrapf(err, "verify: create %s", verifyOutput)
		}
		defer func() { _ = f.Close() }()

		w := csv.NewWriter(f)
		if err := w.Write([]string{"domain", "pricing_page_url", "reachable", "static_price_visible", "dynamic_components", "popup_overlay"}); err != nil {
			return eris.Wrap(err, "verify: write header")
		}
		for _, r := range results {
			rec := []string{
				r.domain,
				r.pricingURL,
				strconv.FormatBool(r.reachable),
				strconv.FormatBool(r.hasPrice),
				strconv.FormatBool(r.dynamic),
				strconv.FormatBool(r.popup),
			}
			if err := w.Write(rec); err != nil {
				return eris.Wrap(err, "verify: write row")
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return eris.Wrap(err, "verify: flush csv")
		}
		zap.L().Info("verify: wrote csv", zap.String("path", verifyOutput))
		return nil
	},
}

func init() {
	verifyCmd.Flags().StringVar(&verifyInput, "input", "", "domain list with pricing_url column (.csv or .xlsx, required)")
	verifyCmd.Flags().StringVar(&verifyOutput, "output", "static_price_check.csv", "output CSV path")
	verifyCmd.Flags().IntVar(&verifyLimit, "limit", 0, "max domains to process (0 = all)")
	verifyCmd.Flags().IntVar(&verifyConcurrency, "concurrency", 0, "worker pool size (0 = config default)")
	_ = verifyCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(verifyCmd)
}
