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
	"github.com/sells-group/pricing-cli/internal/resilience"
	"github.com/sells-group/pricing-cli/internal/subscription"
)

var (
	checkInput       string
	checkOutput      string
	checkLimit       int
	checkConcurrency int
	checkDryRun      bool
	checkSave        bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Classify domains as selling paid subscriptions or not",
	Long: `Probes each domain's homepage and common subscribe paths for paid
subscription signals and classifies it as subscription, no_subscription or
inaccessible. One row per domain is written with the evidence URL that
triggered the classification.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		domains, err := loadDomains(checkInput, pipeline.IngestOptions{})
		if err != nil {
			return eris.Wrap(err, "check: parse input")
		}
		zap.L().Info("check: parsed input", zap.Int("domains", len(domains)))

		if checkLimit > 0 && checkLimit < len(domains) {
			domains = domains[:checkLimit]
		}

		if checkDryRun {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(domains)
		}

		retry := resilience.DefaultRetryConfig()
		retry.MaxAttempts = cfg.Probe.Retries + 1

		concurrency := checkConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Batch.MaxConcurrentDomains
		}

		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)

		var mu sync.Mutex
		var statuses []model.SubscriptionStatus
		var paid, free, dead atomic.Int64

		for _, rec := range domains {
			g.Go(func() error {
				checker := subscription.NewChecker(newProbeFetcher(), subscription.DefaultSignals(), retry)
				status := checker.CheckDomain(gCtx, rec.Domain)

				switch status.Status {
				case model.StatusSubscription:
					paid.Add(1)
				case model.StatusNoSubscription:
					free.Add(1)
				default:
					dead.Add(1)
				}

				zap.L().Info("check: domain done",
					zap.String("domain", rec.Domain),
					zap.String("status", status.Status),
					zap.String("evidence_url", status.EvidenceURL),
				)

				mu.Lock()
				statuses = append(statuses, status)
				mu.Unlock()
				return nil
			})
		}

		_ = g.Wait()

		zap.L().Info("check: batch complete",
			zap.Int("domains", len(domains)),
			zap.Int64("subscription", paid.Load()),
			zap.Int64("no_subscription", free.Load()),
			zap.Int64("inaccessible", dead.Load()),
		)

		if err := pipeline.WriteStatusCSV(statuses, checkOutput); err != nil {
			return err
		}
		zap.L().Info("check: wrote csv", zap.String("path", checkOutput))

		if checkSave {
			st, err := openStore(ctx)
			if err != nil {
				return eris.Wrap(err, "check: open store")
			}
			defer func() { _ = st.Close() }()

			run, err := st.CreateRun(ctx, "check")
			if err != nil {
				return err
			}
			for _, status := range statuses {
				if err := st.SaveSubscriptionStatus(ctx, status); err != nil {
					return err
				}
			}
			if err := st.CompleteRun(ctx, run.ID, model.RunComplete, len(domains), len(statuses)); err != nil {
				return err
			}
			zap.L().Info("check: persisted run", zap.String("run_id", run.ID))
		}

		return nil
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkInput, "input", "", "domain list (.csv or .xlsx, required)")
	checkCmd.Flags().StringVar(&checkOutput, "output", "subscription_status.csv", "output CSV path")
	checkCmd.Flags().IntVar(&checkLimit, "limit", 0, "max domains to process (0 = all)")
	checkCmd.Flags().IntVar(&checkConcurrency, "concurrency", 0, "worker pool size (0 = config default)")
	checkCmd.Flags().BoolVar(&checkDryRun, "dry-run", false, "parse input and print domains, skip probing")
	checkCmd.Flags().BoolVar(&checkSave, "save", false, "persist statuses to the configured store")
	_ = checkCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(checkCmd)
}
