package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/pricing-cli/internal/monitoring"
)

var statusKind string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show statistics for the most recent run",
	Long: `Reads the configured store and prints the latest run of the given kind
with a breakdown of price rows versus sentinel rows by reason code.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		snap, err := monitoring.NewCollector(st).Collect(ctx, statusKind)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusKind, "kind", "collect", "run kind to summarize (check, findpage or collect)")
	rootCmd.AddCommand(statusCmd)
}
