package factgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/edgarlens/factgraph/pkg/config"
	"github.com/edgarlens/factgraph/pkg/signals"
)

var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Screen subjects by signal thresholds",
	Long: `Screen subjects whose EPS endpoint delta and flow window sum both clear
their thresholds, ordered by flow sum descending.`,
	RunE: runScreen,
}

var (
	screenEpsKey      string
	screenFlowKey     string
	screenEpsDelta    float64
	screenFlowSum     float64
	screenMaxResults  int
	screenEpsLookback int
)

func init() {
	rootCmd.AddCommand(screenCmd)

	screenCmd.Flags().StringVar(&screenEpsKey, "eps-key", "eps_estimate", "EPS signal key")
	screenCmd.Flags().StringVar(&screenFlowKey, "flow-key", "retail_net_flow", "Flow signal key")
	screenCmd.Flags().Float64Var(&screenEpsDelta, "eps-min-delta", 0, "Minimum EPS endpoint delta (strict)")
	screenCmd.Flags().Float64Var(&screenFlowSum, "flow-min-sum", 0, "Minimum flow window sum (strict)")
	screenCmd.Flags().IntVar(&screenMaxResults, "max-results", 0, "Result cap (default from config)")
	screenCmd.Flags().IntVar(&screenEpsLookback, "eps-lookback-days", 0, "EPS lookback window in days")
}

func runScreen(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	client, _, err := initializeClient(cfg)
	if err != nil {
		return err
	}
	ctx := context.Background()
	defer client.Close(ctx)

	req := &signals.Request{
		EpsSignalKey:     screenEpsKey,
		FlowSignalKey:    screenFlowKey,
		EpsMinDelta:      screenEpsDelta,
		FlowMinSum:       screenFlowSum,
		EpsLookbackDays:  screenEpsLookback,
		FlowLookbackDays: cfg.Screener.FlowLookbackDays,
		MaxResults:       screenMaxResults,
	}
	if req.EpsLookbackDays == 0 {
		req.EpsLookbackDays = cfg.Screener.EpsLookbackDays
	}
	if req.MaxResults == 0 {
		req.MaxResults = cfg.Screener.MaxResults
	}

	candidates, err := client.Screen(ctx, req)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(candidates, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(out))
	return nil
}
