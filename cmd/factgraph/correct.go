package factgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/edgarlens/factgraph/pkg/config"
	"github.com/edgarlens/factgraph/pkg/correction"
	"github.com/edgarlens/factgraph/pkg/types"
)

var correctCmd = &cobra.Command{
	Use:   "correct",
	Short: "Apply corrections to assertions",
}

var retractCmd = &cobra.Command{
	Use:   "retract [assertion-id]",
	Short: "Retract an active assertion",
	Long: `Close an active assertion without replacement. The row stays queryable;
only its status and validity window change.`,
	Args: cobra.ExactArgs(1),
	RunE: runRetract,
}

var supersedeCmd = &cobra.Command{
	Use:   "supersede [assertion-id] [draft.json]",
	Short: "Supersede an active assertion with a replacement",
	Long: `Close an active assertion and record a replacement described by a JSON
draft. The draft must name a predicate and exactly one of object_entity_id
or literal_value; unset fields are inherited from the target.`,
	Args: cobra.ExactArgs(2),
	RunE: runSupersede,
}

var reprojectCmd = &cobra.Command{
	Use:   "reproject [assertion-id...]",
	Short: "Repair the graph projection of assertions",
	Long: `Re-apply the graph edges of the given assertions from their
authoritative rows. Idempotent; used after a partial projection failure.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReproject,
}

var (
	correctReason string
	correctBy     string
)

func init() {
	rootCmd.AddCommand(correctCmd)
	correctCmd.AddCommand(retractCmd)
	correctCmd.AddCommand(supersedeCmd)
	correctCmd.AddCommand(reprojectCmd)

	for _, c := range []*cobra.Command{retractCmd, supersedeCmd} {
		c.Flags().StringVar(&correctReason, "reason", "", "Reason recorded on the correction")
		c.Flags().StringVar(&correctBy, "by", "cli", "Author recorded on the correction")
	}
}

func runRetract(cmd *cobra.Command, args []string) error {
	return withClient(func(ctx context.Context, client clientAPI) error {
		result, err := client.Retract(ctx, args[0], correctReason, correctBy)
		if err != nil {
			return err
		}
		return printResult(result)
	})
}

func runSupersede(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("failed to read draft file: %w", err)
	}
	var draft types.AssertionDraft
	if err := json.Unmarshal(data, &draft); err != nil {
		return fmt.Errorf("failed to parse draft file: %w", err)
	}

	return withClient(func(ctx context.Context, client clientAPI) error {
		result, err := client.Supersede(ctx, args[0], &draft, correctReason, correctBy)
		if err != nil {
			return err
		}
		return printResult(result)
	})
}

func runReproject(cmd *cobra.Command, args []string) error {
	return withClient(func(ctx context.Context, client clientAPI) error {
		count, err := client.Reproject(ctx, args)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "reprojected %d edge(s)\n", count)
		return nil
	})
}

// clientAPI is the slice of the client the correction commands need.
type clientAPI interface {
	Retract(ctx context.Context, assertionID, reason, createdBy string) (*correction.Result, error)
	Supersede(ctx context.Context, assertionID string, draft *types.AssertionDraft, reason, createdBy string) (*correction.Result, error)
	Reproject(ctx context.Context, assertionIDs []string) (int, error)
	Close(ctx context.Context) error
}

func withClient(fn func(ctx context.Context, client clientAPI) error) error {
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
	return fn(ctx, client)
}

func printResult(result *correction.Result) error {
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(out))
	return nil
}
