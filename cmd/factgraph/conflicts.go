package factgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/edgarlens/factgraph/pkg/config"
	"github.com/edgarlens/factgraph/pkg/types"
)

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "Report conflicting single-valued facts",
	Long: `Report subjects carrying more than one currently valid value for a
single-valued predicate. The report is advisory: nothing is changed.`,
	RunE: runConflicts,
}

var conflictPredicates []string

func init() {
	rootCmd.AddCommand(conflictsCmd)

	conflictsCmd.Flags().StringSliceVar(&conflictPredicates, "predicate", nil,
		"Restrict to these predicates (default: all single-valued)")
}

func runConflicts(cmd *cobra.Command, args []string) error {
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

	var predicates []types.Predicate
	for _, raw := range conflictPredicates {
		predicates = append(predicates, types.Predicate(strings.ToUpper(raw)))
	}

	groups, err := client.Conflicts(ctx, predicates)
	if err != nil {
		return err
	}

	if len(groups) == 0 {
		fmt.Fprintln(os.Stdout, "no conflicts")
		return nil
	}
	out, err := json.MarshalIndent(groups, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(out))
	return nil
}
