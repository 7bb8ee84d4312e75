package factgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/edgarlens/factgraph/pkg/config"
	"github.com/edgarlens/factgraph/pkg/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [items.json]",
	Short: "Ingest a batch of filings",
	Long: `Ingest a batch of filings described by a JSON file: an array of items,
each with locator, source, doc_type, external_id (cik), accession_no and
company_name. Items of one subject run sequentially; independent subjects
run concurrently. Progress is printed per item.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read items file: %w", err)
	}
	var items []ingest.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("failed to parse items file: %w", err)
	}
	if len(items) == 0 {
		return fmt.Errorf("items file is empty")
	}

	client, log, err := initializeClient(cfg)
	if err != nil {
		return err
	}
	ctx := context.Background()
	defer client.Close(ctx)

	if err := client.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize stores: %w", err)
	}

	resultCh, events := client.IngestStream(ctx, items)
	for event := range events {
		switch event.Type {
		case ingest.EventItemStart:
			log.Info("ingesting filing", "subject", event.Subject, "accession", event.AccessionNo)
		case ingest.EventItemDone:
			log.Info("filing ingested", "subject", event.Subject, "accession", event.AccessionNo,
				"chunks", event.Chunks, "assertions", event.Assertions)
		case ingest.EventItemError:
			log.Error("filing failed", "subject", event.Subject, "accession", event.AccessionNo,
				"error", event.Error)
		}
	}

	result := <-resultCh
	log.Info("ingestion finished",
		"documents", result.Documents,
		"chunks", result.Chunks,
		"entities", result.Entities,
		"assertions", result.Assertions,
		"stale_projections", result.StaleProjections,
		"failures", len(result.Failures))

	if len(result.Failures) > 0 {
		out, _ := json.MarshalIndent(result.Failures, "", "  ")
		fmt.Fprintln(os.Stderr, string(out))
		return fmt.Errorf("%d item(s) failed", len(result.Failures))
	}
	return nil
}
