package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/guppyfunds/consumer/internal/config"
	"github.com/guppyfunds/consumer/internal/database"
	"github.com/guppyfunds/consumer/internal/importer"
	"github.com/guppyfunds/consumer/internal/ingest"
	"github.com/guppyfunds/consumer/internal/table"
	txStore "github.com/guppyfunds/consumer/internal/transaction/store"
)

func newIngestCommand() *cobra.Command {
	var skipSchema bool

	cmd := &cobra.Command{
		Use:   "ingest <file.csv>",
		Short: "Detect, parse, deduplicate and store a CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			t, err := readTable(args[0])
			if err != nil {
				return err
			}

			res, err := runIngest(cmd.Context(), cfg, t, skipSchema)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderResult(args[0], res))

			if !res.ParsingSuccessful {
				return fmt.Errorf("%s: %s", args[0], res.Error)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&skipSchema, "skip-schema", false, "do not create tables and indexes before ingesting")

	return cmd
}

func runIngest(ctx context.Context, cfg *config.Config, t *table.Table, skipSchema bool) (ingest.ProcessingResult, error) {
	pool, err := database.New(ctx, cfg.ConnectionString(), database.PoolConfig{MaxConns: 4})
	if err != nil {
		return ingest.ProcessingResult{}, fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	if !skipSchema {
		if err := database.EnsureSchema(ctx, pool, cfg.DB.AmexTable, cfg.DB.WellsTable); err != nil {
			return ingest.ProcessingResult{}, err
		}
	}

	repo := txStore.New(pool, txStore.Tables{Amex: cfg.DB.AmexTable, Wells: cfg.DB.WellsTable})
	filter := ingest.NewDuplicateFilter(repo, nil)
	pipeline := ingest.NewPipeline(importer.NewDetector(), ingest.NewInserter(repo, filter, nil), nil)

	return pipeline.Process(ctx, t), nil
}
