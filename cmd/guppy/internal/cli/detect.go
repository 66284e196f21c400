package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/guppyfunds/consumer/internal/importer"
	"github.com/guppyfunds/consumer/internal/table"
	"github.com/guppyfunds/consumer/internal/transaction"
)

// detectSummary is what an offline dry run learns about a file.
type detectSummary struct {
	File         string
	Bank         transaction.Bank
	Columns      int
	Rows         int
	Parsed       int
	UniqueHashes int
	Skipped      []string
}

func newDetectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "detect <file.csv>",
		Short: "Detect the bank format and parse a CSV without storing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := readTable(args[0])
			if err != nil {
				return err
			}

			summary := detect(args[0], t, importer.NewDetector())

			fmt.Fprintln(cmd.OutOrStdout(), renderDetect(summary))

			if summary.Bank == transaction.BankUnknown {
				return fmt.Errorf("%s: unsupported format", args[0])
			}

			return nil
		},
	}
}

func detect(file string, t *table.Table, d *importer.Detector) detectSummary {
	summary := detectSummary{File: file, Bank: transaction.BankUnknown, Columns: t.Width()}

	parser, ok := d.ParserFor(t)
	if !ok {
		return summary
	}

	parsed := parser.ParseRows(t)
	transaction.AssignHashes(parsed.Records)

	unique := make(map[string]struct{}, len(parsed.Records))
	for _, h := range transaction.Hashes(parsed.Records) {
		unique[h] = struct{}{}
	}

	summary.Bank = parser.Bank()
	summary.Rows = parsed.RowsProcessed()
	summary.Parsed = len(parsed.Records)
	summary.UniqueHashes = len(unique)

	for _, s := range parsed.Skipped {
		summary.Skipped = append(summary.Skipped, s.Error())
	}

	return summary
}

func readTable(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	t, err := table.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	return t, nil
}
