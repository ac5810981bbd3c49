package cli

import (
	"encoding/json"
	"fmt"

	"textbook-qa-be/internal/dto"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [book-id]",
	Short: "Chunk, embed and store a registered book",
	Long: `Runs ingestion in the foreground. Re-running is safe: chunks that
already exist are skipped and counted as existing.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

var (
	ingestPath string
	ingestSkip int
	ingestJSON bool
)

func init() {
	ingestCmd.Flags().StringVar(&ingestPath, "path", "", "storage path override")
	ingestCmd.Flags().IntVar(&ingestSkip, "skip-first-pages", -1, "force-skip the first N pages (disables index detection)")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output the report as JSON")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	d, err := requireDeps()
	if err != nil {
		return err
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid book id: %w", err)
	}

	req := &dto.IngestBookRequest{BookId: id, StoragePath: ingestPath}
	if cmd.Flags().Changed("skip-first-pages") && ingestSkip >= 0 {
		skip := ingestSkip
		req.SkipFirstPages = &skip
	}

	report, err := d.Books.Ingest(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	if ingestJSON {
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		cmd.Println(string(out))
		return nil
	}
	printReport(cmd, report)
	return nil
}

func printReport(cmd *cobra.Command, r *dto.IngestBookResponse) {
	cmd.Printf("Book %s: %s\n", r.BookId, r.Status)
	cmd.Printf("  Strategy: %s, pages %d, chunks %d\n", r.Strategy, r.TotalPages, r.TotalChunks)
	cmd.Printf("  Inserted %d, existing %d, failed %d\n", r.Inserted, r.Existing, r.Failed)
	for _, e := range r.Errors {
		cmd.Printf("  Error: %s\n", e)
	}
}
