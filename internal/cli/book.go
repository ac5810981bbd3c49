package cli

import (
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"textbook-qa-be/internal/dto"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var bookCmd = &cobra.Command{
	Use:   "book",
	Short: "Manage textbooks",
	Long:  `Register textbook files and inspect their processing status.`,
}

var bookAddCmd = &cobra.Command{
	Use:   "add [file]",
	Short: "Upload a book file and register it",
	Args:  cobra.ExactArgs(1),
	RunE:  runBookAdd,
}

var bookShowCmd = &cobra.Command{
	Use:   "show [book-id]",
	Short: "Show processing status of a book",
	Args:  cobra.ExactArgs(1),
	RunE:  runBookShow,
}

var bookListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered books, newest first",
	Args:  cobra.NoArgs,
	RunE:  runBookList,
}

var (
	bookStatus string
	bookName   string
	bookBranch string
	bookPath   string
	bookOwner  string
	bookIngest bool
	bookJSON   bool
)

func init() {
	bookAddCmd.Flags().StringVar(&bookName, "name", "", "display name (defaults to the file name)")
	bookAddCmd.Flags().StringVarP(&bookBranch, "branch", "b", "", "curriculum branch, e.g. scientific")
	bookAddCmd.Flags().StringVar(&bookPath, "path", "", "storage path (defaults to books/<uuid>/<file name>)")
	bookAddCmd.Flags().StringVar(&bookOwner, "owner", "", "owner user id")
	bookAddCmd.Flags().BoolVar(&bookIngest, "ingest", false, "ingest right after registering")
	_ = bookAddCmd.MarkFlagRequired("branch")
	bookShowCmd.Flags().BoolVar(&bookJSON, "json", false, "output as JSON")
	bookListCmd.Flags().StringVarP(&bookBranch, "branch", "b", "", "only books of this branch")
	bookListCmd.Flags().StringVar(&bookStatus, "status", "", "only books in this status")
	bookListCmd.Flags().StringVar(&bookOwner, "owner", "", "only books of this owner id")

	bookCmd.AddCommand(bookAddCmd)
	bookCmd.AddCommand(bookShowCmd)
	bookCmd.AddCommand(bookListCmd)
	rootCmd.AddCommand(bookCmd)
}

func runBookAdd(cmd *cobra.Command, args []string) error {
	d, err := requireDeps()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	file := args[0]
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}

	base := filepath.Base(file)
	name := strings.TrimSpace(bookName)
	if name == "" {
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	storagePath := strings.TrimSpace(bookPath)
	if storagePath == "" {
		storagePath = path.Join("books", uuid.NewString(), base)
	}

	owner := uuid.Nil
	if bookOwner != "" {
		if owner, err = uuid.Parse(bookOwner); err != nil {
			return fmt.Errorf("invalid --owner: %w", err)
		}
	}

	if err := d.Storage.Upload(ctx, storagePath, data, mime.TypeByExtension(filepath.Ext(base))); err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	book, err := d.Books.Create(ctx, owner, &dto.CreateBookRequest{Name: name, Branch: bookBranch, StoragePath: storagePath})
	if err != nil {
		return fmt.Errorf("register failed: %w", err)
	}
	cmd.Printf("Registered %s (%s) at %s\n", book.Name, book.Id, book.StoragePath)

	if !bookIngest {
		return nil
	}
	report, err := d.Books.Ingest(ctx, &dto.IngestBookRequest{BookId: book.Id})
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	printReport(cmd, report)
	return nil
}

func runBookShow(cmd *cobra.Command, args []string) error {
	d, err := requireDeps()
	if err != nil {
		return err
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid book id: %w", err)
	}

	book, err := d.Books.Show(cmd.Context(), id)
	if err != nil {
		return err
	}

	if bookJSON {
		out, err := json.MarshalIndent(book, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal book: %w", err)
		}
		cmd.Println(string(out))
		return nil
	}

	cmd.Printf("%s (%s)\n", book.Name, book.Id)
	cmd.Printf("  Branch: %s\n", book.Branch)
	cmd.Printf("  Status: %s\n", book.Status)
	cmd.Printf("  Chunks: %d/%d (pages %d)\n", book.ProcessedChunks, book.TotalChunks, book.TotalPages)
	for _, e := range book.Errors {
		cmd.Printf("  Error:  %s\n", e)
	}
	return nil
}

func runBookList(cmd *cobra.Command, args []string) error {
	d, err := requireDeps()
	if err != nil {
		return err
	}
	books, err := d.Books.List(cmd.Context(), &dto.ListBooksRequest{Branch: bookBranch, Status: bookStatus, Owner: bookOwner})
	if err != nil {
		return err
	}
	if len(books) == 0 {
		cmd.Println("No books found.")
		return nil
	}
	for _, b := range books {
		cmd.Printf("%s  %-10s  %-15s  %s\n", b.Id, b.Branch, b.Status, b.Name)
	}
	return nil
}
