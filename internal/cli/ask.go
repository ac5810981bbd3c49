package cli

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"textbook-qa-be/internal/dto"
	"textbook-qa-be/internal/pkg/serverutils"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question against the ingested textbooks",
	Long: `Runs the same pipeline as POST /api/qa/v1/ask: cache, retrieval,
prompt composition, model fallback and source footers.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAsk,
}

var (
	askBranch string
	askExpand bool
	askBooks  []string
	askFile   string
	askQuick  bool
	askJSON   bool
)

func init() {
	askCmd.Flags().StringVarP(&askBranch, "branch", "b", "", "curriculum branch, e.g. scientific")
	askCmd.Flags().BoolVarP(&askExpand, "expand", "e", false, "allow general knowledge and web search")
	askCmd.Flags().StringSliceVar(&askBooks, "book", nil, "restrict retrieval to these book ids")
	askCmd.Flags().StringVarP(&askFile, "file", "f", "", "attach an image, PDF, DOCX or text file")
	askCmd.Flags().BoolVar(&askQuick, "quick", false, "short answer without retrieval")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the response as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	d, err := requireDeps()
	if err != nil {
		return err
	}
	question := ""
	if len(args) == 1 {
		question = args[0]
	}

	if askQuick {
		res, err := d.QA.Quick(cmd.Context(), &dto.QuickRequest{Question: question, Branch: askBranch})
		if err != nil {
			return err
		}
		return printAnswer(cmd, res, res.Answer)
	}

	req := &dto.AskRequest{Question: question, Branch: askBranch, ExpandSearchOnline: askExpand}
	for _, raw := range askBooks {
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("invalid --book %q: %w", raw, err)
		}
		req.BookIds = append(req.BookIds, id)
	}
	if askFile != "" {
		if err := attachFile(req, askFile); err != nil {
			return err
		}
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := d.QA.Ask(cmd.Context(), req)
	if err != nil {
		return err
	}
	if err := printAnswer(cmd, res, res.Answer); err != nil {
		return err
	}
	if !askJSON {
		cmd.Printf("\n[source: %s, lang: %s]\n", res.Source, res.Lang)
	}
	return nil
}

func attachFile(req *dto.AskRequest, file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(file)))
	if mimeType == "" {
		return errors.New("cannot tell the attachment type from its extension")
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	if strings.HasPrefix(mimeType, "image/") {
		req.ImageBase64 = encoded
		return nil
	}
	req.FileBase64 = encoded
	req.FileMimeType = mimeType
	return nil
}

func printAnswer(cmd *cobra.Command, res any, answer string) error {
	if askJSON {
		out, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal response: %w", err)
		}
		cmd.Println(string(out))
		return nil
	}
	cmd.Println(answer)
	return nil
}
