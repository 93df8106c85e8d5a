package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"qalog/internal/usecase"
)

var (
	queryText string
	queryTopK int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Show the passages a question retrieves",
	Long: `Search the vector index without calling the language model or writing a
log record. Useful for tuning chunking and top_k.

Examples:
  qalog query -q "What is X?"
  qalog query -q "What is X?" --top-k 10 --json`,
	Args: cobra.NoArgs,
	RunE: runQuery,
}

// queryResult is a simplified result for CLI output.
type queryResult struct {
	Path  string  `json:"path"`
	Start int     `json:"start"`
	End   int     `json:"end"`
	Score float64 `json:"score"`
	Text  string  `json:"text"`
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "search query (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.MarkFlagRequired("query")
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	idx, _, err := buildIndex(cmd.Context(), cfg, GetRootDir(), false)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	topK := cfg.Retrieve.TopK
	if queryTopK > 0 {
		topK = queryTopK
	}

	chunks, err := usecase.NewRetrieveUseCase(idx, topK, cfg.Retrieve.MinScore).Retrieve(cmd.Context(), queryText)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	results := make([]queryResult, 0, len(chunks))
	for _, c := range chunks {
		results = append(results, queryResult{
			Path:  c.Chunk.Path,
			Start: c.Chunk.Start,
			End:   c.Chunk.End,
			Score: c.Score,
			Text:  c.Chunk.Text,
		})
	}

	if queryJSON {
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	fmt.Printf("Found %d results for: %s\n\n", len(results), queryText)
	for i, r := range results {
		fmt.Printf("--- [%d] %s:%d-%d (score: %.2f) ---\n", i+1, r.Path, r.Start, r.End, r.Score)
		text := []rune(r.Text)
		if len(text) > 500 {
			text = append(text[:500], []rune("...")...)
		}
		fmt.Println(string(text))
		fmt.Println()
	}
	return nil
}
