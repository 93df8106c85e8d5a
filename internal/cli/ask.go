package cli

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"qalog/internal/usecase"
)

var (
	askQuestion string
	askLogID    string
	askJSON     bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer one question and log it",
	Long: `Build the index, answer the question from the retrieved passages and
append the exchange to the log store under the given log id.

Examples:
  qalog ask --logid s1 -q "What is X?"
  qalog ask --logid s1 -q "What is X?" --json`,
	Args: cobra.NoArgs,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askQuestion, "question", "q", "", "question to answer (required)")
	askCmd.Flags().StringVarP(&askLogID, "logid", "l", "cli", "log id to record the exchange under")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the stored record as JSON")
	askCmd.MarkFlagRequired("question")
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	dir := GetRootDir()
	ctx := cmd.Context()

	synthLLM, err := newLLM(cfg)
	if err != nil {
		return fmt.Errorf("failed to create llm client: %w", err)
	}

	idx, _, err := buildIndex(ctx, cfg, dir, !askJSON)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	logs, err := openLogStore(cfg, dir)
	if err != nil {
		return err
	}
	defer logs.Close()

	answers := usecase.NewAnswerUseCase(newRetrieveUseCase(cfg, idx), usecase.NewSynthesizer(synthLLM), logs)
	rec, err := answers.Ask(ctx, askLogID, askQuestion)
	if err != nil {
		return err
	}

	if askJSON {
		output, _ := json.MarshalIndent(rec, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	label := color.New(color.FgCyan, color.Bold)
	label.Print("Q: ")
	fmt.Println(rec.Question)
	label.Print("A: ")
	fmt.Println(rec.Answer)
	color.New(color.Faint).Printf("\nlogged as %s #%d at %s\n", rec.LogID, rec.ID, rec.Date.Format("2006-01-02 15:04:05Z07:00"))
	return nil
}
