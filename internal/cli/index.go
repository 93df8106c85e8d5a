package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the vector index and report what was indexed",
	Long: `Walk the document directory, chunk and embed every matching file, and
report the result. The index lives in memory only, so this command checks the
corpus and provider settings without serving anything.

Examples:
  qalog index
  qalog index -d /path/to/project`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	fmt.Printf("Scanning %s...\n", cfg.DocumentsDir(GetRootDir()))

	idx, result, err := buildIndex(cmd.Context(), cfg, GetRootDir(), true)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	stats := idx.Stats()
	fmt.Printf("\nIndexing complete:\n")
	fmt.Printf("  Files indexed:  %d\n", result.FilesIndexed)
	fmt.Printf("  Files skipped:  %d (unreadable)\n", result.FilesSkipped)
	fmt.Printf("  Chunks created: %d\n", result.ChunksCreated)
	fmt.Printf("  Dimension:      %d\n", stats.Dimension)

	if len(result.Errors) > 0 {
		fmt.Printf("\nWarnings:\n")
		for _, e := range result.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}
	return nil
}
