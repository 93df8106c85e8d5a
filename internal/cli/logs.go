package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"qalog/internal/domain"
	"qalog/internal/usecase"
)

var (
	logsIDs  bool
	logsJSON bool
)

var logsCmd = &cobra.Command{
	Use:   "logs [logid]",
	Short: "Show logged questions and answers",
	Long: `Show every logged exchange, the exchanges for one log id, or the distinct
log ids.

Examples:
  qalog logs
  qalog logs s1 --json
  qalog logs --ids`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogs,
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.Flags().BoolVar(&logsIDs, "ids", false, "list distinct log ids only")
	logsCmd.Flags().BoolVar(&logsJSON, "json", false, "output as JSON")
}

func runLogs(cmd *cobra.Command, args []string) error {
	st, err := openLogStore(GetConfig(), GetRootDir())
	if err != nil {
		return err
	}
	defer st.Close()

	logs := usecase.NewLogUseCase(st)
	ctx := cmd.Context()

	if logsIDs {
		ids, err := logs.ListIDs(ctx)
		if errors.Is(err, domain.ErrNotFound) {
			fmt.Println("There are no logs.")
			return nil
		}
		if err != nil {
			return err
		}
		if logsJSON {
			return printJSON(ids)
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	}

	var recs []domain.LogRecord
	if len(args) == 1 {
		recs, err = logs.ListByID(ctx, args[0])
	} else {
		recs, err = logs.List(ctx)
	}
	if err != nil {
		return err
	}

	if logsJSON {
		return printJSON(recs)
	}
	if len(recs) == 0 {
		fmt.Println("There are no logs.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLOGID\tDATE\tQUESTION\tANSWER")
	for _, r := range recs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", r.ID, r.LogID, r.Date.Format("2006-01-02 15:04:05"), clip(r.Question, 40), clip(r.Answer, 60))
	}
	return w.Flush()
}

func printJSON(v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(output))
	return nil
}

// clip shortens s to n characters for table output.
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}
