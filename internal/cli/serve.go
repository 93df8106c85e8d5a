package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"qalog/internal/adapter/httpapi"
	"qalog/internal/usecase"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Build the index and serve the HTTP API",
	Long: `Build the vector index from the document directory, open the log store
and serve the question and log endpoints until interrupted.

Examples:
  qalog serve
  qalog serve --addr :9000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	dir := GetRootDir()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	synthLLM, err := newLLM(cfg)
	if err != nil {
		return fmt.Errorf("failed to create llm client: %w", err)
	}

	idx, _, err := buildIndex(ctx, cfg, dir, false)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	logs, err := openLogStore(cfg, dir)
	if err != nil {
		return err
	}
	defer logs.Close()

	answers := usecase.NewAnswerUseCase(newRetrieveUseCase(cfg, idx), usecase.NewSynthesizer(synthLLM), logs)

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	srv := httpapi.NewServer(answers, usecase.NewLogUseCase(logs), idx, httpapi.Options{
		Addr:           addr,
		RequestTimeout: time.Duration(cfg.Server.RequestTimeoutSecs) * time.Second,
		CORSOrigins:    cfg.Server.CORSOrigins,
		CORSMethods:    cfg.Server.CORSMethods,
	})
	return srv.Start(ctx)
}
