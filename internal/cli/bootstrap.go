package cli

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"qalog/config"
	"qalog/internal/adapter/cache"
	"qalog/internal/adapter/chunker"
	"qalog/internal/adapter/embedding"
	"qalog/internal/adapter/fs"
	"qalog/internal/adapter/llm"
	"qalog/internal/adapter/memstore"
	"qalog/internal/adapter/store"
	"qalog/internal/logger"
	"qalog/internal/port"
	"qalog/internal/usecase"
)

func newEmbedder(cfg *config.Config) (port.Embedder, error) {
	ec := cfg.Embedding
	opts := []embedding.Option{
		embedding.WithDimension(ec.Dimension),
		embedding.WithBatchSize(ec.BatchSize),
		embedding.WithRateLimit(ec.RequestsPerSecond),
		embedding.WithTimeout(time.Duration(ec.TimeoutSecs) * time.Second),
	}

	switch ec.Provider {
	case "openai":
		e, err := embedding.NewOpenAIEmbedder(ec.APIKeyEnv, ec.Model, ec.BaseURL, opts...)
		if err != nil {
			return nil, err
		}
		return e, nil
	case "ollama":
		return embedding.NewOllamaEmbedder(ec.Model, ec.BaseURL, opts...), nil
	case "mock":
		return embedding.NewMockEmbedder(ec.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", ec.Provider)
	}
}

func newLLM(cfg *config.Config) (port.LLM, error) {
	lc := cfg.LLM
	clientCfg := llm.Config{
		BaseURL:     lc.BaseURL,
		Model:       lc.Model,
		MaxTokens:   lc.MaxTokens,
		Temperature: lc.Temperature,
		Timeout:     time.Duration(lc.TimeoutSecs) * time.Second,
	}

	switch lc.Provider {
	case "openai", "ollama":
		keyEnv := lc.APIKeyEnv
		if lc.Provider == "ollama" {
			keyEnv = ""
			if clientCfg.BaseURL == "" {
				clientCfg.BaseURL = "http://localhost:11434/v1"
			}
		}
		c, err := llm.NewOpenAIClient(keyEnv, clientCfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "mock":
		return &llm.MockLLM{}, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", lc.Provider)
	}
}

// buildIndex walks the configured document directory and builds the vector
// index, drawing a progress bar when showProgress is set.
func buildIndex(ctx context.Context, cfg *config.Config, dir string, showProgress bool) (*memstore.Index, *usecase.IndexResult, error) {
	docsDir := cfg.DocumentsDir(dir)
	info, err := os.Stat(docsDir)
	if err != nil {
		return nil, nil, fmt.Errorf("document directory does not exist: %w", err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("document path is not a directory: %s", docsDir)
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	chk, err := chunker.New(cfg.Index.ChunkSize, cfg.Index.ChunkOverlap)
	if err != nil {
		return nil, nil, err
	}

	indexUC := usecase.NewIndexUseCase(
		fs.NewWalker(cfg.Documents.Includes, cfg.Documents.Excludes),
		fs.NewTextLoader(),
		chk,
		embedder,
		cfg.Index.BatchSize,
	)

	var progress func(done, total int)
	if showProgress {
		progress = newProgress("Embedding")
	}

	logger.Info("building index", "dir", docsDir, "model", embedder.ModelName(), "chunk_size", chk.Size(), "chunk_overlap", chk.Overlap())
	idx, result, err := indexUC.Build(ctx, docsDir, progress)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("index ready", "files", result.FilesIndexed, "chunks", result.ChunksCreated)
	return idx, result, nil
}

func newRetrieveUseCase(cfg *config.Config, idx *memstore.Index) *usecase.RetrieveUseCase {
	var r port.Retriever = idx
	if cfg.Retrieve.CacheSize > 0 {
		qc := cache.NewQueryCache(cfg.Retrieve.CacheSize, time.Duration(cfg.Retrieve.CacheTTLSecs)*time.Second)
		r = cache.NewCachedRetriever(idx, qc)
	}
	return usecase.NewRetrieveUseCase(r, cfg.Retrieve.TopK, cfg.Retrieve.MinScore)
}

func openLogStore(cfg *config.Config, dir string) (port.LogStore, error) {
	path := cfg.LogStorePath(dir)
	if cfg.LogStore.Path == "" {
		if err := config.EnsureDataDir(dir); err != nil {
			return nil, fmt.Errorf("failed to create .qalog directory: %w", err)
		}
	}
	s, err := store.Open(cfg.LogStore.Driver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log store: %w", err)
	}
	logger.Debug("log store opened", "driver", cfg.LogStore.Driver, "path", path)
	return s, nil
}

// newProgress returns a progress callback drawing a bar with an ETA. The bar
// is created on the first report, once the total is known.
func newProgress(label string) func(done, total int) {
	var (
		bar       *progressbar.ProgressBar
		mu        sync.Mutex
		startTime time.Time
	)

	return func(done, total int) {
		mu.Lock()
		defer mu.Unlock()

		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]"+label+"[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}

		bar.Set(done)

		if done > 0 {
			elapsed := time.Since(startTime)
			rate := float64(done) / elapsed.Seconds()
			if rate > 0 {
				eta := time.Duration(float64(total-done)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]%s[reset] ETA: %s", label, formatDuration(eta)))
			}
		}
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
