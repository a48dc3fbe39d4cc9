package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"admissionsbot/internal/config"
	"admissionsbot/internal/domain"
	"admissionsbot/internal/embedding"
	embopenai "admissionsbot/internal/embedding/openai"
	"admissionsbot/internal/llm"
	llmopenai "admissionsbot/internal/llm/openai"
	"admissionsbot/internal/loader"
	"admissionsbot/internal/logging"
	"admissionsbot/internal/service"
	"admissionsbot/internal/vectorstore"
	"admissionsbot/internal/vectorstore/memory"
	"admissionsbot/internal/vectorstore/qdrant"
)

// app holds the assembled components for one command run.
type app struct {
	cfg     *config.AppConfig
	logger  *zap.Logger
	service *service.RAGService
	close   func()
}

func loadConfig(path string) (*config.AppConfig, error) {
	var cfg *config.AppConfig
	var err error
	if path == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newApp loads configuration and wires the embedder, store and chat model.
// quiet forces logs away from the terminal when it is owned by the TUI.
func newApp(opts *rootOptions, quiet bool) (*app, error) {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}

	logCfg := logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output}
	if quiet && (logCfg.Output == "stderr" || logCfg.Output == "stdout") {
		logCfg.Output = "discard"
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}

	var emb embedding.Embedder
	switch cfg.Embedder.Type {
	case "openai":
		o := cfg.Embedder.OpenAI
		emb = embopenai.NewClient(embopenai.Config{
			BaseURL:   o.BaseURL,
			APIKeyEnv: o.APIKeyEnv,
			Model:     o.Model,
			Timeout:   time.Duration(o.TimeoutSecs) * time.Second,
			RateLimit: o.RateLimit,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}

	closeFn := func() { _ = logger.Sync() }
	var st vectorstore.Storage
	switch cfg.VectorStore.Type {
	case "memory":
		st = memory.NewStorage()
	case "qdrant":
		q := cfg.VectorStore.Qdrant
		qs, err := qdrant.NewStorage(qdrant.Config{
			Host:       q.Host,
			Port:       q.Port,
			UseTLS:     q.UseTLS,
			APIKey:     os.Getenv(q.APIKeyEnv),
			Collection: cfg.Retrieval.Index,
			Timeout:    time.Duration(q.TimeoutSecs) * time.Second,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("qdrant init failed: %w", err)
		}
		st = qs
		closeFn = func() {
			_ = qs.Close()
			_ = logger.Sync()
		}
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.VectorStore.Type)
	}

	var completer llm.Completer = llmopenai.NewClient(llmopenai.Config{
		BaseURL:   cfg.Chat.BaseURL,
		Model:     cfg.Chat.Model,
		Timeout:   time.Duration(cfg.Chat.TimeoutSecs) * time.Second,
		RateLimit: cfg.Chat.RateLimit,
	}, logger)

	svc := service.NewRAGService(emb, st, completer, cfg.Retrieval.Namespaces, cfg.TopK(), logger)
	logger.Debug("components ready",
		zap.String("embedder", emb.Name()),
		zap.String("vector_store", cfg.VectorStore.Type),
		zap.String("index", cfg.Retrieval.Index),
		zap.Strings("namespaces", cfg.Retrieval.Namespaces),
	)
	return &app{cfg: cfg, logger: logger, service: svc, close: closeFn}, nil
}

// credential returns the chat key configured in the environment, if any.
func (a *app) credential() string {
	return os.Getenv(a.cfg.Chat.APIKeyEnv)
}

// preload ingests seed files before serving questions. It lets the memory
// store answer within a single process.
func (a *app) preload(ctx context.Context, programsPath, faqsPath string) error {
	if programsPath != "" {
		docs, err := loader.LoadProgramsFile(programsPath)
		if err != nil {
			return err
		}
		if _, err := a.service.IngestDocuments(ctx, config.ProgramNamespace, docs); err != nil {
			return fmt.Errorf("ingest programs: %w", err)
		}
	}
	if faqsPath != "" {
		docs, err := loader.LoadFAQsFile(faqsPath)
		if err != nil {
			return err
		}
		if _, err := a.service.IngestDocuments(ctx, config.FAQNamespace, docs); err != nil {
			return fmt.Errorf("ingest faqs: %w", err)
		}
	}
	return nil
}

var _ domain.Answerer = (*service.RAGService)(nil)
