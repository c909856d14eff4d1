package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"lessonforge/internal/config"
	"lessonforge/internal/lessons"
	"lessonforge/internal/llm"
	"lessonforge/internal/paths"
	"lessonforge/internal/store"
)

// app is the fully wired process: configuration, logger, datastore,
// provider registry, and services. Built once per command invocation.
type app struct {
	cfg      config.Config
	log      *zap.Logger
	db       *gorm.DB
	registry *llm.Registry
	usage    *store.UsageRepo
	service  *lessons.Service
	pathMgr  *paths.Manager
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := newLogger(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := store.Open(cfg.Store, log)
	if err != nil {
		return nil, err
	}
	usageRepo := store.NewUsageRepo(db)

	registry, err := llm.NewRegistry(ctx, providerConfig(cfg.LLM))
	if err != nil {
		return nil, err
	}
	registry.Decorate(func(p llm.Provider) llm.Provider {
		return llm.WithUsage(p, usageRepo, log)
	})

	svc, err := lessons.NewService(cfg, registry, usageRepo, log)
	if err != nil {
		return nil, err
	}

	gen := paths.NewGenerator(registry, store.NewOutlineRepo(db), cfg.Paths, log)
	mgr := paths.NewManager(store.NewPathRepo(db), gen, cfg.Paths, log)

	return &app{
		cfg:      cfg,
		log:      log,
		db:       db,
		registry: registry,
		usage:    usageRepo,
		service:  svc,
		pathMgr:  mgr,
	}, nil
}

func (a *app) close() {
	_ = a.log.Sync()
}

func newLogger(mode string) (*zap.Logger, error) {
	if mode == "prod" {
		return zap.NewProduction()
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// providerConfig maps environment configuration onto provider credentials.
func providerConfig(cfg config.LLMConfig) llm.Config {
	return llm.Config{
		Anthropic:  llm.AnthropicConfig{APIKey: cfg.AnthropicAPIKey},
		OpenAI:     llm.OpenAIConfig{APIKey: cfg.OpenAIAPIKey, BaseURL: cfg.OpenAIBaseURL},
		Gemini:     llm.GeminiConfig{APIKey: cfg.GeminiAPIKey},
		OpenRouter: llm.OpenRouterConfig{APIKey: cfg.OpenRouterAPIKey},
	}
}

// userContext attaches the --user flag to the context for routing into
// the usage ledger and the spend gate.
func userContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	user, _ := cmd.Flags().GetString("user")
	if user == "" {
		user = os.Getenv("USER")
	}
	return llm.WithUser(ctx, user)
}
