// Package app is the composition root: it wires configuration, genkit, the
// account store, retrieval, the tool executor and the turn engine into one
// container the commands can share.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/onecard/assistant/db"
	"github.com/onecard/assistant/internal/answer"
	"github.com/onecard/assistant/internal/audit"
	"github.com/onecard/assistant/internal/config"
	"github.com/onecard/assistant/internal/log"
	"github.com/onecard/assistant/internal/orchestrator"
	"github.com/onecard/assistant/internal/retrieval"
	"github.com/onecard/assistant/internal/router"
	"github.com/onecard/assistant/internal/session"
	"github.com/onecard/assistant/internal/store"
	"github.com/onecard/assistant/internal/tools"
)

// Engine is the retrieval surface the container exposes: the in-process
// index or the PostgreSQL-backed one, chosen by configuration.
type Engine interface {
	BuildIndex(ctx context.Context, rebuild bool) error
	Search(ctx context.Context, query string, topK int) ([]retrieval.Passage, error)
	Len() int
}

// App is the application container.
type App struct {
	Config *config.Config
	Logger log.Logger
	Genkit *genkit.Genkit

	Store        *store.Memory
	Audit        audit.Logger
	Sessions     *session.MemoryStore
	Engine       Engine
	Executor     *tools.Executor
	Orchestrator *orchestrator.Orchestrator

	pool *pgxpool.Pool
}

// New builds the container from a validated config.
//
// With the mock provider everything runs offline: the deterministic embedder
// serves retrieval and classification stays heuristic-only. With the
// googleai provider the embedder and the model-backed classifier go through
// genkit.
func New(ctx context.Context, cfg *config.Config, logger log.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: logger}

	var err error
	a.Store, err = store.NewMemory()
	if err != nil {
		return nil, fmt.Errorf("load account store: %w", err)
	}

	a.Audit = audit.Logger(audit.Nop{})
	if cfg.AuditEnabled {
		a.Audit = audit.NewFileLogger(cfg.AuditPath, logger)
	}

	var (
		embedder   retrieval.Embedder
		classifier router.Classifier = router.Heuristic{}
		engineOpts []orchestrator.Option
	)
	switch cfg.Provider {
	case config.ProviderGoogleAI:
		a.Genkit = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		embedder = retrieval.NewGenkitEmbedder(
			googlegenai.GoogleAIEmbedder(a.Genkit, cfg.EmbedderModel), cfg.EmbedderModel)
		generateTimeout := time.Duration(cfg.GenerateTimeoutMS) * time.Millisecond
		model := router.NewModel(a.Genkit, cfg.ModelName, generateTimeout, logger)
		classifier = router.NewChain(router.Heuristic{}, model)
		if cfg.NaturalAnswers {
			engineOpts = append(engineOpts, orchestrator.WithRewriter(
				answer.NewRewriter(a.Genkit, cfg.ModelName, generateTimeout, logger)))
		}
	default:
		a.Genkit = genkit.Init(ctx)
		embedder = retrieval.MockEmbedder{}
	}

	engineCfg := retrieval.Config{
		CorpusPath: cfg.CorpusPath,
		IndexDir:   cfg.IndexDir,
		ChunkSize:  cfg.ChunkSize,
		MinScore:   cfg.MinScore,
		TopK:       cfg.TopK,
	}
	if cfg.DatabaseURL != "" {
		if err := db.Migrate(cfg.DatabaseURL, logger); err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		a.pool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		a.Engine = retrieval.NewPGEngine(retrieval.NewPGIndex(a.pool, embedder, logger), engineCfg)
	} else {
		a.Engine = retrieval.NewEngine(engineCfg, embedder, logger)
	}

	a.Executor = tools.NewExecutor(a.Store, cfg.OTPCode, logger)
	a.Sessions = session.NewMemoryStore()
	a.Orchestrator = orchestrator.New(classifier, a.Engine, a.Executor,
		a.Audit, logger, cfg.OTPCode, cfg.OTPMaxAttempts, engineOpts...)

	return a, nil
}

// RegisterTools exposes the operation registry to genkit flows for the given
// host-asserted user.
func (a *App) RegisterTools(userID string) {
	tools.RegisterTools(a.Genkit, a.Executor, userID)
}

// Close releases held resources.
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
		a.Logger.Info("database pool closed")
	}
}
