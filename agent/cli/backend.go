package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	resolutionagent "github.com/tanpawarit/ai-suite-runtime/agent/agents/resolution"
	triageagent "github.com/tanpawarit/ai-suite-runtime/agent/agents/triage"
	contractx "github.com/tanpawarit/ai-suite-runtime/agent/contract"
	"github.com/tanpawarit/ai-suite-runtime/agent/idempotency"
	"github.com/tanpawarit/ai-suite-runtime/agent/llm"
	promptx "github.com/tanpawarit/ai-suite-runtime/agent/prompt"
	"github.com/tanpawarit/ai-suite-runtime/agent/runtime"
	"github.com/tanpawarit/ai-suite-runtime/agent/store"
	"github.com/tanpawarit/ai-suite-runtime/agent/store/memstore"
	configx "github.com/tanpawarit/ai-suite-runtime/pkg/config"
	openrouterx "github.com/tanpawarit/ai-suite-runtime/pkg/openrouter"
	"github.com/tanpawarit/ai-suite-runtime/pkg/qstash"
)

const (
	storePostgres = "postgres"
	storeMemory   = "memory"
)

// backend is what a store must offer to serve a run.
type backend interface {
	contractx.Capabilities
	contractx.RunTracker
	contractx.OutboxReader
}

type runOptions struct {
	storeKind string
	useLLM    bool
}

// openStore connects to the database from DB_* settings. An embedder is
// attached when LLM_EMBEDDING_MODEL is configured.
func openStore(ctx context.Context) (*store.Store, error) {
	dbCfg, err := configx.New[store.Config]("DB")
	if err != nil {
		return nil, err
	}

	var opts []store.Option
	if llmCfg, err := configx.New[llm.Config]("LLM"); err == nil {
		if orCfg, ok := llmCfg.EmbeddingClientConfig(); ok {
			if client := openrouterx.NewClient(orCfg); client != nil {
				embedder, err := llm.NewEmbedder(client, orCfg.Model)
				if err != nil {
					return nil, err
				}
				opts = append(opts, store.WithEmbedder(embedder), store.WithVectorColumn(dbCfg.VectorDims > 0))
			}
		}
	}
	return store.Open(ctx, *dbCfg, opts...)
}

// openBackend returns the backend for kind and a close func.
func openBackend(ctx context.Context, kind string) (backend, func(), error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case storeMemory:
		return memstore.New(), func() {}, nil
	case "", storePostgres:
		st, err := openStore(ctx)
		if err != nil {
			return nil, nil, err
		}
		return st, func() { _ = st.Close() }, nil
	default:
		return nil, nil, usagef("unsupported store %q (want %s or %s)", kind, storePostgres, storeMemory)
	}
}

func loadModel(ctx context.Context, useLLM bool, agentID contractx.AgentID, prompts promptx.PromptSet) (contractx.LanguageModel, error) {
	if !useLLM {
		return llm.Heuristic{}, nil
	}
	cfg, err := configx.New[llm.Config]("LLM")
	if err != nil {
		return nil, err
	}
	return llm.NewFromConfig(ctx, *cfg, agentID, prompts)
}

// newExecutor publishes through QStash when an email destination is set and
// logs otherwise.
func newExecutor(cfg runtime.Config) (contractx.ActionExecutor, error) {
	if strings.TrimSpace(cfg.EmailDestination) == "" {
		return &runtime.LogActionExecutor{}, nil
	}
	qCfg, err := configx.New[qstash.Config]("QSTASH")
	if err != nil {
		return nil, err
	}
	client, err := qstash.NewClient(*qCfg)
	if err != nil {
		return nil, err
	}
	return runtime.NewQStashActionExecutor(client, cfg.EmailDestination, cfg.ArchiveDestination)
}

func newGuard() (idempotency.Guard, error) {
	if strings.TrimSpace(os.Getenv("UPSTASH_REDIS_URL")) == "" {
		return idempotency.NewMemoryGuard(0), nil
	}
	cfg, err := configx.New[idempotency.UpstashRedisConfig]("UPSTASH_REDIS")
	if err != nil {
		return nil, err
	}
	return idempotency.NewUpstashGuard(*cfg)
}

// buildRunner wires both agents onto one backend.
func buildRunner(ctx context.Context, be backend, opts runOptions) (*runtime.Runner, error) {
	cfg, err := configx.New[runtime.Config]("RUNTIME")
	if err != nil {
		return nil, err
	}

	prompts := promptx.LoadPromptSet()
	model, err := loadModel(ctx, opts.useLLM, contractx.AgentTriage, prompts)
	if err != nil {
		return nil, fmt.Errorf("load language model: %w", err)
	}
	triage, err := triageagent.New(be, model, prompts, triageagent.Config{TopK: cfg.KBTopK, MaxSteps: cfg.MaxSteps})
	if err != nil {
		return nil, err
	}
	resolution, err := resolutionagent.New(be)
	if err != nil {
		return nil, err
	}

	exec, err := newExecutor(*cfg)
	if err != nil {
		return nil, fmt.Errorf("action executor: %w", err)
	}
	guard, err := newGuard()
	if err != nil {
		return nil, fmt.Errorf("idempotency guard: %w", err)
	}

	zerolog.Ctx(ctx).Debug().
		Str("executor", fmt.Sprintf("%T", exec)).
		Str("guard", fmt.Sprintf("%T", guard)).
		Bool("use_llm", opts.useLLM).
		Msg("runner wired")

	registry := runtime.NewRegistry(
		runtime.NewTriageAdapter(triage),
		runtime.NewResolutionAdapter(resolution),
	)
	return runtime.NewRunner(registry, be, exec, *cfg, runtime.WithGuard(guard))
}
