// Package runtime runs one agent workflow per trigger payload. It owns run
// bookkeeping, checkpoints, the run deadline and post-run external actions.
package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/ai-suite-runtime/agent/contract"
	graphx "github.com/tanpawarit/ai-suite-runtime/agent/graph"
	"github.com/tanpawarit/ai-suite-runtime/agent/idempotency"
	"github.com/tanpawarit/ai-suite-runtime/pkg/telemetry"
)

const markFailedTimeout = 10 * time.Second

type Runner struct {
	registry *Registry
	tracker  contractx.RunTracker
	executor contractx.ActionExecutor
	guard    idempotency.Guard
	cfg      Config

	newID func() string
	now   func() time.Time
}

type RunnerOption func(*Runner)

// WithGuard deduplicates post-run actions across runs of the same trigger.
func WithGuard(g idempotency.Guard) RunnerOption {
	return func(r *Runner) {
		r.guard = g
	}
}

func WithRunIDs(newID func() string) RunnerOption {
	return func(r *Runner) {
		if newID != nil {
			r.newID = newID
		}
	}
}

// Result is the outcome of one completed run.
type Result struct {
	RunID    string            `json:"run_id"`
	AgentID  contractx.AgentID `json:"agent_id"`
	TenantID string            `json:"tenant_id"`
	Action   contractx.Action  `json:"action"`
	PostRun  PostRunOutcome    `json:"post_run"`
	State    FinalState        `json:"state"`
}

func NewRunner(registry *Registry, tracker contractx.RunTracker, executor contractx.ActionExecutor, cfg Config, opts ...RunnerOption) (*Runner, error) {
	if registry == nil {
		return nil, errors.New("agent registry is required")
	}
	if tracker == nil {
		return nil, errors.New("run tracker is required")
	}
	if executor == nil {
		return nil, errors.New("action executor is required")
	}

	r := &Runner{
		registry: registry,
		tracker:  tracker,
		executor: executor,
		guard:    idempotency.NewMemoryGuard(0),
		cfg:      cfg,
		newID:    uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// Run validates raw, executes the agent and performs its post-run action.
// When the workflow fails the run is marked failed and the workflow error is
// returned unchanged.
func (r *Runner) Run(ctx context.Context, agentID, tenantID string, raw map[string]any) (Result, error) {
	adapter, err := r.registry.Lookup(agentID)
	if err != nil {
		return Result{}, err
	}
	payload, err := adapter.ValidatePayload(raw)
	if err != nil {
		return Result{}, err
	}

	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		tenantID = r.cfg.DefaultTenantID
	}
	if tenantID == "" {
		return Result{}, fmt.Errorf("%w: tenant id is required", contractx.ErrInvalidPayload)
	}

	runID := r.newID()
	logger := zerolog.Ctx(ctx).With().
		Str("run_id", runID).
		Str("agent_id", string(adapter.ID())).
		Str("tenant_id", tenantID).
		Logger()
	ctx = logger.WithContext(ctx)

	started := r.now()
	result := Result{RunID: runID, AgentID: adapter.ID(), TenantID: tenantID, PostRun: OutcomeNone}

	if err := r.tracker.CreateRun(ctx, contractx.Run{
		ID:       runID,
		TenantID: tenantID,
		AgentID:  adapter.ID(),
		Input:    payload,
	}); err != nil {
		return result, err
	}
	logger.Info().Msg("run started")

	final, err := r.execute(ctx, adapter, tenantID, runID, payload)
	if err != nil {
		r.markFailed(ctx, runID, err)
		telemetry.RecordRun(ctx, string(adapter.ID()), tenantID, string(contractx.RunFailed), r.now().Sub(started))
		return result, err
	}

	result.State = final
	result.Action = final.TerminalAction()
	telemetry.RecordRun(ctx, string(adapter.ID()), tenantID, string(contractx.RunCompleted), r.now().Sub(started))
	logger.Info().Str("action", string(result.Action)).Msg("run completed")

	outcome, err := r.postRun(ctx, adapter, tenantID, payload, final)
	result.PostRun = outcome
	if err != nil {
		return result, err
	}
	return result, nil
}

func (r *Runner) execute(ctx context.Context, adapter Adapter, tenantID, runID string, payload Payload) (FinalState, error) {
	invoke, err := adapter.BuildRunArgs(tenantID, runID, payload)
	if err != nil {
		return nil, err
	}

	runCtx := ctx
	if r.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.cfg.RunTimeout)
		defer cancel()
	}

	cp := &checkpointObserver{tracker: r.tracker, runID: runID, everyNode: r.cfg.CheckpointEveryNode}
	final, err := invoke(runCtx, graphx.WithObserver(cp))
	if err != nil {
		return nil, err
	}
	if final == nil || !final.Terminal() {
		return nil, fmt.Errorf("workflow %s ended without a terminal action", adapter.ID())
	}

	if err := cp.saveTerminal(ctx, final); err != nil {
		return nil, err
	}
	if err := r.tracker.MarkCompleted(ctx, runID); err != nil {
		return nil, err
	}
	return final, nil
}

// markFailed uses a context detached from cancellation so a timed out run is
// still recorded.
func (r *Runner) markFailed(ctx context.Context, runID string, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), markFailedTimeout)
	defer cancel()

	logger := zerolog.Ctx(ctx)
	if err := r.tracker.MarkFailed(ctx, runID, cause); err != nil {
		logger.Error().Err(err).AnErr("cause", cause).Msg("failed to mark run failed")
		return
	}
	logger.Error().Err(cause).Msg("run failed")
}

// postRun claims the trigger on the guard so a replay does not repeat an
// external action. The claim is released when the action fails.
func (r *Runner) postRun(ctx context.Context, adapter Adapter, tenantID string, payload Payload, final FinalState) (PostRunOutcome, error) {
	action := final.TerminalAction()
	if action != contractx.ActionRespond && action != contractx.ActionArchive {
		return OutcomeNone, nil
	}

	logger := zerolog.Ctx(ctx)
	key := adapter.IdempotencyKey(tenantID, payload) + "/" + string(action)
	claimed, err := r.guard.Claim(ctx, key)
	if err != nil {
		telemetry.RecordPostRunAction(ctx, string(adapter.ID()), string(action), "error")
		return OutcomeNone, fmt.Errorf("%w: claim %s: %v", contractx.ErrPostRunAction, key, err)
	}
	if !claimed {
		logger.Warn().Str("key", key).Msg("post-run action already performed, skipping")
		telemetry.RecordPostRunAction(ctx, string(adapter.ID()), string(action), "deduplicated")
		return OutcomeNone, nil
	}

	outcome, err := adapter.HandlePostRun(ctx, tenantID, payload, final, r.executor)
	if err != nil {
		if relErr := r.guard.Release(ctx, key); relErr != nil {
			logger.Error().Err(relErr).Str("key", key).Msg("failed to release idempotency key")
		}
		telemetry.RecordPostRunAction(ctx, string(adapter.ID()), string(action), "error")
		return OutcomeNone, fmt.Errorf("%w: %s: %v", contractx.ErrPostRunAction, action, err)
	}
	telemetry.RecordPostRunAction(ctx, string(adapter.ID()), string(action), string(outcome))
	return outcome, nil
}

// checkpointObserver records node visits and, when enabled, a checkpoint per
// node. The terminal checkpoint always follows the last node.
type checkpointObserver struct {
	tracker   contractx.RunTracker
	runID     string
	everyNode bool
	lastSeq   int
}

func (o *checkpointObserver) OnStep(ctx context.Context, step graphx.Step) error {
	o.lastSeq = step.Index
	telemetry.RecordNodeVisit(ctx, step.Graph, step.Node)
	zerolog.Ctx(ctx).Debug().Str("node", step.Node).Str("next", step.Next).Int("step", step.Index).Msg("node finished")

	if !o.everyNode {
		return nil
	}
	return o.save(ctx, step.Index, step.Node, step.State)
}

func (o *checkpointObserver) saveTerminal(ctx context.Context, final FinalState) error {
	return o.save(ctx, o.lastSeq+1, contractx.TerminalNode, final)
}

func (o *checkpointObserver) save(ctx context.Context, seq int, node string, state any) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal checkpoint state: %w", err)
	}
	return o.tracker.SaveCheckpoint(ctx, contractx.Checkpoint{
		RunID:    o.runID,
		Sequence: seq,
		NodeName: node,
		State:    data,
	})
}
