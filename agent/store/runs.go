package store

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	contractx "github.com/tanpawarit/ai-suite-runtime/agent/contract"
)

const upsertCheckpointSQL = `
INSERT INTO agent_state (run_id, checkpoint_id, node_name, state_data, saved_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (run_id) DO UPDATE SET
	checkpoint_id = excluded.checkpoint_id,
	node_name = excluded.node_name,
	state_data = excluded.state_data,
	saved_at = excluded.saved_at
WHERE agent_state.checkpoint_id <= excluded.checkpoint_id`

func (s *Store) CreateRun(ctx context.Context, run contractx.Run) error {
	now := s.now()
	input := run.Input
	if input == nil {
		input = map[string]any{}
	}
	row := runModel{
		ID:           run.ID,
		TenantID:     run.TenantID,
		AgentID:      string(run.AgentID),
		Status:       string(contractx.RunRunning),
		InputPayload: input,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&row).Exec(ctx)
		return err
	})
	if err != nil {
		return persistenceErr("create run", err)
	}
	return nil
}

func (s *Store) MarkCompleted(ctx context.Context, runID string) error {
	return s.finishRun(ctx, runID, contractx.RunCompleted, "")
}

func (s *Store) MarkFailed(ctx context.Context, runID string, cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	return s.finishRun(ctx, runID, contractx.RunFailed, msg)
}

// finishRun only transitions runs that are still running, so the terminal
// status is written once.
func (s *Store) finishRun(ctx context.Context, runID string, status contractx.RunStatus, msg string) error {
	res, err := s.db.NewUpdate().
		Model((*runModel)(nil)).
		Set("status = ?", string(status)).
		Set("error = ?", msg).
		Set("updated_at = ?", s.now()).
		Where("id = ?", runID).
		Where("status = ?", string(contractx.RunRunning)).
		Exec(ctx)
	if err != nil {
		return persistenceErr("mark run "+string(status), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return persistenceErr("mark run "+string(status), err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", contractx.ErrRunNotRunning, runID)
	}
	return nil
}

// SaveCheckpoint upserts the latest checkpoint of a run. A lower sequence
// than the stored one is rejected.
func (s *Store) SaveCheckpoint(ctx context.Context, cp contractx.Checkpoint) error {
	savedAt := cp.SavedAt
	if savedAt.IsZero() {
		savedAt = s.now()
	}
	state := string(cp.State)
	if state == "" {
		state = "{}"
	}

	res, err := s.db.ExecContext(ctx, upsertCheckpointSQL, cp.RunID, cp.Sequence, cp.NodeName, state, savedAt)
	if err != nil {
		return persistenceErr("save checkpoint", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return persistenceErr("save checkpoint", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: run %s, sequence %d", contractx.ErrCheckpointRegression, cp.RunID, cp.Sequence)
	}
	return nil
}

func (s *Store) GetRun(ctx context.Context, runID string) (*contractx.Run, error) {
	var row runModel
	if err := s.db.NewSelect().Model(&row).Where("id = ?", runID).Limit(1).Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, persistenceErr("get run", err)
	}
	return &contractx.Run{
		ID:        row.ID,
		TenantID:  row.TenantID,
		AgentID:   contractx.AgentID(row.AgentID),
		Status:    contractx.RunStatus(row.Status),
		Input:     row.InputPayload,
		Error:     row.Error,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

func (s *Store) GetCheckpoint(ctx context.Context, runID string) (*contractx.Checkpoint, error) {
	var row checkpointModel
	if err := s.db.NewSelect().Model(&row).Where("run_id = ?", runID).Limit(1).Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, persistenceErr("get checkpoint", err)
	}
	return &contractx.Checkpoint{
		RunID:    row.RunID,
		Sequence: row.CheckpointID,
		NodeName: row.NodeName,
		State:    []byte(row.StateData),
		SavedAt:  row.SavedAt,
	}, nil
}
