package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"contentpilot/orchestrator"
	"contentpilot/storage"
	"contentpilot/types"
)

type errRunner struct {
	err   error
	calls int
}

func (r *errRunner) RunPipeline(_ context.Context, itemID, ownerID string) (*types.Job, error) {
	r.calls++
	if r.err != nil {
		return &types.Job{ContentItemID: itemID, OwnerID: ownerID, Stage: types.StageFailed}, r.err
	}
	return &types.Job{ID: "job-1", ContentItemID: itemID, OwnerID: ownerID, Stage: types.StageCompleted}, nil
}

func TestQueue_Handler(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		message   string
		runErr    error
		wantMark  bool
		wantErr   bool
		wantCalls int
	}{
		{name: "Success", message: `{"content_item_id":"item","owner_id":"owner"}`, wantMark: true, wantCalls: 1},
		{name: "Malformed", message: `{"content_item_id":`, wantMark: true},
		{name: "MissingItemID", message: `{"owner_id":"owner"}`, wantMark: true},
		{name: "JobInProgress", message: `{"content_item_id":"item"}`, runErr: storage.ErrJobInProgress, wantMark: true, wantCalls: 1},
		{
			name:      "FatalStage",
			message:   `{"content_item_id":"item"}`,
			runErr:    &orchestrator.StageError{Stage: types.StageWriting, Kind: orchestrator.KindFatal, Err: errors.New("writers down")},
			wantMark:  true,
			wantCalls: 1,
		},
		{name: "Infrastructure", message: `{"content_item_id":"item"}`, runErr: errors.New("database locked"), wantErr: true, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &errRunner{err: tt.runErr}
			q := NewQueue(runner, 1, zap.NewNop())

			mark, err := q.Handler().HandleMessage(ctx, []byte(tt.message))
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantMark, mark)
			assert.Equal(t, tt.wantCalls, runner.calls)
		})
	}
}

func TestQueue_ProcessHonoursCancellation(t *testing.T) {
	runner := &errRunner{}
	q := NewQueue(runner, 1, zap.NewNop())
	q.sem <- struct{}{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := q.Process(ctx, &types.GenerationRequest{ContentItemID: "item"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, runner.calls)
}
