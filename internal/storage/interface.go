package storage

import (
	"context"
	"time"

	"github.com/mainframe-ci/ispw-generate/pkg/types"
)

type Store interface {
	CreateRun(ctx context.Context, run *RunRecord) error
	GetRun(ctx context.Context, id string) (*RunRecord, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]*RunRecord, int, error)
	UpdateRunStatus(ctx context.Context, id string, status types.RunStatus, dispatchedAt time.Time) error
	// UpdateRunResponse records the CES payload and marks the run completed.
	UpdateRunResponse(ctx context.Context, id string, response map[string]interface{}) error
	// UpdateRunPayload records the CES payload without touching the run status.
	UpdateRunPayload(ctx context.Context, id string, response map[string]interface{}) error
	UpdateRunError(ctx context.Context, id string, errMsg string) error
	GetQueuedRuns(ctx context.Context) ([]*RunRecord, error)
	GetStats(ctx context.Context) (*types.RunStats, error)

	Close() error
}
