package storage

import (
	"time"

	"github.com/mainframe-ci/ispw-generate/pkg/types"
)

// RunRecord is one queued or finished generate-await run. CesURL, Srid and
// Token override the gateway defaults when set.
type RunRecord struct {
	ID              string
	Status          types.RunStatus
	CesURL          string
	Srid            string
	Token           *string
	ContainerID     string
	ReleaseID       string
	TaskLevel       string
	TaskIDs         []string
	RuntimeConfig   string
	ChangeType      string
	ExecStat        string
	AutoDeploy      bool
	ResponsePayload map[string]interface{}
	Error           *string
	CreatedAt       time.Time
	DispatchedAt    *time.Time
	CompletedAt     *time.Time
}

type RunFilter struct {
	Status *types.RunStatus
	Limit  int
	Cursor *time.Time // created_at cursor for pagination (get items before this time)
}
