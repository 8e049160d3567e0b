package api

import (
	"time"

	"github.com/mainframe-ci/ispw-generate/internal/storage"
	"github.com/mainframe-ci/ispw-generate/pkg/types"
)

func recordToRun(record *storage.RunRecord) types.Run {
	run := types.Run{
		ID:            record.ID,
		Status:        record.Status,
		CesURL:        record.CesURL,
		Srid:          record.Srid,
		ContainerID:   record.ContainerID,
		ReleaseID:     record.ReleaseID,
		TaskLevel:     record.TaskLevel,
		TaskIDs:       record.TaskIDs,
		RuntimeConfig: record.RuntimeConfig,
		ChangeType:    record.ChangeType,
		ExecStat:      record.ExecStat,
		AutoDeploy:    record.AutoDeploy,
		CreatedAt:     record.CreatedAt.Format(time.RFC3339),
	}

	if record.ResponsePayload != nil {
		run.Response = record.ResponsePayload
	}
	if record.Error != nil {
		run.Error = record.Error
	}
	if record.DispatchedAt != nil {
		dispatchedAt := record.DispatchedAt.Format(time.RFC3339)
		run.DispatchedAt = &dispatchedAt
	}
	if record.CompletedAt != nil {
		completedAt := record.CompletedAt.Format(time.RFC3339)
		run.CompletedAt = &completedAt
	}

	return run
}
