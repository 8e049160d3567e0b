package types

type RunStatus string

const (
	StatusQueued     RunStatus = "queued"
	StatusProcessing RunStatus = "processing"
	StatusCompleted  RunStatus = "completed"
	StatusFailed     RunStatus = "failed"
)

// Run is the API view of a stored generate run.
type Run struct {
	ID            string                 `json:"id"`
	Status        RunStatus              `json:"status"`
	CesURL        string                 `json:"ces_url,omitempty"`
	Srid          string                 `json:"srid"`
	ContainerID   string                 `json:"container_id"`
	ReleaseID     string                 `json:"release_id"`
	TaskLevel     string                 `json:"task_level"`
	TaskIDs       []string               `json:"task_ids"`
	RuntimeConfig string                 `json:"runtime_config,omitempty"`
	ChangeType    string                 `json:"change_type,omitempty"`
	ExecStat      string                 `json:"exec_stat,omitempty"`
	AutoDeploy    bool                   `json:"auto_deploy"`
	Response      map[string]interface{} `json:"response,omitempty"`
	Error         *string                `json:"error,omitempty"`
	CreatedAt     string                 `json:"created_at"`
	DispatchedAt  *string                `json:"dispatched_at,omitempty"`
	CompletedAt   *string                `json:"completed_at,omitempty"`
}

type ListRunsResponse struct {
	Runs       []Run   `json:"runs"`
	Total      int     `json:"total"`
	Limit      int     `json:"limit"`
	NextCursor *string `json:"next_cursor,omitempty"`
}

type RunStats struct {
	TotalRuns  int `json:"total_runs"`
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}
