package types

// QueueRunRequest is the POST /v1/runs payload. CesURL, Srid and Token fall
// back to the gateway's configured defaults when empty.
type QueueRunRequest struct {
	CesURL        string   `json:"ces_url,omitempty"`
	Srid          string   `json:"srid,omitempty"`
	Token         *string  `json:"token,omitempty"`
	ContainerID   string   `json:"container_id"`
	ReleaseID     string   `json:"release_id"`
	TaskLevel     string   `json:"task_level"`
	TaskIDs       []string `json:"task_ids"`
	RuntimeConfig string   `json:"runtime_config,omitempty"`
	ChangeType    string   `json:"change_type,omitempty"`
	ExecStat      string   `json:"exec_stat,omitempty"`
	AutoDeploy    bool     `json:"auto_deploy,omitempty"`
}

type QueueRunResponse struct {
	ID     string    `json:"id"`
	Status RunStatus `json:"status"`
}

type DispatchResponse struct {
	DispatchID  string `json:"dispatch_id"`
	QueuedCount int    `json:"queued_count"`
	Status      string `json:"status"`
}

type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}
