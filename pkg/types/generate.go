package types

// BuildParams describes the ISPW work item a generate run targets. All four
// fields are required. ReleaseID is validated but never appears in the request
// URL or body; the CES contract still expects callers to supply it.
type BuildParams struct {
	ContainerID string   `json:"containerId"`
	ReleaseID   string   `json:"releaseId"`
	TaskLevel   string   `json:"taskLevel"`
	TaskIDs     []string `json:"taskIds"`
}

// GenerateBody is the optional JSON payload of a generate-await request.
// Optional keys are omitted entirely when the corresponding input is empty;
// autoDeploy is always serialized.
type GenerateBody struct {
	RuntimeConfig string `json:"runtimeConfig,omitempty"`
	ChangeType    string `json:"changeType,omitempty"`
	ExecStat      string `json:"execStat,omitempty"`
	AutoDeploy    bool   `json:"autoDeploy"`
}

// AwaitStatus is the completion summary CES returns once the generate has
// finished. StatusMsg is either a single string or an array of strings.
type AwaitStatus struct {
	GenerateFailedCount int         `json:"generateFailedCount"`
	StatusMsg           interface{} `json:"statusMsg,omitempty"`
}

// GenerateResponse is the parsed CES response. Message is only populated (and
// only consulted) when AwaitStatus is absent.
type GenerateResponse struct {
	AwaitStatus *AwaitStatus `json:"awaitStatus,omitempty"`
	Message     string       `json:"message,omitempty"`
}
