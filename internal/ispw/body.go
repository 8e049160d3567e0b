package ispw

import (
	"encoding/json"

	"github.com/mainframe-ci/ispw-generate/pkg/types"
)

// AssembleRequestBody builds the generate request payload from raw string
// inputs. Empty inputs are left out of the object entirely; autoDeploy is
// always present and only the exact literal "true" enables it.
func AssembleRequestBody(runtimeConfig, changeType, executionStatus, autoDeploy string) *types.GenerateBody {
	return &types.GenerateBody{
		RuntimeConfig: runtimeConfig,
		ChangeType:    changeType,
		ExecStat:      executionStatus,
		AutoDeploy:    ParseAutoDeploy(autoDeploy),
	}
}

// ParseAutoDeploy is the strict string-to-bool mapping for the autoDeploy
// input: "true" (case-sensitive) is true, anything else is false.
func ParseAutoDeploy(raw string) bool {
	return raw == "true"
}

// SerializeBody renders the body as JSON text. A nil body serializes to the
// empty string, which dispatches as an empty payload.
func SerializeBody(body *types.GenerateBody) (string, error) {
	if body == nil {
		return "", nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "", newError(ErrKindParse, "failed to serialize request body", err)
	}
	return string(data), nil
}
