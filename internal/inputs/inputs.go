// Package inputs turns raw named string inputs into validated generate
// parameters. Inputs arrive as strings from the host layer (CI action
// environment or API payload); all emptiness and shape checks happen here.
package inputs

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mainframe-ci/ispw-generate/pkg/types"
)

// Input names as the host layer supplies them.
const (
	FieldCesURL          = "cesUrl"
	FieldCesToken        = "cesToken"
	FieldSrid            = "srid"
	FieldContainerID     = "containerId"
	FieldReleaseID       = "releaseId"
	FieldTaskLevel       = "taskLevel"
	FieldTaskIDs         = "taskIds"
	FieldBuildParams     = "buildParams"
	FieldRuntimeConfig   = "runtimeConfig"
	FieldChangeType      = "changeType"
	FieldExecutionStatus = "executionStatus"
	FieldAutoDeploy      = "autoDeploy"
)

// RequiredBuildFields are the BuildParams fields a run must carry.
var RequiredBuildFields = []string{FieldContainerID, FieldReleaseID, FieldTaskLevel, FieldTaskIDs}

// fieldLabels maps field names to the user-facing wording of diagnostics.
var fieldLabels = map[string]string{
	FieldContainerID: "an assignment ID",
	FieldReleaseID:   "a release ID",
	FieldTaskLevel:   "a level",
	FieldTaskIDs:     "a list of task IDs",
}

// Provider supplies named string inputs. Undefined names yield "".
type Provider interface {
	Get(name string) string
}

// EnvProvider reads inputs from the environment using the CI action
// convention: cesUrl becomes INPUT_CES_URL.
type EnvProvider struct{}

func (EnvProvider) Get(name string) string {
	return os.Getenv("INPUT_" + camelToScreamingSnake(name))
}

func camelToScreamingSnake(name string) string {
	var sb strings.Builder
	for i, r := range name {
		if i > 0 && r >= 'A' && r <= 'Z' {
			sb.WriteByte('_')
		}
		sb.WriteRune(r)
	}
	return strings.ToUpper(sb.String())
}

// Retrieve returns a name-to-value mapping for the given input names. No
// validation happens here; missing inputs map to "".
func Retrieve(p Provider, names []string) map[string]string {
	values := make(map[string]string, len(names))
	for _, name := range names {
		values[name] = p.Get(name)
	}
	return values
}

// ParseJSON parses text as JSON. Empty text is not an error: it reports
// absence through the second return value.
func ParseJSON(text string) (interface{}, bool, error) {
	if text == "" {
		return nil, false, nil
	}
	var v interface{}
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, false, fmt.Errorf("invalid JSON input: %w", err)
	}
	return v, true, nil
}

// ConvertToJSON renders v as JSON text; nil serializes to the empty string.
func ConvertToJSON(v interface{}) (string, error) {
	if v == nil {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to serialize value: %w", err)
	}
	return string(data), nil
}

// Validate checks that params is present and that every field in required is
// populated. It reports ALL missing fields in one pass, one diagnostic per
// field, rather than stopping at the first.
func Validate(params *types.BuildParams, required []string) ([]string, bool) {
	var diags []string
	for _, field := range required {
		if params == nil || !fieldPopulated(params, field) {
			diags = append(diags, fmt.Sprintf("You must specify %s.", fieldLabels[field]))
		}
	}
	return diags, len(diags) == 0
}

func fieldPopulated(params *types.BuildParams, field string) bool {
	switch field {
	case FieldContainerID:
		return params.ContainerID != ""
	case FieldReleaseID:
		return params.ReleaseID != ""
	case FieldTaskLevel:
		return params.TaskLevel != ""
	case FieldTaskIDs:
		return len(params.TaskIDs) > 0
	default:
		return false
	}
}

// BuildParamsFrom assembles BuildParams from provider inputs. A buildParams
// JSON blob (as emitted by an upstream pipeline step) takes precedence;
// otherwise the individual fields are used with taskIds split on commas.
func BuildParamsFrom(p Provider) (*types.BuildParams, error) {
	if blob := p.Get(FieldBuildParams); blob != "" {
		var params types.BuildParams
		if err := json.Unmarshal([]byte(blob), &params); err != nil {
			return nil, fmt.Errorf("invalid %s JSON: %w", FieldBuildParams, err)
		}
		return &params, nil
	}

	return &types.BuildParams{
		ContainerID: p.Get(FieldContainerID),
		ReleaseID:   p.Get(FieldReleaseID),
		TaskLevel:   p.Get(FieldTaskLevel),
		TaskIDs:     SplitTaskIDs(p.Get(FieldTaskIDs)),
	}, nil
}

// SplitTaskIDs splits a comma-delimited task ID list, trimming whitespace and
// dropping empty entries.
func SplitTaskIDs(raw string) []string {
	if raw == "" {
		return nil
	}
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
