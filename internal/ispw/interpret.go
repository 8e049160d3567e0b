package ispw

import (
	"strings"

	"go.uber.org/zap"

	"github.com/mainframe-ci/ispw-generate/pkg/types"
)

const (
	msgNoResponse       = "No response was received from the generate request."
	msgDidNotComplete   = "The generate did not complete successfully."
	msgGenerateFailures = "There were generate failures."
)

// Interpret classifies the parsed CES response. On success it returns the
// response unchanged; every other outcome is a generate_failure error. Status
// text from CES is surfaced on the logger: informational on success or when
// only a top-level message is present, error-level when tasks failed.
func Interpret(log *zap.SugaredLogger, resp *types.GenerateResponse) (*types.GenerateResponse, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	if resp == nil {
		return nil, newError(ErrKindGenerateFailure, msgNoResponse, nil)
	}

	if resp.AwaitStatus == nil {
		if resp.Message != "" {
			log.Info(resp.Message)
		}
		return nil, newError(ErrKindGenerateFailure, msgDidNotComplete, nil)
	}

	statusText := FormatStatusMessage(resp.AwaitStatus.StatusMsg)

	if resp.AwaitStatus.GenerateFailedCount != 0 {
		log.Error(statusText)
		return nil, newError(ErrKindGenerateFailure, msgGenerateFailures, nil)
	}

	log.Info(statusText)
	return resp, nil
}

// FormatStatusMessage renders the awaitStatus.statusMsg value, which CES
// returns either as a single string or as an ordered list of strings. A list
// is concatenated with a newline after every entry, including the last. Any
// other shape yields the empty string.
func FormatStatusMessage(statusMsg interface{}) string {
	switch v := statusMsg.(type) {
	case string:
		return v
	case []string:
		var sb strings.Builder
		for _, line := range v {
			sb.WriteString(line)
			sb.WriteString("\n")
		}
		return sb.String()
	case []interface{}:
		var sb strings.Builder
		for _, entry := range v {
			line, ok := entry.(string)
			if !ok {
				return ""
			}
			sb.WriteString(line)
			sb.WriteString("\n")
		}
		return sb.String()
	default:
		return ""
	}
}
