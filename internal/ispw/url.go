package ispw

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/mainframe-ci/ispw-generate/pkg/types"
)

// AssembleRequestURL builds the generate-await endpoint from the operator
// supplied CES base URL, the SRID and the build parameters.
//
// Operators routinely paste base URLs decorated with environment specific
// trailing segments, so any last "/compuware" and "/ispw" fragment is cut off
// (case-insensitively) before composition. The query string is assembled by
// hand: task IDs keep their input order and the trailing "&" after the last
// taskId is part of the wire contract CES currently accepts.
func AssembleRequestURL(cesURL, srid string, params *types.BuildParams) (*url.URL, error) {
	base := trimAtLast(cesURL, "/compuware")
	base = trimAtLast(base, "/ispw")
	base = strings.TrimSuffix(base, "/")

	var sb strings.Builder
	sb.WriteString(base)
	fmt.Fprintf(&sb, "/ispw/%s/assignments/%s/taskIds/generate-await?", srid, params.ContainerID)
	for _, id := range params.TaskIDs {
		sb.WriteString("taskId=")
		sb.WriteString(id)
		sb.WriteString("&")
	}
	sb.WriteString("level=")
	sb.WriteString(params.TaskLevel)

	u, err := url.Parse(sb.String())
	if err != nil {
		return nil, newError(ErrKindMalformedURL, fmt.Sprintf("invalid request URL %q", sb.String()), err)
	}
	return u, nil
}

// trimAtLast truncates s at the last case-insensitive occurrence of seg,
// provided it is not at the start of the string.
func trimAtLast(s, seg string) string {
	idx := strings.LastIndex(strings.ToLower(s), seg)
	if idx > 0 {
		return s[:idx]
	}
	return s
}
