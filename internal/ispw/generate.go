package ispw

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/mainframe-ci/ispw-generate/internal/inputs"
	"github.com/mainframe-ci/ispw-generate/pkg/types"
)

// GenerateSpec is everything one generate-await invocation needs.
type GenerateSpec struct {
	CesURL string
	Srid   string
	Token  string
	Params *types.BuildParams
	Body   *types.GenerateBody
}

// Generate runs a complete generate-await invocation: validate the build
// parameters, assemble the endpoint and payload, dispatch the single POST and
// interpret the outcome. The raw response map is returned alongside the typed
// response so callers can persist exactly what CES sent.
func (c *Client) Generate(ctx context.Context, log *zap.SugaredLogger, spec GenerateSpec) (*types.GenerateResponse, map[string]interface{}, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	if diags, ok := inputs.Validate(spec.Params, inputs.RequiredBuildFields); !ok {
		for _, d := range diags {
			log.Error(d)
		}
		return nil, nil, newError(ErrKindValidation, strings.Join(diags, "; "), nil)
	}

	u, err := AssembleRequestURL(spec.CesURL, spec.Srid, spec.Params)
	if err != nil {
		return nil, nil, err
	}

	bodyText, err := SerializeBody(spec.Body)
	if err != nil {
		return nil, nil, err
	}

	log.Infow("dispatching generate request", "url", u.String())

	resp, raw, err := c.Dispatch(ctx, u, spec.Token, bodyText)
	if err != nil {
		return nil, nil, err
	}

	interpreted, err := Interpret(log, resp)
	if err != nil {
		return nil, raw, err
	}
	return interpreted, raw, nil
}
