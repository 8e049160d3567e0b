package ispw

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mainframe-ci/ispw-generate/pkg/types"
)

// Client issues the single generate-await POST against CES.
type Client struct {
	httpClient *http.Client
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Dispatch performs one HTTP POST to u with bodyText as the payload and the
// token carried verbatim in the Authorization header. The full response body
// is read and parsed as JSON; it is returned both typed and as a raw map for
// storage. An empty response body yields a nil response rather than an error,
// letting the interpreter report the missing-response outcome.
//
// Transport failures and non-JSON response bodies map to the network error
// kind. Response status codes are not classified here: CES communicates the
// generate outcome in the JSON body.
func (c *Client) Dispatch(ctx context.Context, u *url.URL, token, bodyText string) (*types.GenerateResponse, map[string]interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), strings.NewReader(bodyText))
	if err != nil {
		return nil, nil, newError(ErrKindNetwork, "failed to create request", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", token)
	req.ContentLength = int64(len(bodyText))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, newError(ErrKindNetwork, fmt.Sprintf("generate request to %s failed", u.Host), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, newError(ErrKindNetwork, "failed to read response body", err)
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil, nil
	}

	var parsed types.GenerateResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, nil, newError(ErrKindNetwork, "response body is not valid JSON", err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, newError(ErrKindNetwork, "response body is not a JSON object", err)
	}

	return &parsed, raw, nil
}
