package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/localrivet/chatcycle/internal/errortypes"
)

// postJSON sends body to url and returns the raw response body of a 2xx
// reply. Transport failures come back as network errors and any other status
// as a remote status error carrying the body.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body interface{}) ([]byte, error) {
	reqJSON, err := json.Marshal(body)
	if err != nil {
		return nil, errortypes.InternalError(err, "error marshaling request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqJSON))
	if err != nil {
		return nil, errortypes.ConfigError(err, "error creating request")
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, errortypes.NetworkError(err, fmt.Sprintf("error sending request to %s", url))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errortypes.NetworkError(err, "error reading response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw := string(respBody)
		if len(raw) > maxErrorBody {
			raw = raw[:maxErrorBody]
		}
		return nil, errortypes.RemoteStatusError(resp.StatusCode, raw, "generate request rejected")
	}

	return respBody, nil
}
