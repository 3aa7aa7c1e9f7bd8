package transport

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/agentstation/driftsync/pkg/errors"
	"github.com/agentstation/driftsync/pkg/logging"
)

// DecodeResponse decodes a JSON response into the target structure. Non-2xx
// statuses produce an APIError carrying the response body.
func DecodeResponse(resp *http.Response, store string, target any) error {
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Default().Warn().Err(err).Msg("Failed to close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapIO("read", "response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &errors.APIError{
			Store:      store,
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}

	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", "response", err)
	}

	return nil
}

// CheckStatus closes the response body and returns an APIError when the
// status is not 2xx. It is used for writes where the body content does not
// matter.
func CheckStatus(resp *http.Response, store string) error {
	body, err := io.ReadAll(resp.Body)
	closeErr := resp.Body.Close()
	if err != nil {
		return errors.WrapIO("read", "response body", err)
	}
	if closeErr != nil {
		logging.Default().Warn().Err(closeErr).Msg("Failed to close response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &errors.APIError{
			Store:      store,
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}
	return nil
}
