package helpers

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/hbomb79/Mediagate/internal/api/apierr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertErrorResponse checks that the response carries the status and
// error message expected, and that no internal-only fields leaked in to
// the body.
func AssertErrorResponse(t *testing.T, resp *http.Response, expectedStatusCode int, expectedMessage string) apierr.APIError {
	assert.Equal(t, expectedStatusCode, resp.StatusCode, "HTTP response status code did not match expected")
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")

	body := ReadBody(t, resp)
	apiErr := ExtractErrorResponse(t, body)
	assert.Equal(t, expectedMessage, apiErr.Message)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(body, &raw))
	assert.NotContains(t, raw, "InternalMessage", "internal message must never leak")
	assert.NotContains(t, raw, "Status", "status code must not be included")

	return apiErr
}

func ExtractErrorResponse(t *testing.T, body []byte) apierr.APIError {
	var apiError apierr.APIError
	require.NoError(t, json.Unmarshal(body, &apiError), "failed to unmarshal error response %q", body)

	return apiError
}

// ReadBody reads and closes the body of the response provided.
func ReadBody(t *testing.T, resp *http.Response) []byte {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")

	return body
}
