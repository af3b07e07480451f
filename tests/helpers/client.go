package helpers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/hbomb79/Mediagate/internal/delivery"
	"github.com/stretchr/testify/require"
)

// APIClient is a thin HTTP client for a spawned Mediagate service.
type APIClient struct {
	baseURL string
	http    *http.Client
}

// Get performs a GET against the path provided with the query given. The
// caller owns the response body.
func (client *APIClient) Get(t *testing.T, path string, query url.Values) *http.Response {
	target := client.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	resp, err := client.http.Get(target)
	require.NoError(t, err, "GET %s failed", target)

	return resp
}

// PostJSON performs a POST against the path provided with a JSON
// encoded body. The caller owns the response body.
func (client *APIClient) PostJSON(t *testing.T, path string, body any) *http.Response {
	encoded, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := client.http.Post(client.baseURL+path, "application/json", bytes.NewReader(encoded))
	require.NoError(t, err, "POST %s failed", path)

	return resp
}

func (client *APIClient) Info(t *testing.T, postURL string) delivery.InfoResult {
	var result delivery.InfoResult
	decodeSuccess(t, client.PostJSON(t, "/info", map[string]any{"url": postURL}), &result)
	return result
}

func (client *APIClient) Media(t *testing.T, postURL string) delivery.MediaResult {
	var result delivery.MediaResult
	decodeSuccess(t, client.PostJSON(t, "/media", map[string]any{"url": postURL}), &result)
	return result
}

func decodeSuccess(t *testing.T, resp *http.Response, target any) {
	body := ReadBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode, "unexpected response: %s", body)
	require.NoError(t, json.Unmarshal(body, target))
}
