package helpers

import (
	"fmt"
	"net/http"
	"testing"
	"time"
)

const ServerBasePathTemplate = "http://127.0.0.1:%d"

// TestService holds information about a Mediagate service spawned
// for a test, which the test can request resources from (typically
// test clients for making requests).
type TestService struct {
	Port int

	// TempDir is the directory the service creates every per-request
	// temporary resource (cookie files, download artifacts) within.
	TempDir string

	// ToolPath is the fake yt-dlp binary the service invokes
	ToolPath string
}

func (service *TestService) GetServerBasePath() string {
	return fmt.Sprintf(ServerBasePathTemplate, service.Port)
}

func (service *TestService) String() string {
	return fmt.Sprintf("TestService{port=%d tempDir=%s}", service.Port, service.TempDir)
}

func (service *TestService) NewClient(t *testing.T) *APIClient {
	return &APIClient{
		baseURL: service.GetServerBasePath(),
		http: &http.Client{
			Timeout: 10 * time.Second,
			// Redirects are asserted on, never followed
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		},
	}
}

// waitForHealthy will ping the service (every pollFrequency) until the timeout is reached.
// If no successful request has been made when the timeout is reached, then the most
// recent error is returned to the caller, indicating that the service failed to become
// healthy (i.e. the service is not accepting HTTP connections).
func (service *TestService) waitForHealthy(t *testing.T, pollFrequency time.Duration, timeout time.Duration) error {
	client := service.NewClient(t)
	attempts := timeout.Milliseconds() / pollFrequency.Milliseconds()
	for attempt := range attempts {
		resp, err := client.http.Get(service.GetServerBasePath() + "/")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				break
			}
			err = fmt.Errorf("health check responded with HTTP %d", resp.StatusCode)
		}

		if attempt == attempts-1 {
			return err
		}

		time.Sleep(pollFrequency)
	}

	return nil
}
