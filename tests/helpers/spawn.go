package helpers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/hbomb79/Mediagate/internal"
	"github.com/hbomb79/Mediagate/internal/ytdlp"
)

// MediagateServiceRequest describes the Mediagate instance a test requires.
// Requests are immutable; each With* method returns a modified copy.
type MediagateServiceRequest struct {
	tool      ToolFixture
	cookies   ytdlp.CookieConfig
	configure []func(*internal.MediagateConfig)
}

func NewMediagateServiceRequest() MediagateServiceRequest {
	return MediagateServiceRequest{}
}

// WithTool sets the behaviour of the fake yt-dlp binary the service
// will invoke.
func (req MediagateServiceRequest) WithTool(fixture ToolFixture) MediagateServiceRequest {
	req.tool = fixture
	return req
}

// WithInlineCookies configures the service to materialize the cookie
// contents provided for every tool invocation.
func (req MediagateServiceRequest) WithInlineCookies(contents string) MediagateServiceRequest {
	req.cookies = ytdlp.CookieConfig{Data: contents}
	return req
}

// WithConfig registers a function which may adjust the configuration
// before the service is constructed.
func (req MediagateServiceRequest) WithConfig(fn func(*internal.MediagateConfig)) MediagateServiceRequest {
	req.configure = append(append([]func(*internal.MediagateConfig){}, req.configure...), fn)
	return req
}

func (req MediagateServiceRequest) String() string {
	return fmt.Sprintf("MediagateServiceRequest{tool=%+v cookies=%t}", req.tool, req.cookies != ytdlp.CookieConfig{})
}

// SpawnMediagate will run a Mediagate service in-process, backed by a fake
// yt-dlp binary, listening on a free local port. This function will BLOCK
// until the service is accepting HTTP requests. The service is stopped when
// the test completes.
func SpawnMediagate(t *testing.T, req MediagateServiceRequest) *TestService {
	port := getFreePort(t)
	t.Logf("Spawning Mediagate on port %d for request %s\n", port, req)

	var config internal.MediagateConfig
	if err := config.LoadFromEnv(); err != nil {
		t.Fatalf("failed to provision Mediagate instance: could not load default config: %s", err)
		return nil
	}

	tempDir := t.TempDir()
	toolPath := FixtureTool(t, req.tool)
	config.RestConfig.HostAddr = "127.0.0.1"
	config.RestConfig.HostPort = fmt.Sprint(port)
	config.YtDlp.BinPath = toolPath
	config.Cookies = req.cookies
	config.Delivery.TempDir = tempDir
	for _, fn := range req.configure {
		fn(&config)
	}

	mediagate, err := internal.New(config)
	if err != nil {
		t.Fatalf("failed to provision Mediagate instance: %s", err)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mediagate.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				t.Logf("[WARNING] Mediagate instance on port %d stopped with error: %s", port, err)
			}
		case <-time.After(5 * time.Second):
			t.Logf("[WARNING] Mediagate instance on port %d did not stop within timeout", port)
		}
	})

	srv := &TestService{Port: port, TempDir: tempDir, ToolPath: toolPath}
	if err := srv.waitForHealthy(t, 50*time.Millisecond, 5*time.Second); err != nil {
		t.Fatalf("failed to provision Mediagate instance: service did not become healthy before timeout (last error %+v)", err)
		return nil
	}

	t.Logf("Mediagate instance (port %d) became healthy", port)
	return srv
}

// getFreePort asks the kernel for a free port and releases it straight away,
// so that the service can bind it.
func getFreePort(t *testing.T) int {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find free port: %s", err)
	}
	defer listener.Close()

	return listener.Addr().(*net.TCPAddr).Port
}
