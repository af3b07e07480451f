package ytdlp_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hbomb79/Mediagate/internal/ytdlp"
	"github.com/hbomb79/Mediagate/tests/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// waitDelay mirrors the grace period the invoker allows for pipes to close.
const waitDelay = 2 * time.Second

var defaultLimits = ytdlp.Limits{Timeout: 5 * time.Second, MaxOutputBytes: 1024 * 1024}

func requireToolError(t *testing.T, err error, kind ytdlp.ToolErrorKind) *ytdlp.ToolError {
	var toolErr *ytdlp.ToolError
	require.True(t, errors.As(err, &toolErr), "expected ToolError, got %v", err)
	assert.Equal(t, kind, toolErr.Kind)
	return toolErr
}

func TestRun_ReturnsTrimmedStdout(t *testing.T) {
	t.Parallel()
	invoker := ytdlp.NewInvoker(helpers.FakeTool(t, `printf '  {"title":"x"}\n\n'`))

	out, err := invoker.Run(context.Background(), nil, defaultLimits)
	require.NoError(t, err)
	assert.Equal(t, `{"title":"x"}`, out)
}

func TestRun_PassesArgumentsVerbatim(t *testing.T) {
	t.Parallel()
	invoker := ytdlp.NewInvoker(helpers.FakeTool(t, `for arg in "$@"; do printf '%s\n' "$arg"; done`))

	args := []string{"-J", "https://example.com/a b;$(touch pwned) `id` | cat"}
	out, err := invoker.Run(context.Background(), args, defaultLimits)
	require.NoError(t, err)
	assert.Equal(t, args, strings.Split(out, "\n"))
}

func TestRun_NonZeroExit(t *testing.T) {
	t.Parallel()
	invoker := ytdlp.NewInvoker(helpers.FakeTool(t, `echo "ERROR: Unsupported URL" >&2; exit 1`))

	_, err := invoker.Run(context.Background(), []string{"https://example.com"}, defaultLimits)
	toolErr := requireToolError(t, err, ytdlp.ExitStatus)
	assert.Contains(t, toolErr.Stderr, "Unsupported URL")
	assert.Contains(t, err.Error(), "Unsupported URL")
}

func TestRun_TimeoutKillsProcess(t *testing.T) {
	t.Parallel()
	invoker := ytdlp.NewInvoker(helpers.FakeTool(t, `exec sleep 30`))

	started := time.Now()
	_, err := invoker.Run(context.Background(), nil, ytdlp.Limits{Timeout: 200 * time.Millisecond})
	requireToolError(t, err, ytdlp.Timeout)
	assert.Less(t, time.Since(started), 5*time.Second, "timed out invocation must not hang")
}

func TestRun_TimeoutKillsDescendants(t *testing.T) {
	t.Parallel()
	marker := filepath.Join(t.TempDir(), "marker")
	invoker := ytdlp.NewInvoker(helpers.FakeTool(t, `( sleep 1; touch '`+marker+`' ) & wait`))

	started := time.Now()
	_, err := invoker.Run(context.Background(), nil, ytdlp.Limits{Timeout: 200 * time.Millisecond})
	requireToolError(t, err, ytdlp.Timeout)
	assert.Less(t, time.Since(started), waitDelay, "killing the group should close the output pipes")

	assert.Never(t, func() bool {
		_, err := os.Stat(marker)
		return err == nil
	}, 2*time.Second, 100*time.Millisecond, "child of the timed out tool is still running")
}

func TestRun_OutputTooLarge(t *testing.T) {
	t.Parallel()
	invoker := ytdlp.NewInvoker(helpers.FakeTool(t, `exec head -c 65536 /dev/zero`))

	_, err := invoker.Run(context.Background(), nil, ytdlp.Limits{Timeout: 5 * time.Second, MaxOutputBytes: 1024})
	requireToolError(t, err, ytdlp.OutputTooLarge)
}

func TestRun_OutputCapCountsStderr(t *testing.T) {
	t.Parallel()
	invoker := ytdlp.NewInvoker(helpers.FakeTool(t, `head -c 800 /dev/zero; head -c 800 /dev/zero >&2`))

	_, err := invoker.Run(context.Background(), nil, ytdlp.Limits{Timeout: 5 * time.Second, MaxOutputBytes: 1024})
	requireToolError(t, err, ytdlp.OutputTooLarge)
}

func TestRun_ZeroCapIsUnlimited(t *testing.T) {
	t.Parallel()
	invoker := ytdlp.NewInvoker(helpers.FakeTool(t, `head -c 65536 /dev/zero | tr '\0' 'a'`))

	out, err := invoker.Run(context.Background(), nil, ytdlp.Limits{Timeout: 5 * time.Second})
	require.NoError(t, err)
	assert.Len(t, out, 65536)
}

func TestRun_MissingBinary(t *testing.T) {
	t.Parallel()
	invoker := ytdlp.NewInvoker("/definitely/not/a/real/yt-dlp")

	_, err := invoker.Run(context.Background(), nil, defaultLimits)
	requireToolError(t, err, ytdlp.StartFailure)
}
