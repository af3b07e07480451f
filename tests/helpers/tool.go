package helpers

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// ToolFixture describes how a fake yt-dlp binary should respond.
type ToolFixture struct {
	// Metadata is printed when the tool is asked for a JSON dump (-J)
	Metadata string

	// DirectURL is printed when the tool is asked for direct URLs (-g)
	DirectURL string

	// Video is written to the output path when the tool is asked to
	// download (-o)
	Video string

	// Stderr, when set, is printed to stderr and the tool exits with
	// status 1 regardless of the request
	Stderr string
}

// fixtureScript dispatches on the arguments yt-dlp would be invoked with.
// Every invocation is appended to args.log beside the script, along with
// whether the cookie file passed to it existed at the time.
const fixtureScript = `dir=$(dirname "$0")
echo "$*" >> "$dir/args.log"
mode=""
out=""
prev=""
for arg in "$@"; do
	case "$arg" in
		-J) mode=json ;;
		-g) mode=url ;;
	esac
	if [ "$prev" = "-o" ]; then out="$arg"; fi
	if [ "$prev" = "--cookies" ] && [ -f "$arg" ]; then echo "cookies:present" >> "$dir/args.log"; fi
	prev="$arg"
done
if [ -f "$dir/stderr.txt" ]; then
	cat "$dir/stderr.txt" >&2
	exit 1
fi
if [ -n "$out" ]; then
	cat "$dir/video.bin" > "$out"
	exit 0
fi
case "$mode" in
	json) cat "$dir/metadata.json" ;;
	url) cat "$dir/direct.txt" ;;
esac`

// FakeTool writes a POSIX shell script to a temporary directory and returns
// its path, so that it can stand in for the yt-dlp binary. Tests using it
// are skipped on Windows.
func FakeTool(t *testing.T, body string) string {
	if runtime.GOOS == "windows" {
		t.Skip("fake tool scripts require a POSIX shell")
	}

	path := filepath.Join(t.TempDir(), "yt-dlp")
	script := "#!/bin/sh\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755), "failed to write fake tool script")

	return path
}

// FixtureTool writes a fake yt-dlp binary which responds as described by
// the fixture provided, returning the path to the binary.
func FixtureTool(t *testing.T, fixture ToolFixture) string {
	path := FakeTool(t, fixtureScript)
	dir := filepath.Dir(path)

	files := map[string]string{
		"metadata.json": fixture.Metadata,
		"direct.txt":    fixture.DirectURL + "\n",
		"video.bin":     fixture.Video,
	}
	if fixture.Stderr != "" {
		files["stderr.txt"] = fixture.Stderr
	}
	for name, contents := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644))
	}

	return path
}

// ToolInvocations returns each line logged by a fixture tool: one line of
// arguments per invocation, followed by 'cookies:present' if the cookie
// file existed when it ran.
func ToolInvocations(t *testing.T, toolPath string) []string {
	data, err := os.ReadFile(filepath.Join(filepath.Dir(toolPath), "args.log"))
	if os.IsNotExist(err) {
		return []string{}
	}
	require.NoError(t, err)

	return strings.Split(strings.TrimSpace(string(data)), "\n")
}
