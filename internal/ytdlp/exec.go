package ytdlp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/hbomb79/Mediagate/pkg/logger"
)

var (
	log = logger.Get("YtDlp")

	errOutputLimit = errors.New("combined output exceeded limit")
)

// waitDelay bounds how long we wait for the tool's output pipes to close
// after it has been killed.
const waitDelay = 2 * time.Second

// Limits bounds a single invocation of the tool. A zero value for either
// field disables that bound.
type Limits struct {
	Timeout        time.Duration
	MaxOutputBytes int64
}

// Invoker runs the yt-dlp binary as a bounded subprocess. Arguments are
// always passed as a discrete vector; a shell is never involved.
type Invoker struct {
	binPath string
}

func NewInvoker(binPath string) *Invoker {
	return &Invoker{binPath: binPath}
}

// Run executes the tool with the arguments provided and returns its stdout
// with surrounding whitespace trimmed. The process is killed if it
// outlives limits.Timeout, or if the combined size of stdout and stderr
// exceeds limits.MaxOutputBytes. Any such failure, and any non-zero exit,
// is returned as a *ToolError.
func (invoker *Invoker) Run(parent context.Context, args []string, limits Limits) (string, error) {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if limits.Timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, limits.Timeout)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}
	defer cancel()

	output := newCappedOutput(limits.MaxOutputBytes, cancel)
	cmd := exec.CommandContext(ctx, invoker.binPath, args...)
	cmd.Stdout = output.writer(&output.stdout)
	cmd.Stderr = output.writer(&output.stderr)
	cmd.WaitDelay = waitDelay
	killProcessGroup(cmd)

	log.Emit(logger.DEBUG, "Running %s %v (timeout=%s)\n", invoker.binPath, args, limits.Timeout)
	started := time.Now()
	if err := cmd.Start(); err != nil {
		return "", &ToolError{Kind: StartFailure, Err: err}
	}

	err := cmd.Wait()
	log.Emit(logger.DEBUG, "%s exited after %s\n", invoker.binPath, time.Since(started))

	// Order matters here: the output cap cancels the context, so it must be
	// checked before the deadline/cancellation causes.
	if output.exceeded() {
		return "", &ToolError{Kind: OutputTooLarge, Err: fmt.Errorf("%w (%d bytes)", errOutputLimit, limits.MaxOutputBytes)}
	}
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "", &ToolError{Kind: Timeout, Stderr: output.stderrString(), Err: fmt.Errorf("no exit within %s", limits.Timeout)}
	}
	if err != nil {
		if parentErr := parent.Err(); parentErr != nil {
			return "", &ToolError{Kind: ExitStatus, Stderr: output.stderrString(), Err: parentErr}
		}
		return "", &ToolError{Kind: ExitStatus, Stderr: output.stderrString(), Err: err}
	}

	return strings.TrimSpace(output.stdoutString()), nil
}

// cappedOutput captures stdout and stderr of a process while enforcing a
// limit over their combined size. Crossing the limit cancels the process.
type cappedOutput struct {
	sync.Mutex
	limit    int64
	written  int64
	overflow bool
	cancel   context.CancelFunc
	stdout   bytes.Buffer
	stderr   bytes.Buffer
}

func newCappedOutput(limit int64, cancel context.CancelFunc) *cappedOutput {
	return &cappedOutput{limit: limit, cancel: cancel}
}

func (out *cappedOutput) writer(buf *bytes.Buffer) *cappedWriter {
	return &cappedWriter{out: out, buf: buf}
}

func (out *cappedOutput) exceeded() bool {
	out.Lock()
	defer out.Unlock()
	return out.overflow
}

func (out *cappedOutput) stdoutString() string {
	out.Lock()
	defer out.Unlock()
	return out.stdout.String()
}

func (out *cappedOutput) stderrString() string {
	out.Lock()
	defer out.Unlock()
	return out.stderr.String()
}

type cappedWriter struct {
	out *cappedOutput
	buf *bytes.Buffer
}

func (w *cappedWriter) Write(p []byte) (int, error) {
	w.out.Lock()
	defer w.out.Unlock()

	if w.out.overflow {
		return 0, errOutputLimit
	}

	w.out.written += int64(len(p))
	if w.out.limit > 0 && w.out.written > w.out.limit {
		w.out.overflow = true
		w.out.cancel()
		return 0, errOutputLimit
	}

	return w.buf.Write(p)
}
