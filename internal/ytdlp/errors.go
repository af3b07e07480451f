package ytdlp

import (
	"errors"
	"fmt"
	"strings"
)

var errEmptyResolution = errors.New("no direct URL printed")

type ToolErrorKind int

const (
	// StartFailure means the tool binary could not be started at all.
	StartFailure ToolErrorKind = iota
	Timeout
	ExitStatus
	OutputTooLarge
	MalformedOutput
)

func (kind ToolErrorKind) String() string {
	return []string{
		"start failure",
		"timeout",
		"non-zero exit",
		"output too large",
		"malformed output",
	}[kind]
}

// ToolError is returned whenever an invocation of yt-dlp does not produce
// usable output. It is never retried by this package.
type ToolError struct {
	Kind   ToolErrorKind
	Stderr string
	Err    error
}

func (err *ToolError) Error() string {
	msg := fmt.Sprintf("yt-dlp %s", err.Kind)
	if err.Err != nil {
		msg = fmt.Sprintf("%s: %s", msg, err.Err)
	}
	if stderr := strings.TrimSpace(err.Stderr); stderr != "" {
		msg = fmt.Sprintf("%s (%s)", msg, stderr)
	}

	return msg
}

func (err *ToolError) Unwrap() error { return err.Err }
