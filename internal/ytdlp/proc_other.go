//go:build !unix

package ytdlp

import "os/exec"

func killProcessGroup(cmd *exec.Cmd) {}
