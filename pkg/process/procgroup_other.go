//go:build !unix

package process

import (
	"os/exec"
	"time"
)

const waitDelay = 2 * time.Second

func isolateProcessGroup(cmd *exec.Cmd) {
	cmd.WaitDelay = waitDelay
}
