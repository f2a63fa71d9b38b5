// SPDX-License-Identifier: MIT
package capture

import (
	"os"
	"os/exec"
)

// Executor creates commands. Tests substitute a fake.
type Executor interface {
	Command(name string, args ...string) Commander
}

// Commander is the subset of exec.Cmd the capture process needs.
type Commander interface {
	Start() error
	Wait() error
	// Terminate asks the process group to exit.
	Terminate() error
	// Kill forcibly ends the process group.
	Kill() error
	Pid() int
}

type execExecutor struct{}

// DefaultExecutor starts real OS processes that share the caller's stdout
// and stderr and run in their own process group.
var DefaultExecutor Executor = execExecutor{}

func (execExecutor) Command(name string, args ...string) Commander {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	setupProcessGroup(cmd)
	return &execCommander{cmd: cmd}
}

type execCommander struct {
	cmd *exec.Cmd
}

func (c *execCommander) Start() error { return c.cmd.Start() }
func (c *execCommander) Wait() error  { return c.cmd.Wait() }

func (c *execCommander) Terminate() error {
	if c.cmd.Process == nil {
		return nil
	}
	return terminateProcessGroup(c.cmd)
}

func (c *execCommander) Kill() error {
	if c.cmd.Process == nil {
		return nil
	}
	return killProcessGroup(c.cmd)
}

func (c *execCommander) Pid() int {
	if c.cmd.Process == nil {
		return 0
	}
	return c.cmd.Process.Pid
}
