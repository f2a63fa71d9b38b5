// SPDX-License-Identifier: MIT
//go:build windows

package capture

import (
	"fmt"
	"os/exec"
	"syscall"
)

func setupProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}

// Windows has no SIGTERM; taskkill without /F asks the tree to close.
func terminateProcessGroup(cmd *exec.Cmd) error {
	return exec.Command("taskkill", "/T", "/PID", fmt.Sprint(cmd.Process.Pid)).Run()
}

func killProcessGroup(cmd *exec.Cmd) error {
	if err := exec.Command("taskkill", "/F", "/T", "/PID", fmt.Sprint(cmd.Process.Pid)).Run(); err != nil {
		return cmd.Process.Kill()
	}
	return nil
}
