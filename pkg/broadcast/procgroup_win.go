//go:build windows
// +build windows

package broadcast

import (
	"os/exec"
	"strconv"
	"syscall"
)

func configureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}

// Taskkill command documentation: https://learn.microsoft.com/en-us/windows-server/administration/windows-commands/taskkill
func taskkill(cmd *exec.Cmd, force bool) error {
	args := []string{"/T", "/PID", strconv.Itoa(cmd.Process.Pid)}
	if force {
		args = append([]string{"/F"}, args...)
	}

	return exec.Command("TASKKILL", args...).Run()
}

// interruptProcess sends a close request to the encoder tree, without /F.
func interruptProcess(cmd *exec.Cmd) error {
	return taskkill(cmd, false)
}

func killProcess(cmd *exec.Cmd) error {
	if err := taskkill(cmd, true); err != nil {
		return cmd.Process.Kill()
	}
	return nil
}
