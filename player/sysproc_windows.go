//go:build windows

package player

import (
	"errors"
	"os"
	"os/exec"
	"strconv"
	"syscall"

	"github.com/kinema-cli/kinema/log"
)

// A separate process group keeps Ctrl+C in the console from reaching mpv directly.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}

// killProcess ends mpv and its child processes. A process that already exited is not an error.
func killProcess(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	pid := strconv.Itoa(cmd.Process.Pid)
	if err := exec.Command("taskkill", "/T", "/F", "/PID", pid).Run(); err != nil {
		log.Warnf("taskkill mpv %s: %s", pid, err)
	}

	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
