//go:build !windows

package player

import (
	"errors"
	"os"
	"os/exec"
	"syscall"

	"github.com/kinema-cli/kinema/log"
)

// mpv runs in its own process group so a terminal signal aimed at kinema does not reach it first.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

// killProcess takes down mpv together with anything it spawned (ytdl hooks, scripts).
// A process that already exited is not an error.
func killProcess(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	pid := cmd.Process.Pid
	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		log.Warnf("kill mpv process group %d: %s", pid, err)
	}

	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
