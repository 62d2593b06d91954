//go:build linux

package main

import (
	"os"
	"syscall"
)

// protocolStdout moves the frame stream off fd 1 and points fd 1 at stderr,
// so stray prints from generator code (including native libraries) cannot
// corrupt it.
func protocolStdout() (*os.File, error) {
	fd, err := syscall.Dup(int(os.Stdout.Fd()))
	if err != nil {
		return nil, err
	}
	syscall.CloseOnExec(fd)
	if err := syscall.Dup3(int(os.Stderr.Fd()), int(os.Stdout.Fd()), 0); err != nil {
		_ = syscall.Close(fd)
		return nil, err
	}
	return os.NewFile(uintptr(fd), "protocol"), nil
}
