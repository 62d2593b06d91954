//go:build !linux

package main

import "os"

// protocolStdout keeps the frame stream on the original stdout and sends
// later Go writes to os.Stdout to stderr instead.
func protocolStdout() (*os.File, error) {
	out := os.Stdout
	os.Stdout = os.Stderr
	return out, nil
}
