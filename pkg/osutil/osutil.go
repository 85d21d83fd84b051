package osutil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// SignalContext returns a context that will live until Ctrl+C is pressed.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// PrepareDir makes sure dir exists, if clean is true whatever was in it before
// is removed first.
func PrepareDir(dir string, clean bool) error {
	if clean {
		err := os.RemoveAll(dir)
		if err != nil {
			return fmt.Errorf("clean %s: %w", dir, err)
		}
	}
	err := os.MkdirAll(dir, 0777)
	if err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	return nil
}

// Exists reports whether a file exists at path.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}
