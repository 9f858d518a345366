// Package integration runs simple-debug against a real Delve.
//
// The tests are skipped when dlv is not on PATH.
package integration

import (
	"bufio"
	"context"
	"io"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xhd2015/simple-debug/config"
)

// findProjectRoot attempts to find the root directory of the project
func findProjectRoot(t *testing.T) string {
	dir, err := os.Getwd()
	require.NoError(t, err, "Failed to get working directory")

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("Could not find project root with go.mod")
			return ""
		}
		dir = parent
	}
}

func targetDir(t *testing.T) string {
	return filepath.Join(findProjectRoot(t), "cmd", "simple-debug", "integration", "testdata", "target")
}

func requireDlv(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping dlv integration test in short mode")
	}
	path, err := exec.LookPath("dlv")
	if err != nil {
		t.Skip("dlv not found in PATH")
	}
	return path
}

// freeAddr returns a loopback address nothing is listening on.
func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

// startDlv runs dlv in dir and stops it when the test ends.
func startDlv(t *testing.T, dlv string, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command(dlv, args...)
	cmd.Dir = dir
	stdout, err := cmd.StdoutPipe()
	require.NoError(t, err, "Failed to create dlv stdout pipe")
	stderr, err := cmd.StderrPipe()
	require.NoError(t, err, "Failed to create dlv stderr pipe")
	require.NoError(t, cmd.Start(), "Failed to start dlv")

	done := make(chan struct{})
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(io.MultiReader(stdout, stderr))
		for scanner.Scan() {
			t.Logf("DLV: %s", scanner.Text())
		}
	}()

	t.Cleanup(func() {
		cmd.Process.Signal(os.Interrupt)
		time.Sleep(100 * time.Millisecond)
		cmd.Process.Kill()
		<-done
		cmd.Wait()
	})
}

// retry calls fn until it succeeds or ctx expires. dlv compiles the target
// before it starts listening.
func retry[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	for {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		select {
		case <-ctx.Done():
			return v, err
		case <-time.After(200 * time.Millisecond):
		}
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(content), 0o600))
	return dir
}
