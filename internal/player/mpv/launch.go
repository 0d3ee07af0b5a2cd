package mpv

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/strandmedia/strand/internal/player"
)

const socketWaitTimeout = 10 * time.Second

// candidate mpv binary names per platform, tried in order
var candidates = map[string][]string{
	"darwin":  {"mpv"},
	"linux":   {"mpv"},
	"windows": {"mpv.exe"},
}

// Launch starts an idle mpv process with its IPC server on a fresh socket
// and connects a Player to it. The command may be empty, in which case the
// platform candidate list is tried.
func Launch(command string, extraArgs []string, cfg player.BufferConfig, logger *slog.Logger) (*Player, error) {
	if logger == nil {
		logger = slog.Default()
	}

	binary, err := resolveBinary(command)
	if err != nil {
		return nil, err
	}

	socketPath := filepath.Join(os.TempDir(), fmt.Sprintf("strand-mpv-%d.sock", os.Getpid()))
	os.Remove(socketPath)

	args := []string{
		"--idle=yes",
		"--force-window=yes",
		"--keep-open=yes",
		"--input-ipc-server=" + socketPath,
	}
	args = append(args, extraArgs...)

	cmd := exec.Command(binary, args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start mpv: %w", err)
	}

	logger.Info("launched mpv", "binary", binary, "socket", socketPath, "pid", cmd.Process.Pid)

	// Reap the process when it exits so it never lingers as a zombie.
	go func() { _ = cmd.Wait() }()

	if err := waitForSocket(socketPath, socketWaitTimeout); err != nil {
		_ = cmd.Process.Kill()
		return nil, err
	}

	return Connect(socketPath, cfg, logger)
}

// resolveBinary picks the mpv binary: configured command first, then the
// platform candidate list.
func resolveBinary(command string) (string, error) {
	if command != "" {
		if _, err := exec.LookPath(command); err != nil {
			return "", fmt.Errorf("configured player %q not found: %w", command, err)
		}
		return command, nil
	}

	names, ok := candidates[runtime.GOOS]
	if !ok {
		names = candidates["linux"]
	}
	for _, name := range names {
		if _, err := exec.LookPath(name); err == nil {
			return name, nil
		}
	}
	return "", fmt.Errorf("mpv not found in PATH")
}

// waitForSocket polls until mpv has created its IPC socket.
func waitForSocket(path string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); err == nil {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("mpv IPC socket did not appear at %s", path)
}
