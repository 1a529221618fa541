package multiplexer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/HexSleeves/summ-daemon/internal/logger"
)

// execCommand is exec.Command indirected behind a var so tests can swap in
// a fake that records invocations instead of shelling out.
var execCommand = exec.Command

// Tmux implements Multiplexer by shelling out to the tmux binary. It holds
// no session state of its own; every method re-derives truth from tmux.
type Tmux struct {
	prefix     string
	tmuxPath   string
	minVersion version
	logger     *logger.Logger
}

// commonTmuxPaths are checked when tmux is not on PATH, mirroring how
// Homebrew and distro packages install it in practice.
var commonTmuxPaths = []string{
	"/opt/homebrew/bin/tmux",
	"/usr/local/bin/tmux",
	"/usr/bin/tmux",
}

// NewTmux constructs a Tmux adapter. prefix namespaces every session this
// supervisor creates or lists; minVersionStr is the lowest accepted tmux
// version (e.g. "3.0").
func NewTmux(prefix, minVersionStr string, log *logger.Logger) (*Tmux, error) {
	minVer, ok := parseVersion(minVersionStr)
	if !ok {
		return nil, fmt.Errorf("multiplexer: invalid minimum version %q", minVersionStr)
	}

	tmuxPath := "tmux"
	if _, err := exec.LookPath("tmux"); err != nil {
		for _, p := range commonTmuxPaths {
			if _, statErr := os.Stat(p); statErr == nil {
				tmuxPath = p
				break
			}
		}
	}

	return &Tmux{
		prefix:     prefix,
		tmuxPath:   tmuxPath,
		minVersion: minVer,
		logger:     log,
	}, nil
}

func (t *Tmux) qualify(name string) string {
	return t.prefix + name
}

func (t *Tmux) unqualify(name string) (string, bool) {
	if !strings.HasPrefix(name, t.prefix) {
		return "", false
	}
	return strings.TrimPrefix(name, t.prefix), true
}

// CheckAvailable runs `tmux -V` and compares the reported version against
// the configured minimum.
func (t *Tmux) CheckAvailable(ctx context.Context) error {
	cmd := execCommand(t.tmuxPath, "-V")
	out, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrToolMissing, err)
	}

	v, ok := parseVersion(string(out))
	if !ok {
		return fmt.Errorf("%w: unparseable version %q", ErrToolMissing, strings.TrimSpace(string(out)))
	}
	if !v.atLeast(t.minVersion) {
		return fmt.Errorf("%w: tmux %d.%d below minimum %d.%d",
			ErrToolMissing, v.major, v.minor, t.minVersion.major, t.minVersion.minor)
	}
	return nil
}

// Create starts a new detached tmux session.
func (t *Tmux) Create(ctx context.Context, name, workdir, command string, env map[string]string) error {
	start := time.Now()
	tmuxName := t.qualify(name)

	args := []string{"new-session", "-d", "-s", tmuxName}
	if workdir != "" {
		args = append(args, "-c", workdir)
	}
	args = append(args, command)

	cmd := execCommand(t.tmuxPath, args...)
	cmd.Env = append(os.Environ(), flattenEnv(env)...)

	if t.logger != nil {
		t.logger.DebugCommand(t.tmuxPath, args, workdir)
	}

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %v", ErrCreateFailed, err)
	}

	if t.logger != nil {
		t.logger.Performance("multiplexer.Create", start, slog.String("session", name))
	}
	return nil
}

func flattenEnv(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

// Exists reports whether tmux still tracks a session of this name.
func (t *Tmux) Exists(ctx context.Context, name string) bool {
	cmd := execCommand(t.tmuxPath, "has-session", "-t", t.qualify(name))
	return cmd.Run() == nil
}

// PanePID returns the pid of the session's active pane via
// `display-message -p #{pane_pid}`.
func (t *Tmux) PanePID(ctx context.Context, name string) (int, bool) {
	cmd := execCommand(t.tmuxPath, "display-message", "-t", t.qualify(name), "-p", "#{pane_pid}")
	out, err := cmd.Output()
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return 0, false
	}
	return pid, true
}

// SendInput types text into the session and optionally submits it with
// Enter, mirroring how a human would drive the pane.
func (t *Tmux) SendInput(ctx context.Context, name, text string, submit bool) error {
	tmuxName := t.qualify(name)
	args := []string{"send-keys", "-t", tmuxName, "-l", text}
	if err := execCommand(t.tmuxPath, args...).Run(); err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	if submit {
		if err := execCommand(t.tmuxPath, "send-keys", "-t", tmuxName, "Enter").Run(); err != nil {
			return fmt.Errorf("%w: %v", ErrSendFailed, err)
		}
	}
	return nil
}

// Kill terminates the session. Killing an absent session is treated as
// success, since the caller's intent (no session by this name) is already
// satisfied.
func (t *Tmux) Kill(ctx context.Context, name string) error {
	if !t.Exists(ctx, name) {
		return nil
	}
	cmd := execCommand(t.tmuxPath, "kill-session", "-t", t.qualify(name))
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("multiplexer: kill failed: %w", err)
	}
	return nil
}

// ListOwned enumerates sessions carrying this adapter's prefix.
func (t *Tmux) ListOwned(ctx context.Context) ([]string, error) {
	cmd := execCommand(t.tmuxPath, "list-sessions", "-F", "#{session_name}")
	out, err := cmd.Output()
	if err != nil {
		if strings.Contains(err.Error(), "no server running") {
			return nil, nil
		}
		if exitErr, ok := err.(*exec.ExitError); ok && len(exitErr.Stderr) > 0 &&
			strings.Contains(string(exitErr.Stderr), "no server running") {
			return nil, nil
		}
		return nil, fmt.Errorf("multiplexer: list-sessions failed: %w", err)
	}

	var owned []string
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line == "" {
			continue
		}
		if name, ok := t.unqualify(line); ok {
			owned = append(owned, name)
		}
	}
	return owned, nil
}

// EnableLogging pipes the pane's output to logPath via `pipe-pane -o`,
// appending to any existing content.
func (t *Tmux) EnableLogging(ctx context.Context, name, logPath string) error {
	tmuxName := t.qualify(name)
	shellCmd := fmt.Sprintf("cat >> %s", shellQuote(logPath))
	cmd := execCommand(t.tmuxPath, "pipe-pane", "-t", tmuxName, "-o", shellCmd)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("multiplexer: enable logging failed: %w", err)
	}
	return nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Capture returns the trailing lines lines of the pane's scrollback.
func (t *Tmux) Capture(ctx context.Context, name string, lines int) (string, error) {
	tmuxName := t.qualify(name)
	start := fmt.Sprintf("-%d", lines)
	cmd := execCommand(t.tmuxPath, "capture-pane", "-t", tmuxName, "-p", "-S", start)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("multiplexer: capture failed: %w", err)
	}
	return string(out), nil
}

var _ Multiplexer = (*Tmux)(nil)
