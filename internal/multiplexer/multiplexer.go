// Package multiplexer abstracts a terminal multiplexer that hosts detached
// sessions, each running one pane. A session is identified by a name the
// multiplexer itself tracks; the supervisor never inspects pane contents
// beyond what Capture and EnableLogging expose.
package multiplexer

import (
	"context"
	"errors"
)

// Sentinel errors the handler maps onto wire error codes. Concrete
// implementations wrap these with %w so errors.Is keeps working across the
// subprocess boundary.
var (
	ErrToolMissing  = errors.New("multiplexer: tool unavailable or below minimum version")
	ErrCreateFailed = errors.New("multiplexer: session creation failed")
	ErrSendFailed   = errors.New("multiplexer: input delivery failed")
)

// Multiplexer is the supervisor's view of a terminal multiplexer backend.
// Every method is synchronous and stateless between calls; implementations
// shell out to the backend's CLI rather than holding a live connection.
type Multiplexer interface {
	// CheckAvailable inspects the backend binary's version. Returns
	// ErrToolMissing if the binary is absent or older than the configured
	// minimum version.
	CheckAvailable(ctx context.Context) error

	// Create starts a new detached session named name, rooted at workdir,
	// running command with env layered over the inherited environment.
	// Returns ErrCreateFailed if the backend refuses.
	Create(ctx context.Context, name, workdir, command string, env map[string]string) error

	// Exists reports whether a session of the given name currently exists.
	Exists(ctx context.Context, name string) bool

	// PanePID returns the OS pid of the session's primary pane, if the
	// backend can report one.
	PanePID(ctx context.Context, name string) (pid int, ok bool)

	// SendInput feeds text to the session as if typed at the keyboard. If
	// submit is true, a submit keystroke follows. Returns ErrSendFailed if
	// the session does not exist.
	SendInput(ctx context.Context, name, text string, submit bool) error

	// Kill terminates the session. Idempotent: killing a session that does
	// not exist is not an error.
	Kill(ctx context.Context, name string) error

	// ListOwned enumerates existing sessions whose name carries this
	// multiplexer's configured prefix.
	ListOwned(ctx context.Context) ([]string, error)

	// EnableLogging directs the session's pane output to logPath, appending.
	EnableLogging(ctx context.Context, name, logPath string) error

	// Capture returns the last lines of the session's pane history.
	Capture(ctx context.Context, name string, lines int) (string, error)
}
