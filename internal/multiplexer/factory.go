package multiplexer

import (
	"fmt"

	"github.com/HexSleeves/summ-daemon/internal/logger"
)

// New constructs a Multiplexer for the named backend. Only "tmux" is
// registered today; the switch is kept so a second backend can be added
// without reshaping callers, the way the teacher's factory selected between
// tmux and zellij.
func New(backend, prefix, minVersion string, log *logger.Logger) (Multiplexer, error) {
	switch backend {
	case "tmux":
		return NewTmux(prefix, minVersion, log)
	default:
		return nil, fmt.Errorf("multiplexer: unsupported backend %q", backend)
	}
}
