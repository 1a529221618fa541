package registry

import "github.com/google/uuid"

// NewSessionID generates a fresh, process-lifetime-unique session
// identifier.
func NewSessionID() string {
	return uuid.NewString()
}
