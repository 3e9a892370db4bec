// Package runid generates the per-run identifier threaded through logging
// (logger.WithRun) and the sink's webhook payload, so every log line and
// notification from one invocation can be correlated.
package runid

import "github.com/google/uuid"

// New returns a fresh run identifier.
func New() string {
	return uuid.NewString()
}
