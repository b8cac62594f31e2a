// Package reqid generates request correlation identifiers attached to
// public UCI errors so a caller running multiple concurrent operations can
// match a failure back to the call that produced it.
package reqid

import "github.com/google/uuid"

// New returns a fresh correlation id.
func New() string {
	return uuid.NewString()
}
