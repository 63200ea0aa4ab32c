// Package ids issues time-sortable identifiers for runs and frames.
package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// New returns a ULID that sorts after every ULID previously returned by
// this process.
func New() ulid.ULID {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
}

// RunID returns a new identifier for an engine run as a 26-character string.
func RunID() string { return New().String() }
