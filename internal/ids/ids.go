// Package ids issues the request identifiers that tie a log line, an audit
// event and an HTTP response together.
package ids

import (
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// New returns a fresh ULID. IDs sort by creation time, so grepping a request
// id in the logs lands near the traffic that surrounded it. The monotonic
// entropy source is not safe for concurrent use, hence the lock.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
