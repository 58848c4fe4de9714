package peerwire

import (
	"fmt"

	"github.com/uber/torrentcore/core"
)

// InfoHashMismatchError reports a handshake whose InfoHash did not match the
// torrent the caller expected to exchange.
type InfoHashMismatchError struct {
	Expected, Actual core.InfoHash
}

func (e InfoHashMismatchError) Error() string {
	return fmt.Sprintf("peerwire: info hash mismatch: expected %s, got %s", e.Expected, e.Actual)
}

// IsInfoHashMismatchError returns true if err is an InfoHashMismatchError.
func IsInfoHashMismatchError(err error) bool {
	_, ok := err.(InfoHashMismatchError)
	return ok
}
