package peerexchange

import "fmt"

// ProtocolError reports a peer violating the wire protocol: a required
// extension missing, an unrecognized message type, or a frame that violates
// connection state. It is always terminal for the owning peer task.
type ProtocolError struct {
	Reason string
}

func (e ProtocolError) Error() string {
	return fmt.Sprintf("peerexchange: protocol error: %s", e.Reason)
}

// IsProtocolError returns true if err is a ProtocolError.
func IsProtocolError(err error) bool {
	_, ok := err.(ProtocolError)
	return ok
}
