package udptracker

import "strings"

// splitTrackerURI splits a tracker URI of the form "scheme://host:port" into
// its scheme and host:port authority, without the full generality (and
// allocation overhead) of net/url for this narrow shape.
func splitTrackerURI(uri string) (scheme, host string, err error) {
	i := strings.Index(uri, "://")
	if i < 0 {
		return "", "", HostUnknownError{URI: uri}
	}
	scheme = uri[:i]
	host = uri[i+3:]
	return scheme, host, nil
}
