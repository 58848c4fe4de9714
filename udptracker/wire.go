package udptracker

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/uber/torrentcore/core"
)

// protocolMagic is the well-known initial connection id used to bootstrap a
// Connect exchange, per BEP-15.
const protocolMagic int64 = 0x41727101980

// action identifies the kind of UDP tracker message.
type action int32

const (
	actionConnect action = iota
	actionAnnounce
	actionScrape
	actionError
)

// Event mirrors the BEP-3 announce event enum as carried over BEP-15.
type Event int32

const (
	// EventNone is a regular, periodic announce.
	EventNone Event = iota
	// EventCompleted announces that the download has finished.
	EventCompleted
	// EventStarted announces the start of a new download.
	EventStarted
	// EventStopped announces that the client is leaving the swarm.
	EventStopped
)

// AnnounceQuery is the caller-supplied payload for an Announce RPC.
type AnnounceQuery struct {
	InfoHash   core.InfoHash
	PeerID     core.PeerID
	Downloaded uint64
	Left       uint64
	Uploaded   uint64
	Event      Event
	IP         net.IP // zero value announces 0.0.0.0, letting the tracker infer the source address.
	Key        uint32
	NumWant    int32
	Port       uint16
}

// PeerAddr is one peer handed out by a tracker in an Announce response.
type PeerAddr struct {
	IP   net.IP
	Port uint16
}

// AnnounceInfo is the caller-facing result of an Announce RPC.
type AnnounceInfo struct {
	Interval int32
	Leechers int32
	Seeders  int32
	Peers    []PeerAddr
}

// ScrapeInfo pairs one queried info hash with its tracker-reported swarm
// statistics.
type ScrapeInfo struct {
	InfoHash  core.InfoHash
	Seeders   int32
	Completed int32
	Leechers  int32
}

func encodeConnectRequest(transactionID int32) []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[0:8], uint64(protocolMagic))
	binary.BigEndian.PutUint32(buf[8:12], uint32(actionConnect))
	binary.BigEndian.PutUint32(buf[12:16], uint32(transactionID))
	return buf
}

func decodeConnectResponse(p []byte) (connectionID int64, transactionID int32, err error) {
	if len(p) < 16 {
		return 0, 0, errMalformedPacket
	}
	transactionID = int32(binary.BigEndian.Uint32(p[4:8]))
	connectionID = int64(binary.BigEndian.Uint64(p[8:16]))
	return connectionID, transactionID, nil
}

func encodeAnnounceRequest(connectionID int64, transactionID int32, q AnnounceQuery) []byte {
	buf := make([]byte, 98)
	binary.BigEndian.PutUint64(buf[0:8], uint64(connectionID))
	binary.BigEndian.PutUint32(buf[8:12], uint32(actionAnnounce))
	binary.BigEndian.PutUint32(buf[12:16], uint32(transactionID))
	copy(buf[16:36], q.InfoHash.Bytes())
	copy(buf[36:56], q.PeerID.Bytes())
	binary.BigEndian.PutUint64(buf[56:64], q.Downloaded)
	binary.BigEndian.PutUint64(buf[64:72], q.Left)
	binary.BigEndian.PutUint64(buf[72:80], q.Uploaded)
	binary.BigEndian.PutUint32(buf[80:84], uint32(q.Event))
	if ip4 := q.IP.To4(); ip4 != nil {
		copy(buf[84:88], ip4)
	}
	binary.BigEndian.PutUint32(buf[88:92], q.Key)
	numWant := q.NumWant
	if numWant == 0 {
		numWant = -1 // Default: let the tracker decide.
	}
	binary.BigEndian.PutUint32(buf[92:96], uint32(numWant))
	binary.BigEndian.PutUint16(buf[96:98], q.Port)
	return buf
}

func decodeAnnounceResponse(p []byte) (transactionID int32, info AnnounceInfo, err error) {
	if len(p) < 20 {
		return 0, AnnounceInfo{}, errMalformedPacket
	}
	transactionID = int32(binary.BigEndian.Uint32(p[4:8]))
	info.Interval = int32(binary.BigEndian.Uint32(p[8:12]))
	info.Leechers = int32(binary.BigEndian.Uint32(p[12:16]))
	info.Seeders = int32(binary.BigEndian.Uint32(p[16:20]))

	rest := p[20:]
	if len(rest)%6 != 0 {
		return 0, AnnounceInfo{}, errMalformedPacket
	}
	for len(rest) >= 6 {
		ip := net.IPv4(rest[0], rest[1], rest[2], rest[3])
		port := binary.BigEndian.Uint16(rest[4:6])
		info.Peers = append(info.Peers, PeerAddr{IP: ip, Port: port})
		rest = rest[6:]
	}
	return transactionID, info, nil
}

func encodeScrapeRequest(connectionID int64, transactionID int32, hashes []core.InfoHash) []byte {
	buf := make([]byte, 16+20*len(hashes))
	binary.BigEndian.PutUint64(buf[0:8], uint64(connectionID))
	binary.BigEndian.PutUint32(buf[8:12], uint32(actionScrape))
	binary.BigEndian.PutUint32(buf[12:16], uint32(transactionID))
	for i, h := range hashes {
		copy(buf[16+20*i:16+20*(i+1)], h.Bytes())
	}
	return buf
}

func decodeScrapeResponse(p []byte, hashes []core.InfoHash) (transactionID int32, infos []ScrapeInfo, err error) {
	if len(p) < 8 {
		return 0, nil, errMalformedPacket
	}
	transactionID = int32(binary.BigEndian.Uint32(p[4:8]))
	rest := p[8:]
	if len(rest) != 12*len(hashes) {
		return 0, nil, errMalformedPacket
	}
	for i, h := range hashes {
		off := 12 * i
		infos = append(infos, ScrapeInfo{
			InfoHash:  h,
			Seeders:   int32(binary.BigEndian.Uint32(rest[off : off+4])),
			Completed: int32(binary.BigEndian.Uint32(rest[off+4 : off+8])),
			Leechers:  int32(binary.BigEndian.Uint32(rest[off+8 : off+12])),
		})
	}
	return transactionID, infos, nil
}

func decodeErrorResponse(p []byte) (transactionID int32, message string, err error) {
	if len(p) < 8 {
		return 0, "", errMalformedPacket
	}
	transactionID = int32(binary.BigEndian.Uint32(p[4:8]))
	return transactionID, string(p[8:]), nil
}

// peekAction reads the action and transaction_id common to every response
// header without fully decoding the message.
func peekAction(p []byte) (action, int32, error) {
	if len(p) < 8 {
		return 0, 0, errMalformedPacket
	}
	return action(binary.BigEndian.Uint32(p[0:4])), int32(binary.BigEndian.Uint32(p[4:8])), nil
}

func (a action) String() string {
	switch a {
	case actionConnect:
		return "connect"
	case actionAnnounce:
		return "announce"
	case actionScrape:
		return "scrape"
	case actionError:
		return "error"
	default:
		return fmt.Sprintf("action(%d)", int32(a))
	}
}
