// Package udptracker implements a BEP-15 UDP tracker client: a single socket
// multiplexes connect/announce/scrape RPCs for every tracker a session talks
// to, with per-tracker connection-id caching and exponential retransmission.
package udptracker

import (
	"net"
	"sync"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/pkg/errors"
	"github.com/uber-go/tally"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/uber/torrentcore/core"
	"github.com/uber/torrentcore/internal/backoff"
)

// Manager owns one UDP socket and multiplexes every outstanding RPC across
// every tracker address in use.
type Manager struct {
	config  Config
	conns   *connectionCache
	pending *pendingTable
	rng     core.RNG
	clk     clock.Clock
	stats   tally.Scope
	logger  *zap.SugaredLogger

	sock *net.UDPConn

	closed     *atomic.Bool
	closedOnce sync.Once
	done       chan struct{}
	wg         sync.WaitGroup
}

// New creates a Manager listening on a freshly bound UDP socket (an
// ephemeral local port unless laddr is non-nil).
func New(
	config Config,
	laddr *net.UDPAddr,
	rng core.RNG,
	clk clock.Clock,
	stats tally.Scope,
	logger *zap.SugaredLogger) (*Manager, error) {

	config = config.applyDefaults()

	sock, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, errors.Wrap(err, "listen udp")
	}

	m := &Manager{
		config:  config,
		conns:   newConnectionCache(clk, config.ConnectionTTL),
		pending: newPendingTable(),
		rng:     rng,
		clk:     clk,
		stats:   stats,
		logger:  logger,
		sock:    sock,
		closed:  atomic.NewBool(false),
		done:    make(chan struct{}),
	}

	m.wg.Add(1)
	go m.listen()

	return m, nil
}

// LocalAddr returns the address the Manager's socket is bound to.
func (m *Manager) LocalAddr() net.Addr {
	return m.sock.LocalAddr()
}

// Close shuts down the socket, stops the listener, and fails every
// outstanding RPC with ManagerClosedError. No subsequent RPC may be issued.
func (m *Manager) Close() {
	m.closedOnce.Do(func() {
		m.closed.Store(true)
		close(m.done)
		m.sock.Close()
		m.wg.Wait()
		for _, s := range m.pending.DrainAll() {
			s.ch <- slotResult{err: ManagerClosedError{}}
		}
	})
}

// Announce performs an Announce RPC against the tracker at uri.
func (m *Manager) Announce(uri string, q AnnounceQuery) (AnnounceInfo, error) {
	addr, err := m.resolve(uri)
	if err != nil {
		return AnnounceInfo{}, err
	}

	connID, err := m.connect(addr)
	if err != nil {
		return AnnounceInfo{}, err
	}

	encode := func(transactionID int32) []byte {
		return encodeAnnounceRequest(connID, transactionID, q)
	}
	result, err := m.roundTrip(addr, encode)
	if err != nil {
		return AnnounceInfo{}, err
	}
	if result.action == actionError {
		_, msg, derr := decodeErrorResponse(result.body)
		if derr != nil {
			return AnnounceInfo{}, derr
		}
		return AnnounceInfo{}, QueryFailedError{Message: msg}
	}
	if result.action != actionAnnounce {
		return AnnounceInfo{}, UnexpectedResponseError{Expected: actionAnnounce.String(), Actual: result.action.String()}
	}
	_, info, err := decodeAnnounceResponse(result.body)
	return info, err
}

// AnnounceWithRetry performs an Announce RPC, retrying on transient failures
// (everything except a ManagerClosedError or an explicit tracker-side
// QueryFailedError, neither of which a retry can fix) under m.config.Retry's
// budget.
func (m *Manager) AnnounceWithRetry(uri string, q AnnounceQuery) (AnnounceInfo, error) {
	attempts := backoff.NewWithClock(m.config.Retry, m.clk).Attempts()
	var info AnnounceInfo
	var err error
	for attempts.WaitForNext() {
		info, err = m.Announce(uri, q)
		if err == nil || IsManagerClosedError(err) || IsQueryFailedError(err) {
			return info, err
		}
	}
	return AnnounceInfo{}, attempts.Err()
}

// Scrape performs a Scrape RPC against the tracker at uri for the given info
// hashes.
func (m *Manager) Scrape(uri string, hashes []core.InfoHash) ([]ScrapeInfo, error) {
	addr, err := m.resolve(uri)
	if err != nil {
		return nil, err
	}

	connID, err := m.connect(addr)
	if err != nil {
		return nil, err
	}

	encode := func(transactionID int32) []byte {
		return encodeScrapeRequest(connID, transactionID, hashes)
	}
	result, err := m.roundTrip(addr, encode)
	if err != nil {
		return nil, err
	}
	if result.action == actionError {
		_, msg, derr := decodeErrorResponse(result.body)
		if derr != nil {
			return nil, derr
		}
		return nil, QueryFailedError{Message: msg}
	}
	if result.action != actionScrape {
		return nil, UnexpectedResponseError{Expected: actionScrape.String(), Actual: result.action.String()}
	}
	_, infos, err := decodeScrapeResponse(result.body, hashes)
	return infos, err
}

// connect returns a usable connection_id for addr, reusing a cached one if
// still fresh, otherwise performing a fresh Connect exchange.
func (m *Manager) connect(addr *net.UDPAddr) (int64, error) {
	if id, ok := m.conns.Get(addr.String()); ok {
		return id, nil
	}

	result, err := m.roundTrip(addr, func(transactionID int32) []byte {
		return encodeConnectRequest(transactionID)
	})
	if err != nil {
		return 0, err
	}
	if result.action == actionError {
		_, msg, derr := decodeErrorResponse(result.body)
		if derr != nil {
			return 0, derr
		}
		return 0, QueryFailedError{Message: msg}
	}
	if result.action != actionConnect {
		return 0, UnexpectedResponseError{Expected: actionConnect.String(), Actual: result.action.String()}
	}
	connID, _, err := decodeConnectResponse(result.body)
	if err != nil {
		return 0, err
	}
	m.conns.Set(addr.String(), connID)
	return connID, nil
}

// resolve validates and resolves a tracker URI of the form "udp://host:port".
func (m *Manager) resolve(uri string) (*net.UDPAddr, error) {
	scheme, host, err := splitTrackerURI(uri)
	if err != nil {
		return nil, err
	}
	if scheme != "udp" {
		return nil, UnrecognizedSchemeError{Scheme: scheme}
	}
	if host == "" {
		return nil, HostUnknownError{URI: uri}
	}
	addr, err := net.ResolveUDPAddr("udp", host)
	if err != nil {
		return nil, HostLookupFailedError{Host: host, Err: err}
	}
	return addr, nil
}

// roundTrip allocates a transaction slot, sends the request produced by
// encode (called once, after the slot is registered, since the transaction
// id is fixed only then; every retransmission resends the same bytes), and
// awaits the response under the retransmission policy.
func (m *Manager) roundTrip(addr *net.UDPAddr, encode func(transactionID int32) []byte) (slotResult, error) {
	if m.closed.Load() {
		return slotResult{}, ManagerClosedError{}
	}

	addrKey := addr.String()
	transactionID, s, ok := m.pending.Register(addrKey, int32(m.rng.Uint32()))
	if !ok {
		return slotResult{}, errors.Errorf("udptracker: transaction id space exhausted for %s", addrKey)
	}
	defer m.pending.Remove(addrKey, transactionID)

	req := encode(transactionID)

	timeout := m.config.MinTimeout
	for {
		if _, err := m.sock.WriteToUDP(req, addr); err != nil {
			return slotResult{}, errors.Wrapf(err, "udptracker: write to %s", addrKey)
		}

		select {
		case res := <-s.ch:
			return res, res.err
		case <-m.clk.After(timeout):
			next := time.Duration(float64(timeout) * m.config.Multiplier)
			if next > m.config.MaxTimeout {
				return slotResult{}, TimeoutExpiredError{Timeout: int(next.Seconds())}
			}
			timeout = next
		case <-m.done:
			return slotResult{}, ManagerClosedError{}
		}
	}
}

// listen reads datagrams off the socket in a loop, decoding a transaction
// envelope and dispatching the response to its awaiting slot. Packets too
// short to carry that envelope are dropped and counted. The body is not
// parsed here, so a packet with a valid envelope but a malformed body is
// delivered to the awaiting caller, whose RPC then fails with the decode
// error.
func (m *Manager) listen() {
	defer m.wg.Done()

	buf := make([]byte, m.config.MaxPacketSize)
	for {
		n, raddr, err := m.sock.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-m.done:
				return
			default:
				m.logger.Infof("udptracker: listener exiting: %+v", errors.Wrap(err, "read udp"))
				return
			}
		}

		packet := make([]byte, n)
		copy(packet, buf[:n])

		act, transactionID, err := peekAction(packet)
		if err != nil {
			m.countBadPacket()
			continue
		}

		s, ok := m.pending.Lookup(raddr.String(), transactionID)
		if !ok {
			// Late arrival or already-cancelled transaction; harmless.
			continue
		}

		select {
		case s.ch <- slotResult{action: act, body: packet}:
		default:
			// Slot already delivered to (duplicate datagram); drop.
		}
	}
}

func (m *Manager) countBadPacket() {
	if m.stats == nil {
		return
	}
	m.stats.Counter("udptracker.bad_packets").Inc(1)
}
