package peerexchange

import (
	"context"
	"net"

	"github.com/andres-erbsen/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/uber/torrentcore/core"
	"github.com/uber/torrentcore/internal/bandwidth"
	"github.com/uber/torrentcore/peerwire"
	"github.com/uber/torrentcore/piecestore"
)

// Loop drives the default p2p(storage) event loop over a single peer
// connection: request every block of the lowest-indexed available piece,
// serve whatever blocks are requested of us, assemble and verify incoming
// blocks, and announce newly completed pieces. One Loop exists per peer
// connection; Loops belonging to the same torrent are independent and
// coordinate only through the shared Piece Store and AvailabilityBus.
type Loop struct {
	config  Config
	conn    net.Conn
	session *Session
	store   *piecestore.Store
	bus     core.AvailabilityBus
	limiter *bandwidth.Limiter
	logger  *zap.SugaredLogger
	pending *pendingRequests

	incoming chan peerwire.Message
	cancel   context.CancelFunc
}

// NewLoop constructs a Loop for a connection that has already completed the
// handshake exchange. bus and logger may be nil, in which case newly
// available pieces are not broadcast beyond this connection and nothing is
// logged.
func NewLoop(
	config Config,
	conn net.Conn,
	session *Session,
	store *piecestore.Store,
	bus core.AvailabilityBus,
	logger *zap.SugaredLogger,
) (*Loop, error) {
	return newLoop(config, conn, session, store, bus, logger, clock.New())
}

func newLoop(
	config Config,
	conn net.Conn,
	session *Session,
	store *piecestore.Store,
	bus core.AvailabilityBus,
	logger *zap.SugaredLogger,
	clk clock.Clock,
) (*Loop, error) {
	config = config.applyDefaults()
	limiter, err := bandwidth.NewLimiter(config.Bandwidth)
	if err != nil {
		return nil, err
	}
	return &Loop{
		config:   config,
		conn:     conn,
		session:  session,
		store:    store,
		bus:      bus,
		limiter:  limiter,
		logger:   logger,
		pending:  newPendingRequests(clk, config.RequestTimeout, config.PipelineLimit),
		incoming: make(chan peerwire.Message, config.IncomingBufferSize),
		cancel:   func() {},
	}, nil
}

// Run sends the local bitfield, flushes any messages queued before Run was
// called (e.g. an initial choke-state decision made by the caller), and then
// services the connection until it disconnects (EOF, socket error) or a
// ProtocolError terminates it. Run blocks; callers invoke it in its own
// goroutine per connection.
func (l *Loop) Run() error {
	if err := peerwire.WriteMessage(l.conn, l.session.LocalBitfield()); err != nil {
		return err
	}
	if err := l.flush(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	// readLoop blocks in a read on conn, which does not observe ctx; closing
	// conn once ctx is done unblocks it so that Wait can return.
	go func() {
		<-ctx.Done()
		l.conn.Close()
	}()
	g.Go(func() error { return l.readLoop(ctx) })
	g.Go(func() error { return l.mainLoop(ctx) })
	return g.Wait()
}

// Close terminates Run and its background reader. Idempotent.
func (l *Loop) Close() {
	l.cancel()
	l.conn.Close()
}

func (l *Loop) readLoop(ctx context.Context) error {
	for {
		m, err := peerwire.ReadMessage(l.conn)
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		if l.limiter != nil {
			if err := l.limiter.ReserveIngress(wireSize(m)); err != nil {
				return err
			}
		}
		select {
		case l.incoming <- m:
		case <-ctx.Done():
			return nil
		}
	}
}

func (l *Loop) mainLoop(ctx context.Context) error {
	ticker := l.pending.clk.Ticker(l.config.ResendCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case m := <-l.incoming:
			if err := l.step(m); err != nil {
				return err
			}
		case <-ticker.C:
			if err := l.resendExpired(); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (l *Loop) resendExpired() error {
	for _, b := range l.pending.Expired() {
		l.session.Yield(wantEvent(b))
	}
	return l.flush()
}

func (l *Loop) step(m peerwire.Message) error {
	ev, ok, err := l.session.Handle(m)
	if err != nil {
		if l.logger != nil {
			l.logger.Errorf("peerexchange: protocol error from %s: %s", l.session.PeerID, err)
		}
		return err
	}
	if ok {
		if err := l.dispatch(ev); err != nil {
			return err
		}
	}
	return l.flush()
}

// dispatch implements the default p2p(storage) event loop's three cases.
func (l *Loop) dispatch(ev Event) error {
	switch ev.Kind {
	case EventAvailable:
		l.announce(ev.Pieces)

		piece, ok := minInt(ev.Pieces)
		if !ok {
			return nil
		}
		blocks, err := l.store.SelectBlock(piece)
		if err != nil {
			return err
		}
		for _, b := range blocks {
			if l.pending.TryAdd(b) {
				l.session.Yield(wantEvent(b))
			}
		}

	case EventWant:
		data, err := l.store.GetBlock(ev.Block.PieceIndex, ev.Block.Offset, ev.Block.Length)
		if err != nil {
			return err
		}
		l.session.Yield(fragmentEvent(piecestore.Block{
			PieceIndex: ev.Block.PieceIndex,
			Offset:     ev.Block.Offset,
			Data:       data,
		}))

	case EventFragment:
		l.pending.Remove(piecestore.BlockIx{
			PieceIndex: ev.Fragment.PieceIndex,
			Offset:     ev.Fragment.Offset,
			Length:     int64(len(ev.Fragment.Data)),
		})
		completed, err := l.store.PutBlock(ev.Fragment)
		if err != nil {
			return err
		}
		if !completed {
			return nil
		}
		l.session.AnnounceHave(ev.Fragment.PieceIndex)
		l.announce([]int{ev.Fragment.PieceIndex})

		if offer := l.session.peerOffer(); len(offer) > 0 {
			return l.dispatch(availableEvent(offer))
		}
	}
	return nil
}

func (l *Loop) announce(pieces []int) {
	if l.bus != nil {
		l.bus.Available(pieces, l.session.PeerID)
	}
}

func (l *Loop) flush() error {
	for _, m := range l.session.Outgoing() {
		if l.limiter != nil {
			if err := l.limiter.ReserveEgress(wireSize(m)); err != nil {
				return err
			}
		}
		if err := peerwire.WriteMessage(l.conn, m); err != nil {
			return err
		}
	}
	return nil
}

func wireSize(m peerwire.Message) int64 {
	return int64(len(m.Encode()))
}

func minInt(xs []int) (int, bool) {
	if len(xs) == 0 {
		return 0, false
	}
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m, true
}
