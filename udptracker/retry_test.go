package udptracker

import (
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/stretchr/testify/require"

	"github.com/uber/torrentcore/core"
	"github.com/uber/torrentcore/internal/backoff"
)

// TestAnnounceWithRetryRecoversFromTransientTimeout confirms AnnounceWithRetry
// treats a TimeoutExpiredError as transient: the first Announce attempt times
// out because the tracker never answers the connect exchange, and the second
// attempt, against a tracker that now responds, succeeds.
func TestAnnounceWithRetryRecoversFromTransientTimeout(t *testing.T) {
	require := require.New(t)

	tracker := newFakeTracker(t)
	clk := clock.NewMock()
	m := newTestManager(t, Config{
		MinTimeout: time.Second,
		MaxTimeout: time.Second, // escalates past max after a single wait.
		Multiplier: 2,
		Retry: backoff.Config{
			Min:          50 * time.Millisecond,
			Max:          50 * time.Millisecond,
			Factor:       2,
			NoJitter:     true,
			RetryTimeout: time.Minute,
		},
	}, &fixedRNG{draws: []uint32{9}}, clk)

	hash, _ := core.NewInfoHashFromHex("0102030405060708090a0b0c0d0e0f1011121314")
	peerID, _ := core.HashedPeerID("retry-peer")

	done := make(chan struct {
		info AnnounceInfo
		err  error
	}, 1)
	go func() {
		info, err := m.AnnounceWithRetry("udp://"+tracker.addr(), AnnounceQuery{
			InfoHash: hash,
			PeerID:   peerID,
			Port:     6881,
		})
		done <- struct {
			info AnnounceInfo
			err  error
		}{info, err}
	}()

	// First attempt: the tracker never answers the connect request, so the
	// single retransmission window expires.
	_, _ = tracker.recv(t)
	time.Sleep(20 * time.Millisecond)
	clk.Add(time.Second)

	// AnnounceWithRetry's own backoff delay before the second attempt.
	time.Sleep(20 * time.Millisecond)
	clk.Add(50 * time.Millisecond)

	// Second attempt: connect then announce, both answered.
	req, addr := tracker.recv(t)
	connectTID := int32(binary.BigEndian.Uint32(req[12:16]))
	connResp := make([]byte, 16)
	binary.BigEndian.PutUint32(connResp[4:8], uint32(connectTID))
	binary.BigEndian.PutUint64(connResp[8:16], 0xBEEF)
	tracker.send(t, addr, connResp)

	req, addr = tracker.recv(t)
	announceTID := int32(binary.BigEndian.Uint32(req[12:16]))
	announceResp := make([]byte, 26)
	binary.BigEndian.PutUint32(announceResp[0:4], uint32(actionAnnounce))
	binary.BigEndian.PutUint32(announceResp[4:8], uint32(announceTID))
	binary.BigEndian.PutUint32(announceResp[8:12], 1800)
	copy(announceResp[20:24], net.IPv4(5, 6, 7, 8).To4())
	binary.BigEndian.PutUint16(announceResp[24:26], 6881)
	tracker.send(t, addr, announceResp)

	result := <-done
	require.NoError(result.err)
	require.Equal(int32(1800), result.info.Interval)
}
