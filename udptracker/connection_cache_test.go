package udptracker

import (
	"testing"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/stretchr/testify/require"
)

func TestConnectionCacheGetMissing(t *testing.T) {
	require := require.New(t)

	c := newConnectionCache(clock.NewMock(), 60*time.Second)
	_, ok := c.Get("tracker:80")
	require.False(ok)
}

func TestConnectionCacheSetAndGet(t *testing.T) {
	require := require.New(t)

	clk := clock.NewMock()
	c := newConnectionCache(clk, 60*time.Second)

	c.Set("tracker:80", 1234)
	id, ok := c.Get("tracker:80")
	require.True(ok)
	require.Equal(int64(1234), id)
}

func TestConnectionCacheExpiresAfterTTL(t *testing.T) {
	require := require.New(t)

	clk := clock.NewMock()
	c := newConnectionCache(clk, 60*time.Second)

	c.Set("tracker:80", 1234)

	clk.Add(59 * time.Second)
	_, ok := c.Get("tracker:80")
	require.True(ok)

	clk.Add(time.Second)
	_, ok = c.Get("tracker:80")
	require.False(ok)
}

func TestConnectionCacheInvalidate(t *testing.T) {
	require := require.New(t)

	c := newConnectionCache(clock.NewMock(), 60*time.Second)
	c.Set("tracker:80", 1234)
	c.Invalidate("tracker:80")

	_, ok := c.Get("tracker:80")
	require.False(ok)
}
