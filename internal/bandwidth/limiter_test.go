package bandwidth

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	egress  = "egress"
	ingress = "ingress"
)

func reserve(l *Limiter, nbytes int64, direction string) error {
	if direction == egress {
		return l.ReserveEgress(nbytes)
	}
	return l.ReserveIngress(nbytes)
}

func TestLimiterInvalidConfig(t *testing.T) {
	require := require.New(t)

	bps := uint64(800)

	_, err := NewLimiter(Config{
		EgressBitsPerSec:  0,
		IngressBitsPerSec: bps,
		TokenSize:         1,
		Enable:            true,
	})
	require.Error(err)

	_, err = NewLimiter(Config{
		EgressBitsPerSec:  bps,
		IngressBitsPerSec: 0,
		TokenSize:         1,
		Enable:            true,
	})
	require.Error(err)
}

func TestLimiterDisabled(t *testing.T) {
	require := require.New(t)

	bps := uint64(800)

	l, err := NewLimiter(Config{
		EgressBitsPerSec:  bps,
		IngressBitsPerSec: bps,
		TokenSize:         1,
		Enable:            false,
	})
	require.NoError(err)
	require.Nil(l.egress)
	require.Nil(l.ingress)
	require.NoError(reserve(l, 1, egress))
	require.NoError(reserve(l, 1, ingress))
}

func TestLimiterReserveConcurrency(t *testing.T) {
	t.Parallel()

	for _, direction := range []string{egress, ingress} {
		t.Run(direction, func(t *testing.T) {
			require := require.New(t)

			bps := uint64(800)

			l, err := NewLimiter(Config{
				EgressBitsPerSec:  bps,
				IngressBitsPerSec: bps,
				TokenSize:         1,
				Enable:            true,
			})
			require.NoError(err)

			nsecs := 2

			stop := make(chan struct{})
			go func() {
				<-time.After(time.Duration(nsecs) * time.Second)
				close(stop)
			}()

			var mu sync.Mutex
			var nbytes int

			var wg sync.WaitGroup
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for {
						require.NoError(reserve(l, 1, direction))
						select {
						case <-stop:
							return
						default:
							mu.Lock()
							nbytes++
							mu.Unlock()
						}
					}
				}()
			}
			wg.Wait()

			require.InDelta(bps*uint64(nsecs+1), 8*nbytes, float64(bps))
		})
	}
}

func TestLimiterReserveBytesTokenScaling(t *testing.T) {
	t.Parallel()

	for _, direction := range []string{egress, ingress} {
		t.Run(direction, func(t *testing.T) {
			require := require.New(t)

			bps := uint64(80)

			l, err := NewLimiter(Config{
				EgressBitsPerSec:  bps,
				IngressBitsPerSec: bps,
				TokenSize:         10,
				Enable:            true,
			})
			require.NoError(err)

			start := time.Now()
			for i := 0; i < 4; i++ {
				require.NoError(reserve(l, 6, direction))
			}
			require.InDelta(time.Second, time.Since(start), float64(50*time.Millisecond))
		})
	}
}

func TestLimiterReserveErrorWhenBytesLargerThanBucket(t *testing.T) {
	t.Parallel()

	for _, direction := range []string{egress, ingress} {
		t.Run(direction, func(t *testing.T) {
			require := require.New(t)

			bps := uint64(80)

			l, err := NewLimiter(Config{
				EgressBitsPerSec:  bps,
				IngressBitsPerSec: bps,
				TokenSize:         10,
				Enable:            true,
			})
			require.NoError(err)

			require.Error(reserve(l, 12, direction))
		})
	}
}

func TestLimiterAdjustError(t *testing.T) {
	require := require.New(t)

	l, err := NewLimiter(Config{
		EgressBitsPerSec:  50,
		IngressBitsPerSec: 10,
		TokenSize:         1,
		Enable:            true,
	})
	require.NoError(err)
	require.Error(l.Adjust(0))
}

func TestLimiterAdjust(t *testing.T) {
	require := require.New(t)

	l, err := NewLimiter(Config{
		EgressBitsPerSec:  50,
		IngressBitsPerSec: 10,
		TokenSize:         1,
		Enable:            true,
	})
	require.NoError(err)

	cases := []struct {
		denom   int
		egress  int64
		ingress int64
	}{
		{10, 5, 1},
		{5, 10, 2},
		{100, 1, 1},
	}
	for _, c := range cases {
		require.NoError(l.Adjust(c.denom))
		require.Equal(c.egress, l.EgressLimit())
		require.Equal(c.ingress, l.IngressLimit())
	}
}
