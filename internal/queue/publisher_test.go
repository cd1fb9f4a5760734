package queue

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// silentBroker accepts TCP connections and never writes a byte back.
func silentBroker(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return "amqp://guest:guest@" + ln.Addr().String() + "/"
}

func TestPublishHonoursContextDeadline(t *testing.T) {
	p := NewPublisher(silentBroker(t), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := p.Publish(ctx, ApplicationEvent{Action: ActionApplied, ApplicationID: "a-1"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestPublishSkipsExpiredContext(t *testing.T) {
	p := NewPublisher(silentBroker(t), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Publish(ctx, ApplicationEvent{Action: ActionApplied, ApplicationID: "a-1"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDialTimeout(t *testing.T) {
	d, err := dialTimeout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, defaultDialTimeout, d)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	d, err = dialTimeout(ctx)
	require.NoError(t, err)
	assert.LessOrEqual(t, d, time.Second)
	assert.Greater(t, d, time.Duration(0))
}
