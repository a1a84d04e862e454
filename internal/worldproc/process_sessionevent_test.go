package worldproc

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSessionEventSinkFiresOnConnectAndDisconnect(t *testing.T) {
	p := newTestProcess(t)

	var mu sync.Mutex
	var events []string
	p.SetSessionEventSink(func(sessionID, playerID, event string) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, event)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	conn := &fakeConn{alive: true}
	sess := p.Connect(conn)
	p.Disconnect(sess)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 2
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"connect", "disconnect"}, events)
}
