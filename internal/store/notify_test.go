package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Harshitk-cp/dialogreply/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// fakeNotifyConn stands in for a LISTEN connection.
type fakeNotifyConn struct {
	notes  chan *pgconn.Notification
	lost   chan struct{}
	closed chan struct{}
	once   sync.Once
}

func newFakeNotifyConn() *fakeNotifyConn {
	return &fakeNotifyConn{
		notes:  make(chan *pgconn.Notification, 16),
		lost:   make(chan struct{}),
		closed: make(chan struct{}),
	}
}

func (c *fakeNotifyConn) WaitForNotification(ctx context.Context) (*pgconn.Notification, error) {
	select {
	case n := <-c.notes:
		return n, nil
	case <-c.lost:
		return nil, errors.New("connection reset")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *fakeNotifyConn) Close() {
	c.once.Do(func() { close(c.closed) })
}

func (c *fakeNotifyConn) notify(kind string, addr domain.Addr) {
	c.notes <- &pgconn.Notification{
		Channel: eventsChannel,
		Payload: fmt.Sprintf(`{"kind":%q,"addr":%q,"type":%d}`, kind, addr, domain.EdgeAccessConstPosPerm),
	}
}

// listenerStore returns a store whose listener connections come from conns.
func listenerStore(conns ...*fakeNotifyConn) (*PostgresGraphStore, func() int) {
	var mu sync.Mutex
	calls := 0
	s := &PostgresGraphStore{}
	s.connect = func(ctx context.Context) (notifyConn, error) {
		mu.Lock()
		defer mu.Unlock()
		if calls >= len(conns) {
			return nil, errors.New("pool exhausted")
		}
		c := conns[calls]
		calls++
		return c, nil
	}
	return s, func() int {
		mu.Lock()
		defer mu.Unlock()
		return calls
	}
}

func receive(t *testing.T, events <-chan domain.Event) domain.Event {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok, "subscription closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return domain.Event{}
	}
}

func TestPostgresSubscribe_SharesOneConnection(t *testing.T) {
	defer goleak.VerifyNone(t)

	conn := newFakeNotifyConn()
	s, connects := listenerStore(conn)

	const subscribers = 50
	channels := make([]<-chan domain.Event, 0, subscribers)
	for range subscribers {
		events, cancel := s.Subscribe()
		defer cancel()
		channels = append(channels, events)
	}
	assert.Equal(t, 1, connects(), "every subscriber must share the listener connection")

	edge := domain.NewAddr()
	conn.notify("edge_added", edge)
	for _, events := range channels {
		ev := receive(t, events)
		assert.Equal(t, domain.EventEdgeAdded, ev.Kind)
		assert.Equal(t, edge, ev.Element.Addr)
	}

	extra, cancelExtra := s.Subscribe()
	cancelExtra()
	_, open := <-extra
	assert.False(t, open, "cancel closes the channel")
	s.listenMu.Lock()
	assert.Equal(t, subscribers, s.events.len(), "cancel unregisters the subscriber")
	s.listenMu.Unlock()
	assert.Equal(t, 1, connects())

	s.Close()
	select {
	case <-conn.closed:
	case <-time.After(time.Second):
		t.Fatal("listener connection not closed")
	}
}

func TestPostgresSubscribe_IgnoresMalformedPayloads(t *testing.T) {
	defer goleak.VerifyNone(t)

	conn := newFakeNotifyConn()
	s, _ := listenerStore(conn)
	defer s.Close()
	events, cancel := s.Subscribe()
	defer cancel()

	conn.notes <- &pgconn.Notification{Payload: "{"}
	conn.notes <- &pgconn.Notification{Payload: `{"kind":"node_added"}`}
	erased := domain.NewAddr()
	conn.notify("element_erased", erased)

	ev := receive(t, events)
	assert.Equal(t, domain.EventElementErased, ev.Kind)
	assert.Equal(t, erased, ev.Element.Addr)
}

func TestPostgresSubscribe_ReconnectsAfterLoss(t *testing.T) {
	defer goleak.VerifyNone(t)

	first, second := newFakeNotifyConn(), newFakeNotifyConn()
	s, connects := listenerStore(first, second)
	defer s.Close()

	events, cancel := s.Subscribe()
	defer cancel()
	close(first.lost)

	select {
	case _, ok := <-events:
		assert.False(t, ok, "subscription must close when the connection is lost")
	case <-time.After(time.Second):
		t.Fatal("subscription not closed after connection loss")
	}
	<-first.closed

	require.Eventually(t, func() bool {
		events, cancel := s.Subscribe()
		defer cancel()
		select {
		case _, ok := <-events:
			return ok
		default:
			return true
		}
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, connects())

	again, cancelAgain := s.Subscribe()
	defer cancelAgain()
	edge := domain.NewAddr()
	second.notify("edge_added", edge)
	assert.Equal(t, edge, receive(t, again).Element.Addr)
}

func TestPostgresSubscribe_ListenerUnavailable(t *testing.T) {
	s, _ := listenerStore()
	events, cancel := s.Subscribe()
	defer cancel()

	_, ok := <-events
	assert.False(t, ok, "expected a closed channel when no connection is available")
}
