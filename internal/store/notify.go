package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Harshitk-cp/dialogreply/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	eventsChannel   = "graph_events"
	listenTimeout   = 5 * time.Second
	unlistenTimeout = time.Second
)

// notifyConn is a connection in LISTEN mode on eventsChannel.
type notifyConn interface {
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Close()
}

type notifyPayload struct {
	Kind   string             `json:"kind"`
	Addr   domain.Addr        `json:"addr"`
	Type   domain.ElementType `json:"type"`
	Source domain.Addr        `json:"source"`
	Target domain.Addr        `json:"target"`
}

func (p notifyPayload) event() (domain.Event, bool) {
	var kind domain.EventKind
	switch p.Kind {
	case "edge_added":
		kind = domain.EventEdgeAdded
	case "element_erased":
		kind = domain.EventElementErased
	default:
		return domain.Event{}, false
	}
	return domain.Event{
		Kind: kind,
		Element: domain.Element{
			Addr:   p.Addr,
			Type:   p.Type,
			Source: p.Source,
			Target: p.Target,
		},
	}, true
}

// Subscribe registers with the store's listener, starting it on first use.
// All subscribers share one connection. LISTEN is active before Subscribe
// returns, so every change committed afterwards is delivered. If the listener
// cannot start or its connection is lost, subscriber channels are closed and
// the next Subscribe starts a new listener.
func (s *PostgresGraphStore) Subscribe() (<-chan domain.Event, func()) {
	s.listenMu.Lock()
	defer s.listenMu.Unlock()

	if s.events == nil {
		if err := s.startListener(); err != nil {
			return closedEvents(), func() {}
		}
	}
	return s.events.subscribe()
}

// Close stops the listener and closes all subscriptions. The pool is owned by
// the caller.
func (s *PostgresGraphStore) Close() {
	s.listenMu.Lock()
	stop, done := s.stopListen, s.listenDone
	s.events, s.stopListen, s.listenDone = nil, nil, nil
	s.listenMu.Unlock()

	if stop != nil {
		stop()
		<-done
	}
}

// startListener must be called with listenMu held.
func (s *PostgresGraphStore) startListener() error {
	ctx, cancel := context.WithCancel(context.Background())
	connectCtx, cancelConnect := context.WithTimeout(ctx, listenTimeout)
	conn, err := s.connect(connectCtx)
	cancelConnect()
	if err != nil {
		cancel()
		return err
	}

	events := newFanout()
	done := make(chan struct{})
	s.events, s.stopListen, s.listenDone = events, cancel, done
	go s.listen(ctx, conn, events, done)
	return nil
}

func (s *PostgresGraphStore) listen(ctx context.Context, conn notifyConn, events *fanout, done chan struct{}) {
	defer close(done)
	defer conn.Close()
	defer events.closeAll()

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			break
		}
		var p notifyPayload
		if err := json.Unmarshal([]byte(n.Payload), &p); err != nil {
			continue
		}
		if ev, ok := p.event(); ok {
			events.publish(ev)
		}
	}

	s.listenMu.Lock()
	if s.events == events {
		s.events, s.stopListen, s.listenDone = nil, nil, nil
	}
	s.listenMu.Unlock()
}

// poolListener holds one pooled connection in LISTEN mode.
type poolListener struct {
	conn *pgxpool.Conn
}

func listenOnPool(pool *pgxpool.Pool) func(ctx context.Context) (notifyConn, error) {
	return func(ctx context.Context) (notifyConn, error) {
		conn, err := pool.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		if _, err := conn.Exec(ctx, "LISTEN "+eventsChannel); err != nil {
			conn.Release()
			return nil, err
		}
		return poolListener{conn: conn}, nil
	}
}

func (l poolListener) WaitForNotification(ctx context.Context) (*pgconn.Notification, error) {
	return l.conn.Conn().WaitForNotification(ctx)
}

func (l poolListener) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), unlistenTimeout)
	defer cancel()
	if _, err := l.conn.Exec(ctx, "UNLISTEN *"); err != nil {
		// Never hand a listening connection back to the pool.
		_ = l.conn.Hijack().Close(ctx)
		return
	}
	l.conn.Release()
}
