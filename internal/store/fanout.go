package store

import (
	"sync"

	"github.com/Harshitk-cp/dialogreply/internal/domain"
)

// fanout delivers events to in-process subscribers. Each subscriber has its
// own unbounded queue, so publishers never wait on slow readers.
type fanout struct {
	mu     sync.Mutex
	subs   map[int]*subscription
	next   int
	closed bool
}

func newFanout() *fanout {
	return &fanout{subs: make(map[int]*subscription)}
}

// subscribe registers a subscriber. After closeAll it returns a closed channel.
func (f *fanout) subscribe() (<-chan domain.Event, func()) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return closedEvents(), func() {}
	}
	sub := newSubscription()
	id := f.next
	f.next++
	f.subs[id] = sub
	f.mu.Unlock()

	go sub.run()

	cancel := func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
		sub.close()
	}
	return sub.out, cancel
}

func (f *fanout) publish(ev domain.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.subs {
		sub.push(ev)
	}
}

// closeAll closes every subscriber channel and rejects new subscribers.
func (f *fanout) closeAll() {
	f.mu.Lock()
	subs := f.subs
	f.subs = make(map[int]*subscription)
	f.closed = true
	f.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}

func (f *fanout) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func closedEvents() <-chan domain.Event {
	ch := make(chan domain.Event)
	close(ch)
	return ch
}

type subscription struct {
	mu     sync.Mutex
	queue  []domain.Event
	notify chan struct{}
	out    chan domain.Event
	done   chan struct{}
	once   sync.Once
}

func newSubscription() *subscription {
	return &subscription{
		notify: make(chan struct{}, 1),
		out:    make(chan domain.Event),
		done:   make(chan struct{}),
	}
}

func (sub *subscription) push(ev domain.Event) {
	sub.mu.Lock()
	sub.queue = append(sub.queue, ev)
	sub.mu.Unlock()
	select {
	case sub.notify <- struct{}{}:
	default:
	}
}

func (sub *subscription) run() {
	defer close(sub.out)
	for {
		sub.mu.Lock()
		batch := sub.queue
		sub.queue = nil
		sub.mu.Unlock()

		for _, ev := range batch {
			select {
			case sub.out <- ev:
			case <-sub.done:
				return
			}
		}

		select {
		case <-sub.notify:
		case <-sub.done:
			return
		}
	}
}

func (sub *subscription) close() {
	sub.once.Do(func() { close(sub.done) })
}
