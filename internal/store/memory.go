package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/Harshitk-cp/dialogreply/internal/domain"
	"github.com/Harshitk-cp/dialogreply/internal/graph"
)

// MemoryGraphStore keeps the whole graph in process. Elements live in an arena
// keyed by address; adjacency lists hold edge addresses in creation order.
type MemoryGraphStore struct {
	mu       sync.RWMutex
	elements map[domain.Addr]*domain.Element
	out      map[domain.Addr][]domain.Addr
	in       map[domain.Addr][]domain.Addr
	idtfs    map[string]domain.Addr
	names    map[domain.Addr]string

	events *fanout
}

func NewMemoryGraphStore() *MemoryGraphStore {
	return &MemoryGraphStore{
		elements: make(map[domain.Addr]*domain.Element),
		out:      make(map[domain.Addr][]domain.Addr),
		in:       make(map[domain.Addr][]domain.Addr),
		idtfs:    make(map[string]domain.Addr),
		names:    make(map[domain.Addr]string),
		events:   newFanout(),
	}
}

func (s *MemoryGraphStore) CreateNode(ctx context.Context, t domain.ElementType) (domain.Addr, error) {
	if !t.IsNode() || t.IsVar() {
		return domain.InvalidAddr, fmt.Errorf("%w: node type %d", ErrInvalidElement, t)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(domain.Element{Type: t}), nil
}

func (s *MemoryGraphStore) CreateLink(ctx context.Context, content string) (domain.Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(domain.Element{Type: domain.LinkConst, Content: content}), nil
}

func (s *MemoryGraphStore) CreateEdge(ctx context.Context, t domain.ElementType, source, target domain.Addr) (domain.Addr, error) {
	if !t.IsEdge() || t.IsVar() {
		return domain.InvalidAddr, fmt.Errorf("%w: edge type %d", ErrInvalidElement, t)
	}

	s.mu.Lock()
	if s.elements[source] == nil || s.elements[target] == nil {
		s.mu.Unlock()
		return domain.InvalidAddr, fmt.Errorf("%w: edge endpoint %s -> %s", ErrNotFound, source, target)
	}
	addr := s.insert(domain.Element{Type: t, Source: source, Target: target})
	s.out[source] = append(s.out[source], addr)
	s.in[target] = append(s.in[target], addr)
	ev := domain.Event{Kind: domain.EventEdgeAdded, Element: *s.elements[addr]}
	s.mu.Unlock()

	s.publish(ev)
	return addr, nil
}

func (s *MemoryGraphStore) insert(el domain.Element) domain.Addr {
	el.Addr = domain.NewAddr()
	s.elements[el.Addr] = &el
	return el.Addr
}

func (s *MemoryGraphStore) EraseElement(ctx context.Context, addr domain.Addr) error {
	s.mu.Lock()
	if s.elements[addr] == nil {
		s.mu.Unlock()
		return ErrNotFound
	}

	var erased []domain.Element
	queue := []domain.Addr{addr}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		el := s.elements[cur]
		if el == nil {
			continue
		}
		queue = append(queue, s.out[cur]...)
		queue = append(queue, s.in[cur]...)

		if el.Type.IsEdge() {
			if s.elements[el.Source] != nil {
				s.out[el.Source] = without(s.out[el.Source], cur)
			}
			if s.elements[el.Target] != nil {
				s.in[el.Target] = without(s.in[el.Target], cur)
			}
		}
		delete(s.elements, cur)
		delete(s.out, cur)
		delete(s.in, cur)
		if name, ok := s.names[cur]; ok {
			delete(s.idtfs, name)
			delete(s.names, cur)
		}
		erased = append(erased, *el)
	}
	s.mu.Unlock()

	for _, el := range erased {
		s.publish(domain.Event{Kind: domain.EventElementErased, Element: el})
	}
	return nil
}

func without(list []domain.Addr, addr domain.Addr) []domain.Addr {
	for i, a := range list {
		if a == addr {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}

func (s *MemoryGraphStore) EdgeExists(ctx context.Context, source, target domain.Addr, t domain.ElementType) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.out[source] {
		el := s.elements[e]
		if el.Target == target && t.Matches(el.Type) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryGraphStore) Element(ctx context.Context, addr domain.Addr) (*domain.Element, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().Element(ctx, addr)
}

func (s *MemoryGraphStore) OutEdges(ctx context.Context, addr domain.Addr) ([]domain.Element, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().OutEdges(ctx, addr)
}

func (s *MemoryGraphStore) InEdges(ctx context.Context, addr domain.Addr) ([]domain.Element, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().InEdges(ctx, addr)
}

// SearchTemplate holds the read lock for the whole search, so every hop sees
// the same graph.
func (s *MemoryGraphStore) SearchTemplate(ctx context.Context, tmpl *domain.Template, limit int) ([]domain.Binding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return graph.Search(ctx, s.reader(), tmpl, limit)
}

func (s *MemoryGraphStore) ResolveIdentifier(ctx context.Context, idtf string, t domain.ElementType) (domain.Addr, error) {
	if idtf == "" {
		return domain.InvalidAddr, fmt.Errorf("%w: empty identifier", ErrInvalidElement)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if addr, ok := s.idtfs[idtf]; ok {
		return addr, nil
	}
	if !t.IsNode() || t.IsVar() {
		return domain.InvalidAddr, fmt.Errorf("%w: node type %d", ErrInvalidElement, t)
	}
	addr := s.insert(domain.Element{Type: t})
	s.idtfs[idtf] = addr
	s.names[addr] = idtf
	return addr, nil
}

func (s *MemoryGraphStore) Identifier(ctx context.Context, addr domain.Addr) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.elements[addr] == nil {
		return "", ErrNotFound
	}
	return s.names[addr], nil
}

// Subscribe delivers edge additions and erasures to the returned channel until
// cancel is called. Delivery never blocks writers.
func (s *MemoryGraphStore) Subscribe() (<-chan domain.Event, func()) {
	return s.events.subscribe()
}

func (s *MemoryGraphStore) publish(ev domain.Event) {
	s.events.publish(ev)
}

// NodeCount returns the number of nodes and links in the graph.
func (s *MemoryGraphStore) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, el := range s.elements {
		if !el.Type.IsEdge() {
			n++
		}
	}
	return n
}

// reader reads without locking; callers hold s.mu.
func (s *MemoryGraphStore) reader() memReader {
	return memReader{s: s}
}

type memReader struct {
	s *MemoryGraphStore
}

func (r memReader) Element(ctx context.Context, addr domain.Addr) (*domain.Element, error) {
	el := r.s.elements[addr]
	if el == nil {
		return nil, ErrNotFound
	}
	cp := *el
	return &cp, nil
}

func (r memReader) OutEdges(ctx context.Context, addr domain.Addr) ([]domain.Element, error) {
	return r.collect(r.s.out[addr]), nil
}

func (r memReader) InEdges(ctx context.Context, addr domain.Addr) ([]domain.Element, error) {
	return r.collect(r.s.in[addr]), nil
}

func (r memReader) collect(addrs []domain.Addr) []domain.Element {
	edges := make([]domain.Element, 0, len(addrs))
	for _, a := range addrs {
		edges = append(edges, *r.s.elements[a])
	}
	return edges
}

var (
	_ domain.GraphStore = (*MemoryGraphStore)(nil)
	_ domain.Subscriber = (*MemoryGraphStore)(nil)
	_ graph.Reader      = memReader{}
)
