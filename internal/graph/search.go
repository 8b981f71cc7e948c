// Package graph evaluates templates and role lookups over any store that can
// enumerate incident edges.
package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/Harshitk-cp/dialogreply/internal/domain"
)

var (
	ErrUnanchoredTemplate = errors.New("template triple has no bound endpoint")
	ErrUnknownVariable    = errors.New("template references an undeclared variable")
	ErrDuplicateVariable  = errors.New("template declares a variable twice")
)

// Reader is the read side of a graph store that the matcher needs.
type Reader interface {
	Element(ctx context.Context, addr domain.Addr) (*domain.Element, error)
	OutEdges(ctx context.Context, addr domain.Addr) ([]domain.Element, error)
	InEdges(ctx context.Context, addr domain.Addr) ([]domain.Element, error)
}

// Search returns every binding that satisfies all triples of tmpl at once.
//
// Triples are expanded depth first. At each step the first pending triple (in
// template order) with a bound endpoint is taken, and candidate edges are tried
// in the reader's order, which for the stores in this module is creation order.
// The first binding returned is therefore deterministic for a given graph.
func Search(ctx context.Context, r Reader, tmpl *domain.Template, limit int) ([]domain.Binding, error) {
	decls, err := declarations(tmpl)
	if err != nil {
		return nil, err
	}
	s := &searcher{
		r:       r,
		triples: tmpl.Triples,
		decls:   decls,
		limit:   limit,
		done:    make([]bool, len(tmpl.Triples)),
		bound:   domain.Binding{},
		types:   make(map[domain.Addr]domain.ElementType),
	}
	if err := s.expand(ctx, len(tmpl.Triples)); err != nil && !errors.Is(err, errLimit) {
		return nil, err
	}
	return s.results, nil
}

var errLimit = errors.New("limit reached")

func declarations(tmpl *domain.Template) (map[string]domain.ElementType, error) {
	decls := make(map[string]domain.ElementType)
	for _, tr := range tmpl.Triples {
		for _, it := range []domain.TemplateItem{tr.Source, tr.Edge, tr.Target} {
			if it.Alias == "" {
				continue
			}
			if _, dup := decls[it.Alias]; dup {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateVariable, it.Alias)
			}
			decls[it.Alias] = it.Type
		}
	}
	for _, tr := range tmpl.Triples {
		for _, it := range []domain.TemplateItem{tr.Source, tr.Edge, tr.Target} {
			if it.Ref == "" {
				continue
			}
			if _, ok := decls[it.Ref]; !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnknownVariable, it.Ref)
			}
		}
	}
	return decls, nil
}

type searcher struct {
	r       Reader
	triples []domain.TemplateTriple
	decls   map[string]domain.ElementType
	limit   int
	done    []bool
	bound   domain.Binding
	types   map[domain.Addr]domain.ElementType
	results []domain.Binding
}

func (s *searcher) expand(ctx context.Context, pending int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if pending == 0 {
		res := make(domain.Binding, len(s.bound))
		for k, v := range s.bound {
			res[k] = v
		}
		s.results = append(s.results, res)
		if s.limit > 0 && len(s.results) >= s.limit {
			return errLimit
		}
		return nil
	}

	idx, fromSource := s.next()
	if idx < 0 {
		return ErrUnanchoredTemplate
	}
	tr := s.triples[idx]
	s.done[idx] = true
	defer func() { s.done[idx] = false }()

	var (
		anchor domain.Addr
		edges  []domain.Element
		err    error
	)
	if fromSource {
		anchor, _ = s.resolve(tr.Source)
		edges, err = s.r.OutEdges(ctx, anchor)
	} else {
		anchor, _ = s.resolve(tr.Target)
		edges, err = s.r.InEdges(ctx, anchor)
	}
	if err != nil {
		return err
	}

	for _, e := range edges {
		other, otherItem := e.Target, tr.Target
		if !fromSource {
			other, otherItem = e.Source, tr.Source
		}

		var assigned []string
		ok, err := s.bind(ctx, tr.Edge, e.Addr, e.Type, &assigned)
		if err == nil && ok {
			ok, err = s.bind(ctx, otherItem, other, 0, &assigned)
		}
		if err != nil {
			return err
		}
		if ok {
			if err := s.expand(ctx, pending-1); err != nil {
				s.unbind(assigned)
				return err
			}
		}
		s.unbind(assigned)
	}
	return nil
}

// next picks the first pending triple with a bound endpoint. When both ends are
// bound, a variable end is expanded rather than a fixed one: fixed elements are
// usually classes and relations with large fan-out.
func (s *searcher) next() (int, bool) {
	for i, tr := range s.triples {
		if s.done[i] {
			continue
		}
		_, srcOK := s.resolve(tr.Source)
		_, trgOK := s.resolve(tr.Target)
		switch {
		case srcOK && trgOK:
			return i, !(tr.Source.IsFixed() && !tr.Target.IsFixed())
		case srcOK:
			return i, true
		case trgOK:
			return i, false
		}
	}
	return -1, false
}

func (s *searcher) resolve(it domain.TemplateItem) (domain.Addr, bool) {
	if it.IsFixed() {
		return it.Addr, true
	}
	name := itemName(it)
	if name == "" {
		return domain.InvalidAddr, false
	}
	a, ok := s.bound[name]
	return a, ok
}

// bind checks addr against the item and records new variable assignments.
// knownType is the element type when the caller already has it, 0 otherwise.
func (s *searcher) bind(ctx context.Context, it domain.TemplateItem, addr domain.Addr, knownType domain.ElementType, assigned *[]string) (bool, error) {
	if it.IsFixed() {
		return it.Addr == addr, nil
	}
	name := itemName(it)
	if name != "" {
		if cur, ok := s.bound[name]; ok {
			return cur == addr, nil
		}
	}

	want := it.Type
	if it.Ref != "" {
		want = s.decls[it.Ref]
	}
	if want != 0 {
		actual := knownType
		if actual == 0 {
			var err error
			if actual, err = s.typeOf(ctx, addr); err != nil {
				return false, err
			}
		}
		if !want.Matches(actual) {
			return false, nil
		}
	}

	if name != "" {
		s.bound[name] = addr
		*assigned = append(*assigned, name)
	}
	return true, nil
}

func (s *searcher) unbind(names []string) {
	for _, n := range names {
		delete(s.bound, n)
	}
}

func (s *searcher) typeOf(ctx context.Context, addr domain.Addr) (domain.ElementType, error) {
	if t, ok := s.types[addr]; ok {
		return t, nil
	}
	el, err := s.r.Element(ctx, addr)
	if err != nil {
		return 0, err
	}
	s.types[addr] = el.Type
	return el.Type, nil
}

func itemName(it domain.TemplateItem) string {
	if it.Alias != "" {
		return it.Alias
	}
	return it.Ref
}
