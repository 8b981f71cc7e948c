package graph_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Harshitk-cp/dialogreply/internal/domain"
	"github.com/Harshitk-cp/dialogreply/internal/graph"
	"github.com/Harshitk-cp/dialogreply/internal/store"
)

type fixture struct {
	t   *testing.T
	ctx context.Context
	s   *store.MemoryGraphStore
}

func newFixture(t *testing.T) *fixture {
	return &fixture{t: t, ctx: context.Background(), s: store.NewMemoryGraphStore()}
}

func (f *fixture) node(t domain.ElementType) domain.Addr {
	f.t.Helper()
	a, err := f.s.CreateNode(f.ctx, t)
	if err != nil {
		f.t.Fatalf("create node: %v", err)
	}
	return a
}

func (f *fixture) edge(t domain.ElementType, src, trg domain.Addr) domain.Addr {
	f.t.Helper()
	a, err := f.s.CreateEdge(f.ctx, t, src, trg)
	if err != nil {
		f.t.Fatalf("create edge: %v", err)
	}
	return a
}

func (f *fixture) search(tmpl *domain.Template, limit int) []domain.Binding {
	f.t.Helper()
	res, err := f.s.SearchTemplate(f.ctx, tmpl, limit)
	if err != nil {
		f.t.Fatalf("search: %v", err)
	}
	return res
}

func TestSearch_SingleTriple(t *testing.T) {
	f := newFixture(t)
	class := f.node(domain.NodeConst)
	a := f.node(domain.NodeConst)
	b := f.node(domain.NodeConst)
	f.edge(domain.EdgeAccessConstPosPerm, class, a)
	f.edge(domain.EdgeAccessConstPosPerm, class, b)

	tmpl := domain.NewTemplate().Triple(
		domain.Fixed(class),
		domain.Var(domain.EdgeAccessVarPosPerm),
		domain.Var(domain.NodeVar).As("x"))

	res := f.search(tmpl, 0)
	if len(res) != 2 {
		t.Fatalf("expected 2 bindings, got %d", len(res))
	}
	if res[0].Get("x") != a || res[1].Get("x") != b {
		t.Fatal("expected bindings in creation order")
	}

	res = f.search(tmpl, 1)
	if len(res) != 1 || res[0].Get("x") != a {
		t.Fatalf("expected only the first binding with limit 1, got %v", res)
	}
}

func TestSearch_TypeFiltering(t *testing.T) {
	f := newFixture(t)
	class := f.node(domain.NodeConst)
	plain := f.node(domain.NodeConst)
	tuple := f.node(domain.NodeConstTuple)
	f.edge(domain.EdgeAccessConstPosPerm, class, plain)
	f.edge(domain.EdgeAccessConstPosTemp, class, tuple)
	f.edge(domain.EdgeAccessConstPosPerm, class, tuple)

	tmpl := domain.NewTemplate().Triple(
		domain.Fixed(class),
		domain.Var(domain.EdgeAccessVarPosPerm),
		domain.Var(domain.NodeVarTuple).As("x"))

	res := f.search(tmpl, 0)
	if len(res) != 1 {
		t.Fatalf("expected 1 binding, got %d", len(res))
	}
	if res[0].Get("x") != tuple {
		t.Fatal("expected the tuple to be bound")
	}
}

func TestSearch_RelationOnEdge(t *testing.T) {
	f := newFixture(t)
	rel := f.node(domain.NodeConst)
	src := f.node(domain.NodeConst)
	tagged := f.node(domain.NodeConst)
	untagged := f.node(domain.NodeConst)

	f.edge(domain.EdgeDCommonConst, src, untagged)
	e := f.edge(domain.EdgeDCommonConst, src, tagged)
	f.edge(domain.EdgeAccessConstPosPerm, rel, e)

	tmpl := domain.NewTemplate().TripleWithRelation(
		domain.Fixed(src),
		domain.Var(domain.EdgeDCommonVar),
		domain.Var(domain.NodeVar).As("x"),
		domain.Var(domain.EdgeAccessVarPosPerm),
		domain.Fixed(rel))

	res := f.search(tmpl, 0)
	if len(res) != 1 || res[0].Get("x") != tagged {
		t.Fatalf("expected the tagged target only, got %v", res)
	}
	if res[0].Get("_edge0") != e {
		t.Fatal("expected the relation edge to be bound under its generated alias")
	}
}

func TestSearch_RefsMustAgree(t *testing.T) {
	f := newFixture(t)
	a := f.node(domain.NodeConst)
	b := f.node(domain.NodeConst)
	c := f.node(domain.NodeConst)
	f.edge(domain.EdgeAccessConstPosPerm, a, b)
	f.edge(domain.EdgeAccessConstPosPerm, a, c)
	f.edge(domain.EdgeAccessConstPosPerm, c, a)

	// a -> x and x -> a: only c closes the cycle.
	tmpl := domain.NewTemplate().
		Triple(domain.Fixed(a), domain.Var(domain.EdgeAccessVarPosPerm), domain.Var(domain.NodeVar).As("x")).
		Triple(domain.Ref("x"), domain.Var(domain.EdgeAccessVarPosPerm), domain.Fixed(a))

	res := f.search(tmpl, 0)
	if len(res) != 1 || res[0].Get("x") != c {
		t.Fatalf("expected x bound to c, got %v", res)
	}
}

func TestSearch_OrderIndependent(t *testing.T) {
	f := newFixture(t)
	a := f.node(domain.NodeConst)
	b := f.node(domain.NodeConst)
	c := f.node(domain.NodeConst)
	f.edge(domain.EdgeAccessConstPosPerm, a, b)
	f.edge(domain.EdgeAccessConstPosPerm, b, c)

	// y is referenced before the triple that declares it.
	tmpl := domain.NewTemplate().
		Triple(domain.Ref("y"), domain.Var(domain.EdgeAccessVarPosPerm), domain.Fixed(c)).
		Triple(domain.Fixed(a), domain.Var(domain.EdgeAccessVarPosPerm), domain.Var(domain.NodeVar).As("y"))

	res := f.search(tmpl, 0)
	if len(res) != 1 || res[0].Get("y") != b {
		t.Fatalf("expected y bound to b, got %v", res)
	}
}

func TestSearch_NoMatch(t *testing.T) {
	f := newFixture(t)
	a := f.node(domain.NodeConst)

	tmpl := domain.NewTemplate().Triple(
		domain.Fixed(a), domain.Var(domain.EdgeAccessVarPosPerm), domain.Var(domain.NodeVar).As("x"))

	if res := f.search(tmpl, 0); len(res) != 0 {
		t.Fatalf("expected no bindings, got %v", res)
	}
}

func TestSearch_InvalidTemplates(t *testing.T) {
	f := newFixture(t)
	a := f.node(domain.NodeConst)

	tests := []struct {
		name string
		tmpl *domain.Template
		want error
	}{
		{
			name: "unanchored",
			tmpl: domain.NewTemplate().Triple(
				domain.Var(domain.NodeVar).As("x"),
				domain.Var(domain.EdgeAccessVarPosPerm),
				domain.Var(domain.NodeVar).As("y")),
			want: graph.ErrUnanchoredTemplate,
		},
		{
			name: "unknown ref",
			tmpl: domain.NewTemplate().Triple(
				domain.Fixed(a), domain.Var(domain.EdgeAccessVarPosPerm), domain.Ref("missing")),
			want: graph.ErrUnknownVariable,
		},
		{
			name: "duplicate alias",
			tmpl: domain.NewTemplate().
				Triple(domain.Fixed(a), domain.Var(domain.EdgeAccessVarPosPerm), domain.Var(domain.NodeVar).As("x")).
				Triple(domain.Fixed(a), domain.Var(domain.EdgeAccessVarPosPerm), domain.Var(domain.NodeVar).As("x")),
			want: graph.ErrDuplicateVariable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.s.SearchTemplate(f.ctx, tt.tmpl, 0)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestSearch_CancelledContext(t *testing.T) {
	f := newFixture(t)
	a := f.node(domain.NodeConst)
	f.edge(domain.EdgeAccessConstPosPerm, a, f.node(domain.NodeConst))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tmpl := domain.NewTemplate().Triple(
		domain.Fixed(a), domain.Var(domain.EdgeAccessVarPosPerm), domain.Var(domain.NodeVar).As("x"))
	if _, err := f.s.SearchTemplate(ctx, tmpl, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
