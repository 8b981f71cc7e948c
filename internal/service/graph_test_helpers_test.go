package service

import (
	"context"
	"testing"

	"github.com/Harshitk-cp/dialogreply/internal/domain"
	"github.com/Harshitk-cp/dialogreply/internal/keynodes"
	"github.com/Harshitk-cp/dialogreply/internal/store"
	"go.uber.org/zap"
)

// testGraph is an in-memory graph with resolved keynodes and builders for
// the constructions the services read.
type testGraph struct {
	t      *testing.T
	ctx    context.Context
	store  *store.MemoryGraphStore
	k      *keynodes.Keynodes
	logger *zap.Logger
}

func newTestGraph(t *testing.T) *testGraph {
	t.Helper()
	ctx := context.Background()
	s := store.NewMemoryGraphStore()
	k, err := keynodes.Resolve(ctx, s)
	if err != nil {
		t.Fatalf("resolve keynodes: %v", err)
	}
	return &testGraph{t: t, ctx: ctx, store: s, k: k, logger: zap.NewNop()}
}

func (g *testGraph) node() domain.Addr {
	return g.typedNode(domain.NodeConst)
}

func (g *testGraph) typedNode(t domain.ElementType) domain.Addr {
	g.t.Helper()
	a, err := g.store.CreateNode(g.ctx, t)
	if err != nil {
		g.t.Fatalf("create node: %v", err)
	}
	return a
}

func (g *testGraph) named(idtf string) domain.Addr {
	g.t.Helper()
	a, err := g.store.ResolveIdentifier(g.ctx, idtf, domain.NodeConst)
	if err != nil {
		g.t.Fatalf("resolve %s: %v", idtf, err)
	}
	return a
}

func (g *testGraph) access(src, trg domain.Addr) domain.Addr {
	return g.edge(domain.EdgeAccessConstPosPerm, src, trg)
}

func (g *testGraph) edge(t domain.ElementType, src, trg domain.Addr) domain.Addr {
	g.t.Helper()
	a, err := g.store.CreateEdge(g.ctx, t, src, trg)
	if err != nil {
		g.t.Fatalf("create edge: %v", err)
	}
	return a
}

// role adds src -> trg tagged with role.
func (g *testGraph) role(src, trg, role domain.Addr) domain.Addr {
	e := g.access(src, trg)
	g.access(role, e)
	return e
}

// relation adds src => trg tagged with rel.
func (g *testGraph) relation(src, trg, rel domain.Addr) domain.Addr {
	e := g.edge(domain.EdgeDCommonConst, src, trg)
	g.access(rel, e)
	return e
}

func (g *testGraph) hasEdge(src, trg domain.Addr, t domain.ElementType) bool {
	g.t.Helper()
	ok, err := g.store.EdgeExists(g.ctx, src, trg, t)
	if err != nil {
		g.t.Fatalf("edge exists: %v", err)
	}
	return ok
}

// message creates a dialog message with the given text.
func (g *testGraph) message(text string) domain.Addr {
	g.t.Helper()
	m := g.node()
	g.access(g.k.ConceptMessage, m)
	if text != "" {
		if _, err := NewConstructionsGenerator(g.store, g.k).GenerateTextTranslation(g.ctx, m, g.k.LangEn, text); err != nil {
			g.t.Fatalf("generate text: %v", err)
		}
	}
	return m
}

// ruleHop names one link of the rule chain so tests can leave it out.
type ruleHop string

const (
	hopNone       ruleHop = ""
	hopTuple      ruleHop = "tuple"
	hopRrel3      ruleHop = "rrel_3"
	hopNrelAnswer ruleHop = "nrel_answer"
	hopNode3      ruleHop = "node3"
	hopRrel1      ruleHop = "rrel_1"
	hopRuleClass  ruleHop = "rule_class"
)

// ruleChain links message to a new logic rule and returns the rule.
func (g *testGraph) ruleChain(message domain.Addr, skip ruleHop) domain.Addr {
	tuple := g.typedNode(domain.NodeConstTuple)
	n1, n2, n3, rule := g.node(), g.node(), g.node(), g.node()

	if skip != hopTuple {
		g.access(tuple, message)
	}
	if skip != hopRrel3 {
		g.role(n1, tuple, g.k.Rrel3)
	} else {
		g.access(n1, tuple)
	}
	if skip != hopNrelAnswer {
		g.relation(n1, n2, g.k.NrelAnswer)
	} else {
		g.edge(domain.EdgeDCommonConst, n1, n2)
	}
	if skip != hopNode3 {
		g.access(n3, n2)
	}
	if skip != hopRrel1 {
		g.role(n3, rule, g.k.Rrel1)
	} else {
		g.access(n3, rule)
	}
	if skip != hopRuleClass {
		g.access(g.k.ConceptAnswerOnStandardMessageRule, rule)
	}
	return rule
}
