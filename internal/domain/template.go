package domain

import "fmt"

// TemplateItem is one position of a template triple: a fixed element, a typed
// variable (optionally aliased), or a reference to an aliased variable.
type TemplateItem struct {
	Addr  Addr
	Type  ElementType
	Alias string
	Ref   string
}

func Fixed(a Addr) TemplateItem {
	return TemplateItem{Addr: a}
}

func Var(t ElementType) TemplateItem {
	return TemplateItem{Type: t}
}

func Ref(name string) TemplateItem {
	return TemplateItem{Ref: name}
}

// As names the variable so that later triples and the caller can refer to it.
func (i TemplateItem) As(alias string) TemplateItem {
	i.Alias = alias
	return i
}

func (i TemplateItem) IsFixed() bool {
	return i.Addr.IsValid()
}

type TemplateTriple struct {
	Source TemplateItem
	Edge   TemplateItem
	Target TemplateItem
}

// Template is an ordered list of edge constraints that must hold jointly.
type Template struct {
	Triples []TemplateTriple
}

func NewTemplate() *Template {
	return &Template{}
}

func (t *Template) Triple(source, edge, target TemplateItem) *Template {
	t.Triples = append(t.Triples, TemplateTriple{Source: source, Edge: edge, Target: target})
	return t
}

// TripleWithRelation adds source -edge-> target and relation -relEdge-> edge.
func (t *Template) TripleWithRelation(source, edge, target, relEdge, relation TemplateItem) *Template {
	if edge.Alias == "" && edge.Ref == "" {
		edge.Alias = fmt.Sprintf("_edge%d", len(t.Triples))
	}
	edgeName := edge.Alias
	if edgeName == "" {
		edgeName = edge.Ref
	}
	t.Triple(source, edge, target)
	return t.Triple(relation, relEdge, Ref(edgeName))
}

// Binding maps template aliases to the elements they matched.
type Binding map[string]Addr

func (b Binding) Get(alias string) Addr {
	return b[alias]
}
