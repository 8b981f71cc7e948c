package domain

import (
	"context"

	"github.com/google/uuid"
)

// Addr is a stable handle of a graph element. The zero value is the invalid address.
type Addr uuid.UUID

// InvalidAddr is returned by lookups that found nothing.
var InvalidAddr Addr

func NewAddr() Addr {
	return Addr(uuid.New())
}

func ParseAddr(s string) (Addr, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return InvalidAddr, err
	}
	return Addr(id), nil
}

func (a Addr) IsValid() bool {
	return a != InvalidAddr
}

func (a Addr) String() string {
	return uuid.UUID(a).String()
}

func (a Addr) UUID() uuid.UUID {
	return uuid.UUID(a)
}

func (a Addr) MarshalText() ([]byte, error) {
	return uuid.UUID(a).MarshalText()
}

func (a *Addr) UnmarshalText(data []byte) error {
	return (*uuid.UUID)(a).UnmarshalText(data)
}

// ElementType is a set of flags describing the kind of a graph element.
type ElementType uint16

const (
	TypeNode ElementType = 1 << iota
	TypeLink
	TypeEdgeAccess
	TypeEdgeDCommon
	TypeConst
	TypeVar
	TypeTuple
	TypePos
	TypeNeg
	TypePerm
	TypeTemp
)

const (
	NodeConst      = TypeNode | TypeConst
	NodeConstTuple = TypeNode | TypeConst | TypeTuple
	LinkConst      = TypeNode | TypeLink | TypeConst
	NodeVar        = TypeNode | TypeVar
	NodeVarTuple   = TypeNode | TypeVar | TypeTuple

	EdgeAccessConstPosPerm = TypeEdgeAccess | TypeConst | TypePos | TypePerm
	EdgeAccessConstPosTemp = TypeEdgeAccess | TypeConst | TypePos | TypeTemp
	EdgeAccessVarPosPerm   = TypeEdgeAccess | TypeVar | TypePos | TypePerm
	EdgeDCommonConst       = TypeEdgeDCommon | TypeConst
	EdgeDCommonVar         = TypeEdgeDCommon | TypeVar

	// EdgeAccessVarPos matches both permanent and temporary positive access edges.
	EdgeAccessVarPos = TypeEdgeAccess | TypeVar | TypePos
)

const constancyMask = TypeConst | TypeVar

func (t ElementType) IsNode() bool { return t&TypeNode != 0 }
func (t ElementType) IsLink() bool { return t&TypeLink != 0 }
func (t ElementType) IsEdge() bool { return t&(TypeEdgeAccess|TypeEdgeDCommon) != 0 }
func (t ElementType) IsVar() bool  { return t&TypeVar != 0 }

// Const returns the constant counterpart of a variable type.
func (t ElementType) Const() ElementType {
	return t&^TypeVar | TypeConst
}

// Matches reports whether an element of type actual satisfies t. Every semantic
// flag of t must be present on actual; constancy is ignored.
func (t ElementType) Matches(actual ElementType) bool {
	want := t &^ constancyMask
	return actual&want == want
}

// Element is a node, link or edge. Source and Target are set for edges only,
// Content for links only.
type Element struct {
	Addr    Addr
	Type    ElementType
	Source  Addr
	Target  Addr
	Content string
}

type EventKind int

const (
	EventEdgeAdded EventKind = iota + 1
	EventElementErased
)

// Event is emitted by stores that support subscriptions.
type Event struct {
	Kind    EventKind
	Element Element
}

// GraphStore is the shared semantic memory. Point mutations are serialized by the
// store; there are no multi-step transactions.
type GraphStore interface {
	CreateNode(ctx context.Context, t ElementType) (Addr, error)
	CreateLink(ctx context.Context, content string) (Addr, error)
	CreateEdge(ctx context.Context, t ElementType, source, target Addr) (Addr, error)
	// EraseElement removes the element and, recursively, every edge incident to it.
	EraseElement(ctx context.Context, addr Addr) error
	EdgeExists(ctx context.Context, source, target Addr, t ElementType) (bool, error)

	Element(ctx context.Context, addr Addr) (*Element, error)
	// OutEdges and InEdges return incident edges in creation order.
	OutEdges(ctx context.Context, addr Addr) ([]Element, error)
	InEdges(ctx context.Context, addr Addr) ([]Element, error)

	// SearchTemplate evaluates the whole template against one consistent view of
	// the graph. limit <= 0 means no limit.
	SearchTemplate(ctx context.Context, tmpl *Template, limit int) ([]Binding, error)

	// ResolveIdentifier returns the element with the given system identifier,
	// creating a node of type t when none exists.
	ResolveIdentifier(ctx context.Context, idtf string, t ElementType) (Addr, error)
	Identifier(ctx context.Context, addr Addr) (string, error)
}

// Subscriber is implemented by stores that push mutation events.
type Subscriber interface {
	// Subscribe returns a channel of events and a cancel func that closes it.
	Subscribe() (<-chan Event, func())
}
