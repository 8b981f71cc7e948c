package graph

import (
	"context"

	"github.com/Harshitk-cp/dialogreply/internal/domain"
)

// RoleTarget returns the target of the first node -access-> target edge that is
// tagged with role, or InvalidAddr.
func RoleTarget(ctx context.Context, r Reader, node, role domain.Addr) (domain.Addr, error) {
	return outByRelation(ctx, r, node, role, domain.EdgeAccessVarPos)
}

// RelationTarget returns the target of the first node =dcommon=> target edge
// tagged with relation, or InvalidAddr.
func RelationTarget(ctx context.Context, r Reader, node, relation domain.Addr) (domain.Addr, error) {
	return outByRelation(ctx, r, node, relation, domain.EdgeDCommonVar)
}

// RelationSource is RelationTarget in the opposite direction.
func RelationSource(ctx context.Context, r Reader, node, relation domain.Addr) (domain.Addr, error) {
	edge, err := FirstInRelationEdge(ctx, r, node, relation)
	if err != nil || edge == nil {
		return domain.InvalidAddr, err
	}
	return edge.Source, nil
}

// FirstInRelationEdge returns the first source =dcommon=> node edge tagged with
// relation, or nil.
func FirstInRelationEdge(ctx context.Context, r Reader, node, relation domain.Addr) (*domain.Element, error) {
	edges, err := r.InEdges(ctx, node)
	if err != nil {
		return nil, err
	}
	for i := range edges {
		if !domain.EdgeDCommonVar.Matches(edges[i].Type) {
			continue
		}
		tagged, err := IsMember(ctx, r, relation, edges[i].Addr)
		if err != nil {
			return nil, err
		}
		if tagged {
			return &edges[i], nil
		}
	}
	return nil, nil
}

func outByRelation(ctx context.Context, r Reader, node, relation domain.Addr, edgeType domain.ElementType) (domain.Addr, error) {
	edges, err := r.OutEdges(ctx, node)
	if err != nil {
		return domain.InvalidAddr, err
	}
	for _, e := range edges {
		if !edgeType.Matches(e.Type) {
			continue
		}
		tagged, err := IsMember(ctx, r, relation, e.Addr)
		if err != nil {
			return domain.InvalidAddr, err
		}
		if tagged {
			return e.Target, nil
		}
	}
	return domain.InvalidAddr, nil
}

// IsMember reports whether set -access-> element exists with positive polarity.
func IsMember(ctx context.Context, r Reader, set, element domain.Addr) (bool, error) {
	edges, err := r.InEdges(ctx, element)
	if err != nil {
		return false, err
	}
	for _, e := range edges {
		if e.Source == set && domain.EdgeAccessVarPos.Matches(e.Type) {
			return true, nil
		}
	}
	return false, nil
}

// Members returns the targets of positive access edges leaving set.
func Members(ctx context.Context, r Reader, set domain.Addr) ([]domain.Addr, error) {
	edges, err := r.OutEdges(ctx, set)
	if err != nil {
		return nil, err
	}
	var out []domain.Addr
	for _, e := range edges {
		if domain.EdgeAccessVarPos.Matches(e.Type) {
			out = append(out, e.Target)
		}
	}
	return out, nil
}
