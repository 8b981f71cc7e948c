package service

import (
	"context"
	"fmt"

	"github.com/Harshitk-cp/dialogreply/internal/domain"
	"github.com/Harshitk-cp/dialogreply/internal/graph"
	"github.com/Harshitk-cp/dialogreply/internal/keynodes"
	"go.uber.org/zap"
)

// ParameterAggregator groups the context of a message into one node for the
// reply formatter. Members are tagged rrel_1 (message), rrel_2 (author) and
// rrel_3 (theme).
type ParameterAggregator struct {
	store    domain.GraphStore
	keynodes *keynodes.Keynodes
	logger   *zap.Logger
}

func NewParameterAggregator(s domain.GraphStore, k *keynodes.Keynodes, logger *zap.Logger) *ParameterAggregator {
	return &ParameterAggregator{store: s, keynodes: k, logger: logger}
}

// BuildParameters creates a fresh bundle holding message and, when valid,
// author and theme. Each element is added at most once; an element passed in
// two positions carries both roles on the same edge. The check and the
// insert are separate store calls, so this is best-effort under concurrency.
func (a *ParameterAggregator) BuildParameters(ctx context.Context, message, author, theme domain.Addr) (domain.Addr, error) {
	params, err := a.store.CreateNode(ctx, domain.NodeConst)
	if err != nil {
		return domain.InvalidAddr, fmt.Errorf("create parameters node: %w", err)
	}

	for i, el := range []domain.Addr{message, author, theme} {
		if !el.IsValid() {
			continue
		}
		a.addOnce(ctx, params, el, a.keynodes.RoleRelation(i+1))
	}
	return params, nil
}

func (a *ParameterAggregator) addOnce(ctx context.Context, params, el, role domain.Addr) {
	log := a.logger.With(zap.String("element", el.String()))
	edge, err := a.memberEdge(ctx, params, el)
	if err != nil {
		log.Warn("failed to check parameter edge", zap.Error(err))
		return
	}
	if !edge.IsValid() {
		if edge, err = a.store.CreateEdge(ctx, domain.EdgeAccessConstPosPerm, params, el); err != nil {
			log.Warn("failed to add parameter", zap.Error(err))
			return
		}
	}

	tagged, err := graph.IsMember(ctx, a.store, role, edge)
	if err != nil || tagged {
		return
	}
	if _, err := a.store.CreateEdge(ctx, domain.EdgeAccessConstPosPerm, role, edge); err != nil {
		log.Warn("failed to tag parameter role", zap.Error(err))
	}
}

func (a *ParameterAggregator) memberEdge(ctx context.Context, params, el domain.Addr) (domain.Addr, error) {
	edges, err := a.store.OutEdges(ctx, params)
	if err != nil {
		return domain.InvalidAddr, err
	}
	for _, e := range edges {
		if e.Target == el && domain.EdgeAccessConstPosPerm.Matches(e.Type) {
			return e.Addr, nil
		}
	}
	return domain.InvalidAddr, nil
}
