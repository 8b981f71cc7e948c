package service

import (
	"context"
	"fmt"

	"github.com/Harshitk-cp/dialogreply/internal/domain"
	"github.com/Harshitk-cp/dialogreply/internal/graph"
	"github.com/Harshitk-cp/dialogreply/internal/keynodes"
	"go.uber.org/zap"
)

// ReplyTargetAgent answers direct inference actions targeted at
// template_reply_target by creating an empty reply node for each message in
// the argument set:
//
//	message =nrel_reply=> reply
type ReplyTargetAgent struct {
	store    domain.GraphStore
	keynodes *keynodes.Keynodes
	signaler domain.ActionSignaler
	logger   *zap.Logger
}

func NewReplyTargetAgent(s domain.GraphStore, k *keynodes.Keynodes, signaler domain.ActionSignaler, logger *zap.Logger) *ReplyTargetAgent {
	return &ReplyTargetAgent{store: s, keynodes: k, signaler: signaler, logger: logger}
}

func (a *ReplyTargetAgent) Name() string {
	return "reply_target"
}

// Handle ignores actions of other classes or targets.
func (a *ReplyTargetAgent) Handle(ctx context.Context, edge domain.Element) error {
	action := edge.Target
	ok, err := a.accepts(ctx, action)
	if err != nil || !ok {
		return err
	}

	reply, err := a.generate(ctx, action)
	if err != nil {
		a.logger.Warn("reply target not generated", zap.String("action", action.String()), zap.Error(err))
		return a.signaler.FinishAction(ctx, action, false)
	}
	return a.signaler.FinishAction(ctx, action, true, reply)
}

func (a *ReplyTargetAgent) accepts(ctx context.Context, action domain.Addr) (bool, error) {
	isInference, err := a.store.EdgeExists(ctx, a.keynodes.ActionDirectInference, action, domain.EdgeAccessConstPosPerm)
	if err != nil || !isInference {
		return false, err
	}
	target, err := graph.RoleTarget(ctx, a.store, action, a.keynodes.Rrel1)
	if err != nil {
		return false, err
	}
	return target == a.keynodes.TemplateReplyTarget, nil
}

func (a *ReplyTargetAgent) generate(ctx context.Context, action domain.Addr) (domain.Addr, error) {
	set, err := graph.RoleTarget(ctx, a.store, action, a.keynodes.Rrel3)
	if err != nil {
		return domain.InvalidAddr, err
	}
	if !set.IsValid() {
		return domain.InvalidAddr, fmt.Errorf("action has no arguments set")
	}
	members, err := graph.Members(ctx, a.store, set)
	if err != nil {
		return domain.InvalidAddr, err
	}
	if len(members) == 0 {
		return domain.InvalidAddr, fmt.Errorf("arguments set is empty")
	}
	message := members[0]

	existing, err := graph.RelationTarget(ctx, a.store, message, a.keynodes.NrelReply)
	if err != nil {
		return domain.InvalidAddr, err
	}
	if existing.IsValid() {
		return existing, nil
	}

	reply, err := a.store.CreateNode(ctx, domain.NodeConst)
	if err != nil {
		return domain.InvalidAddr, fmt.Errorf("create reply: %w", err)
	}
	rel, err := a.store.CreateEdge(ctx, domain.EdgeDCommonConst, message, reply)
	if err != nil {
		return domain.InvalidAddr, fmt.Errorf("link reply: %w", err)
	}
	if _, err := a.store.CreateEdge(ctx, domain.EdgeAccessConstPosPerm, a.keynodes.NrelReply, rel); err != nil {
		return domain.InvalidAddr, fmt.Errorf("tag reply: %w", err)
	}
	return reply, nil
}
