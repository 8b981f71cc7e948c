package service

import (
	"context"

	"github.com/Harshitk-cp/dialogreply/internal/domain"
	"github.com/Harshitk-cp/dialogreply/internal/keynodes"
	"go.uber.org/zap"
)

const (
	varTuple = "_tuple"
	varNode1 = "_node1"
	varNode2 = "_node2"
	varNode3 = "_node3"
	varRule  = "_lr"
)

// RuleMatcher finds the logic rule that governs the reply to a message.
type RuleMatcher struct {
	store    domain.GraphStore
	keynodes *keynodes.Keynodes
	logger   *zap.Logger
}

func NewRuleMatcher(s domain.GraphStore, k *keynodes.Keynodes, logger *zap.Logger) *RuleMatcher {
	return &RuleMatcher{store: s, keynodes: k, logger: logger}
}

// FindLogicRule binds the chain
//
//	_tuple -> message
//	_node1 -> _tuple                 (rrel_3)
//	_node1 => _node2                 (nrel_answer)
//	_node3 -> _node2
//	_node3 -> _lr                    (rrel_1)
//	concept_answer_on_standard_message_rule -> _lr
//
// in a single search. When several rules match, the first binding in store
// iteration order wins. A missing rule is not an error.
func (m *RuleMatcher) FindLogicRule(ctx context.Context, message domain.Addr) (domain.Addr, bool) {
	results, err := m.store.SearchTemplate(ctx, m.ruleTemplate(message), 1)
	if err != nil {
		m.logger.Warn("logic rule search failed",
			zap.String("message", message.String()),
			zap.Error(err))
		return domain.InvalidAddr, false
	}
	if len(results) == 0 {
		m.logger.Debug("logic rule not found", zap.String("message", message.String()))
		return domain.InvalidAddr, false
	}

	rule := results[0].Get(varRule)
	m.logger.Debug("logic rule found",
		zap.String("message", message.String()),
		zap.String("rule", rule.String()))
	return rule, true
}

func (m *RuleMatcher) ruleTemplate(message domain.Addr) *domain.Template {
	k := m.keynodes
	access := domain.Var(domain.EdgeAccessVarPosPerm)

	return domain.NewTemplate().
		Triple(
			domain.Var(domain.NodeVarTuple).As(varTuple),
			access,
			domain.Fixed(message)).
		TripleWithRelation(
			domain.Var(domain.NodeVar).As(varNode1),
			access,
			domain.Ref(varTuple),
			access,
			domain.Fixed(k.Rrel3)).
		TripleWithRelation(
			domain.Ref(varNode1),
			domain.Var(domain.EdgeDCommonVar),
			domain.Var(domain.NodeVar).As(varNode2),
			access,
			domain.Fixed(k.NrelAnswer)).
		Triple(
			domain.Var(domain.NodeVar).As(varNode3),
			access,
			domain.Ref(varNode2)).
		TripleWithRelation(
			domain.Ref(varNode3),
			access,
			domain.Var(domain.NodeVar).As(varRule),
			access,
			domain.Fixed(k.Rrel1)).
		Triple(
			domain.Fixed(k.ConceptAnswerOnStandardMessageRule),
			access,
			domain.Ref(varRule))
}
