package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Harshitk-cp/dialogreply/internal/domain"
	"github.com/Harshitk-cp/dialogreply/internal/graph"
	"github.com/Harshitk-cp/dialogreply/internal/keynodes"
	"github.com/Harshitk-cp/dialogreply/internal/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	DefaultReplyWaitTimeout = 30 * time.Second

	// settleTimeout bounds the compensation and status writes that run after
	// the invocation context is gone.
	settleTimeout = 5 * time.Second
)

var (
	ErrMissingMessage    = errors.New("action doesn't have a message")
	ErrReplyNotGenerated = errors.New("reply message isn't generated")
	ErrFormattingFailed  = errors.New("reply message is formed incorrectly")
)

// ActionRuntime is what the orchestrator needs from the host agent runtime.
type ActionRuntime interface {
	domain.AgentInitiator
	domain.ActionWaiter
	domain.ActionSignaler
}

// ReplyOrchestrator handles standard message reply actions: it asks the
// inference sub-agent for a reply node, selects the logic rule, formats the
// reply and links it to the response slot of the action.
type ReplyOrchestrator struct {
	store     domain.GraphStore
	keynodes  *keynodes.Keynodes
	runtime   ActionRuntime
	rules     *RuleMatcher
	params    *ParameterAggregator
	messages  domain.MessageResolver
	languages domain.LanguageResolver
	formatter domain.ReplyFormatter
	logger    *zap.Logger
	tracer    trace.Tracer

	waitTimeout time.Duration
}

func NewReplyOrchestrator(
	s domain.GraphStore,
	k *keynodes.Keynodes,
	runtime ActionRuntime,
	rules *RuleMatcher,
	params *ParameterAggregator,
	messages domain.MessageResolver,
	languages domain.LanguageResolver,
	formatter domain.ReplyFormatter,
	logger *zap.Logger,
) *ReplyOrchestrator {
	return &ReplyOrchestrator{
		store:       s,
		keynodes:    k,
		runtime:     runtime,
		rules:       rules,
		params:      params,
		messages:    messages,
		languages:   languages,
		formatter:   formatter,
		logger:      logger,
		tracer:      otel.Tracer("github.com/Harshitk-cp/dialogreply/internal/service"),
		waitTimeout: DefaultReplyWaitTimeout,
	}
}

// SetWaitTimeout bounds the wait for the inference sub-agent.
func (o *ReplyOrchestrator) SetWaitTimeout(d time.Duration) {
	o.waitTimeout = d
}

// Name identifies the orchestrator to the dispatcher.
func (o *ReplyOrchestrator) Name() string {
	return "standard_message_reply"
}

// Handle adapts OnActionCompleted to the dispatcher.
func (o *ReplyOrchestrator) Handle(ctx context.Context, edge domain.Element) error {
	_, err := o.OnActionCompleted(ctx, edge)
	return err
}

// OnActionCompleted runs the reply pipeline for the action that edge points to.
// Actions of another class are rejected without side effects. Every other
// outcome signals the action before returning.
func (o *ReplyOrchestrator) OnActionCompleted(ctx context.Context, edge domain.Element) (domain.Outcome, error) {
	action := edge.Target
	ctx, span := o.tracer.Start(ctx, "reply.OnActionCompleted",
		trace.WithAttributes(attribute.String("action", action.String())))
	defer span.End()

	start := time.Now()
	outcome, err := o.run(ctx, action)

	span.SetAttributes(attribute.String("outcome", outcome.String()))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	if outcome != domain.OutcomeRejected {
		metrics.ReplyOutcomes.WithLabelValues(outcome.String(), causeLabel(err)).Inc()
		metrics.ReplyDuration.Observe(time.Since(start).Seconds())
	}
	return outcome, err
}

func (o *ReplyOrchestrator) run(ctx context.Context, action domain.Addr) (domain.Outcome, error) {
	k := o.keynodes
	isReply, err := o.store.EdgeExists(ctx, k.ActionStandardMessageReply, action, domain.EdgeAccessConstPosPerm)
	if err != nil || !isReply {
		return domain.OutcomeRejected, nil
	}
	log := o.logger.With(zap.String("action", action.String()))
	log.Debug("standard message reply started")

	message, err := graph.RoleTarget(ctx, o.store, action, k.Rrel1)
	if err != nil || !message.IsValid() {
		return o.fail(ctx, log, action, errors.Join(ErrMissingMessage, err))
	}

	reply, err := o.generateReply(ctx, log, message)
	if err != nil {
		return o.fail(ctx, log, action, err)
	}
	log.Debug("reply message generated", zap.String("reply", reply.String()))

	var undo compensations
	undo.add(func(ctx context.Context) { o.eraseReplyRelation(ctx, log, reply) })

	rule, _ := o.rules.FindLogicRule(ctx, message)
	lang := o.languages.Language(ctx, message)

	params, err := o.params.BuildParameters(ctx, message, o.messages.Author(ctx, message), o.messages.Theme(ctx, message))
	if err != nil {
		return o.rollback(ctx, log, action, &undo, fmt.Errorf("%w: %w", ErrFormattingFailed, err))
	}

	if !o.formatter.FormatReply(ctx, reply, rule, lang, params) {
		return o.rollback(ctx, log, action, &undo, ErrFormattingFailed)
	}

	if err := o.linkToResponse(ctx, action, reply); err != nil {
		return o.rollback(ctx, log, action, &undo, fmt.Errorf("%w: %w", ErrFormattingFailed, err))
	}

	sctx, cancel := settle(ctx)
	defer cancel()
	if err := o.runtime.FinishAction(sctx, action, true, reply); err != nil {
		log.Error("failed to signal reply action success", zap.Error(err))
	}
	log.Debug("standard message reply finished")
	return domain.OutcomeLinked, nil
}

// generateReply starts the direct inference sub-agent on the message and reads
// the reply it attached with nrel_reply. A wait that times out or is
// interrupted is a failure; any reply linked in the meantime is unlinked.
func (o *ReplyOrchestrator) generateReply(ctx context.Context, log *zap.Logger, message domain.Addr) (domain.Addr, error) {
	k := o.keynodes
	set, err := o.wrapInSet(ctx, message)
	if err != nil {
		return domain.InvalidAddr, fmt.Errorf("%w: %w", ErrReplyNotGenerated, err)
	}

	inference, err := o.runtime.InitAgent(ctx, k.ActionDirectInference,
		k.TemplateReplyTarget, k.ConceptAnswerOnStandardMessageRuleClassByPriority, set)
	if err != nil {
		return domain.InvalidAddr, fmt.Errorf("%w: %w", ErrReplyNotGenerated, err)
	}

	if !o.runtime.Wait(ctx, inference, o.waitTimeout) {
		o.unlinkLateReply(ctx, log, message)
		if err := ctx.Err(); err != nil {
			return domain.InvalidAddr, fmt.Errorf("%w: %w", ErrReplyNotGenerated, err)
		}
		log.Warn("direct inference timed out", zap.Duration("timeout", o.waitTimeout))
		return domain.InvalidAddr, fmt.Errorf("%w: inference timed out", ErrReplyNotGenerated)
	}

	reply, err := graph.RelationTarget(ctx, o.store, message, k.NrelReply)
	if err != nil {
		return domain.InvalidAddr, fmt.Errorf("%w: %w", ErrReplyNotGenerated, err)
	}
	if !reply.IsValid() {
		return domain.InvalidAddr, ErrReplyNotGenerated
	}

	classified, err := o.store.EdgeExists(ctx, k.ConceptMessage, reply, domain.EdgeAccessConstPosPerm)
	if err != nil {
		return domain.InvalidAddr, fmt.Errorf("%w: %w", ErrReplyNotGenerated, err)
	}
	if !classified {
		if _, err := o.store.CreateEdge(ctx, domain.EdgeAccessConstPosPerm, k.ConceptMessage, reply); err != nil {
			return domain.InvalidAddr, fmt.Errorf("%w: %w", ErrReplyNotGenerated, err)
		}
	}
	return reply, nil
}

// unlinkLateReply erases the reply relation of a message whose inference was
// abandoned. It runs on a settle context.
func (o *ReplyOrchestrator) unlinkLateReply(ctx context.Context, log *zap.Logger, message domain.Addr) {
	ctx, cancel := settle(ctx)
	defer cancel()
	reply, err := graph.RelationTarget(ctx, o.store, message, o.keynodes.NrelReply)
	if err != nil {
		log.Error("failed to find late reply", zap.Error(err))
		return
	}
	if reply.IsValid() {
		o.eraseReplyRelation(ctx, log, reply)
	}
}

func (o *ReplyOrchestrator) wrapInSet(ctx context.Context, el domain.Addr) (domain.Addr, error) {
	set, err := o.store.CreateNode(ctx, domain.NodeConstTuple)
	if err != nil {
		return domain.InvalidAddr, err
	}
	if _, err := o.store.CreateEdge(ctx, domain.EdgeAccessConstPosPerm, set, el); err != nil {
		return domain.InvalidAddr, err
	}
	return set, nil
}

func (o *ReplyOrchestrator) linkToResponse(ctx context.Context, action, reply domain.Addr) error {
	slot, err := graph.RoleTarget(ctx, o.store, action, o.keynodes.Rrel2)
	if err != nil {
		return err
	}
	if !slot.IsValid() {
		return errors.New("action doesn't have a response node")
	}
	_, err = o.store.CreateEdge(ctx, domain.EdgeAccessConstPosTemp, slot, reply)
	return err
}

// eraseReplyRelation removes the first nrel_reply edge ending at reply. A
// message never has more than one reply, so one edge is enough.
func (o *ReplyOrchestrator) eraseReplyRelation(ctx context.Context, log *zap.Logger, reply domain.Addr) {
	edge, err := graph.FirstInRelationEdge(ctx, o.store, reply, o.keynodes.NrelReply)
	if err != nil {
		log.Error("failed to find reply relation", zap.Error(err))
		return
	}
	if edge == nil {
		return
	}
	if err := o.store.EraseElement(ctx, edge.Addr); err != nil {
		log.Error("failed to erase reply relation", zap.Error(err))
	}
}

// rollback undoes the recorded mutations and then fails the action.
func (o *ReplyOrchestrator) rollback(ctx context.Context, log *zap.Logger, action domain.Addr, undo *compensations, cause error) (domain.Outcome, error) {
	sctx, cancel := settle(ctx)
	defer cancel()
	undo.run(sctx)
	return o.fail(sctx, log, action, cause)
}

func (o *ReplyOrchestrator) fail(ctx context.Context, log *zap.Logger, action domain.Addr, cause error) (domain.Outcome, error) {
	log.Error("standard message reply failed", zap.Error(cause))
	ctx, cancel := settle(ctx)
	defer cancel()
	if err := o.runtime.FinishAction(ctx, action, false); err != nil {
		log.Error("failed to signal reply action failure", zap.Error(err))
	}
	return domain.OutcomeFailed, cause
}

// settle detaches ctx from cancellation of the invocation so that terminal
// writes still land during shutdown. Values and the trace span are kept.
func settle(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
}

// compensations holds undo steps for graph mutations that have no transaction.
type compensations struct {
	undo []func(context.Context)
}

func (c *compensations) add(fn func(context.Context)) {
	c.undo = append(c.undo, fn)
}

// run applies the undo steps in reverse order.
func (c *compensations) run(ctx context.Context) {
	for i := len(c.undo) - 1; i >= 0; i-- {
		c.undo[i](ctx)
	}
	c.undo = nil
}

func causeLabel(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingMessage):
		return "missing_message"
	case errors.Is(err, ErrReplyNotGenerated):
		return "reply_not_generated"
	case errors.Is(err, ErrFormattingFailed):
		return "formatting_failed"
	default:
		return "other"
	}
}
