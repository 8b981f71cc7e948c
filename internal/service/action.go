package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/Harshitk-cp/dialogreply/internal/domain"
	"github.com/Harshitk-cp/dialogreply/internal/graph"
	"github.com/Harshitk-cp/dialogreply/internal/keynodes"
	"github.com/Harshitk-cp/dialogreply/internal/metrics"
	"go.uber.org/zap"
)

const (
	pollInitialInterval = 10 * time.Millisecond
	pollMaxInterval     = 500 * time.Millisecond
	maxActionArguments  = 3
)

var (
	ErrActionFinished   = errors.New("action already finished")
	ErrTooManyArguments = errors.New("too many action arguments")
)

// ActionService reads and writes the status of actions: it initiates actions
// for sub-agents, waits for them, and signals completion.
type ActionService struct {
	store    domain.GraphStore
	keynodes *keynodes.Keynodes
	logger   *zap.Logger

	// finishMu keeps two in-process writers from asserting two terminal states.
	finishMu sync.Mutex
}

func NewActionService(s domain.GraphStore, k *keynodes.Keynodes, logger *zap.Logger) *ActionService {
	return &ActionService{store: s, keynodes: k, logger: logger}
}

// Wait blocks until action is finished (successfully or not) or timeout
// elapses. It reports whether a finished state was observed.
func (s *ActionService) Wait(ctx context.Context, action domain.Addr, timeout time.Duration) bool {
	start := time.Now()
	var finished bool
	if sub, ok := s.store.(domain.Subscriber); ok {
		finished = s.waitForEvent(ctx, sub, action, timeout)
	} else {
		finished = s.waitByPolling(ctx, action, timeout)
	}
	metrics.ActionWaitDuration.WithLabelValues(strconv.FormatBool(finished)).Observe(time.Since(start).Seconds())
	return finished
}

func (s *ActionService) waitForEvent(ctx context.Context, sub domain.Subscriber, action domain.Addr, timeout time.Duration) bool {
	events, cancel := sub.Subscribe()
	defer cancel()

	// Subscribed first, so a finish between this check and the loop is not lost.
	if s.isFinished(ctx, action) {
		return true
	}

	deadline := time.Now().Add(timeout)
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				// Subscription lost; finish the wait by polling.
				return s.waitByPolling(ctx, action, time.Until(deadline))
			}
			if ev.Kind == domain.EventEdgeAdded && ev.Element.Target == action && s.isFinishedSet(ev.Element.Source) {
				return true
			}
		case <-timer.C:
			return s.isFinished(ctx, action)
		case <-ctx.Done():
			return false
		}
	}
}

func (s *ActionService) waitByPolling(ctx context.Context, action domain.Addr, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	interval := pollInitialInterval
	for {
		if s.isFinished(ctx, action) {
			return true
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}

		t := time.NewTimer(min(interval, remaining))
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return false
		}
		interval = min(interval*2, pollMaxInterval)
	}
}

func (s *ActionService) isFinishedSet(set domain.Addr) bool {
	return set == s.keynodes.QuestionFinished ||
		set == s.keynodes.QuestionFinishedSuccessfully ||
		set == s.keynodes.QuestionFinishedUnsuccessfully
}

func (s *ActionService) isFinished(ctx context.Context, action domain.Addr) bool {
	for _, set := range []domain.Addr{
		s.keynodes.QuestionFinished,
		s.keynodes.QuestionFinishedSuccessfully,
		s.keynodes.QuestionFinishedUnsuccessfully,
	} {
		if s.hasMember(ctx, set, action) {
			return true
		}
	}
	return false
}

// IsDeactivated reports whether the action carries the deactivation marker.
func (s *ActionService) IsDeactivated(ctx context.Context, action domain.Addr) bool {
	return s.hasMember(ctx, s.keynodes.ActionDeactivated, action)
}

func (s *ActionService) IsFinishedSuccessfully(ctx context.Context, action domain.Addr) bool {
	return s.hasMember(ctx, s.keynodes.QuestionFinishedSuccessfully, action)
}

func (s *ActionService) hasMember(ctx context.Context, set, element domain.Addr) bool {
	ok, err := s.store.EdgeExists(ctx, set, element, domain.EdgeAccessVarPos)
	if err != nil {
		s.logger.Debug("failed to check action status",
			zap.String("action", element.String()),
			zap.Error(err))
		return false
	}
	return ok
}

// InitAgent creates an action of class with args attached as rrel_1..rrel_3
// and then marks it initiated. Initiation comes last so that agents reacting to
// it see complete arguments.
func (s *ActionService) InitAgent(ctx context.Context, class domain.Addr, args ...domain.Addr) (domain.Addr, error) {
	if len(args) > maxActionArguments {
		return domain.InvalidAddr, fmt.Errorf("%w: %d", ErrTooManyArguments, len(args))
	}

	action, err := s.store.CreateNode(ctx, domain.NodeConst)
	if err != nil {
		return domain.InvalidAddr, fmt.Errorf("create action: %w", err)
	}

	if err := s.describeAction(ctx, action, class, args); err != nil {
		if eraseErr := s.store.EraseElement(ctx, action); eraseErr != nil {
			s.logger.Warn("failed to erase incomplete action",
				zap.String("action", action.String()),
				zap.Error(eraseErr))
		}
		return domain.InvalidAddr, err
	}

	if _, err := s.store.CreateEdge(ctx, domain.EdgeAccessConstPosPerm, s.keynodes.QuestionInitiated, action); err != nil {
		return domain.InvalidAddr, fmt.Errorf("initiate action: %w", err)
	}
	return action, nil
}

func (s *ActionService) describeAction(ctx context.Context, action, class domain.Addr, args []domain.Addr) error {
	if _, err := s.store.CreateEdge(ctx, domain.EdgeAccessConstPosPerm, class, action); err != nil {
		return fmt.Errorf("set action class: %w", err)
	}
	for i, arg := range args {
		edge, err := s.store.CreateEdge(ctx, domain.EdgeAccessConstPosPerm, action, arg)
		if err != nil {
			return fmt.Errorf("add action argument %d: %w", i+1, err)
		}
		if _, err := s.store.CreateEdge(ctx, domain.EdgeAccessConstPosPerm, s.keynodes.RoleRelation(i+1), edge); err != nil {
			return fmt.Errorf("tag action argument %d: %w", i+1, err)
		}
	}
	return nil
}

// FinishAction asserts exactly one terminal status on action. On success the
// results are collected in an answer tuple linked by nrel_answer.
func (s *ActionService) FinishAction(ctx context.Context, action domain.Addr, success bool, results ...domain.Addr) error {
	s.finishMu.Lock()
	defer s.finishMu.Unlock()

	if s.isFinished(ctx, action) {
		return ErrActionFinished
	}

	if success && len(results) > 0 {
		if err := s.attachAnswer(ctx, action, results); err != nil {
			return err
		}
	}

	status := s.keynodes.QuestionFinishedUnsuccessfully
	if success {
		status = s.keynodes.QuestionFinishedSuccessfully
	}
	if _, err := s.store.CreateEdge(ctx, domain.EdgeAccessConstPosPerm, status, action); err != nil {
		return fmt.Errorf("set action status: %w", err)
	}
	if _, err := s.store.CreateEdge(ctx, domain.EdgeAccessConstPosPerm, s.keynodes.QuestionFinished, action); err != nil {
		return fmt.Errorf("finish action: %w", err)
	}
	return nil
}

func (s *ActionService) attachAnswer(ctx context.Context, action domain.Addr, results []domain.Addr) error {
	answer, err := s.store.CreateNode(ctx, domain.NodeConstTuple)
	if err != nil {
		return fmt.Errorf("create answer: %w", err)
	}
	for _, r := range results {
		if _, err := s.store.CreateEdge(ctx, domain.EdgeAccessConstPosPerm, answer, r); err != nil {
			return fmt.Errorf("add answer element: %w", err)
		}
	}
	edge, err := s.store.CreateEdge(ctx, domain.EdgeDCommonConst, action, answer)
	if err != nil {
		return fmt.Errorf("link answer: %w", err)
	}
	if _, err := s.store.CreateEdge(ctx, domain.EdgeAccessConstPosPerm, s.keynodes.NrelAnswer, edge); err != nil {
		return fmt.Errorf("tag answer: %w", err)
	}
	return nil
}

// Result returns the first element of the action's answer, or InvalidAddr.
func (s *ActionService) Result(ctx context.Context, action domain.Addr) (domain.Addr, error) {
	answer, err := graph.RelationTarget(ctx, s.store, action, s.keynodes.NrelAnswer)
	if err != nil || !answer.IsValid() {
		return domain.InvalidAddr, err
	}
	members, err := graph.Members(ctx, s.store, answer)
	if err != nil || len(members) == 0 {
		return domain.InvalidAddr, err
	}
	return members[0], nil
}

// State summarizes the status memberships of action.
func (s *ActionService) State(ctx context.Context, action domain.Addr) domain.ActionState {
	switch {
	case s.IsFinishedSuccessfully(ctx, action):
		return domain.ActionStateSucceeded
	case s.hasMember(ctx, s.keynodes.QuestionFinishedUnsuccessfully, action):
		return domain.ActionStateFailed
	case s.hasMember(ctx, s.keynodes.QuestionFinished, action):
		return domain.ActionStateFinished
	case s.IsDeactivated(ctx, action):
		return domain.ActionStateDeactivated
	case s.hasMember(ctx, s.keynodes.QuestionInitiated, action):
		return domain.ActionStateInitiated
	default:
		return domain.ActionStateUnknown
	}
}
