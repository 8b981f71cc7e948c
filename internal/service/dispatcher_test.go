package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Harshitk-cp/dialogreply/internal/domain"
	"github.com/Harshitk-cp/dialogreply/internal/llm"
	"github.com/Harshitk-cp/dialogreply/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type recordingAgent struct {
	mu      sync.Mutex
	handled []domain.Addr
}

func (a *recordingAgent) Name() string { return "recording" }

func (a *recordingAgent) Handle(_ context.Context, edge domain.Element) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handled = append(a.handled, edge.Target)
	return nil
}

func (a *recordingAgent) seen() []domain.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.Addr(nil), a.handled...)
}

// flakySubscriber hands out one already-closed subscription before
// delegating to the store.
type flakySubscriber struct {
	*store.MemoryGraphStore

	mu    sync.Mutex
	calls int
}

func (s *flakySubscriber) Subscribe() (<-chan domain.Event, func()) {
	s.mu.Lock()
	s.calls++
	first := s.calls == 1
	s.mu.Unlock()

	if first {
		ch := make(chan domain.Event)
		close(ch)
		return ch, func() {}
	}
	return s.MemoryGraphStore.Subscribe()
}

func (s *flakySubscriber) subscriptions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestDispatcher_RepliesEndToEnd(t *testing.T) {
	defer goleak.VerifyNone(t)

	g := newTestGraph(t)
	dialog, actions, _ := newDialog(g)
	client := llm.NewMockClient()
	client.CompleteResponse = "Nice to meet you"
	orchestrator, _ := newOrchestrator(g, actions, client)
	orchestrator.SetWaitTimeout(2 * time.Second)

	d := NewDispatcher(g.store, g.k, actions, g.logger,
		orchestrator, NewReplyTargetAgent(g.store, g.k, actions, g.logger))
	d.Start()

	message, err := dialog.CreateMessage(g.ctx, MessageInput{Text: "Hi, I'm Alice", Author: "alice"})
	require.NoError(t, err)
	action, err := dialog.RequestReply(g.ctx, message)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return actions.IsFinishedSuccessfully(g.ctx, action)
	}, 3*time.Second, 10*time.Millisecond)
	d.Stop()

	status, err := dialog.ActionStatus(g.ctx, action)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionStateSucceeded, status.State)
	require.NotNil(t, status.Result)
	assert.Equal(t, "Nice to meet you", status.ReplyText)
	assert.Equal(t, 1, client.Calls())
}

func TestDispatcher_SkipsDeactivatedActions(t *testing.T) {
	defer goleak.VerifyNone(t)

	g := newTestGraph(t)
	actions := NewActionService(g.store, g.k, g.logger)
	agent := &recordingAgent{}
	d := NewDispatcher(g.store, g.k, actions, g.logger, agent)
	d.SetWorkers(1)
	d.Start()

	inactive := g.node()
	g.access(g.k.ActionDeactivated, inactive)
	g.access(g.k.QuestionInitiated, inactive)

	// Edges from other sources never reach agents.
	g.access(g.k.QuestionFinished, g.node())

	active, err := actions.InitAgent(g.ctx, g.k.ActionDirectInference)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return len(agent.seen()) == 1
	}, time.Second, 5*time.Millisecond)
	d.Stop()

	assert.Equal(t, []domain.Addr{active}, agent.seen())
}

func TestDispatcher_ResubscribesAfterClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	g := newTestGraph(t)
	sub := &flakySubscriber{MemoryGraphStore: g.store}
	actions := NewActionService(g.store, g.k, g.logger)
	agent := &recordingAgent{}
	d := NewDispatcher(sub, g.k, actions, g.logger, agent)
	d.Start()

	require.Eventually(t, func() bool {
		return sub.subscriptions() >= 2
	}, 2*time.Second, 5*time.Millisecond)

	action, err := actions.InitAgent(g.ctx, g.k.ActionDirectInference)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return len(agent.seen()) == 1
	}, time.Second, 5*time.Millisecond)
	d.Stop()

	assert.Equal(t, []domain.Addr{action}, agent.seen())
}

func TestDispatcher_StopWithoutEvents(t *testing.T) {
	defer goleak.VerifyNone(t)

	g := newTestGraph(t)
	d := NewDispatcher(g.store, g.k, NewActionService(g.store, g.k, g.logger), g.logger, &recordingAgent{})
	d.Start()
	d.Stop()
}
