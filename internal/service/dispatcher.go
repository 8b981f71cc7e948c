package service

import (
	"context"
	"sync"
	"time"

	"github.com/Harshitk-cp/dialogreply/internal/domain"
	"github.com/Harshitk-cp/dialogreply/internal/keynodes"
	"github.com/Harshitk-cp/dialogreply/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultDispatchWorkers  = 8
	resubscribeInitialDelay = 100 * time.Millisecond
	resubscribeMaxDelay     = 5 * time.Second
)

// Agent reacts to initiated actions. Handle receives the
// question_initiated -> action edge and must ignore actions it does not own.
type Agent interface {
	Name() string
	Handle(ctx context.Context, edge domain.Element) error
}

// Dispatcher delivers initiated actions to agents. Every agent has its own
// subscription and worker pool, so an agent blocked waiting on another agent
// never holds up delivery to it.
type Dispatcher struct {
	sub      domain.Subscriber
	keynodes *keynodes.Keynodes
	actions  *ActionService
	agents   []Agent
	logger   *zap.Logger

	workers int
	ctx     context.Context
	cancel  context.CancelFunc
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func NewDispatcher(sub domain.Subscriber, k *keynodes.Keynodes, actions *ActionService, logger *zap.Logger, agents ...Agent) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		sub:      sub,
		keynodes: k,
		actions:  actions,
		agents:   agents,
		logger:   logger,
		workers:  defaultDispatchWorkers,
		ctx:      ctx,
		cancel:   cancel,
		stopCh:   make(chan struct{}),
	}
}

// SetWorkers bounds concurrent handlers per agent. Call before Start.
func (d *Dispatcher) SetWorkers(n int) {
	if n > 0 {
		d.workers = n
	}
}

// Start subscribes every agent. Subscriptions are taken before Start returns,
// so actions initiated afterwards are never missed.
func (d *Dispatcher) Start() {
	for _, a := range d.agents {
		events, unsubscribe := d.sub.Subscribe()
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.run(a, events, unsubscribe)
		}()
	}
	d.logger.Info("dispatcher started", zap.Int("agents", len(d.agents)), zap.Int("workers", d.workers))
}

// Stop cancels in-flight handlers and waits for them to return.
func (d *Dispatcher) Stop() {
	close(d.stopCh)
	d.cancel()
	d.wg.Wait()
	d.logger.Info("dispatcher stopped")
}

// run serves a until Stop, subscribing again with backoff whenever the
// subscription is closed by the store.
func (d *Dispatcher) run(a Agent, events <-chan domain.Event, unsubscribe func()) {
	backoff := resubscribeInitialDelay
	for {
		d.serve(a, events)
		unsubscribe()

		select {
		case <-d.stopCh:
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, resubscribeMaxDelay)
		d.logger.Warn("agent subscription closed, resubscribing", zap.String("agent", a.Name()))
		events, unsubscribe = d.sub.Subscribe()
	}
}

func (d *Dispatcher) serve(a Agent, events <-chan domain.Event) {
	var g errgroup.Group
	g.SetLimit(d.workers)
	defer func() { _ = g.Wait() }()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Kind != domain.EventEdgeAdded || ev.Element.Source != d.keynodes.QuestionInitiated {
				continue
			}
			edge := ev.Element
			g.Go(func() error {
				d.handle(a, edge)
				return nil
			})
		case <-d.stopCh:
			return
		}
	}
}

func (d *Dispatcher) handle(a Agent, edge domain.Element) {
	if d.ctx.Err() != nil {
		return
	}
	if d.actions.IsDeactivated(d.ctx, edge.Target) {
		metrics.DispatchedActions.WithLabelValues(a.Name(), "skipped").Inc()
		d.logger.Debug("skipping deactivated action",
			zap.String("agent", a.Name()),
			zap.String("action", edge.Target.String()))
		return
	}

	if err := a.Handle(d.ctx, edge); err != nil {
		metrics.DispatchedActions.WithLabelValues(a.Name(), "error").Inc()
		d.logger.Warn("agent failed",
			zap.String("agent", a.Name()),
			zap.String("action", edge.Target.String()),
			zap.Error(err))
		return
	}
	metrics.DispatchedActions.WithLabelValues(a.Name(), "ok").Inc()
}
