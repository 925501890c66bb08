package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/medequip/internal/config"
	"github.com/Additional-Code/medequip/internal/messaging"
	"github.com/Additional-Code/medequip/internal/observability"
)

// EventTypeHeader is the message header used to route events within a topic.
const EventTypeHeader = "event-type"

// HandlerRegistration binds a topic, optionally narrowed to one event type, to a handler.
type HandlerRegistration struct {
	Topic     string
	EventType string
	Handler   messaging.Handler
}

// Params collects dependencies via Fx.
type Params struct {
	fx.In

	Client        messaging.Client
	Logger        *zap.Logger
	Config        config.Config
	Observability *observability.Manager `optional:"true"`
	Registrations []HandlerRegistration  `group:"worker.handlers"`
}

type routeKey struct {
	topic     string
	eventType string
}

// Engine orchestrates background message consumption.
type Engine struct {
	client    messaging.Client
	logger    *zap.Logger
	cfg       config.Config
	routes    map[routeKey][]messaging.Handler
	processed metric.Int64Counter
	cancel    context.CancelFunc
	wg        *sync.WaitGroup
}

// NewEngine constructs the worker Engine.
func NewEngine(p Params) (*Engine, error) {
	routes := make(map[routeKey][]messaging.Handler, len(p.Registrations))
	for _, r := range p.Registrations {
		if r.Topic == "" || r.Handler == nil {
			continue
		}
		key := routeKey{topic: r.Topic, eventType: r.EventType}
		routes[key] = append(routes[key], r.Handler)
	}

	processed, err := p.Observability.Meter("github.com/Additional-Code/medequip/worker").
		Int64Counter("worker.messages.processed", metric.WithDescription("Messages handled by the worker engine, by outcome"))
	if err != nil {
		return nil, err
	}

	return &Engine{
		client:    p.Client,
		logger:    p.Logger,
		cfg:       p.Config,
		routes:    routes,
		processed: processed,
	}, nil
}

// Module wires the engine into Fx lifecycle.
var Module = fx.Options(
	fx.Provide(NewEngine),
	fx.Invoke(func(lc fx.Lifecycle, engine *Engine) {
		lc.Append(fx.Hook{
			OnStart: engine.start,
			OnStop:  engine.stop,
		})
	}),
)

func (e *Engine) start(ctx context.Context) error {
	if !e.cfg.Messaging.Enabled || !e.cfg.Messaging.Workers.Enabled {
		e.logger.Info("worker engine disabled")

		return nil
	}
	if len(e.routes) == 0 {
		e.logger.Info("worker engine has no handlers; skipping")

		return nil
	}

	concurrency := e.cfg.Messaging.Workers.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	runCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.wg = &sync.WaitGroup{}

	for i := 0; i < concurrency; i++ {
		workerID := i
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.consumeLoop(runCtx, workerID)
		}()
	}

	e.logger.Info("worker engine started", zap.Int("workers", concurrency))

	return nil
}

func (e *Engine) stop(ctx context.Context) error {
	if e.cancel == nil {
		return nil
	}
	e.cancel()
	done := make(chan struct{})
	go func() {
		if e.wg != nil {
			e.wg.Wait()
		}
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		e.logger.Info("worker engine stopped")

		return nil
	}
}

// Dispatch runs every handler registered for the message's topic and event type.
// Handlers registered without an event type see every message on the topic.
func (e *Engine) Dispatch(ctx context.Context, msg messaging.Message) error {
	handlers := e.routes[routeKey{topic: msg.Topic}]
	if eventType := msg.Headers[EventTypeHeader]; eventType != "" {
		handlers = append(handlers[:len(handlers):len(handlers)], e.routes[routeKey{topic: msg.Topic, eventType: eventType}]...)
	}
	if len(handlers) == 0 {
		e.logger.Warn("no handler for message",
			zap.String("topic", msg.Topic),
			zap.String("event_type", msg.Headers[EventTypeHeader]),
		)
		e.record(ctx, msg.Topic, "unhandled")

		return nil
	}

	var errs []error
	for _, h := range handlers {
		if err := h(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		e.record(ctx, msg.Topic, "failed")

		return err
	}
	e.record(ctx, msg.Topic, "ok")

	return nil
}

func (e *Engine) record(ctx context.Context, topic, outcome string) {
	e.processed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("messaging.topic", topic),
		attribute.String("outcome", outcome),
	))
}

func (e *Engine) consumeLoop(ctx context.Context, workerID int) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}

		err := e.client.Consume(ctx, func(msgCtx context.Context, msg messaging.Message) error {
			e.logger.Debug("processing message", zap.String("topic", msg.Topic), zap.Int("worker", workerID))

			return e.Dispatch(msgCtx, msg)
		})

		if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}

		e.logger.Error("consume loop error", zap.Error(err))

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}

		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}
