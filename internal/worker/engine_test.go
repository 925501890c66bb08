package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/medequip/internal/config"
	"github.com/Additional-Code/medequip/internal/messaging"
)

// feedClient delivers queued messages to the handler, then blocks until cancelled.
type feedClient struct {
	mu      sync.Mutex
	pending []messaging.Message
}

func (f *feedClient) Publish(context.Context, messaging.Message) error { return nil }

func (f *feedClient) Consume(ctx context.Context, handler messaging.Handler) error {
	for {
		f.mu.Lock()
		if len(f.pending) == 0 {
			f.mu.Unlock()
			break
		}
		msg := f.pending[0]
		f.pending = f.pending[1:]
		f.mu.Unlock()
		_ = handler(ctx, msg)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (f *feedClient) Topic() string { return "equipment.events" }

type recorder struct {
	mu   sync.Mutex
	seen []string
}

func (r *recorder) handler(name string, err error) messaging.Handler {
	return func(_ context.Context, msg messaging.Message) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.seen = append(r.seen, name+":"+msg.Headers[EventTypeHeader])
		return err
	}
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}

func newEngine(t *testing.T, client messaging.Client, cfg config.Config, regs ...HandlerRegistration) *Engine {
	t.Helper()
	engine, err := NewEngine(Params{Client: client, Logger: zap.NewNop(), Config: cfg, Registrations: regs})
	require.NoError(t, err)
	return engine
}

func TestEngine_DispatchRoutesByEventType(t *testing.T) {
	rec := &recorder{}
	engine := newEngine(t, &feedClient{}, config.Config{},
		HandlerRegistration{Topic: "equipment.events", Handler: rec.handler("all", nil)},
		HandlerRegistration{Topic: "equipment.events", EventType: "equipment.deleted", Handler: rec.handler("deleted", nil)},
		HandlerRegistration{Topic: "", Handler: rec.handler("ignored", nil)},
	)
	ctx := context.Background()

	require.NoError(t, engine.Dispatch(ctx, messaging.Message{
		Topic:   "equipment.events",
		Headers: map[string]string{EventTypeHeader: "equipment.created"},
	}))
	require.NoError(t, engine.Dispatch(ctx, messaging.Message{
		Topic:   "equipment.events",
		Headers: map[string]string{EventTypeHeader: "equipment.deleted"},
	}))
	require.NoError(t, engine.Dispatch(ctx, messaging.Message{Topic: "other"}))

	require.Equal(t, []string{"all:equipment.created", "all:equipment.deleted", "deleted:equipment.deleted"}, rec.names())
}

func TestEngine_DispatchJoinsHandlerErrors(t *testing.T) {
	rec := &recorder{}
	boom := errors.New("boom")
	engine := newEngine(t, &feedClient{}, config.Config{},
		HandlerRegistration{Topic: "equipment.events", Handler: rec.handler("failing", boom)},
		HandlerRegistration{Topic: "equipment.events", Handler: rec.handler("ok", nil)},
	)

	err := engine.Dispatch(context.Background(), messaging.Message{Topic: "equipment.events"})
	require.ErrorIs(t, err, boom)
	require.Len(t, rec.names(), 2, "every handler runs even when one fails")
}

func TestEngine_StartConsumesUntilStopped(t *testing.T) {
	rec := &recorder{}
	client := &feedClient{pending: []messaging.Message{
		{Topic: "equipment.events", Headers: map[string]string{EventTypeHeader: "equipment.created"}},
	}}
	cfg := config.Config{Messaging: config.Messaging{
		Enabled: true,
		Workers: config.Worker{Enabled: true, Concurrency: 2},
	}}
	engine := newEngine(t, client, cfg, HandlerRegistration{Topic: "equipment.events", Handler: rec.handler("all", nil)})

	require.NoError(t, engine.start(context.Background()))
	require.Eventually(t, func() bool { return len(rec.names()) == 1 }, time.Second, 10*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, engine.stop(stopCtx))
}

func TestEngine_DisabledDoesNotStart(t *testing.T) {
	engine := newEngine(t, &feedClient{}, config.Config{},
		HandlerRegistration{Topic: "equipment.events", Handler: (&recorder{}).handler("all", nil)})

	require.NoError(t, engine.start(context.Background()))
	require.Nil(t, engine.cancel)
	require.NoError(t, engine.stop(context.Background()))
}
