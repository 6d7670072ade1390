package event

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/gridpos/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingHandler struct {
	types    []string
	received []shared.DomainEvent
	err      error
	panics   bool
}

func (h *recordingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if h.panics {
		panic("handler exploded")
	}
	h.received = append(h.received, event)
	return h.err
}

func (h *recordingHandler) EventTypes() []string {
	return h.types
}

func newEvent(eventType string) shared.DomainEvent {
	e := shared.NewBaseDomainEvent(eventType, "tenant", uuid.New(), uuid.New())
	return &e
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	t.Run("delivers to type-specific handlers", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		created := &recordingHandler{types: []string{"tenant.created"}}
		suspended := &recordingHandler{types: []string{"tenant.suspended"}}
		bus.Subscribe(created)
		bus.Subscribe(suspended)

		err := bus.Publish(context.Background(), newEvent("tenant.created"))

		require.NoError(t, err)
		assert.Len(t, created.received, 1)
		assert.Empty(t, suspended.received)
	})

	t.Run("wildcard handler receives everything", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		audit := &recordingHandler{}
		bus.Subscribe(audit)

		err := bus.Publish(context.Background(),
			newEvent("tenant.created"),
			newEvent("subscription.suspended"),
		)

		require.NoError(t, err)
		assert.Len(t, audit.received, 2)
	})

	t.Run("handler error does not stop delivery", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		failing := &recordingHandler{types: []string{"tenant.created"}, err: errors.New("boom")}
		healthy := &recordingHandler{types: []string{"tenant.created"}}
		bus.Subscribe(failing)
		bus.Subscribe(healthy)

		err := bus.Publish(context.Background(), newEvent("tenant.created"))

		require.NoError(t, err)
		assert.Len(t, healthy.received, 1)
	})

	t.Run("handler panic is contained", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		panicking := &recordingHandler{types: []string{"tenant.created"}, panics: true}
		healthy := &recordingHandler{types: []string{"tenant.created"}}
		bus.Subscribe(panicking)
		bus.Subscribe(healthy)

		assert.NotPanics(t, func() {
			_ = bus.Publish(context.Background(), newEvent("tenant.created"))
		})
		assert.Len(t, healthy.received, 1)
	})
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := &recordingHandler{types: []string{"tenant.created"}}
	bus.Subscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), newEvent("tenant.created")))
	require.Len(t, handler.received, 1)

	bus.Unsubscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), newEvent("tenant.created")))
	assert.Len(t, handler.received, 1)
}

func TestInMemoryEventBus_SubscribeExplicitTypes(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	// Explicit types override what the handler advertises.
	handler := &recordingHandler{types: []string{"tenant.created"}}
	bus.Subscribe(handler, "invoice.paid")

	require.NoError(t, bus.Publish(context.Background(), newEvent("tenant.created")))
	assert.Empty(t, handler.received)

	require.NoError(t, bus.Publish(context.Background(), newEvent("invoice.paid")))
	assert.Len(t, handler.received, 1)
}
