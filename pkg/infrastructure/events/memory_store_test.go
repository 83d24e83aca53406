package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryEventStore_PublishVersionsStreams(t *testing.T) {
	store := NewInMemoryEventStore(nil)
	ctx := context.Background()

	require.NoError(t, store.Publish(ctx, NewEvent(BOMCreatedEvent, "bom-1", nil)))
	require.NoError(t, store.Publish(ctx, NewEvent(BOMReleasedEvent, "bom-1", nil)))
	require.NoError(t, store.Publish(ctx, NewEvent(BOMCreatedEvent, "bom-2", nil)))

	stream, err := store.ReadEvents("bom-1", 1)
	require.NoError(t, err)
	require.Len(t, stream, 2)
	assert.Equal(t, 1, stream[0].Version())
	assert.Equal(t, 2, stream[1].Version())

	all, err := store.ReadAllEvents(1)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	assert.Len(t, store.EventsOfType(BOMCreatedEvent), 2)
}

func TestInMemoryEventStore_SubscribersNotifiedSynchronously(t *testing.T) {
	store := NewInMemoryEventStore(nil)
	var seen []string
	typed := &HandlerFunc{Types: []string{MRPCalculatedEvent}, Fn: func(e Event) error {
		seen = append(seen, "typed:"+e.StreamID())
		return nil
	}}
	wildcard := &HandlerFunc{Fn: func(e Event) error {
		seen = append(seen, "all:"+e.Type())
		return errors.New("handler failure is only logged")
	}}
	require.NoError(t, store.Subscribe([]string{MRPCalculatedEvent}, typed))
	require.NoError(t, store.Subscribe([]string{AllEventTypes}, wildcard))

	require.NoError(t, store.Publish(context.Background(), NewEvent(MRPCalculatedEvent, "P", nil)))
	require.NoError(t, store.Publish(context.Background(), NewEvent(BOMCreatedEvent, "b", nil)))

	assert.Equal(t, []string{"typed:P", "all:" + MRPCalculatedEvent, "all:" + BOMCreatedEvent}, seen)

	require.NoError(t, store.Unsubscribe(wildcard))
	require.NoError(t, store.Publish(context.Background(), NewEvent(BOMCreatedEvent, "b", nil)))
	assert.Len(t, seen, 3)
}

func TestInMemoryEventStore_PublishHonoursCancelledContext(t *testing.T) {
	store := NewInMemoryEventStore(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Publish(ctx, NewEvent(BOMCreatedEvent, "b", nil))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, store.EventsOfType(BOMCreatedEvent))
}
