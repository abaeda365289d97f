package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentory/rentory-backend/pkg/logger"
)

type fakeAck struct {
	acked, requeued, rejected bool
}

func (f *fakeAck) Ack(bool) error { f.acked = true; return nil }

func (f *fakeAck) Nack(_, requeue bool) error {
	if requeue {
		f.requeued = true
	} else {
		f.rejected = true
	}
	return nil
}

func (f *fakeAck) Reject(bool) error { f.rejected = true; return nil }

func newTestConsumer() *Consumer {
	return &Consumer{handlers: make(map[string]MessageHandler), logger: logger.Nop()}
}

func eventBody(t *testing.T, eventType string, data any) []byte {
	t.Helper()
	event, err := NewEvent(eventType, "test", "corr-1", data)
	require.NoError(t, err)
	body, err := json.Marshal(event)
	require.NoError(t, err)
	return body
}

func TestDispatch_HandlesRegisteredEvent(t *testing.T) {
	c := newTestConsumer()
	var got CategoryEvent
	var correlation string
	c.RegisterHandler(EventCategoryCreated, func(ctx context.Context, e *Event) error {
		correlation = CorrelationID(ctx)
		return e.UnmarshalData(&got)
	})

	ack := &fakeAck{}
	c.Dispatch(context.Background(), eventBody(t, EventCategoryCreated, CategoryEvent{TenantID: "t1", CategoryID: "c1", Name: "Tents"}), false, ack)

	assert.True(t, ack.acked)
	assert.Equal(t, "Tents", got.Name)
	assert.Equal(t, "corr-1", correlation)
}

func TestDispatch_UnknownTypeIsAcked(t *testing.T) {
	c := newTestConsumer()
	ack := &fakeAck{}
	c.Dispatch(context.Background(), eventBody(t, "something.else", nil), false, ack)
	assert.True(t, ack.acked)
}

func TestDispatch_MalformedBodyIsRejected(t *testing.T) {
	c := newTestConsumer()
	ack := &fakeAck{}
	c.Dispatch(context.Background(), []byte("{not json"), false, ack)
	assert.True(t, ack.rejected)
}

func TestDispatch_FailureRequeuesOnceThenDeadLetters(t *testing.T) {
	c := newTestConsumer()
	c.RegisterHandler(EventCategoryDeleted, func(context.Context, *Event) error {
		return fmt.Errorf("db down")
	})
	body := eventBody(t, EventCategoryDeleted, CategoryEvent{CategoryID: "c1"})

	first := &fakeAck{}
	c.Dispatch(context.Background(), body, false, first)
	assert.True(t, first.requeued)

	second := &fakeAck{}
	c.Dispatch(context.Background(), body, true, second)
	assert.True(t, second.rejected)
	assert.False(t, second.requeued)
}
