package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAttachmentEvent(t *testing.T) {
	msg, err := NewMessage("m-1", TypeAddAttachment, AttachmentEvent{AttachmentID: 42})
	require.NoError(t, err)

	ev, err := DecodeAttachmentEvent(msg)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), ev.AttachmentID)

	_, err = DecodeAttachmentEvent(&Message{Type: "delete_attachment", Payload: msg.Payload})
	assert.Error(t, err)

	_, err = DecodeAttachmentEvent(&Message{Type: TypeAddAttachment, Payload: json.RawMessage(`{}`)})
	assert.ErrorContains(t, err, "missing attachment_id")

	_, err = DecodeAttachmentEvent(&Message{Type: TypeAddAttachment, Payload: json.RawMessage(`"x"`)})
	assert.ErrorContains(t, err, "invalid attachment event payload")
}

func TestDecodeStreamEntry(t *testing.T) {
	msg, err := NewMessage("m-1", TypeAddAttachment, AttachmentEvent{AttachmentID: 7})
	require.NoError(t, err)
	msg.SetMetadata("request_id", "req-9")
	data, err := json.Marshal(msg)
	require.NoError(t, err)

	got, err := decode(redis.XMessage{ID: "1-0", Values: map[string]interface{}{"data": string(data)}})
	require.NoError(t, err)
	assert.Equal(t, "m-1", got.ID)
	assert.Equal(t, "req-9", got.GetMetadata("request_id"))

	_, err = decode(redis.XMessage{ID: "1-1", Values: map[string]interface{}{}})
	assert.Error(t, err)

	_, err = decode(redis.XMessage{ID: "1-2", Values: map[string]interface{}{"data": "{"}})
	assert.Error(t, err)
}

func TestConsumerHandlerRegistry(t *testing.T) {
	c := NewConsumer(nil, ConsumerConfig{ConsumerName: "test"})
	msg := &Message{ID: "m-1", Type: TypeAddAttachment}

	assert.False(t, c.HasHandler(TypeAddAttachment))
	assert.ErrorIs(t, c.dispatch(context.Background(), msg), ErrNoHandler)

	var calls int
	c.RegisterHandler(TypeAddAttachment, func(context.Context, *Message) error {
		calls++
		return nil
	})
	assert.True(t, c.HasHandler(TypeAddAttachment))
	require.NoError(t, c.dispatch(context.Background(), msg))
	assert.Equal(t, 1, calls)

	boom := errors.New("boom")
	c.RegisterHandler(TypeAddAttachment, func(context.Context, *Message) error { return boom })
	assert.ErrorIs(t, c.dispatch(context.Background(), msg), boom)

	c.UnregisterHandler(TypeAddAttachment)
	assert.False(t, c.HasHandler(TypeAddAttachment))
}

func TestConsumerDefaults(t *testing.T) {
	c := NewConsumer(nil, ConsumerConfig{})
	assert.Equal(t, StreamAttachmentAdded, c.stream)
	assert.Equal(t, ConsumerGroupAltText, c.group)
	assert.Equal(t, "dlq:stream:attachment:added", c.stream.DLQStream())
}
