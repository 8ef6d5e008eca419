package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInMemoryDispatcher_PublishRunsAllHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()
	boom := errors.New("boom")

	var calls []string
	d.Subscribe(EventTokenIssued, func(_ context.Context, e Event) error {
		calls = append(calls, "first:"+e.Subject)
		return boom
	})
	d.Subscribe(EventTokenIssued, func(_ context.Context, e Event) error {
		calls = append(calls, "second:"+e.Subject)
		return nil
	})
	d.Subscribe(EventTokenRevoked, func(context.Context, Event) error {
		calls = append(calls, "revoked")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTokenIssued, Subject: "alice"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first:alice", "second:alice"}, calls)

	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventTokenRejected}))
}
