package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"couple-summary-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_PublishesOnTopic(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	messages, err := pubSub.Subscribe(ctx, Topic)
	require.NoError(t, err)

	rec := NewRecorder(pubSub, "", logger.NewNop())
	session, user := uuid.New(), uuid.New()
	rec.Record(ctx, session, user, EventClaimed, map[string]interface{}{"model": "m1"})

	select {
	case msg := <-messages:
		var got Event
		require.NoError(t, json.Unmarshal(msg.Payload, &got))
		msg.Ack()
		assert.Equal(t, session, got.SessionId)
		assert.Equal(t, user, got.UserId)
		assert.Equal(t, EventClaimed, got.Event)
		assert.Equal(t, "m1", got.Details["model"])
	case <-time.After(2 * time.Second):
		t.Fatal("no audit message received")
	}
}

type failingPublisher struct{}

func (failingPublisher) Publish(string, ...*message.Message) error { return errors.New("closed") }
func (failingPublisher) Close() error                              { return nil }

func TestRecord_SwallowsPublishErrors(t *testing.T) {
	rec := NewRecorder(failingPublisher{}, Topic, logger.NewNop())
	assert.NotPanics(t, func() {
		rec.Record(context.Background(), uuid.New(), uuid.New(), EventSaved, nil)
	})
}
