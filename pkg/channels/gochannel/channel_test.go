package gochannel

import (
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTestChannel_DeliversToLateSubscribers(t *testing.T) {
	pub, sub, err := CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	t.Cleanup(func() { _ = pub.Close() })

	done := make(chan error, 1)
	go func() {
		done <- pub.Publish("topic", message.NewMessage("1", []byte(`{"ok":true}`)))
	}()

	messages, err := sub.Subscribe(t.Context(), "topic")
	require.NoError(t, err)

	select {
	case msg := <-messages:
		assert.JSONEq(t, `{"ok":true}`, string(msg.Payload))
		msg.Ack()
	case <-time.After(5 * time.Second):
		t.Fatal("message was not delivered")
	}

	require.NoError(t, <-done)
}
