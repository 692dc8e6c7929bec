package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerFanOut(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub1 := b.Subscribe()
	sub2 := b.Subscribe()
	assert.Equal(t, 2, b.SubscriberCount())

	b.Publish(&Event{Type: EventCardCreated, Metadata: map[string]string{"card_id": "abc"}})

	for _, sub := range []Subscriber{sub1, sub2} {
		select {
		case ev := <-sub:
			require.NotNil(t, ev)
			assert.Equal(t, EventCardCreated, ev.Type)
			assert.Equal(t, "abc", ev.Metadata["card_id"])
			assert.False(t, ev.Timestamp.IsZero())
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroker()
	sub := b.Subscribe()

	b.Unsubscribe(sub)
	_, open := <-sub
	assert.False(t, open)
	assert.Zero(t, b.SubscriberCount())

	// second unsubscribe is a no-op
	assert.NotPanics(t, func() { b.Unsubscribe(sub) })
}

func TestPublishNeverBlocks(t *testing.T) {
	b := NewBroker() // not started, queue fills up

	done := make(chan struct{})
	go func() {
		for i := 0; i < 250; i++ {
			b.Publish(&Event{Type: EventAuthFailed})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked")
	}
	assert.Equal(t, uint64(150), b.Dropped())
}

func TestPublishAfterStop(t *testing.T) {
	b := NewBroker()
	b.Start()
	b.Stop()
	b.Stop()

	assert.NotPanics(t, func() {
		b.Publish(&Event{Type: EventTokensSwept})
	})
}
