package sse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishReachesEachStreamOnce(t *testing.T) {
	h := NewHub()

	both, cleanupBoth := h.Subscribe("company:co-1", "employee:emp-1")
	defer cleanupBoth()
	other, cleanupOther := h.Subscribe("employee:emp-2")
	defer cleanupOther()

	h.Publish(Event{Event: "memorandum.transition", Data: "x"}, "company:co-1", "employee:emp-1")

	require.Len(t, both, 1)
	e := <-both
	assert.Equal(t, "memorandum.transition", e.Event)
	assert.Equal(t, "company:co-1", e.Topic)
	assert.Empty(t, other)

	assert.Equal(t, 2, h.TotalSubscribers())
	assert.Equal(t, 1, h.SubscriberCount("employee:emp-1"))
}

func TestHub_CleanupRemovesTopics(t *testing.T) {
	h := NewHub()

	ch, cleanup := h.Subscribe("company:co-1")
	cleanup()
	cleanup()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, h.SubscriberCount("company:co-1"))
	assert.Equal(t, 0, h.TotalSubscribers())

	h.Publish(Event{Event: "noop"}, "company:co-1")
}

func TestHub_FullBufferDrops(t *testing.T) {
	h := NewHub()
	ch, cleanup := h.Subscribe("t")
	defer cleanup()

	for i := 0; i < h.buffer+5; i++ {
		h.Publish(Event{Event: "tick"}, "t")
	}
	assert.Len(t, ch, h.buffer)
}
