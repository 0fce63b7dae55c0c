package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelSink_DeliversEventsInOrder(t *testing.T) {
	sink := NewChannelSink(4)

	sink.NotifyCreated("/a.txt")
	sink.NotifyMoved("/a.txt", "/b.txt")
	sink.NotifyDeleted("/b.txt")

	events := sink.Events()
	require.Len(t, events, 3)

	first := <-events
	assert.Equal(t, EventCreated, first.Kind)
	assert.Equal(t, "/a.txt", first.Path)

	second := <-events
	assert.Equal(t, EventMoved, second.Kind)
	assert.Equal(t, "/a.txt", second.Path)
	assert.Equal(t, "/b.txt", second.NewPath)

	third := <-events
	assert.Equal(t, EventDeleted, third.Kind)
	assert.Equal(t, "/b.txt", third.Path)
}

func TestChannelSink_DropsOnFullBuffer(t *testing.T) {
	sink := NewChannelSink(2)

	// The third event must be dropped, not block.
	sink.NotifyCreated("/1")
	sink.NotifyCreated("/2")
	sink.NotifyCreated("/3")

	assert.Len(t, sink.Events(), 2)
}

func TestEventKind_String(t *testing.T) {
	assert.Equal(t, "created", EventCreated.String())
	assert.Equal(t, "moved", EventMoved.String())
	assert.Equal(t, "deleted", EventDeleted.String())
	assert.Equal(t, "unknown", EventKind(99).String())
}
