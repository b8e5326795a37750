package notifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotifier_BroadcastReachesAllListeners(t *testing.T) {
	n := New()
	a := n.Subscribe()
	b := n.Subscribe()

	n.Broadcast()

	assert.Len(t, a, 1)
	assert.Len(t, b, 1)
}

func TestNotifier_FullBufferDoesNotBlock(t *testing.T) {
	n := New()
	ch := n.Subscribe()

	n.Broadcast()
	n.Broadcast()
	n.Broadcast()

	// Only one ping is pending; the rest were coalesced.
	assert.Len(t, ch, 1)
}

func TestNotifier_UnsubscribeClosesChannel(t *testing.T) {
	n := New()
	ch := n.Subscribe()
	n.Unsubscribe(ch)

	_, open := <-ch
	assert.False(t, open)

	// Broadcasting after unsubscribe must not panic on the closed channel.
	assert.NotPanics(t, n.Broadcast)
}

func TestNotifier_DoubleUnsubscribeIsSafe(t *testing.T) {
	n := New()
	ch := n.Subscribe()
	n.Unsubscribe(ch)
	assert.NotPanics(t, func() { n.Unsubscribe(ch) })
}
