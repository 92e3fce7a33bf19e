package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcasterCoalescesPerKey(t *testing.T) {
	sub := &subscriber{pending: make(map[string]Change), signal: make(chan struct{}, 1)}

	sub.push(Change{Key: "cart", Origin: "one"})
	sub.push(Change{Key: "orders", Origin: "one"})
	sub.push(Change{Key: "cart", Origin: "two"})

	changes := sub.take()
	require.Len(t, changes, 2)
	assert.Equal(t, Change{Key: "cart", Origin: "two"}, changes[0])
	assert.Equal(t, "orders", changes[1].Key)
	assert.Empty(t, sub.take())
}

func TestBroadcasterDeliversToEveryWatcher(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b := NewBroadcaster()
	first := b.Watch(ctx)
	second := b.Watch(ctx)

	b.Publish(Change{Key: KeyPendingSellerRequests})

	for _, ch := range []<-chan Change{first, second} {
		select {
		case c := <-ch:
			assert.Equal(t, KeyPendingSellerRequests, c.Key)
		case <-time.After(time.Second):
			t.Fatal("watcher did not receive change")
		}
	}
}

func TestBroadcasterClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b := NewBroadcaster()
	ch := b.Watch(ctx)
	cancel()

	select {
	case _, open := <-ch:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("watch channel not closed")
	}
}

func TestUserDataKey(t *testing.T) {
	assert.Equal(t, "userData_abc", UserDataKey("abc"))
}
