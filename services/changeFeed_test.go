package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeFeedDeliversClinicEvents(t *testing.T) {
	c, _ := newTestCache(t)
	feed := NewChangeFeed(c)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := feed.Subscribe(ctx, "clinic-1")
	require.NoError(t, err)

	feed.Publish(ctx, "clinic-2", "patients", ActionInsert, "other")
	feed.Publish(ctx, "clinic-1", "patients", ActionInsert, "p1")

	select {
	case event := <-events:
		assert.Equal(t, "patients", event.Table)
		assert.Equal(t, ActionInsert, event.Action)
		assert.Equal(t, "p1", event.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("no change event received")
	}

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-events:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNilChangeFeedPublishIsNoop(t *testing.T) {
	var feed *ChangeFeed
	assert.NotPanics(t, func() {
		feed.Publish(context.Background(), "clinic-1", "patients", ActionDelete, "p1")
	})
}
