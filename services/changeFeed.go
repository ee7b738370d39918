package services

import (
	"HealPing/cache"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Change actions
const (
	ActionInsert = "INSERT"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
)

// ChangeEvent tells subscribers that a row of a clinic changed. Clients refetch
// on every event rather than merging it.
type ChangeEvent struct {
	Table  string    `json:"table"`
	Action string    `json:"action"`
	ID     string    `json:"id"`
	At     time.Time `json:"at"`
}

// ChangeFeed publishes clinic changes on Redis pub/sub.
type ChangeFeed struct {
	cache *cache.Cache
}

func NewChangeFeed(cache *cache.Cache) *ChangeFeed {
	return &ChangeFeed{cache: cache}
}

// ChangesChannel is the pub/sub channel carrying a clinic's change events.
func ChangesChannel(clinicID string) string {
	return fmt.Sprintf("clinic:%s:changes", clinicID)
}

// Publish is best effort: a failed publish is logged and never fails the write.
// A nil feed publishes nothing.
func (f *ChangeFeed) Publish(ctx context.Context, clinicID, table, action, id string) {
	if f == nil || f.cache == nil || clinicID == "" {
		return
	}
	payload, err := json.Marshal(ChangeEvent{Table: table, Action: action, ID: id, At: time.Now().UTC()})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to marshal change event")
		return
	}
	if err := f.cache.Publish(ctx, ChangesChannel(clinicID), payload); err != nil {
		log.Warn().Err(err).Str("clinic_id", clinicID).Str("table", table).Msg("Failed to publish change event")
	}
}

// Subscribe streams the change events of a clinic until ctx is done. The
// returned channel is closed when the subscription ends.
func (f *ChangeFeed) Subscribe(ctx context.Context, clinicID string) (<-chan ChangeEvent, error) {
	sub, err := f.cache.Subscribe(ctx, ChangesChannel(clinicID))
	if err != nil {
		return nil, err
	}

	events := make(chan ChangeEvent)
	go func() {
		defer close(events)
		defer sub.Close()

		messages := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var event ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Warn().Err(err).Str("channel", msg.Channel).Msg("Dropping malformed change event")
					continue
				}
				select {
				case events <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return events, nil
}
