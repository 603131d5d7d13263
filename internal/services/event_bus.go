package services

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"dytto/internal/models"

	"github.com/redis/go-redis/v9"
)

// maxPendingEvents is the number of important events kept per user while they
// have no live feed connection.
const maxPendingEvents = 50

const userChannelPattern = "dytto:user:*:events"

// importantEventTypes are buffered for offline users. interaction_logged is not.
var importantEventTypes = map[string]bool{
	models.EventLevelUp:        true,
	models.EventQuestCreated:   true,
	models.EventQuestCompleted: true,
	models.EventQuestExpired:   true,
}

// busMessage is the envelope sent over Redis pub/sub
type busMessage struct {
	InstanceID string               `json:"instanceId"`
	Event      models.ActivityEvent `json:"event"`
}

// EventBus delivers activity events to live feed connections. With Redis it
// also fans events out to other instances.
type EventBus struct {
	conns      *ConnectionManager
	redis      *RedisService
	instanceID string

	mu      sync.Mutex
	pending map[string][]models.ActivityEvent

	pubsub *redis.PubSub
	cancel context.CancelFunc
	done   chan struct{}
}

// NewEventBus creates an event bus. redisService may be nil for a single instance.
func NewEventBus(conns *ConnectionManager, redisService *RedisService, instanceID string) *EventBus {
	return &EventBus{
		conns:      conns,
		redis:      redisService,
		instanceID: instanceID,
		pending:    make(map[string][]models.ActivityEvent),
	}
}

func userChannel(userID string) string {
	return "dytto:user:" + userID + ":events"
}

// Start listens for events published by other instances. No-op without Redis.
func (b *EventBus) Start(ctx context.Context) error {
	if b.redis == nil {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	pubsub := b.redis.PSubscribe(ctx, userChannelPattern)

	// Wait for subscription confirmation
	if _, err := pubsub.Receive(ctx); err != nil {
		cancel()
		pubsub.Close()
		return err
	}

	b.pubsub = pubsub
	b.cancel = cancel
	b.done = make(chan struct{})
	go b.processMessages(ctx)

	log.Printf("✅ [EVENT-BUS] Listening on %s (instance: %s)", userChannelPattern, b.instanceID)
	return nil
}

func (b *EventBus) processMessages(ctx context.Context) {
	defer close(b.done)
	ch := b.pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			b.handleMessage(msg)
		}
	}
}

func (b *EventBus) handleMessage(msg *redis.Message) {
	var message busMessage
	if err := json.Unmarshal([]byte(msg.Payload), &message); err != nil {
		log.Printf("⚠️ [EVENT-BUS] Failed to unmarshal message on %s: %v", msg.Channel, err)
		return
	}

	// Skip messages from this instance (already delivered locally)
	if message.InstanceID == b.instanceID {
		return
	}
	if !strings.Contains(msg.Channel, ":"+message.Event.UserID+":") {
		return
	}

	b.deliver(message.Event)
}

// Publish delivers evt to local subscribers and, with Redis, to other instances.
// Delivery is best effort and never fails the caller.
func (b *EventBus) Publish(ctx context.Context, evt models.ActivityEvent) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	b.deliver(evt)

	if b.redis == nil {
		return
	}
	data, err := json.Marshal(busMessage{InstanceID: b.instanceID, Event: evt})
	if err != nil {
		log.Printf("⚠️ [EVENT-BUS] Failed to marshal %s event: %v", evt.Type, err)
		return
	}
	if err := b.redis.Publish(ctx, userChannel(evt.UserID), data); err != nil {
		log.Printf("⚠️ [EVENT-BUS] Failed to publish %s event for user %s: %v", evt.Type, evt.UserID, err)
	}
}

// deliver sends to this instance's connections, buffering important events
// when nobody received them.
func (b *EventBus) deliver(evt models.ActivityEvent) {
	delivered := false
	for _, sub := range b.conns.ForUser(evt.UserID) {
		if sub.SafeSend(evt) {
			delivered = true
		}
	}

	if !delivered && importantEventTypes[evt.Type] {
		b.bufferEvent(evt)
	}
}

func (b *EventBus) bufferEvent(evt models.ActivityEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	queue := append(b.pending[evt.UserID], evt)
	if len(queue) > maxPendingEvents {
		queue = queue[len(queue)-maxPendingEvents:]
	}
	b.pending[evt.UserID] = queue
}

// DrainPending returns and clears buffered events for a user
func (b *EventBus) DrainPending(userID string) []models.ActivityEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	events := b.pending[userID]
	delete(b.pending, userID)

	if len(events) > 0 {
		log.Printf("[EVENT-BUS] Drained %d pending events for user %s", len(events), userID)
	}
	return events
}

// PendingCount returns the number of buffered events for a user
func (b *EventBus) PendingCount(userID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending[userID])
}

// Stop stops listening for remote events
func (b *EventBus) Stop() error {
	if b.cancel == nil {
		return nil
	}
	b.cancel()
	err := b.pubsub.Close()
	<-b.done
	return err
}
