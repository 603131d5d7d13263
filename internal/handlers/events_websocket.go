package handlers

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"dytto/internal/models"
	"dytto/internal/services"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	eventsReadTimeout  = 90 * time.Second
	eventsPingInterval = 30 * time.Second
	eventsBufferSize   = 64
)

// EventsWebSocketHandler streams progression events to the user's clients
type EventsWebSocketHandler struct {
	connManager *services.ConnectionManager
	eventBus    *services.EventBus
}

// NewEventsWebSocketHandler creates a new activity feed handler
func NewEventsWebSocketHandler(connManager *services.ConnectionManager, eventBus *services.EventBus) *EventsWebSocketHandler {
	return &EventsWebSocketHandler{
		connManager: connManager,
		eventBus:    eventBus,
	}
}

// Upgrade rejects plain HTTP requests on the websocket route
func (h *EventsWebSocketHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{
		"error": "WebSocket upgrade required",
	})
}

// Handle serves one activity feed connection
// GET /api/events
func (h *EventsWebSocketHandler) Handle(c *websocket.Conn) {
	connID := uuid.New().String()
	userID, _ := c.Locals("user_id").(string)

	sub := models.NewEventSubscriber(connID, userID, eventsBufferSize)
	done := make(chan struct{})
	var writeMu sync.Mutex

	h.connManager.Add(sub)
	defer func() {
		close(done)
		h.connManager.Remove(connID)
	}()

	c.SetReadDeadline(time.Now().Add(eventsReadTimeout))
	c.SetPongHandler(func(appData string) error {
		c.SetReadDeadline(time.Now().Add(eventsReadTimeout))
		return nil
	})

	go h.pingLoop(c, &writeMu, connID, done)
	go h.writeLoop(c, &writeMu, sub)

	sub.SafeSend(models.ActivityEvent{
		Type:      models.EventConnected,
		UserID:    userID,
		Timestamp: time.Now(),
	})

	// Replay what happened while the user was offline
	for _, evt := range h.eventBus.DrainPending(userID) {
		if !sub.SafeSend(evt) {
			log.Printf("⚠️ [EVENTS] Dropped pending %s event for %s", evt.Type, connID)
		}
	}

	h.readLoop(c, sub)
}

// pingLoop keeps idle feed connections alive
func (h *EventsWebSocketHandler) pingLoop(c *websocket.Conn, writeMu *sync.Mutex, connID string, done <-chan struct{}) {
	ticker := time.NewTicker(eventsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			writeMu.Lock()
			err := c.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second))
			writeMu.Unlock()
			if err != nil {
				log.Printf("⚠️ [EVENTS] Ping failed for %s: %v", connID, err)
				return
			}
		}
	}
}

func (h *EventsWebSocketHandler) writeLoop(c *websocket.Conn, writeMu *sync.Mutex, sub *models.EventSubscriber) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Panic in events writeLoop: %v", r)
		}
	}()

	for evt := range sub.WriteChan {
		writeMu.Lock()
		err := c.WriteJSON(evt)
		writeMu.Unlock()
		if err != nil {
			log.Printf("❌ [EVENTS] Write error for %s: %v", sub.ConnID, err)
			return
		}
	}
}

// readLoop answers client heartbeats until the connection closes
func (h *EventsWebSocketHandler) readLoop(c *websocket.Conn, sub *models.EventSubscriber) {
	for {
		_, msg, err := c.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("⚠️ [EVENTS] Read error for %s: %v", sub.ConnID, err)
			}
			return
		}
		c.SetReadDeadline(time.Now().Add(eventsReadTimeout))

		var clientMsg struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg, &clientMsg); err != nil {
			continue
		}
		if clientMsg.Type == "ping" {
			sub.SafeSend(models.ActivityEvent{Type: "pong", UserID: sub.UserID, Timestamp: time.Now()})
		}
	}
}
