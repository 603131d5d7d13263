package services

import (
	"log"
	"sync"

	"dytto/internal/models"
)

// ConnectionManager tracks live activity feed connections
type ConnectionManager struct {
	connections map[string]*models.EventSubscriber
	mutex       sync.RWMutex
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*models.EventSubscriber),
	}
}

// Add adds a new connection
func (cm *ConnectionManager) Add(conn *models.EventSubscriber) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	cm.connections[conn.ConnID] = conn
	log.Printf("✅ Connection added: %s (Total: %d)", conn.ConnID, len(cm.connections))
}

// Remove removes a connection and closes its write channel
func (cm *ConnectionManager) Remove(connID string) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	if conn, exists := cm.connections[connID]; exists {
		conn.Close()
		delete(cm.connections, connID)
		log.Printf("❌ Connection removed: %s (Total: %d)", connID, len(cm.connections))
	}
}

// Count returns the number of active connections
func (cm *ConnectionManager) Count() int {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	return len(cm.connections)
}

// ForUser returns the connections owned by userID
func (cm *ConnectionManager) ForUser(userID string) []*models.EventSubscriber {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	var conns []*models.EventSubscriber
	for _, conn := range cm.connections {
		if conn.UserID == userID {
			conns = append(conns, conn)
		}
	}
	return conns
}
