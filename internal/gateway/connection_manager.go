package gateway

import (
	"sync"

	"github.com/cheildo/nexus-checkers/internal/gamemaster"
)

// ConnectionManager tracks the live client of every connected player.
type ConnectionManager struct {
	connections sync.Map // map[gamemaster.PlayerID]*client
}

func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{}
}

// Add registers the client unless the player already has a live connection.
func (cm *ConnectionManager) Add(c *client) bool {
	_, loaded := cm.connections.LoadOrStore(c.playerID, c)
	return !loaded
}

// Remove forgets the client, but only if it is still the one registered for its player.
func (cm *ConnectionManager) Remove(c *client) {
	cm.connections.CompareAndDelete(c.playerID, c)
}

func (cm *ConnectionManager) Connected(playerID gamemaster.PlayerID) bool {
	_, ok := cm.connections.Load(playerID)
	return ok
}

// Count returns the number of live connections.
func (cm *ConnectionManager) Count() int {
	n := 0
	cm.connections.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
