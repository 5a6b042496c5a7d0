package bridge

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchdayhq/matchday/go/internal/models"
)

func newTestConnection(cm *ConnectionManager, teamID string) *Connection {
	return &Connection{
		ID:          uuid.New().String(),
		UserID:      "user-" + uuid.New().String()[:8],
		TeamID:      teamID,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
	}
}

func TestConnectionManager_RegisterUnregister(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())

	conn := newTestConnection(cm, "team-a")
	cm.registerConnection(conn)

	stats := cm.GetConnectionStats()
	assert.Equal(t, 1, stats["total_connections"])
	assert.Equal(t, 1, stats["active_teams"])

	cm.unregisterConnection(conn)
	// A second unregister is a no-op, pumps both call it on exit.
	cm.unregisterConnection(conn)

	stats = cm.GetConnectionStats()
	assert.Equal(t, 0, stats["total_connections"])
	assert.Equal(t, 0, stats["active_teams"])
}

func TestConnectionManager_HandleBroadcastDeliversToTeam(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())

	connA := newTestConnection(cm, "team-a")
	connB := newTestConnection(cm, "team-b")
	cm.registerConnection(connA)
	cm.registerConnection(connB)

	cm.handleBroadcast(BroadcastMessage{
		TeamID:  "team-a",
		Payload: payloadFor(uuid.New(), models.MatchStatusScheduled, false),
	})

	require.Len(t, connA.Send, 1)
	assert.Len(t, connB.Send, 0)
}

// Broadcasts send on conn.Send outside the manager lock, so a
// disconnecting connection must survive a concurrent broadcast.
func TestConnectionManager_BroadcastRacesDisconnect(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())

	const connCount = 20
	conns := make([]*Connection, 0, connCount)
	for i := 0; i < connCount; i++ {
		conn := newTestConnection(cm, "team-a")
		cm.registerConnection(conn)
		conns = append(conns, conn)
	}

	payload := payloadFor(uuid.New(), models.MatchStatusConfirmed, false)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		// Stay under the Send buffer so no connection trips the
		// slow-client eviction path.
		for i := 0; i < 200; i++ {
			cm.handleBroadcast(BroadcastMessage{TeamID: "team-a", Payload: payload})
		}
	}()
	go func() {
		defer wg.Done()
		for _, conn := range conns {
			cm.unregisterConnection(conn)
		}
	}()
	wg.Wait()

	stats := cm.GetConnectionStats()
	assert.Equal(t, 0, stats["total_connections"])
	assert.Equal(t, 0, stats["active_teams"])
}

func TestConnectionManager_BroadcastToUserOnly(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())

	target := newTestConnection(cm, "team-a")
	other := newTestConnection(cm, "team-a")
	cm.registerConnection(target)
	cm.registerConnection(other)

	cm.handleBroadcast(BroadcastMessage{
		TeamID:  "team-a",
		UserID:  target.UserID,
		Payload: payloadFor(uuid.New(), models.MatchStatusScheduled, false),
	})

	assert.Len(t, target.Send, 1)
	assert.Len(t, other.Send, 0)
}

func TestConnectionManager_BroadcastChannelFullDrops(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())

	payload := payloadFor(uuid.New(), models.MatchStatusScheduled, false)
	for i := 0; i < 1100; i++ {
		cm.BroadcastToTeam(fmt.Sprintf("team-%d", i), payload)
	}

	// Channel capacity is 1000, the overflow is dropped not blocked.
	assert.Len(t, cm.broadcastCh, 1000)
}
