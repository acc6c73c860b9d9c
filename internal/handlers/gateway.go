package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/fleetlens/camera-signaling/internal/metrics"
	"github.com/fleetlens/camera-signaling/internal/models"
	"github.com/fleetlens/camera-signaling/internal/redis"
	"github.com/fleetlens/camera-signaling/internal/registry"
)

// Gateway owns the lifecycle of every signaling connection: it dispatches
// inbound events to the presence registry and session router and sends the
// outbound broadcast notifications. One Gateway per server process.
type Gateway struct {
	registry       *registry.Registry
	sessionTimeout time.Duration

	mu      sync.RWMutex
	clients map[string]*Client

	pendingMu sync.Mutex
	pending   map[string]*pendingSession // keyed by viewer connection id
}

// NewGateway builds a Gateway around an injected registry. sessionTimeout
// bounds how long a stream request may wait for an answer.
func NewGateway(reg *registry.Registry, sessionTimeout time.Duration) *Gateway {
	return &Gateway{
		registry:       reg,
		sessionTimeout: sessionTimeout,
		clients:        make(map[string]*Client),
		pending:        make(map[string]*pendingSession),
	}
}

func (g *Gateway) addClient(c *Client) {
	g.mu.Lock()
	g.clients[c.ID] = c
	g.mu.Unlock()
	metrics.ConnectionsActive.Inc()
}

// removeClient tears down a connection: registry cleanup for its role,
// pending-session cancellation, and the disconnect broadcast if it was a
// broadcaster. Called exactly once, from the connection's read pump.
func (g *Gateway) removeClient(c *Client) {
	g.mu.Lock()
	delete(g.clients, c.ID)
	g.mu.Unlock()
	metrics.ConnectionsActive.Dec()

	g.resolvePending(c.ID)

	switch c.Role {
	case RoleBroadcaster:
		// The deviceId may have been re-registered by a newer connection;
		// only the current owner's disconnect removes the entry.
		if entry, ok := g.registry.Broadcaster(c.DeviceID); ok && entry.ConnectionID == c.ID {
			g.cancelPendingForDevice(c.DeviceID)
			g.registry.RemoveBroadcaster(c.DeviceID)
			redis.MirrorBroadcasterOffline(c.DeviceID)
			g.broadcast(models.SignalMessage{
				Type:      models.SignalTypeBroadcasterDisconnected,
				DeviceID:  c.DeviceID,
				Timestamp: time.Now().UnixMilli(),
			}, c.ID)
			log.Printf("Broadcaster %s (device %s) disconnected", c.ID, c.DeviceID)
		}
	case RoleViewer:
		g.registry.RemoveViewer(c.ViewerID)
		log.Printf("Viewer %s (%s) disconnected", c.ID, c.ViewerID)
	default:
		log.Printf("Connection %s closed before registering", c.ID)
	}
}

// dispatch routes one inbound message to its handler. The recover keeps a
// panic in one connection's handler from taking down the process or
// touching other connections.
func (g *Gateway) dispatch(c *Client, msg models.SignalMessage) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic handling %s on connection %s: %v", msg.Type, c.ID, r)
		}
	}()

	switch msg.Type {
	case models.SignalTypeRegisterBroadcaster:
		g.handleRegisterBroadcaster(c, msg)
	case models.SignalTypeRegisterViewer:
		g.handleRegisterViewer(c, msg)
	case models.SignalTypeRequestStream:
		g.handleRequestStream(c, msg)
	case models.SignalTypeOffer, models.SignalTypeAnswer, models.SignalTypeICECandidate:
		g.relay(c, msg)
	case models.SignalTypeGetStatus:
		g.handleGetStatus(c)
	default:
		c.sendError(models.ErrCodeUnknownMessageType, fmt.Sprintf("unsupported message type %q", msg.Type))
	}
}

func (g *Gateway) handleRegisterBroadcaster(c *Client, msg models.SignalMessage) {
	if msg.DeviceID == "" {
		c.sendError(models.ErrCodeInvalidPayload, "deviceId is required")
		return
	}

	g.clearRegistration(c)
	c.Role = RoleBroadcaster
	c.DeviceID = msg.DeviceID
	c.DeviceName = msg.DeviceName

	g.registry.AddBroadcaster(c.ID, msg.DeviceID, msg.DeviceName)
	redis.MirrorBroadcasterOnline(msg.DeviceID, msg.DeviceName)

	log.Printf("Broadcaster registered: device %s (%q) on connection %s", msg.DeviceID, msg.DeviceName, c.ID)

	g.broadcast(models.SignalMessage{
		Type:       models.SignalTypeBroadcasterAvailable,
		DeviceID:   msg.DeviceID,
		DeviceName: msg.DeviceName,
		Timestamp:  time.Now().UnixMilli(),
	}, c.ID)
}

func (g *Gateway) handleRegisterViewer(c *Client, msg models.SignalMessage) {
	if msg.ViewerID == "" {
		c.sendError(models.ErrCodeInvalidPayload, "viewerId is required")
		return
	}

	g.clearRegistration(c)
	c.Role = RoleViewer
	c.ViewerID = msg.ViewerID

	g.registry.AddViewer(c.ID, msg.ViewerID)

	log.Printf("Viewer registered: %s on connection %s", msg.ViewerID, c.ID)

	c.send(models.BroadcasterListMessage{
		Type:         models.SignalTypeAvailableBroadcasters,
		Broadcasters: g.registry.BroadcasterIDs(),
	})
}

// clearRegistration drops the connection's previous role entry so that
// re-registration overwrites rather than leaking stale registry state.
func (g *Gateway) clearRegistration(c *Client) {
	switch c.Role {
	case RoleBroadcaster:
		if entry, ok := g.registry.Broadcaster(c.DeviceID); ok && entry.ConnectionID == c.ID {
			g.registry.RemoveBroadcaster(c.DeviceID)
			redis.MirrorBroadcasterOffline(c.DeviceID)
		}
	case RoleViewer:
		g.registry.RemoveViewer(c.ViewerID)
	}
	c.DeviceID = ""
	c.DeviceName = ""
	c.ViewerID = ""
	c.Role = RoleUnregistered
}

func (g *Gateway) handleGetStatus(c *Client) {
	snap := g.StatusSnapshot()
	c.send(models.StatusMessage{
		Type:         models.SignalTypeStatus,
		Broadcasters: snap.Broadcasters,
		Viewers:      snap.Viewers,
		Timestamp:    snap.Timestamp,
	})
}

// StatusSnapshot returns the read-only diagnostic view served by the
// get-status event and the REST status endpoint.
func (g *Gateway) StatusSnapshot() models.StatusSnapshot {
	return models.StatusSnapshot{
		Broadcasters: g.registry.BroadcasterIDs(),
		Viewers:      g.registry.ViewerCount(),
		Timestamp:    time.Now().UnixMilli(),
	}
}

// sendTo delivers msg to the connection identified by connID. Returns false
// if the connection is gone.
func (g *Gateway) sendTo(connID string, msg models.SignalMessage) bool {
	g.mu.RLock()
	client, ok := g.clients[connID]
	g.mu.RUnlock()
	if !ok {
		return false
	}
	client.sendMessage(msg)
	return true
}

// broadcast sends msg to every connection except excludeConnID.
func (g *Gateway) broadcast(msg models.SignalMessage, excludeConnID string) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal message: %v", err)
		return
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	for id, client := range g.clients {
		if id == excludeConnID {
			continue
		}
		select {
		case client.Send <- data:
		default:
			log.Printf("Failed to send message to connection %s, buffer full", id)
		}
	}
}
