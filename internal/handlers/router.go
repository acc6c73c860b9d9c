package handlers

import (
	"log"
	"time"

	"github.com/fleetlens/camera-signaling/internal/metrics"
	"github.com/fleetlens/camera-signaling/internal/models"
)

// pendingSession tracks a stream request that has not produced an answer
// yet. The timer fires STREAM_REQUEST_TIMEOUT at the viewer unless the
// session completes or either party disconnects first.
type pendingSession struct {
	viewerConnID string
	deviceID     string
	timer        *time.Timer
}

// handleRequestStream matches a viewer's request to the broadcaster for the
// requested device and asks that broadcaster to open negotiation with the
// viewer's connection.
func (g *Gateway) handleRequestStream(c *Client, msg models.SignalMessage) {
	if msg.DeviceID == "" {
		c.sendError(models.ErrCodeInvalidPayload, "deviceId is required")
		return
	}
	if c.Role != RoleViewer {
		c.sendError(models.ErrCodeInvalidPayload, "request-stream requires viewer registration")
		return
	}

	entry, ok := g.registry.Broadcaster(msg.DeviceID)
	if !ok {
		c.sendError(models.ErrCodeBroadcasterNotFound, "no broadcaster registered for device "+msg.DeviceID)
		return
	}

	g.registry.SetViewerTarget(c.ViewerID, msg.DeviceID)

	// viewerId here is the viewer's connection identifier: it is what the
	// broadcaster must address its offer to.
	delivered := g.sendTo(entry.ConnectionID, models.SignalMessage{
		Type:     models.SignalTypeViewerReady,
		ViewerID: c.ID,
	})
	if !delivered {
		// Registry entry outlived its connection; treat the same as a miss.
		c.sendError(models.ErrCodeBroadcasterNotFound, "no broadcaster registered for device "+msg.DeviceID)
		return
	}

	log.Printf("Stream request: viewer %s -> device %s (connection %s)", c.ID, msg.DeviceID, entry.ConnectionID)
	g.armPending(c.ID, msg.DeviceID)
}

// relay forwards an offer, answer or ice-candidate to its target with the
// sender stamped by the server. The payload is never inspected. Delivery is
// at-most-once: a dead target drops the message with no error to the sender.
func (g *Gateway) relay(c *Client, msg models.SignalMessage) {
	if msg.Target == "" {
		c.sendError(models.ErrCodeInvalidPayload, "target is required")
		return
	}
	switch msg.Type {
	case models.SignalTypeOffer, models.SignalTypeAnswer:
		if len(msg.SDP) == 0 {
			c.sendError(models.ErrCodeInvalidPayload, "sdp is required")
			return
		}
	case models.SignalTypeICECandidate:
		if len(msg.Candidate) == 0 {
			c.sendError(models.ErrCodeInvalidPayload, "candidate is required")
			return
		}
	}

	delivered := g.sendTo(msg.Target, models.SignalMessage{
		Type:      msg.Type,
		Sender:    c.ID,
		SDP:       msg.SDP,
		Candidate: msg.Candidate,
	})
	if !delivered {
		metrics.RelaysDropped.Inc()
		log.Printf("Dropped %s from %s: target %s is gone", msg.Type, c.ID, msg.Target)
		return
	}
	metrics.MessagesRelayed.WithLabelValues(string(msg.Type)).Inc()

	// An answer moving between the pair completes the pending session on
	// whichever side is the viewer.
	if msg.Type == models.SignalTypeAnswer {
		g.resolvePending(c.ID)
		g.resolvePending(msg.Target)
	}
}

// armPending starts the bounded wait between request-stream and the answer.
// A newer request from the same viewer connection replaces the old timer.
func (g *Gateway) armPending(viewerConnID, deviceID string) {
	g.pendingMu.Lock()
	defer g.pendingMu.Unlock()

	if prev, ok := g.pending[viewerConnID]; ok {
		prev.timer.Stop()
	}

	p := &pendingSession{viewerConnID: viewerConnID, deviceID: deviceID}
	p.timer = time.AfterFunc(g.sessionTimeout, func() { g.expirePending(p) })
	g.pending[viewerConnID] = p
}

func (g *Gateway) expirePending(p *pendingSession) {
	g.pendingMu.Lock()
	current, ok := g.pending[p.viewerConnID]
	if !ok || current != p {
		// Resolved or replaced while the timer was firing.
		g.pendingMu.Unlock()
		return
	}
	delete(g.pending, p.viewerConnID)
	g.pendingMu.Unlock()

	metrics.StreamRequestTimeouts.Inc()
	log.Printf("Stream request from %s for device %s timed out", p.viewerConnID, p.deviceID)

	g.sendTo(p.viewerConnID, models.SignalMessage{
		Type:  models.SignalTypeError,
		Code:  models.ErrCodeStreamRequestTimeout,
		Error: "no answer received for device " + p.deviceID,
	})
}

// resolvePending clears the pending session keyed by connID, if any. Used
// both for completion (answer relayed) and for viewer disconnect.
func (g *Gateway) resolvePending(connID string) {
	g.pendingMu.Lock()
	defer g.pendingMu.Unlock()
	if p, ok := g.pending[connID]; ok {
		p.timer.Stop()
		delete(g.pending, connID)
	}
}

// cancelPendingForDevice drops every pending session waiting on a device
// whose owning broadcaster disconnected.
func (g *Gateway) cancelPendingForDevice(deviceID string) {
	g.pendingMu.Lock()
	defer g.pendingMu.Unlock()
	for id, p := range g.pending {
		if p.deviceID == deviceID {
			p.timer.Stop()
			delete(g.pending, id)
		}
	}
}
