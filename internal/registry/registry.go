package registry

import (
	"log"
	"sync"

	"github.com/fleetlens/camera-signaling/internal/metrics"
)

// BroadcasterEntry maps a deviceId to its current connection.
type BroadcasterEntry struct {
	ConnectionID string
	DeviceID     string
	DeviceName   string
}

// ViewerEntry maps a viewerId to its connection and the device it watches.
type ViewerEntry struct {
	ConnectionID     string
	ViewerID         string
	WatchingDeviceID string
}

// Registry is the authoritative in-memory record of active broadcasters
// and viewers. It holds no history and no persistence; entries live exactly
// as long as the connections that created them.
type Registry struct {
	mu           sync.RWMutex
	broadcasters map[string]BroadcasterEntry // keyed by deviceId
	viewers      map[string]ViewerEntry      // keyed by viewerId
}

func New() *Registry {
	return &Registry{
		broadcasters: make(map[string]BroadcasterEntry),
		viewers:      make(map[string]ViewerEntry),
	}
}

// AddBroadcaster inserts or overwrites the entry for deviceId. Last
// registration wins; a collision with a different live connection is
// counted and logged but never rejected.
func (r *Registry) AddBroadcaster(connectionID, deviceID, deviceName string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.broadcasters[deviceID]; ok && prev.ConnectionID != connectionID {
		metrics.BroadcasterCollisions.Inc()
		log.Printf("Broadcaster collision: device %s re-registered by connection %s (was %s)",
			deviceID, connectionID, prev.ConnectionID)
	}

	r.broadcasters[deviceID] = BroadcasterEntry{
		ConnectionID: connectionID,
		DeviceID:     deviceID,
		DeviceName:   deviceName,
	}
	metrics.BroadcastersRegistered.Set(float64(len(r.broadcasters)))
}

// RemoveBroadcaster deletes the entry for deviceId if present. Idempotent.
func (r *Registry) RemoveBroadcaster(deviceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.broadcasters, deviceID)
	metrics.BroadcastersRegistered.Set(float64(len(r.broadcasters)))
}

// Broadcaster returns the entry for deviceId, if one exists.
func (r *Registry) Broadcaster(deviceID string) (BroadcasterEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.broadcasters[deviceID]
	return entry, ok
}

// AddViewer inserts a viewer entry with no watch target yet.
func (r *Registry) AddViewer(connectionID, viewerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.viewers[viewerID] = ViewerEntry{
		ConnectionID: connectionID,
		ViewerID:     viewerID,
	}
	metrics.ViewersRegistered.Set(float64(len(r.viewers)))
}

// SetViewerTarget records which device the viewer is watching. No-op if the
// viewer is not registered.
func (r *Registry) SetViewerTarget(viewerID, deviceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.viewers[viewerID]
	if !ok {
		return
	}
	entry.WatchingDeviceID = deviceID
	r.viewers[viewerID] = entry
}

// RemoveViewer deletes the entry for viewerID if present. Idempotent.
func (r *Registry) RemoveViewer(viewerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.viewers, viewerID)
	metrics.ViewersRegistered.Set(float64(len(r.viewers)))
}

// Viewer returns the entry for viewerID, if one exists.
func (r *Registry) Viewer(viewerID string) (ViewerEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.viewers[viewerID]
	return entry, ok
}

// BroadcasterIDs returns a snapshot of the registered deviceIds. Order is
// not significant.
func (r *Registry) BroadcasterIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.broadcasters))
	for id := range r.broadcasters {
		ids = append(ids, id)
	}
	return ids
}

// ViewerCount returns the number of registered viewers.
func (r *Registry) ViewerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.viewers)
}
