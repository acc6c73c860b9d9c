package redis

import (
	"log"
	"time"
)

// The presence mirror lets dashboard processes poll which devices are
// broadcasting without holding a signaling connection. The in-memory
// registry stays authoritative; writes here are fire-and-forget.

const (
	broadcasterSetKey = "signaling:broadcasters"
	devicePrefix      = "signaling:device:"
	presenceTTL       = 24 * time.Hour
)

// MirrorBroadcasterOnline records a broadcasting device in Redis.
func MirrorBroadcasterOnline(deviceID, deviceName string) {
	if client == nil {
		return
	}

	key := devicePrefix + deviceID
	if err := client.SAdd(ctx, broadcasterSetKey, deviceID).Err(); err != nil {
		log.Printf("Failed to mirror broadcaster %s to Redis: %v", deviceID, err)
		return
	}
	client.Expire(ctx, broadcasterSetKey, presenceTTL)
	client.HSet(ctx, key, "name", deviceName, "connectedAt", time.Now().UnixMilli())
	client.Expire(ctx, key, presenceTTL)
}

// MirrorBroadcasterOffline removes a device from the Redis presence mirror.
func MirrorBroadcasterOffline(deviceID string) {
	if client == nil {
		return
	}

	client.SRem(ctx, broadcasterSetKey, deviceID)
	client.Del(ctx, devicePrefix+deviceID)
}
