package models

import "encoding/json"

// SignalType represents the type of a signaling message
type SignalType string

// Client -> server events
const (
	SignalTypeRegisterBroadcaster SignalType = "register-broadcaster"
	SignalTypeRegisterViewer      SignalType = "register-viewer"
	SignalTypeRequestStream       SignalType = "request-stream"
	SignalTypeOffer               SignalType = "offer"
	SignalTypeAnswer              SignalType = "answer"
	SignalTypeICECandidate        SignalType = "ice-candidate"
	SignalTypeGetStatus           SignalType = "get-status"
)

// Server -> client events
const (
	SignalTypeBroadcasterAvailable    SignalType = "broadcaster-available"
	SignalTypeBroadcasterDisconnected SignalType = "broadcaster-disconnected"
	SignalTypeAvailableBroadcasters   SignalType = "available-broadcasters"
	SignalTypeViewerReady             SignalType = "viewer-ready"
	SignalTypeError                   SignalType = "error"
	SignalTypeStatus                  SignalType = "status"
)

// Error codes carried by error events
const (
	ErrCodeBroadcasterNotFound  = "BROADCASTER_NOT_FOUND"
	ErrCodeInvalidPayload       = "INVALID_PAYLOAD"
	ErrCodeUnknownMessageType   = "UNKNOWN_MESSAGE_TYPE"
	ErrCodeStreamRequestTimeout = "STREAM_REQUEST_TIMEOUT"
)

// SignalMessage is the wire format for inbound signaling traffic and for
// outbound frames whose fields are all optional. SDP and Candidate are
// opaque to the server and never parsed.
type SignalMessage struct {
	Type         SignalType      `json:"type"`
	DeviceID     string          `json:"deviceId,omitempty"`
	DeviceName   string          `json:"deviceName,omitempty"`
	ViewerID     string          `json:"viewerId,omitempty"`
	Target       string          `json:"target,omitempty"`
	Sender       string          `json:"sender,omitempty"`
	SDP          json.RawMessage `json:"sdp,omitempty"`
	Candidate    json.RawMessage `json:"candidate,omitempty"`
	Broadcasters []string        `json:"broadcasters,omitempty"`
	Viewers      int             `json:"viewers,omitempty"`
	Timestamp    int64           `json:"timestamp,omitempty"`
	Code         string          `json:"code,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// BroadcasterListMessage is the available-broadcasters reply. The list is
// always present on the wire, even when empty.
type BroadcasterListMessage struct {
	Type         SignalType `json:"type"`
	Broadcasters []string   `json:"broadcasters"`
}

// StatusMessage is the status reply. All snapshot fields are always present
// on the wire, zero or not.
type StatusMessage struct {
	Type         SignalType `json:"type"`
	Broadcasters []string   `json:"broadcasters"`
	Viewers      int        `json:"viewers"`
	Timestamp    int64      `json:"timestamp"`
}
