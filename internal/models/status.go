package models

// StatusSnapshot is the diagnostic snapshot returned by the get-status
// event and the REST status endpoint.
type StatusSnapshot struct {
	Broadcasters []string `json:"broadcasters"`
	Viewers      int      `json:"viewers"`
	Timestamp    int64    `json:"timestamp"`
}
