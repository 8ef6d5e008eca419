package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTokenIssued   EventType = "token_issued"
	EventTokenRevoked  EventType = "token_revoked"
	EventTokenRejected EventType = "token_rejected"
)

// Event represents a token lifecycle event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Subject   string      `json:"subject"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TokenIssuedPayload payload.
type TokenIssuedPayload struct {
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenRevokedPayload payload.
type TokenRevokedPayload struct {
	TokenID   string    `json:"token_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenRejectedPayload payload.
type TokenRejectedPayload struct {
	Reason string `json:"reason"`
}
