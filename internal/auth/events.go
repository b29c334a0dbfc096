package auth

import (
	"time"

	"github.com/emilythestrangee/social-media/backend/internal/models"
)

// ChannelName is the Postgres NOTIFY channel carrying auth events.
const ChannelName = "auth_state_change"

type EventType string

const (
	SignedIn  EventType = "SIGNED_IN"
	SignedOut EventType = "SIGNED_OUT"
)

// Event is one auth state change. User is nil for SignedOut.
type Event struct {
	Type      EventType    `json:"type"`
	SessionID string       `json:"session_id"`
	User      *models.User `json:"user,omitempty"`
	ExpiresAt time.Time    `json:"expires_at,omitempty"`
}
