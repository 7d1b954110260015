package notifications

import (
	"time"

	"github.com/google/uuid"

	"github.com/superonehealth/api/pkg/apitypes"
)

// Notification is one in-app message. Content is written once by the
// producing service; the only user mutation is the read flag.
type Notification struct {
	ID         uuid.UUID                     `json:"id"`
	UserID     uuid.UUID                     `json:"user_id"`
	Category   apitypes.NotificationCategory `json:"category"`
	Priority   apitypes.NotificationPriority `json:"priority"`
	Title      string                        `json:"title"`
	Body       string                        `json:"body"`
	IsRead     bool                          `json:"is_read"`
	ActionType string                        `json:"action_type,omitempty"`
	Metadata   map[string]string             `json:"metadata"`
	CreatedAt  time.Time                     `json:"created_at"`
}

// Filters narrows notification listings.
type Filters struct {
	Category   string
	UnreadOnly bool
}

// UnreadCount is the badge endpoint's response body.
type UnreadCount struct {
	Count int `json:"count"`
}
