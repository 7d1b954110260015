package notifications

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/superonehealth/api/pkg/pagination"
)

var ErrNotificationNotFound = errors.New("notification not found")

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	Get(ctx context.Context, id uuid.UUID) (*Notification, error)
	List(ctx context.Context, userID uuid.UUID, f Filters, pg pagination.Params) ([]*Notification, int, error)
	MarkRead(ctx context.Context, id uuid.UUID) error

	// MarkAllRead flips every unread notification for the user and reports
	// how many were flipped.
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}
