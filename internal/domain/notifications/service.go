package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/superonehealth/api/internal/platform/dispatch"
	"github.com/superonehealth/api/internal/platform/respond"
	"github.com/superonehealth/api/pkg/apitypes"
	"github.com/superonehealth/api/pkg/pagination"
)

type Service struct {
	repo       Repository
	dispatcher dispatch.Dispatcher
	logger     zerolog.Logger
}

func NewService(repo Repository, dispatcher dispatch.Dispatcher, logger zerolog.Logger) *Service {
	return &Service{repo: repo, dispatcher: dispatcher, logger: logger}
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, f Filters, pg pagination.Params) ([]*Notification, int, error) {
	if f.Category != "" {
		if _, ok := apitypes.ParseNotificationCategory(f.Category); !ok {
			return nil, 0, respond.Validation([]apitypes.FieldError{{
				Field: "category", Rule: "oneof", Message: "unknown notification category",
			}})
		}
	}
	out, total, err := s.repo.List(ctx, userID, f, pg)
	if err != nil {
		return nil, 0, respond.Internal(err)
	}
	return out, total, nil
}

// MarkRead flips one notification to read. Flipping an already-read
// notification is a no-op success.
func (s *Service) MarkRead(ctx context.Context, userID, id uuid.UUID) (*Notification, error) {
	n, err := s.get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if n.IsRead {
		return n, nil
	}
	if err := s.repo.MarkRead(ctx, id); err != nil {
		if errors.Is(err, ErrNotificationNotFound) {
			return nil, respond.NotFound("notification", id.String())
		}
		return nil, respond.Internal(err)
	}
	n.IsRead = true
	return n, nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error) {
	n, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, respond.Internal(err)
	}
	return n, nil
}

func (s *Service) Unread(ctx context.Context, userID uuid.UUID) (*UnreadCount, error) {
	n, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, respond.Internal(err)
	}
	return &UnreadCount{Count: n}, nil
}

// Create stores a notification and queues it for out-of-band delivery.
// Dispatch failures are logged, never surfaced: the in-app notification
// exists regardless of push delivery.
func (s *Service) Create(ctx context.Context, n *Notification) (*Notification, error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if !n.Category.Known() {
		n.Category = apitypes.NotificationSystem
	}
	if !n.Priority.Known() {
		n.Priority = apitypes.PriorityMedium
	}
	if n.Metadata == nil {
		n.Metadata = map[string]string{}
	}
	n.CreatedAt = time.Now().UTC()

	if err := s.repo.Create(ctx, n); err != nil {
		return nil, respond.Internal(err)
	}

	if s.dispatcher != nil {
		err := s.dispatcher.Dispatch(ctx, dispatch.Message{
			NotificationID: n.ID.String(),
			UserID:         n.UserID.String(),
			Category:       n.Category,
			Priority:       n.Priority,
			Title:          n.Title,
			Body:           n.Body,
		})
		if err != nil {
			s.logger.Error().Err(err).Str("notification_id", n.ID.String()).Msg("notification dispatch failed")
		}
	}
	return n, nil
}

func (s *Service) get(ctx context.Context, userID, id uuid.UUID) (*Notification, error) {
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotificationNotFound) {
			return nil, respond.NotFound("notification", id.String())
		}
		return nil, respond.Internal(err)
	}
	if n.UserID != userID {
		// Not distinguishable from nonexistence.
		return nil, respond.NotFound("notification", id.String())
	}
	return n, nil
}
