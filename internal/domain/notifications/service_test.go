package notifications

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/superonehealth/api/internal/platform/dispatch"
	"github.com/superonehealth/api/internal/platform/respond"
	"github.com/superonehealth/api/pkg/apitypes"
	"github.com/superonehealth/api/pkg/pagination"
)

// -- Mock Repository --

type mockRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*Notification
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[uuid.UUID]*Notification)}
}

func (m *mockRepo) Create(_ context.Context, n *Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *n
	m.items[n.ID] = &cp
	return nil
}

func (m *mockRepo) Get(_ context.Context, id uuid.UUID) (*Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.items[id]
	if !ok {
		return nil, ErrNotificationNotFound
	}
	cp := *n
	return &cp, nil
}

func (m *mockRepo) List(_ context.Context, userID uuid.UUID, f Filters, _ pagination.Params) ([]*Notification, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Notification
	for _, n := range m.items {
		if n.UserID != userID {
			continue
		}
		if f.Category != "" && string(n.Category) != f.Category {
			continue
		}
		if f.UnreadOnly && n.IsRead {
			continue
		}
		cp := *n
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, len(out), nil
}

func (m *mockRepo) MarkRead(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.items[id]
	if !ok {
		return ErrNotificationNotFound
	}
	n.IsRead = true
	return nil
}

func (m *mockRepo) MarkAllRead(_ context.Context, userID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.items {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			count++
		}
	}
	return count, nil
}

func (m *mockRepo) CountUnread(_ context.Context, userID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.items {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func newTestService() (*Service, *mockRepo, *dispatch.Memory) {
	repo := newMockRepo()
	dispatcher := dispatch.NewMemory()
	return NewService(repo, dispatcher, zerolog.Nop()), repo, dispatcher
}

func seed(repo *mockRepo, userID uuid.UUID, category apitypes.NotificationCategory, read bool) *Notification {
	n := &Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Category:  category,
		Priority:  apitypes.PriorityMedium,
		Title:     "t",
		Body:      "b",
		IsRead:    read,
		Metadata:  map[string]string{},
		CreatedAt: time.Now().UTC(),
	}
	repo.items[n.ID] = n
	return n
}

func TestCreateStoresAndDispatches(t *testing.T) {
	svc, repo, dispatcher := newTestService()
	userID := uuid.New()

	n, err := svc.Create(context.Background(), &Notification{
		UserID:   userID,
		Category: apitypes.NotificationReport,
		Priority: apitypes.PriorityHigh,
		Title:    "Lab report ready",
		Body:     "Results are in.",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if n.ID == uuid.Nil {
		t.Fatal("id not assigned")
	}
	if _, ok := repo.items[n.ID]; !ok {
		t.Fatal("notification not stored")
	}

	msgs := dispatcher.Messages()
	if len(msgs) != 1 {
		t.Fatalf("dispatched %d messages, want 1", len(msgs))
	}
	if msgs[0].NotificationID != n.ID.String() || msgs[0].Priority != apitypes.PriorityHigh {
		t.Errorf("dispatch payload wrong: %+v", msgs[0])
	}
	if msgs[0].QueuedAt.IsZero() {
		t.Error("queued_at not stamped")
	}
}

func TestCreateDefaultsUnknownEnums(t *testing.T) {
	svc, _, _ := newTestService()

	n, err := svc.Create(context.Background(), &Notification{
		UserID:   uuid.New(),
		Category: "carrier_pigeon",
		Priority: "whenever",
		Title:    "t",
		Body:     "b",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if n.Category != apitypes.NotificationSystem {
		t.Errorf("category = %s, want system fallback", n.Category)
	}
	if n.Priority != apitypes.PriorityMedium {
		t.Errorf("priority = %s, want medium fallback", n.Priority)
	}
	if n.Metadata == nil {
		t.Error("metadata must default to an empty map")
	}
}

func TestListFilters(t *testing.T) {
	svc, repo, _ := newTestService()
	userID := uuid.New()

	seed(repo, userID, apitypes.NotificationReport, false)
	seed(repo, userID, apitypes.NotificationAppointment, true)
	seed(repo, userID, apitypes.NotificationReport, true)
	seed(repo, uuid.New(), apitypes.NotificationReport, false)

	unread, total, err := svc.List(context.Background(), userID, Filters{UnreadOnly: true}, pagination.Params{Limit: 20})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(unread) != 1 || unread[0].IsRead {
		t.Fatalf("unread filter wrong: total=%d", total)
	}

	reports, total, err := svc.List(context.Background(), userID, Filters{Category: "report"}, pagination.Params{Limit: 20})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(reports) != 2 {
		t.Fatalf("category filter wrong: total=%d", total)
	}

	_, _, err = svc.List(context.Background(), userID, Filters{Category: "smoke_signals"}, pagination.Params{Limit: 20})
	respErr := respond.AsError(err)
	if respErr == nil || respErr.Status != 400 {
		t.Fatalf("expected 400 for unknown category, got %v", err)
	}
}

func TestMarkReadIsIdempotent(t *testing.T) {
	svc, repo, _ := newTestService()
	userID := uuid.New()
	n := seed(repo, userID, apitypes.NotificationHealth, false)

	first, err := svc.MarkRead(context.Background(), userID, n.ID)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if !first.IsRead {
		t.Fatal("notification not marked read")
	}
	second, err := svc.MarkRead(context.Background(), userID, n.ID)
	if err != nil || !second.IsRead {
		t.Fatalf("second mark read must be a no-op success, got %v", err)
	}
}

func TestMarkReadHidesForeignNotifications(t *testing.T) {
	svc, repo, _ := newTestService()
	n := seed(repo, uuid.New(), apitypes.NotificationHealth, false)

	_, err := svc.MarkRead(context.Background(), uuid.New(), n.ID)
	respErr := respond.AsError(err)
	if respErr == nil || respErr.Status != 404 {
		t.Fatalf("foreign notification must 404, got %v", err)
	}
	if repo.items[n.ID].IsRead {
		t.Error("foreign mark-read mutated the notification")
	}
}

func TestMarkAllReadAndUnreadCount(t *testing.T) {
	svc, repo, _ := newTestService()
	userID := uuid.New()

	seed(repo, userID, apitypes.NotificationReport, false)
	seed(repo, userID, apitypes.NotificationHealth, false)
	seed(repo, userID, apitypes.NotificationSystem, true)
	other := seed(repo, uuid.New(), apitypes.NotificationReport, false)

	count, err := svc.Unread(context.Background(), userID)
	if err != nil {
		t.Fatalf("unread: %v", err)
	}
	if count.Count != 2 {
		t.Fatalf("unread = %d, want 2", count.Count)
	}

	marked, err := svc.MarkAllRead(context.Background(), userID)
	if err != nil {
		t.Fatalf("mark all: %v", err)
	}
	if marked != 2 {
		t.Fatalf("marked = %d, want 2", marked)
	}

	count, err = svc.Unread(context.Background(), userID)
	if err != nil {
		t.Fatalf("unread: %v", err)
	}
	if count.Count != 0 {
		t.Errorf("unread after mark-all = %d", count.Count)
	}
	if repo.items[other.ID].IsRead {
		t.Error("mark-all crossed user boundaries")
	}
}
