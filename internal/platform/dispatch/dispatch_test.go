package dispatch

import (
	"context"
	"testing"

	"github.com/superonehealth/api/pkg/apitypes"
)

func TestMemoryDispatcherRecordsMessages(t *testing.T) {
	d := NewMemory()
	msg := Message{
		NotificationID: "n-1",
		UserID:         "u-1",
		Category:       apitypes.NotificationReport,
		Priority:       apitypes.PriorityHigh,
		Title:          "Results ready",
		Body:           "Your lab report has been processed.",
	}
	if err := d.Dispatch(context.Background(), msg); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	got := d.Messages()
	if len(got) != 1 {
		t.Fatalf("expected 1 message, got %d", len(got))
	}
	if got[0].NotificationID != "n-1" || got[0].UserID != "u-1" {
		t.Errorf("unexpected message: %+v", got[0])
	}
	if got[0].QueuedAt.IsZero() {
		t.Error("queued_at not stamped")
	}
}

func TestMemoryDispatcherCopiesOnRead(t *testing.T) {
	d := NewMemory()
	_ = d.Dispatch(context.Background(), Message{NotificationID: "n-1"})

	first := d.Messages()
	first[0].NotificationID = "mutated"

	if d.Messages()[0].NotificationID != "n-1" {
		t.Error("Messages must return a copy")
	}
}
