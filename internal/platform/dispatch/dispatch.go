// Package dispatch hands stored notifications to the out-of-band delivery
// system (push/email, run elsewhere). The SQS backend enqueues for the
// delivery workers; the in-memory backend serves tests and development.
// Dispatch is fire-and-forget from the API's perspective: a delivery failure
// never fails the request that created the notification.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/superonehealth/api/pkg/apitypes"
)

// Message is the delivery payload.
type Message struct {
	NotificationID string                        `json:"notification_id"`
	UserID         string                        `json:"user_id"`
	Category       apitypes.NotificationCategory `json:"category"`
	Priority       apitypes.NotificationPriority `json:"priority"`
	Title          string                        `json:"title"`
	Body           string                        `json:"body"`
	QueuedAt       time.Time                     `json:"queued_at"`
}

// Dispatcher queues notifications for delivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message) error
}

// SQSDispatcher sends messages to an SQS queue consumed by delivery workers.
type SQSDispatcher struct {
	client   *sqs.Client
	queueURL string
}

func NewSQSDispatcher(client *sqs.Client, queueURL string) *SQSDispatcher {
	return &SQSDispatcher{client: client, queueURL: queueURL}
}

func (d *SQSDispatcher) Dispatch(ctx context.Context, msg Message) error {
	msg.QueuedAt = time.Now().UTC()
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification message: %w", err)
	}
	payload := string(body)
	_, err = d.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    &d.queueURL,
		MessageBody: &payload,
	})
	if err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}

// Memory records dispatched messages for tests.
type Memory struct {
	mu       sync.Mutex
	messages []Message
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Dispatch(_ context.Context, msg Message) error {
	msg.QueuedAt = time.Now().UTC()
	m.mu.Lock()
	m.messages = append(m.messages, msg)
	m.mu.Unlock()
	return nil
}

// Messages returns a copy of everything dispatched so far.
func (m *Memory) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.messages))
	copy(out, m.messages)
	return out
}
