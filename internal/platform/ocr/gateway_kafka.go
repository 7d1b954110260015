package ocr

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const (
	actionSubmit = "submit"
	actionCancel = "cancel"
)

// gatewayMessage is one instruction on the submissions topic. Cancel carries
// only the report ID.
type gatewayMessage struct {
	Action     string      `json:"action"`
	ReportID   uuid.UUID   `json:"report_id"`
	Submission *Submission `json:"submission,omitempty"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaGateway hands documents to the pipeline over a Kafka submissions
// topic. Messages are keyed by report ID so one report's submit and cancel
// stay ordered.
type KafkaGateway struct {
	writer messageWriter
}

func NewKafkaGateway(brokers []string, topic string) *KafkaGateway {
	return &KafkaGateway{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}}
}

func (g *KafkaGateway) Submit(ctx context.Context, sub Submission) error {
	return g.write(ctx, gatewayMessage{Action: actionSubmit, ReportID: sub.ReportID, Submission: &sub})
}

func (g *KafkaGateway) Cancel(ctx context.Context, reportID uuid.UUID) error {
	return g.write(ctx, gatewayMessage{Action: actionCancel, ReportID: reportID})
}

func (g *KafkaGateway) Close() error { return g.writer.Close() }

func (g *KafkaGateway) write(ctx context.Context, gm gatewayMessage) error {
	value, err := json.Marshal(gm)
	if err != nil {
		return fmt.Errorf("encode %s for report %s: %w", gm.Action, gm.ReportID, err)
	}
	err = g.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(gm.ReportID.String()),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("write %s for report %s: %w", gm.Action, gm.ReportID, err)
	}
	return nil
}
