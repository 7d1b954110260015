package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Consumer reads pipeline events from Kafka and applies them to the lab
// reports service. Malformed messages are logged and skipped; apply errors
// are logged and the message is still committed; the pipeline resends
// terminal states and the timeout watchdog covers losses.
type Consumer struct {
	reader  *kafka.Reader
	applier Applier
	logger  zerolog.Logger
}

func NewConsumer(brokers []string, topic, groupID string, applier Applier, logger zerolog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
		MaxWait:  time.Second,
	})
	return &Consumer{reader: reader, applier: applier, logger: logger}
}

// Run consumes until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		c.handle(ctx, msg)
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	var ev Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		c.logger.Warn().
			Err(err).
			Str("key", string(msg.Key)).
			Msg("skipping malformed pipeline event")
		return
	}
	if err := c.applier.ApplyPipelineEvent(ctx, ev); err != nil {
		c.logger.Error().
			Err(err).
			Str("report_id", ev.ReportID.String()).
			Str("status", string(ev.Status)).
			Msg("pipeline event apply failed")
		return
	}
	c.logger.Debug().
		Str("report_id", ev.ReportID.String()).
		Str("status", string(ev.Status)).
		Msg("pipeline event applied")
}
