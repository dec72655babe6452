package kafka

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	kgo "github.com/segmentio/kafka-go"
)

type Writer interface {
	WriteJSON(ctx context.Context, v any) error
	Close() error
}

type writer struct {
	w *kgo.Writer
}

// NewWriter creates a writer for topic with configurable durability.
// Env overrides (optional):
//   - KAFKA_REQUIRED_ACKS: "none" | "one" | "all" (default: "one")
//   - KAFKA_ASYNC: "true" | "false" (default: "false")
func NewWriter(brokers, topic string) Writer {
	var acks kgo.RequiredAcks
	switch strings.ToLower(strings.TrimSpace(os.Getenv("KAFKA_REQUIRED_ACKS"))) {
	case "none":
		acks = kgo.RequireNone
	case "all":
		acks = kgo.RequireAll
	default:
		acks = kgo.RequireOne
	}

	return &writer{w: &kgo.Writer{
		Addr:                   kgo.TCP(strings.Split(brokers, ",")...),
		Topic:                  topic,
		Balancer:               &kgo.Hash{},
		RequiredAcks:           acks,
		Async:                  strings.EqualFold(os.Getenv("KAFKA_ASYNC"), "true"),
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}}
}

// WriteJSON publishes v. Events are keyed by actor so one user's events stay
// in order on a single partition.
func (wr *writer) WriteJSON(ctx context.Context, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	msg := kgo.Message{Value: b, Time: time.Now()}
	if ev, ok := v.(Event); ok {
		msg.Key = []byte(ev.ActorID)
	}
	return wr.w.WriteMessages(ctx, msg)
}

func (wr *writer) Close() error { return wr.w.Close() }
