package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	kgo "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Handler func(ctx context.Context, ev Event) error

type reader interface {
	FetchMessage(ctx context.Context) (kgo.Message, error)
	CommitMessages(ctx context.Context, msgs ...kgo.Message) error
	Close() error
}

type Consumer struct {
	reader reader
	handle Handler
	log    *zap.Logger
}

func NewConsumer(brokers, groupID, topic string, h Handler, log *zap.Logger) *Consumer {
	return &Consumer{
		reader: kgo.NewReader(kgo.ReaderConfig{
			Brokers:        strings.Split(brokers, ","),
			GroupID:        groupID,
			Topic:          topic,
			MinBytes:       1,
			MaxBytes:       10 << 20,
			MaxWait:        2 * time.Second,
			CommitInterval: time.Second,
		}),
		handle: h,
		log:    log.With(zap.String("topic", topic), zap.String("group", groupID)),
	}
}

// Run consumes until ctx is cancelled. A message is committed once it was
// handled or found undecodable; handler errors are logged and skipped.
func (c *Consumer) Run(ctx context.Context) error {
	defer func() {
		_ = c.reader.Close()
	}()
	c.log.Info("kafka consumer started")

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info("kafka consumer shutting down")
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			c.log.Warn("kafka fetch", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		var ev Event
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			c.log.Warn("kafka decode", zap.Error(err), zap.ByteString("key", m.Key))
		} else if err := c.handle(ctx, ev); err != nil {
			c.log.Warn("kafka handler", zap.String("type", string(ev.Type)), zap.Error(err))
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			c.log.Warn("kafka commit", zap.Error(err))
		}
	}
}

// Dispatcher routes events to the handlers registered for their type.
type Dispatcher struct {
	handlers map[EventType][]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[EventType][]Handler)}
}

func (d *Dispatcher) On(t EventType, h Handler) *Dispatcher {
	d.handlers[t] = append(d.handlers[t], h)
	return d
}

// Handle runs every handler for ev.Type, even after one fails.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) error {
	var errs []error
	for _, h := range d.handlers[ev.Type] {
		if err := h(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
