package events

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"edulycee-client/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Topic is the single watermill topic every session event goes through; the event
// type travels in the message metadata.
const Topic = "edulycee.session"

// Publisher is what stores and engines depend on. Delivery is best effort.
type Publisher interface {
	Publish(evt Event)
}

type discard struct{}

func (discard) Publish(Event) {}

// Discard drops every event.
var Discard Publisher = discard{}

type Bus struct {
	pubSub *gochannel.GoChannel
	logger logger.ILogger
	seq    atomic.Uint64
}

var _ Publisher = (*Bus)(nil)

func NewBus(log logger.ILogger) *Bus {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermill.NopLogger{},
	)
	return &Bus{pubSub: pubSub, logger: log}
}

// Publish stamps evt with the next sequence number and hands it to gochannel.
func (b *Bus) Publish(evt Event) {
	seq := b.seq.Add(1)
	payload, err := json.Marshal(BaseEvent{
		Type:       evt.EventType(),
		Data:       evt.Payload(),
		OccurredAt: evt.Timestamp(),
		Seq:        seq,
	})
	if err != nil {
		b.logger.Error("EVENTS", "Failed to encode event", map[string]interface{}{
			"type":  evt.EventType(),
			"error": err.Error(),
		})
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("type", evt.EventType())

	if err := b.pubSub.Publish(Topic, msg); err != nil {
		b.logger.Debug("EVENTS", "Event dropped", map[string]interface{}{
			"type":  evt.EventType(),
			"error": err.Error(),
		})
	}
}

// Subscribe delivers every event published after the call until ctx is done.
// gochannel fans each message out on its own goroutine, so events can arrive out
// of publish order; consumers that care compare Sequence().
func (b *Bus) Subscribe(ctx context.Context) (<-chan Event, error) {
	messages, err := b.pubSub.Subscribe(ctx, Topic)
	if err != nil {
		return nil, err
	}

	out := make(chan Event, 64)
	go func() {
		defer close(out)
		for msg := range messages {
			var evt BaseEvent
			err := json.Unmarshal(msg.Payload, &evt)
			msg.Ack()
			if err != nil {
				b.logger.Warn("EVENTS", "Invalid event payload", map[string]interface{}{
					"message_id": msg.UUID,
					"error":      err.Error(),
				})
				continue
			}
			select {
			case out <- evt:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (b *Bus) Close() error {
	return b.pubSub.Close()
}
