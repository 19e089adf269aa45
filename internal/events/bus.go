package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"github.com/mrlokans/offlinemirror/internal/logging"
	"github.com/mrlokans/offlinemirror/internal/metrics"
)

const (
	topic            = "offline.events"
	subscriberBuffer = 64
)

// Publisher is the write side of the bus.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Bus broadcasts domain events in process. Subscribers receive events
// published after they subscribed, in publish order. A subscriber whose
// buffer is full misses events instead of holding up Publish.
type Bus struct {
	pubsub *gochannel.GoChannel
}

func NewBus() *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer:            256,
			BlockPublishUntilSubscriberAck: true,
		}, logging.NewWatermillLogger()),
	}
}

func (b *Bus) Publish(ctx context.Context, e Event) error {
	data, err := Encode(e)
	if err != nil {
		return err
	}
	msg := message.NewMessage(uuid.NewString(), data)
	msg.Metadata.Set("type", e.Type())
	msg.SetContext(ctx)

	if err := b.pubsub.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", e.Type(), err)
	}
	metrics.EventsPublished.WithLabelValues(e.Type()).Inc()
	return nil
}

// Subscribe streams decoded events until ctx is done.
func (b *Bus) Subscribe(ctx context.Context) (<-chan Event, error) {
	messages, err := b.pubsub.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", topic, err)
	}

	out := make(chan Event, subscriberBuffer)
	log := logging.Component("events")
	go func() {
		defer close(out)
		for msg := range messages {
			ev, err := Decode(msg.Payload)
			msg.Ack()
			if err != nil {
				logging.Err(err).Str("message_uuid", msg.UUID).Msg("Dropping undecodable event")
				continue
			}
			if ctx.Err() != nil {
				return
			}
			select {
			case out <- ev:
			default:
				metrics.EventsDropped.WithLabelValues(ev.Type()).Inc()
				log.Warn().Str("type", ev.Type()).Msg("Dropped event for slow subscriber")
			}
		}
	}()
	return out, nil
}

func (b *Bus) Close() error {
	return b.pubsub.Close()
}
