package memory

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/dinematters/dinematters/internal/logger"
	"github.com/dinematters/dinematters/internal/pubsub"
)

// PubSub is an in-process message queue backed by watermill's gochannel.
// Delivery is at least once within the process; the webhook event table's
// dedup constraint is what makes side effects effectively once.
type PubSub struct {
	channel *gochannel.GoChannel
}

// NewPubSub creates a new in-memory pubsub
func NewPubSub(log *logger.Logger) pubsub.PubSub {
	channel := gochannel.NewGoChannel(
		gochannel.Config{
			// Buffer intake bursts so the request path never blocks on
			// a slow consumer.
			OutputChannelBuffer: 1024,
		},
		watermill.NewStdLogger(false, false),
	)
	return &PubSub{channel: channel}
}

// Publish publishes a message to the given topic
func (p *PubSub) Publish(ctx context.Context, topic string, msg *message.Message) error {
	return p.channel.Publish(topic, msg)
}

// Subscribe subscribes to messages from the given topic
func (p *PubSub) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return p.channel.Subscribe(ctx, topic)
}

// Close closes the pubsub
func (p *PubSub) Close() error {
	return p.channel.Close()
}
