package testutil

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/dinematters/dinematters/internal/pubsub"
)

// InMemoryPubSub records published messages and fans them out to
// subscribers. Publish never blocks the caller.
type InMemoryPubSub struct {
	mu          sync.Mutex
	published   map[string][]*message.Message
	subscribers map[string][]chan *message.Message
	closed      bool
}

// NewInMemoryPubSub creates a new in-memory pubsub for tests
func NewInMemoryPubSub() *InMemoryPubSub {
	return &InMemoryPubSub{
		published:   make(map[string][]*message.Message),
		subscribers: make(map[string][]chan *message.Message),
	}
}

var _ pubsub.PubSub = (*InMemoryPubSub)(nil)

func (p *InMemoryPubSub) Publish(ctx context.Context, topic string, msg *message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.published[topic] = append(p.published[topic], msg)
	for _, ch := range p.subscribers[topic] {
		select {
		case ch <- msg:
		default:
		}
	}
	return nil
}

func (p *InMemoryPubSub) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := make(chan *message.Message, 100)
	p.subscribers[topic] = append(p.subscribers[topic], ch)
	return ch, nil
}

func (p *InMemoryPubSub) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	for _, chans := range p.subscribers {
		for _, ch := range chans {
			close(ch)
		}
	}
	return nil
}

// Published returns the messages published to a topic
func (p *InMemoryPubSub) Published(topic string) []*message.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*message.Message(nil), p.published[topic]...)
}
