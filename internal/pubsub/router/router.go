package router

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/dinematters/dinematters/internal/config"
	"github.com/dinematters/dinematters/internal/logger"
	"github.com/dinematters/dinematters/internal/pubsub"
)

// Router wraps a watermill router so services can register consumers
// without dealing with watermill plumbing directly.
type Router struct {
	router *message.Router
	logger *logger.Logger
}

// NewRouter creates a new message router with recovery and bounded retry
// middleware applied to every handler.
func NewRouter(cfg *config.Configuration, log *logger.Logger) (*Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, watermillLogger{log: log})
	if err != nil {
		return nil, err
	}

	router.AddMiddleware(middleware.Recoverer)
	router.AddMiddleware(middleware.Retry{
		MaxRetries: cfg.Webhook.DispatchRetries,
		Logger:     watermillLogger{log: log},
	}.Middleware)

	return &Router{router: router, logger: log}, nil
}

// AddNoPublishHandler registers a consume-only handler on a topic
func (r *Router) AddNoPublishHandler(
	handlerName string,
	topic string,
	subscriber pubsub.Subscriber,
	handlerFunc message.NoPublishHandlerFunc,
	middlewares ...message.HandlerMiddleware,
) {
	handler := r.router.AddNoPublisherHandler(
		handlerName,
		topic,
		subscriberAdapter{subscriber},
		handlerFunc,
	)
	for _, m := range middlewares {
		handler.AddMiddleware(m)
	}
}

// Run starts the router and blocks until the context is cancelled
func (r *Router) Run(ctx context.Context) error {
	return r.router.Run(ctx)
}

// Close shuts the router down
func (r *Router) Close() error {
	return r.router.Close()
}

// subscriberAdapter bridges our Subscriber interface to watermill's.
type subscriberAdapter struct {
	sub pubsub.Subscriber
}

func (a subscriberAdapter) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return a.sub.Subscribe(ctx, topic)
}

func (a subscriberAdapter) Close() error {
	return nil
}

// watermillLogger adapts our zap logger to watermill's LoggerAdapter.
type watermillLogger struct {
	log    *logger.Logger
	fields watermill.LogFields
}

func (l watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	l.log.Errorw(msg, append([]interface{}{"error", err}, flatten(l.fields.Add(fields))...)...)
}

func (l watermillLogger) Info(msg string, fields watermill.LogFields) {
	l.log.Infow(msg, flatten(l.fields.Add(fields))...)
}

func (l watermillLogger) Debug(msg string, fields watermill.LogFields) {
	l.log.Debugw(msg, flatten(l.fields.Add(fields))...)
}

func (l watermillLogger) Trace(msg string, fields watermill.LogFields) {
	l.log.Debugw(msg, flatten(l.fields.Add(fields))...)
}

func (l watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return watermillLogger{log: l.log, fields: l.fields.Add(fields)}
}

func flatten(fields watermill.LogFields) []interface{} {
	out := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		out = append(out, k, v)
	}
	return out
}
