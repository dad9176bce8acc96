package service

import (
	"github.com/dinematters/dinematters/internal/cache"
	"github.com/dinematters/dinematters/internal/config"
	"github.com/dinematters/dinematters/internal/domain/ledger"
	"github.com/dinematters/dinematters/internal/domain/order"
	"github.com/dinematters/dinematters/internal/domain/restaurant"
	"github.com/dinematters/dinematters/internal/domain/tokenization"
	"github.com/dinematters/dinematters/internal/domain/webhookevent"
	"github.com/dinematters/dinematters/internal/integration/razorpay"
	"github.com/dinematters/dinematters/internal/logger"
	"github.com/dinematters/dinematters/internal/postgres"
	"github.com/dinematters/dinematters/internal/pubsub"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient

	// Repositories
	WebhookEventRepo webhookevent.Repository
	OrderRepo        order.Repository
	RestaurantRepo   restaurant.Repository
	LedgerRepo       ledger.Repository
	TokenizationRepo tokenization.Repository

	// Integrations
	Gateway razorpay.Gateway
	PubSub  pubsub.PubSub
	Cache   cache.Cache
}
