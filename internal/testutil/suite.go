package testutil

import (
	"github.com/stretchr/testify/suite"

	"github.com/dinematters/dinematters/internal/cache"
	"github.com/dinematters/dinematters/internal/config"
	"github.com/dinematters/dinematters/internal/logger"
)

// Stores groups the in-memory repositories used by service tests
type Stores struct {
	WebhookEventRepo *InMemoryWebhookEventStore
	OrderRepo        *InMemoryOrderStore
	RestaurantRepo   *InMemoryRestaurantStore
	LedgerRepo       *InMemoryLedgerStore
	TokenizationRepo *InMemoryTokenizationStore
}

// BaseServiceTestSuite provides fresh stores, config, logger, cache and
// pubsub per test.
type BaseServiceTestSuite struct {
	suite.Suite
	stores Stores
	cfg    *config.Configuration
	log    *logger.Logger
	pubsub *InMemoryPubSub
	cache  cache.Cache
	db     *InMemoryDB
}

// SetupTest initializes fresh dependencies
func (s *BaseServiceTestSuite) SetupTest() {
	s.stores = Stores{
		WebhookEventRepo: NewInMemoryWebhookEventStore(),
		OrderRepo:        NewInMemoryOrderStore(),
		RestaurantRepo:   NewInMemoryRestaurantStore(),
		LedgerRepo:       NewInMemoryLedgerStore(),
		TokenizationRepo: NewInMemoryTokenizationStore(),
	}
	s.cfg = config.GetDefaultConfig()
	s.log = logger.GetLogger()
	s.pubsub = NewInMemoryPubSub()
	s.cache = cache.NewInMemoryCache()
	s.db = NewInMemoryDB()
}

// TearDownTest cleans up after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	if s.pubsub != nil {
		_ = s.pubsub.Close()
	}
}

// GetStores returns the test stores
func (s *BaseServiceTestSuite) GetStores() Stores { return s.stores }

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration { return s.cfg }

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger { return s.log }

// GetPubSub returns the test pubsub
func (s *BaseServiceTestSuite) GetPubSub() *InMemoryPubSub { return s.pubsub }

// GetCache returns the test cache
func (s *BaseServiceTestSuite) GetCache() cache.Cache { return s.cache }

// GetDB returns the test DB stub
func (s *BaseServiceTestSuite) GetDB() *InMemoryDB { return s.db }
