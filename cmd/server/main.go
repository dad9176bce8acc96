package main

import (
	"context"
	"net/http"
	"time"

	"github.com/robfig/cron"
	"go.uber.org/fx"

	"github.com/dinematters/dinematters/internal/api"
	apiCron "github.com/dinematters/dinematters/internal/api/cron"
	v1 "github.com/dinematters/dinematters/internal/api/v1"
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
	"github.com/dinematters/dinematters/internal/pubsub/memory"
	pubsubRouter "github.com/dinematters/dinematters/internal/pubsub/router"
	repo "github.com/dinematters/dinematters/internal/repository/postgres"
	"github.com/dinematters/dinematters/internal/sentry"
	"github.com/dinematters/dinematters/internal/service"
)

func main() {
	app := fx.New(
		fx.Provide(
			config.NewConfig,
			logger.NewLogger,
			sentry.NewService,
			postgres.NewClient,
			cache.Initialize,
			memory.NewPubSub,
			pubsubRouter.NewRouter,
			razorpay.NewClient,

			repo.NewWebhookEventRepository,
			repo.NewOrderRepository,
			repo.NewRestaurantRepository,
			repo.NewLedgerRepository,
			repo.NewTokenizationRepository,

			newServiceParams,
			service.NewBillingService,
			service.NewWebhookService,
			service.NewTokenizationService,
			service.NewRetryService,
			service.NewDispatcherService,

			v1.NewWebhookHandler,
			v1.NewTokenizationHandler,
			apiCron.NewBillingCronHandler,
			newRouter,
		),
		fx.Invoke(startMessageRouter),
		fx.Invoke(startCronJobs),
		fx.Invoke(startServer),
	)
	app.Run()
}

func newServiceParams(
	cfg *config.Configuration,
	log *logger.Logger,
	client *postgres.Client,
	webhookEventRepo webhookevent.Repository,
	orderRepo order.Repository,
	restaurantRepo restaurant.Repository,
	ledgerRepo ledger.Repository,
	tokenizationRepo tokenization.Repository,
	gateway razorpay.Gateway,
	ps pubsub.PubSub,
	c cache.Cache,
) service.ServiceParams {
	return service.ServiceParams{
		Logger:           log,
		Config:           cfg,
		DB:               client,
		WebhookEventRepo: webhookEventRepo,
		OrderRepo:        orderRepo,
		RestaurantRepo:   restaurantRepo,
		LedgerRepo:       ledgerRepo,
		TokenizationRepo: tokenizationRepo,
		Gateway:          gateway,
		PubSub:           ps,
		Cache:            c,
	}
}

func newRouter(
	webhookHandler *v1.WebhookHandler,
	tokenizationHandler *v1.TokenizationHandler,
	billingCronHandler *apiCron.BillingCronHandler,
	cfg *config.Configuration,
	log *logger.Logger,
) http.Handler {
	return api.NewRouter(api.Handlers{
		Webhook:      webhookHandler,
		Tokenization: tokenizationHandler,
		BillingCron:  billingCronHandler,
	}, cfg, log)
}

func startMessageRouter(
	lc fx.Lifecycle,
	router *pubsubRouter.Router,
	dispatcher service.DispatcherService,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	dispatcher.RegisterHandler(router, cfg)

	routerCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := router.Run(routerCtx); err != nil {
					log.Errorw("message router stopped", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			return router.Close()
		},
	})
}

func startCronJobs(
	lc fx.Lifecycle,
	billingService service.BillingService,
	retryService service.RetryService,
	webhookService service.WebhookService,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	c := cron.New()

	// Ledgers for the elapsed month, shortly after midnight.
	c.AddFunc("0 30 0 * * *", func() {
		if _, err := billingService.CreateLedgersForElapsedPeriod(context.Background(), time.Now().UTC()); err != nil {
			log.Errorw("monthly ledger creation job failed", "error", err)
		}
	})

	c.AddFunc("@hourly", func() {
		if _, err := retryService.SweepDueRetries(context.Background(), time.Now().UTC()); err != nil {
			log.Errorw("retry sweep job failed", "error", err)
		}
	})

	reclaimEvery := time.Duration(cfg.Webhook.ReclaimAfterMin) * time.Minute
	c.Schedule(cron.Every(reclaimEvery), cron.FuncJob(func() {
		if _, err := webhookService.ReclaimStuck(context.Background()); err != nil {
			log.Errorw("stuck event reclaim job failed", "error", err)
		}
	}))

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			c.Start()
			log.Infow("scheduled jobs started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			c.Stop()
			return nil
		},
	})
}

func startServer(
	lc fx.Lifecycle,
	handler http.Handler,
	cfg *config.Configuration,
	sentrySvc *sentry.Service,
	log *logger.Logger,
) {
	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Infow("http server starting", "address", cfg.Server.Address)
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatalw("http server failed", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			sentrySvc.Shutdown(ctx)
			return srv.Shutdown(ctx)
		},
	})
}
