package container

import (
	"context"

	"ordercore-api-io/api/internal/events"
	"ordercore-api-io/api/internal/ledger"
	"ordercore-api-io/api/internal/locks"
	"ordercore-api-io/api/internal/scheduler"
	"ordercore-api-io/api/pkg/clients"
	"ordercore-api-io/api/pkg/controllers"
	"ordercore-api-io/api/pkg/coupons"
	"ordercore-api-io/api/pkg/pricing"
	"ordercore-api-io/api/pkg/services"
	"ordercore-api-io/api/pkg/util"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Infrastructure holds the optional backing connections. Any of them may be
// nil; the matching feature is then switched off.
type Infrastructure struct {
	Mongo  *mongo.Client
	Redis  *redis.Client
	Rabbit *events.RabbitMQ
}

type ServiceContainer struct {
	Scheduler      *scheduler.Scheduler
	Reconciler     *services.Reconciler
	SessionService *services.SessionServiceImpl
	OrderService   *services.OrderServiceImpl

	SessionController *controllers.SessionController
	CouponController  *controllers.CouponController
	OrderController   *controllers.OrderController
}

func NewServiceContainer(ctx context.Context, cfg *util.Config, infra Infrastructure) *ServiceContainer {
	calc := pricing.NewCalculator(cfg.FreeShippingThreshold)
	sched := scheduler.New()

	var sessionEvents services.SessionEventPublisher
	var locker services.SubmitLocker
	if infra.Redis != nil {
		sessionEvents = events.NewRedisPublisher(infra.Redis)
		locker = locks.NewRedisLocker(infra.Redis)
	}

	var orderLedger services.OrderLedger
	if infra.Mongo != nil {
		l := ledger.NewMongoLedger(infra.Mongo, cfg.DBName)
		if err := l.EnsureIndexes(ctx); err != nil {
			util.LogError("failed to create ledger indexes", err)
		}
		orderLedger = l
	}

	var orderEvents services.OrderEventPublisher
	if infra.Rabbit != nil {
		orderEvents = infra.Rabbit
	}

	couponClient := coupons.NewClient(clients.NewTransport(cfg.CouponServiceURL, cfg.APIToken, cfg.HTTPTimeout), calc)
	orderClient := clients.NewOrderClient(clients.NewTransport(cfg.OrderServiceURL, cfg.APIToken, cfg.HTTPTimeout))
	paymentClient := clients.NewPaymentClient(clients.NewTransport(cfg.PaymentServiceURL, cfg.APIToken, cfg.HTTPTimeout))

	reconciler := services.NewReconciler(couponClient, sched, sessionEvents, reconcilerConfig(cfg))
	sessionService := services.NewSessionService(calc, reconciler, sessionEvents, cfg.SessionIdleTTL)
	orderService := services.NewOrderService(services.OrderServiceDeps{
		Sessions: sessionService,
		Calc:     calc,
		Orders:   orderClient,
		Payments: paymentClient,
		Ledger:   orderLedger,
		Events:   orderEvents,
		Locker:   locker,
	})

	zap.L().Info("services wired",
		zap.Bool("ledger", orderLedger != nil),
		zap.Bool("session_events", sessionEvents != nil),
		zap.Bool("order_events", orderEvents != nil),
		zap.Bool("submit_lock", locker != nil),
	)

	return &ServiceContainer{
		Scheduler:      sched,
		Reconciler:     reconciler,
		SessionService: sessionService,
		OrderService:   orderService,

		SessionController: controllers.InitSessionController(sessionService),
		CouponController:  controllers.InitCouponController(sessionService),
		OrderController:   controllers.InitOrderController(orderService),
	}
}

// reconcilerConfig takes the configured delays, keeping the defaults for
// unset or non-positive values.
func reconcilerConfig(cfg *util.Config) services.ReconcilerConfig {
	rc := services.DefaultReconcilerConfig()
	if cfg.RevalidateDelay > 0 {
		rc.RevalidateDelay = cfg.RevalidateDelay
	}
	if cfg.AutoApplyDelay > 0 {
		rc.AutoApplyDelay = cfg.AutoApplyDelay
	}
	if cfg.EnableDelay > 0 {
		rc.EnableDelay = cfg.EnableDelay
	}
	return rc
}

// Shutdown closes every open session and stops pending background tasks.
func (sc *ServiceContainer) Shutdown() {
	sc.SessionService.CloseAll()
	sc.Scheduler.Stop()
}
