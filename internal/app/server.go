// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"gitwallet-service/internal/config"
	"gitwallet-service/internal/db"
	billingHandler "gitwallet-service/internal/handlers/billing"
	checkoutHandler "gitwallet-service/internal/handlers/checkout"
	dashboardHandler "gitwallet-service/internal/handlers/dashboard"
	prospectHandler "gitwallet-service/internal/handlers/prospect"
	subscriptionHandler "gitwallet-service/internal/handlers/subscription"
	tierHandler "gitwallet-service/internal/handlers/tier"
	webhookHandler "gitwallet-service/internal/handlers/webhook"
	wsHandler "gitwallet-service/internal/handlers/websocket"
	"gitwallet-service/internal/middleware"
	"gitwallet-service/internal/pkg/jwt"
	"gitwallet-service/internal/pkg/ratelimit"
	"gitwallet-service/internal/repository/postgres"
	redisrepo "gitwallet-service/internal/repository/redis"
	billingUsecase "gitwallet-service/internal/service/billing"
	checkoutUsecase "gitwallet-service/internal/service/checkout"
	dashboardUsecase "gitwallet-service/internal/service/dashboard"
	"gitwallet-service/internal/service/email"
	notifyUsecase "gitwallet-service/internal/service/notification"
	paymentUsecase "gitwallet-service/internal/service/payment"
	prospectUsecase "gitwallet-service/internal/service/prospect"
	subscriptionUsecase "gitwallet-service/internal/service/subscription"
	tierUsecase "gitwallet-service/internal/service/tier"
	webhookUsecase "gitwallet-service/internal/service/webhook"
	"gitwallet-service/internal/websocket"
	"gitwallet-service/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger

	http       *http.Server
	pool       *pgxpool.Pool
	redis      *redis.Client
	reconciler *worker.Reconciler
	notifier   *notifyUsecase.NotificationService
	cancelHub  context.CancelFunc
}

func NewServer() (*Server, error) {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	return &Server{cfg: cfg, engine: gin.New(), logger: logger}, nil
}

// Start wires dependencies and serves HTTP until Shutdown is called.
func (s *Server) Start() error {
	// ----- PostgreSQL -----
	pool, err := db.ConnectDB(db.PostgresConfig{
		URL:      s.cfg.DatabaseURL,
		MaxConns: s.cfg.DBMaxConns,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	s.pool = pool
	s.logger.Info("connected to PostgreSQL")

	// ----- Redis -----
	redisClient, err := db.NewRedisClient(db.RedisConfig{
		Addr:     s.cfg.RedisAddr,
		Password: s.cfg.RedisPass,
		DB:       s.cfg.RedisDB,
		PoolSize: 10,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	s.redis = redisClient
	s.logger.Info("connected to Redis", zap.String("addr", s.cfg.RedisAddr))

	// ----- JWT -----
	jwtManager, err := jwt.LoadAndBuild(s.cfg.JWT)
	if err != nil {
		return fmt.Errorf("failed to load JWT manager: %w", err)
	}

	// ----- Repositories -----
	dbWrapper := postgres.NewDB(pool)
	tierRepo := postgres.NewTierRepository(pool)
	subscriptionRepo := postgres.NewSubscriptionRepository(pool)
	chargeRepo := postgres.NewChargeRepository(pool)
	prospectRepo := postgres.NewProspectRepository(pool)
	organizationRepo := postgres.NewOrganizationRepository(pool)
	attemptRepo := postgres.NewCheckoutAttemptRepository(pool)
	purchaseRepo := postgres.NewPurchaseRepository(dbWrapper, subscriptionRepo, chargeRepo, attemptRepo)
	paymentEventRepo := postgres.NewPaymentEventRepository(pool)
	reconcileQueue := redisrepo.NewReconcileQueue(redisClient)

	// ----- WebSocket Hub -----
	hub := websocket.NewHub(jwtManager.Verifier, s.logger)
	hubCtx, cancelHub := context.WithCancel(context.Background())
	s.cancelHub = cancelHub
	go hub.Run(hubCtx)

	// ----- Notifications -----
	var mailer notifyUsecase.Mailer
	if sender := email.NewSender(
		s.cfg.SMTPHost,
		s.cfg.SMTPPort,
		s.cfg.SMTPUser,
		s.cfg.SMTPPass,
		s.cfg.SMTPFromName,
		s.cfg.SMTPSecure,
	); sender.Configured() {
		mailer = sender
	} else {
		s.logger.Warn("SMTP_HOST not set, vendor emails are disabled")
	}
	notifier := notifyUsecase.NewNotificationService(mailer, email.NewRegistry(), hub, s.cfg.PublicBaseURL, s.logger)
	s.notifier = notifier

	// ----- Services -----
	gateway := paymentUsecase.NewStripeGateway(s.cfg.StripeSecretKey, s.logger)
	tierService := tierUsecase.NewTierService(tierRepo, s.cfg.DefaultCurrency, s.logger)
	checkoutService := checkoutUsecase.NewCheckoutService(
		checkoutUsecase.Deps{
			Tiers:         tierService,
			Organizations: organizationRepo,
			Attempts:      attemptRepo,
			Purchases:     purchaseRepo,
			Prospects:     prospectRepo,
			Gateway:       gateway,
			Escalator:     reconcileQueue,
			Limiter:       ratelimit.NewLimiter(redisClient, s.cfg.ContactRateLimit, s.cfg.ContactRateWindow),
			Notifier:      notifier,
		},
		checkoutUsecase.Config{
			PersistAttempts: s.cfg.PersistAttempts,
			PersistBackoff:  s.cfg.PersistBackoff,
			PollInterval:    s.cfg.PendingPollInterval,
			PollTimeout:     s.cfg.PendingPollTimeout,
		},
		s.logger,
	)
	subscriptionService := subscriptionUsecase.NewSubscriptionService(
		subscriptionRepo,
		organizationRepo,
		tierRepo,
		gateway,
		notifier,
		s.logger,
	)
	prospectService := prospectUsecase.NewProspectService(prospectRepo, notifier, s.logger)
	billingService := billingUsecase.NewBillingService(organizationRepo)
	dashboardService := dashboardUsecase.NewDashboardService(subscriptionRepo, chargeRepo, prospectRepo, s.logger)
	webhookService := webhookUsecase.NewWebhookService(
		paymentEventRepo,
		subscriptionRepo,
		organizationRepo,
		tierRepo,
		notifier,
		s.logger,
	)

	// ----- Reconciliation -----
	s.reconciler = worker.NewReconciler(reconcileQueue, attemptRepo, checkoutService, worker.ReconcilerConfig{
		Interval:        s.cfg.ReconcileInterval,
		BatchSize:       s.cfg.ReconcileBatchSize,
		MaxFailures:     s.cfg.ReconcileMaxFailures,
		UnrecordedAfter: s.cfg.UnrecordedAfter,
	}, s.logger)
	s.reconciler.Start(context.Background())

	// ----- Middlewares -----
	s.engine.Use(
		middleware.RecoveryMiddleware(s.logger),
		middleware.LoggingMiddleware(s.logger),
		middleware.CORSMiddleware(s.cfg.CORSAllowedOrigins),
	)

	// ----- Router -----
	handlers := &Handlers{
		TierHandler:         tierHandler.NewTierHandler(tierService),
		CheckoutHandler:     checkoutHandler.NewCheckoutHandler(checkoutService),
		SubscriptionHandler: subscriptionHandler.NewSubscriptionHandler(subscriptionService),
		ProspectHandler:     prospectHandler.NewProspectHandler(prospectService),
		BillingHandler:      billingHandler.NewBillingHandler(billingService),
		DashboardHandler:    dashboardHandler.NewDashboardHandler(dashboardService),
		StripeHandler:       webhookHandler.NewStripeHandler(webhookService, s.cfg.StripeWebhookSecret, s.logger),
		WSHandler:           wsHandler.NewWebSocketHandler(hub, s.cfg.CORSAllowedOrigins, s.logger),
		AuthMiddleware:      middleware.NewAuthMiddleware(jwtManager.Verifier),
		Health:              newHealthCheck(pool, redisClient, reconcileQueue),
	}
	SetupRouter(s.engine, s.logger, handlers)

	// ----- Start HTTP -----
	s.http = &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("server running", zap.String("addr", s.cfg.HTTPAddr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains HTTP traffic, then stops background work and closes pools.
func (s *Server) Shutdown(ctx context.Context) error {
	var firstErr error
	if s.http != nil {
		if err := s.http.Shutdown(ctx); err != nil {
			firstErr = fmt.Errorf("http shutdown: %w", err)
		}
	}
	if s.reconciler != nil {
		s.reconciler.Stop()
	}
	if s.notifier != nil {
		s.notifier.Wait()
	}
	if s.cancelHub != nil {
		s.cancelHub()
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("redis close: %w", err)
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}

	_ = s.logger.Sync()
	return firstErr
}
