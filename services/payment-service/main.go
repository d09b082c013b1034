package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	awspkg "github.com/filipfilip1/instytut-saunowy/pkg/aws"
	"github.com/filipfilip1/instytut-saunowy/services/common/logger"
	commonmw "github.com/filipfilip1/instytut-saunowy/services/common/middleware"
	"github.com/filipfilip1/instytut-saunowy/services/payment-service/config"
	"github.com/filipfilip1/instytut-saunowy/services/payment-service/controllers"
	"github.com/filipfilip1/instytut-saunowy/services/payment-service/database"
	"github.com/filipfilip1/instytut-saunowy/services/payment-service/metrics"
	"github.com/filipfilip1/instytut-saunowy/services/payment-service/repository"
	"github.com/filipfilip1/instytut-saunowy/services/payment-service/routes"
	"github.com/filipfilip1/instytut-saunowy/services/payment-service/sender"
	"github.com/filipfilip1/instytut-saunowy/services/payment-service/services"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	ctx := context.Background()

	log := logger.Initialize(cfg.AppEnv)

	// --- 1. AWS (LocalStack-compatible) ---
	var awsCfg sdkaws.Config
	if cfg.AWSNeeded() {
		awsCfg, err = awspkg.LoadAWSConfig(ctx, cfg.AWS)
		if err != nil {
			log.Fatal("Failed to load AWS config", zap.Error(err))
		}
	}
	if cfg.CloudWatchEnabled {
		cwLogs, err := awspkg.NewCloudWatchLogsClient(ctx, awsCfg, cfg.CloudWatchLogGroup, cfg.Service)
		if err != nil {
			log.Warn("CloudWatch Logs unavailable, logging to stdout only", zap.Error(err))
		} else {
			log = logger.InitializeWithWriter(cfg.AppEnv, cwLogs)
		}
	}
	defer log.Sync()

	if cfg.UseSecrets {
		if err := cfg.ApplySecrets(ctx, awspkg.NewSecretsClient(awsCfg)); err != nil {
			log.Warn("Some secrets could not be loaded from Secrets Manager", zap.Error(err))
		}
	}
	if cfg.StripeWebhookKey == "" {
		log.Error("STRIPE_WEBHOOK_SECRET not set: every webhook delivery will be rejected")
	}

	// --- 2. MongoDB ---
	mongoClient, db, err := database.Connect(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	if cfg.MongoTransactions {
		ok, err := database.SupportsTransactions(ctx, mongoClient)
		if err != nil || !ok {
			log.Fatal("MONGO_TRANSACTIONS=true but the deployment does not support transactions", zap.Error(err))
		}
	}
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		log.Warn("Failed to ensure indexes", zap.Error(err))
	}

	store := repository.NewMongoStore(mongoClient, cfg.MongoTransactions, log)
	products := repository.NewProductRepository(db)
	orders := repository.NewOrderRepository(db)
	trainings := repository.NewTrainingRepository(db)
	bookings := repository.NewBookingRepository(db)

	// --- 3. Metrics ---
	cwMetrics := awspkg.NewMetricsClient(awsCfg, cfg.CloudWatchNamespace, cfg.CloudWatchEnabled)
	metrics.Register(prometheus.DefaultRegisterer)
	recorder := metrics.NewRecorder(cwMetrics)
	httpMetrics := commonmw.NewHTTPMetrics(cfg.Service)
	httpMetrics.Register(prometheus.DefaultRegisterer)

	// --- 4. Optional integrations ---
	notifier := &services.Notifier{
		Orders:   orders,
		Bookings: bookings,
		Metrics:  recorder,
		Logger:   log,
		Timeout:  cfg.NotifierTimeout,
	}
	if cfg.InvoiceBucket != "" {
		notifier.Invoices = services.NewS3InvoiceIssuer(awspkg.NewS3Client(awsCfg), cfg.InvoiceBucket,
			cfg.InvoiceURLTTL, services.SellerInfo(cfg.InvoiceSeller))
	} else {
		log.Info("INVOICE_BUCKET not set, invoices disabled")
	}
	if cfg.SMTPHost != "" {
		mailer, err := sender.NewSMTPSender(sender.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.SMTPFrom,
		})
		if err != nil {
			log.Warn("SMTP misconfigured, confirmation emails disabled", zap.Error(err))
		} else {
			notifier.Mailer = mailer
		}
	} else {
		log.Info("SMTP_HOST not set, confirmation emails disabled")
	}
	if cfg.PaymentSNSTopicARN != "" {
		notifier.Events = awspkg.NewSNSClient(awsCfg)
		notifier.TopicArn = cfg.PaymentSNSTopicARN
	}

	deps := services.ReconcilerDeps{
		Store:     store,
		Products:  products,
		Orders:    orders,
		Trainings: trainings,
		Bookings:  bookings,
		Notifier:  notifier,
		Metrics:   recorder,
		Logger:    log,
	}
	if cfg.ManualReviewQueueURL != "" {
		deps.Review = services.NewSQSReviewQueue(awspkg.NewSQSSender(awsCfg, cfg.ManualReviewQueueURL), log)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Warn("Failed to parse REDIS_URL, delivery lock disabled", zap.Error(err))
		} else {
			redisClient = redis.NewClient(redisOpts)
			deps.Locker = services.NewRedisDeliveryLocker(redisClient, cfg.DeliveryLockTTL)
		}
	}

	// --- 5. Services & controllers ---
	reconciler := services.NewReconciler(deps, services.ReconcilerOptions{
		RequireBookingApproval: cfg.BookingRequireApproval,
		DefaultCurrency:        cfg.Currency,
	})
	stripeSvc := services.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookKey)

	pc := &controllers.PaymentController{Verifier: stripeSvc, Handler: reconciler, Logger: log}
	cc := &controllers.CheckoutController{
		Checkout: services.NewCheckoutService(products, trainings, stripeSvc, cfg.FrontendURL, cfg.Currency, log),
	}
	ac := &controllers.AdminController{
		Admin: services.NewAdminService(store, orders, bookings, trainings, products, log),
	}

	// --- 6. HTTP server ---
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestID())
	r.Use(commonmw.RequestLogger(log, "/health", "/metrics"))
	r.Use(commonmw.SecurityHeaders())
	r.Use(commonmw.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(commonmw.MetricsMiddleware(httpMetrics, cwMetrics, cfg.Service))

	routes.RegisterPaymentRoutes(r, pc, cc, ac, commonmw.RateLimitMiddleware(cfg.RateLimitPerMin, 10))

	r.GET("/health", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := mongoClient.Ping(pingCtx, nil); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DEGRADED", "mongo": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "OK", "transactions": store.Atomic()})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
	}

	go func() {
		log.Info("Payment Service starting",
			zap.String("port", cfg.Port),
			zap.Bool("transactions", cfg.MongoTransactions),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down Payment Service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close Redis", zap.Error(err))
		}
	}
	if err := database.Close(mongoClient); err != nil {
		log.Error("Failed to disconnect MongoDB", zap.Error(err))
	}

	log.Info("Payment Service stopped gracefully")
}
