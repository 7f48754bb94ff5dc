package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	stripego "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/paymentintent"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/kivumart/kivumart-api/internal/domain/cart"
	"github.com/kivumart/kivumart-api/internal/domain/order"
	"github.com/kivumart/kivumart-api/internal/event"
	"github.com/kivumart/kivumart-api/internal/expiry"
	"github.com/kivumart/kivumart-api/internal/handler"
	"github.com/kivumart/kivumart-api/internal/mailer"
	"github.com/kivumart/kivumart-api/internal/notify"
	"github.com/kivumart/kivumart-api/internal/payment/momo"
	"github.com/kivumart/kivumart-api/internal/payment/stripe"
	"github.com/kivumart/kivumart-api/internal/repository"
	"github.com/kivumart/kivumart-api/internal/ws"
	"github.com/kivumart/kivumart-api/pkg/health"
	"github.com/kivumart/kivumart-api/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.DatabasePingCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	userRepo := repository.NewUserRepository(pool)
	productRepo := repository.NewProductRepository(pool)
	collectionRepo := repository.NewCollectionRepository(pool)
	cartRepo := repository.NewCartRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	wishlistRepo := repository.NewWishlistRepository(pool)

	// Event bus and its subscribers: notification rows, email, websocket.
	bus := event.NewBus(ctx, lg.Named("bus"))
	defer bus.Close()

	hub := ws.NewHub(lg.Named("ws"))

	sesMailer, err := mailer.New(ctx, mailer.Config{
		Region:          cfg.Mail.Region,
		AccessKeyID:     cfg.Mail.AccessKey,
		SecretAccessKey: cfg.Mail.SecretKey,
		Sender:          cfg.Mail.Sender,
	})
	if err != nil {
		return errors.Wrap(err, "create mailer")
	}

	notifier := notify.New(userRepo, notificationRepo, sesMailer, hub, lg.Named("notify"))
	notifier.Register(bus)

	// Domain services.
	cartService := cart.NewService(cartRepo, productRepo)
	orderService := order.NewService(cartRepo, orderRepo, bus)

	// Payment gateways.
	momoAdapter := momo.NewAdapter(orderRepo, momo.NewClient(momo.Config{
		BaseURL:           cfg.MoMo.BaseURL,
		SubscriptionKey:   cfg.MoMo.SubscriptionKey,
		APIUser:           cfg.MoMo.APIUser,
		APIKey:            cfg.MoMo.APIKey,
		TargetEnvironment: cfg.MoMo.TargetEnvironment,
		CallbackURL:       cfg.MoMo.CallbackURL,
	}), bus, lg.Named("momo"))

	intents := &paymentintent.Client{
		B:   stripego.GetBackend(stripego.APIBackend),
		Key: cfg.Stripe.SecretKey,
	}
	stripeProcessor := stripe.NewProcessor(orderRepo, intents, bus, lg.Named("stripe"))

	// Product expiry sweeper.
	sweeper := expiry.NewSweeper(productRepo, cfg.Expiry.Interval, lg.Named("expiry"))
	go sweeper.Run(ctx)

	// HTTP surface.
	h := handler.New(handler.Config{
		Carts:         cartService,
		Orders:        orderService,
		MoMo:          momoAdapter,
		Stripe:        stripeProcessor,
		Products:      productRepo,
		Collections:   collectionRepo,
		Notifications: notificationRepo,
		Wishlists:     wishlistRepo,
		Bus:           bus,
		Hub:           hub,
		Auth:          handler.NewAuthenticator(cfg.JWTSecret),
		WebhookSecret: cfg.Stripe.WebhookSecret,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	h.Register(mux)

	instrumented := otelhttp.NewHandler(mux, "kivumart-api",
		otelhttp.WithTracerProvider(m.TracerProvider()),
		otelhttp.WithMeterProvider(m.MeterProvider()),
	)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(instrumented,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization"},
				ExposeHeaders:    []string{"X-Request-Id", "X-RateLimit-Remaining"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:     cfg.RateLimit.Max,
				Window:  cfg.RateLimit.Window,
				KeyFunc: httpmiddleware.BearerKeyFunc,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
