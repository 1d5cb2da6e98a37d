package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"eventtts/agi"
	"eventtts/config"
	"eventtts/db"
	"eventtts/events"
	"eventtts/filemgr"
	"eventtts/inventory"
	"eventtts/logger"
	"eventtts/memdb"
	"eventtts/middleware"
	"eventtts/mq"
	"eventtts/orders"
	"eventtts/ratelim"
	"eventtts/rdx"
	"eventtts/reports"
	"eventtts/repository"
	"eventtts/routes"
	"eventtts/stripe"
	"eventtts/taxonomy"
	"eventtts/tickets"
	"eventtts/users"

	"github.com/rs/cors"
	"go.uber.org/zap"
)

const sweepInterval = time.Hour

// securityHeaders applies a set of recommended HTTP security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'none'")
		// HSTS (must be on HTTPS)
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs each request method, path, remote address, and duration.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		zap.L().Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.RequestURI),
			zap.String("remote", r.RemoteAddr),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// backend is the storage and fan-out wiring chosen by configuration.
type backend struct {
	stores repository.Stores
	cache  rdx.Cache
	live   mq.Publisher
	close  func(context.Context)
}

func openBackend(ctx context.Context, conf *config.Config, log *zap.Logger) (*backend, error) {
	b := &backend{cache: rdx.Noop{}, live: mq.NewLocal(), close: func(context.Context) {}}

	switch conf.StoreDriver {
	case config.DriverMemory:
		b.stores = memdb.New().Stores()
		log.Warn("using in-memory store; data is lost on restart")
	default:
		colls, err := db.Connect(ctx, conf.MongoURI, conf.MongoDB)
		if err != nil {
			return nil, err
		}
		if err := db.EnsureIndexes(ctx, colls); err != nil {
			_ = colls.Close(context.Background())
			return nil, err
		}
		n, err := db.NormalizeLegacyCapacity(ctx, colls)
		if err != nil {
			_ = colls.Close(context.Background())
			return nil, err
		}
		if n > 0 {
			log.Info("normalized legacy capacity", zap.Int64("events", n))
		}
		b.stores = repository.NewMongoStores(colls)
		b.close = func(ctx context.Context) { _ = colls.Close(ctx) }
	}

	if conf.RedisAddr != "" {
		conn, err := rdx.Connect(ctx, conf.RedisAddr, conf.RedisPassword)
		if err != nil {
			b.close(context.Background())
			return nil, err
		}
		b.cache = rdx.NewRedisCache(conn)
		b.live = mq.NewRedisPublisher(conn)
		prev := b.close
		b.close = func(ctx context.Context) {
			_ = conn.Close()
			prev(ctx)
		}
	}
	return b, nil
}

func main() {
	conf, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := logger.Init(conf.Environment); err != nil {
		panic(err)
	}
	log := zap.L()
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	be, err := openBackend(ctx, conf, log)
	if err != nil {
		log.Fatal("open backend", zap.Error(err))
	}

	resolver := taxonomy.NewResolver(be.stores.Taxonomy)
	eventSvc := events.NewService(events.Options{
		Stores:         be.stores,
		Taxonomy:       resolver,
		Cache:          be.cache,
		CacheTTL:       conf.CacheTTL,
		Live:           be.live,
		SubEventPolicy: conf.SubEventPolicy,
		Logger:         log.Named("events"),
	})
	ledger := inventory.NewLedger(be.stores.Events, be.stores.Orders, be.cache, be.live, log.Named("inventory"))

	var gateway orders.Gateway
	if conf.StripeSecretKey != "" {
		gateway = stripe.New(conf.StripeSecretKey, conf.StripeWebhookSecret)
	} else {
		log.Warn("STRIPE_SECRET_KEY not set; paid checkout is disabled")
	}
	orderSvc := orders.NewService(orders.Options{
		Ledger:             ledger,
		Events:             eventSvc,
		Orders:             be.stores.Orders,
		Gateway:            gateway,
		ServerURL:          conf.ServerURL,
		Currency:           conf.Currency,
		MaxTicketsPerOrder: conf.MaxTicketsPerOrder,
		Logger:             log.Named("orders"),
	})

	userSvc := users.NewService(be.stores, eventSvc, log.Named("users"))

	var gen reports.Generator
	if conf.GeminiAPIKey != "" {
		gen = agi.NewGemini(conf.GeminiAPIKey, conf.GeminiModel)
	} else {
		log.Warn("GEMINI_API_KEY not set; report generation is disabled")
	}
	reportSvc := reports.NewService(be.stores.Reports, eventSvc, orderSvc, gen, log.Named("reports"))

	var verifier *users.WebhookVerifier
	if conf.ClerkWebhookSecret != "" {
		verifier, err = users.NewWebhookVerifier(conf.ClerkWebhookSecret)
		if err != nil {
			log.Fatal("clerk webhook secret", zap.Error(err))
		}
	}

	hub := tickets.NewHub(log.Named("live"))
	hub.Start(ctx, be.live)

	if conf.StatusSweep {
		sched, err := events.StartStatusSweeper(eventSvc, sweepInterval)
		if err != nil {
			log.Fatal("start status sweeper", zap.Error(err))
		}
		defer func() { _ = sched.Shutdown() }()
	}

	router := routes.SetupRouter(&routes.Handlers{
		Auth:     middleware.NewAuth(conf.JWTSecret, userSvc),
		Limiter:  ratelim.NewRateLimiter(60, 20),
		Events:   &events.Handler{Service: eventSvc},
		Taxonomy: &taxonomy.Handler{Resolver: resolver},
		Users:    &users.Handler{Service: userSvc, Events: eventSvc, Orders: orderSvc, Verifier: verifier},
		Orders:   &orders.Handler{Service: orderSvc},
		Tickets: &tickets.Handler{
			Orders: orderSvc,
			Store:  be.stores.Orders,
			Events: be.stores.Events,
			Users:  be.stores.Users,
			Signer: tickets.NewSigner(conf.JWTSecret),
		},
		Live:      hub,
		Reports:   &reports.Handler{Service: reportSvc},
		Uploads:   &filemgr.Handler{Store: filemgr.NewStore(conf.UploadDir)},
		UploadDir: conf.UploadDir,
	})

	// apply middleware: CORS → security headers → logging → router
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(router)

	port := conf.Port
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	server := &http.Server{
		Addr:              port,
		Handler:           loggingMiddleware(securityHeaders(corsHandler)),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("addr", port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("ListenAndServe", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received; shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	be.close(shutdownCtx)
	log.Info("server stopped cleanly")
}
