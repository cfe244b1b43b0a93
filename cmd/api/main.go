package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/chitra-ai/chitra-api/internal/config"
	"github.com/chitra-ai/chitra-api/internal/domain/auth"
	"github.com/chitra-ai/chitra-api/internal/domain/credit"
	"github.com/chitra-ai/chitra-api/internal/domain/generation"
	"github.com/chitra-ai/chitra-api/internal/domain/headshot"
	"github.com/chitra-ai/chitra-api/internal/domain/purchase"
	"github.com/chitra-ai/chitra-api/internal/domain/user"
	"github.com/chitra-ai/chitra-api/internal/middleware"
	"github.com/chitra-ai/chitra-api/internal/pkg/database"
	"github.com/chitra-ai/chitra-api/internal/pkg/gemini"
	"github.com/chitra-ai/chitra-api/internal/pkg/iap"
	"github.com/chitra-ai/chitra-api/internal/pkg/imagegen"
	"github.com/chitra-ai/chitra-api/internal/pkg/imaging"
	"github.com/chitra-ai/chitra-api/internal/pkg/jwt"
	"github.com/chitra-ai/chitra-api/internal/pkg/logger"
	"github.com/chitra-ai/chitra-api/internal/pkg/metrics"
	"github.com/chitra-ai/chitra-api/internal/pkg/push"
	pkgresponse "github.com/chitra-ai/chitra-api/internal/pkg/response"
	"github.com/chitra-ai/chitra-api/internal/pkg/storage"
)

// handlers groups everything the router mounts.
type handlers struct {
	auth       *auth.Handler
	user       *user.Handler
	credit     *credit.Handler
	purchase   *purchase.Handler
	generation *generation.Handler
	headshot   *headshot.Handler
}

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Env,
		Service:     "chitra-api",
	})

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting Chitra API")

	ctx := context.Background()

	if err := database.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redis)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)

	objectStore, bucket := setupStorage(ctx, cfg)
	notifier := setupPush(ctx, cfg)

	// ---------- Repositories ----------
	userRepo := user.NewRepository(db)
	creditRepo := credit.NewRepository(db)
	purchaseRepo := purchase.NewRepository(db)
	headshotRepo := headshot.NewRepository(db)

	// ---------- Services ----------
	var adLimiter credit.AdLimiter
	if redis != nil {
		adLimiter = credit.NewRedisAdLimiter(redis, cfg.DailyAdLimit)
	}
	creditService := credit.NewService(creditRepo, adLimiter)
	userService := user.NewService(userRepo, creditService)
	authService := auth.NewService(userRepo, jwtService)

	gateway := iap.NewGateway(
		iap.NewAppleVerifier(iap.AppleConfig{
			SharedSecret:  cfg.AppleSharedSecret,
			ProductionURL: cfg.AppleProductionURL,
			SandboxURL:    cfg.AppleSandboxURL,
			Timeout:       cfg.VerifyTimeout,
		}),
		iap.NewGoogleVerifier(ctx, iap.GoogleConfig{
			ServiceAccountKey: cfg.GoogleServiceAccountKey,
			PackageName:       cfg.GooglePackageName,
			Timeout:           cfg.VerifyTimeout,
		}),
		cfg.AllowTestPurchases,
	)
	if cfg.AllowTestPurchases {
		log.Warn().Msg("Test purchases are enabled")
	}

	dispatcher := push.NewDispatcher(notifier)
	purchaseService := purchase.NewService(
		purchaseRepo,
		gateway,
		creditService,
		userService,
		dispatcher,
		cfg.LegacyPurchaseEnabled,
	)

	generationService := generation.NewService(
		imagegen.NewClient(cfg.GetImgBaseURL, cfg.GetImgAPIToken, cfg.ExternalCallTimeout),
		creditService,
		cfg.DailyAdLimit,
	)

	headshotService := headshot.NewService(headshot.Deps{
		Repo:       headshotRepo,
		Ledger:     creditService,
		Model:      gemini.NewClient(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.ExternalCallTimeout),
		Fetcher:    headshot.NewHTTPFetcher(0),
		Normalizer: imaging.NewProcessor(imaging.DefaultConfig()),
		Storage:    objectStore,
		Bucket:     bucket,
	})

	// ---------- Handlers ----------
	h := handlers{
		auth:       auth.NewHandler(authService),
		user:       user.NewHandler(userService),
		credit:     credit.NewHandler(creditService),
		purchase:   purchase.NewHandler(purchaseService),
		generation: generation.NewHandler(generationService),
		headshot:   headshot.NewHandler(headshotService, cfg.CleanupMaxAge),
	}

	paidLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	stopCleanup := make(chan struct{})
	paidLimiter.StartCleanup(5*time.Minute, stopCleanup)

	r := newRouter(cfg, h, middleware.Auth(jwtService), paidLimiter.Handler)

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// Generation calls block on the provider for up to ExternalCallTimeout.
		WriteTimeout: cfg.ExternalCallTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	close(stopCleanup)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}
	if err := dispatcher.Wait(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Push notifications still in flight at shutdown")
	}

	log.Info().Msg("Server exited properly")
}

// newRouter registers every route. authMiddleware resolves the caller and
// limit throttles the paid generation endpoints.
func newRouter(cfg *config.Config, h handlers, authMiddleware, limit func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))
	r.Use(metrics.InstrumentHandler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/auth", h.auth.Routes(authMiddleware))
		r.Mount("/user", h.user.Routes(authMiddleware))
		r.Mount("/pricing", h.purchase.Routes(authMiddleware))
		r.Mount("/headshots", h.headshot.Routes(authMiddleware, limit))

		r.Get("/config", h.generation.Config)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Get("/credits", h.credit.Summary)
			r.Post("/reward", h.credit.ClaimReward)
			r.With(limit).Post("/generate", h.generation.Generate)
		})

		r.With(middleware.SharedSecret("X-Admin-Secret", "", cfg.AdminSecret)).
			Post("/ads/reset", h.credit.ResetAds)
		r.With(middleware.SharedSecret("Authorization", "Bearer", cfg.CronSecret)).
			Post("/cleanup/images", h.headshot.Cleanup)
	})

	return r
}

// setupStorage returns nil when no bucket is configured; headshot results
// are then returned inline as data URLs.
func setupStorage(ctx context.Context, cfg *config.Config) (storage.Storage, string) {
	if !cfg.StorageEnabled() {
		log.Warn().Msg("Object storage not configured, headshot results are returned inline")
		return nil, ""
	}

	s3, err := storage.NewS3Storage(ctx, storage.Config{
		Endpoint:  cfg.StorageEndpoint,
		Region:    cfg.StorageRegion,
		Bucket:    cfg.StorageBucket,
		AccessKey: cfg.StorageAccessKey,
		SecretKey: cfg.StorageSecretKey,
		PublicURL: cfg.StoragePublicURL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create object storage")
	}
	return s3, s3.Bucket()
}

func setupPush(ctx context.Context, cfg *config.Config) push.Notifier {
	client, err := push.NewFCMClient(ctx, push.FCMConfig{
		ProjectID:         cfg.FirebaseProjectID,
		ServiceAccountKey: cfg.FirebaseServiceAccountKey,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Push notifications disabled")
		return nil
	}
	return client
}
