package app

import (
	"context"
	"net/http"
	"time"

	"github.com/Tenac92/LEXIS-sub001/internal/auth/credentials"
	"github.com/Tenac92/LEXIS-sub001/internal/auth/handler"
	"github.com/Tenac92/LEXIS-sub001/internal/auth/resolver"
	"github.com/Tenac92/LEXIS-sub001/internal/config"
	"github.com/Tenac92/LEXIS-sub001/internal/directory"
	"github.com/Tenac92/LEXIS-sub001/internal/gateway"
	"github.com/Tenac92/LEXIS-sub001/internal/geo"
	"github.com/Tenac92/LEXIS-sub001/internal/ingest"
	"github.com/Tenac92/LEXIS-sub001/internal/logger"
	"github.com/Tenac92/LEXIS-sub001/internal/middleware"
	"github.com/Tenac92/LEXIS-sub001/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// runner is a background loop started with the app and stopped at shutdown.
type runner func(ctx context.Context)

type wiring struct {
	router  *gin.Engine
	gateway *gateway.Gateway
	runners []runner
	cleanup func() error
}

func setupHTTP(ctx context.Context, cfg *config.Config) (*wiring, error) {

	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	sessionStore := session.NewRedisStore(infra.Redis.Client, cfg.SessionKeyPrefix)
	authenticator := session.NewAuthenticator(sessionStore, cfg.SessionIdleTTL, cfg.SessionAbsoluteTTL)
	authMiddleware := middleware.NewAuthMiddleware(authenticator)

	sessionDirectory := directory.New(cfg.DirectoryMaxAge)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := gateway.NewMetrics(registry)

	var guard gateway.AccessGuard
	if infra.Geo != nil {
		guard = geo.NewGuard(infra.Geo, cfg.AllowedCountries())
	}

	gw := gateway.New(gateway.Deps{
		Resolver: gateway.NewSessionResolver(
			authenticator,
			resolver.NewDBResolver(infra.DB),
		),
		Guard:     guard,
		Directory: sessionDirectory,
		Metrics:   metrics,
		Options: gateway.Options{
			HeartbeatInterval:      cfg.HeartbeatInterval,
			SendBuffer:             cfg.SendBuffer,
			AllowedOrigins:         cfg.AllowedOrigins(),
			DirectorySweepInterval: cfg.DirectorySweepInterval,
		},
	})

	authHandler := handler.NewHandler(
		credentials.NewService(infra.DB),
		authenticator,
		sessionDirectory,
		cfg.CookieSecure,
	)

	// ----------------------------
	// Event sources
	// ----------------------------

	runners := []runner{gw.Start}

	if brokers := cfg.KafkaBrokersList(); len(brokers) > 0 {
		consumer := ingest.NewKafkaConsumer(brokers, cfg.KafkaTopic, cfg.KafkaGroupID, gw)
		runners = append(runners, consumer.Run)
		logger.Info("kafka event source enabled", map[string]any{
			"topic": cfg.KafkaTopic,
			"group": cfg.KafkaGroupID,
		})
	}

	if cfg.PGNotifyChannel != "" {
		listener, err := ingest.NewPGListener(cfg.DatabaseDSN, cfg.PGNotifyChannel, gw)
		if err != nil {
			_ = infra.Close()
			return nil, err
		}
		runners = append(runners, listener.Run)
	}

	// ----------------------------
	// Router
	// ----------------------------

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	// ----------------------------
	// Public Routes
	// ----------------------------

	authHandler.RegisterRoutes(router, middleware.GinRequireAuth(authMiddleware))

	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := infra.Check(ctx); err != nil {
			logger.Warn("health check failed", map[string]any{
				"error": err.Error(),
			})
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET(cfg.WSPath, gw.HandleUpgrade)

	// ----------------------------
	// Internal Routes
	// ----------------------------

	if cfg.PublishToken != "" {
		ingest.NewHTTPHandler(gw, cfg.PublishToken).
			WithStats(gw).
			RegisterRoutes(router)
	} else {
		logger.Warn("PUBLISH_TOKEN unset, internal event ingest and stats disabled", nil)
	}

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// ----------------------------
	// Cleanup
	// ----------------------------

	return &wiring{
		router:  router,
		gateway: gw,
		runners: runners,
		cleanup: infra.Close,
	}, nil
}
