package main

import (
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/saran-r-2004/GPS-tracking-system-for-ambulance/internal/config"
	"github.com/saran-r-2004/GPS-tracking-system-for-ambulance/internal/domain/account"
	"github.com/saran-r-2004/GPS-tracking-system-for-ambulance/internal/domain/dispatch"
	"github.com/saran-r-2004/GPS-tracking-system-for-ambulance/internal/domain/emergency"
	"github.com/saran-r-2004/GPS-tracking-system-for-ambulance/internal/platform/auth"
	"github.com/saran-r-2004/GPS-tracking-system-for-ambulance/internal/platform/db"
	"github.com/saran-r-2004/GPS-tracking-system-for-ambulance/internal/platform/metrics"
	"github.com/saran-r-2004/GPS-tracking-system-for-ambulance/internal/platform/middleware"
	"github.com/saran-r-2004/GPS-tracking-system-for-ambulance/internal/platform/websocket"
	"github.com/saran-r-2004/GPS-tracking-system-for-ambulance/internal/platform/writebehind"
)

// app is the assembled hub. The reactor is not running until the caller
// starts it.
type app struct {
	echo    *echo.Echo
	gateway *websocket.Gateway
	reactor *dispatch.Reactor
	writer  *writebehind.Writer
	metrics *metrics.Metrics
}

// newApp wires the hub. pool may be nil, in which case documents are
// discarded and logins rely on the fallback.
func newApp(cfg *config.Config, logger zerolog.Logger, pool *pgxpool.Pool) (*app, error) {
	m := metrics.New()

	var (
		recorder emergency.Recorder = emergency.NopRecorder{}
		store    *account.Store
		writer   *writebehind.Writer
		pinger   db.Pinger
	)
	if pool != nil {
		var err error
		writer, err = writebehind.New(writebehind.Config{
			Workers: cfg.StoreWorkers,
			Timeout: cfg.StoreWriteTimeout,
		}, logger, m)
		if err != nil {
			return nil, err
		}
		recorder = emergency.NewAsyncRecorder(emergency.NewDocumentRepoPG(pool), writer)
		store = account.NewStorePG(pool)
		pinger = pool
	}

	key, generated, err := cfg.SigningKey()
	if err != nil {
		return nil, err
	}
	if generated {
		logger.Warn().Msg("TOKEN_SIGNING_KEY not set, using an ephemeral key")
	}
	tokens, err := auth.NewTokenIssuer(key, cfg.TokenTTL)
	if err != nil {
		return nil, err
	}

	gateway := websocket.NewGateway(cfg.WSSendBuffer, logger, m)
	hub := dispatch.NewHub(gateway, dispatch.WithRecorder(recorder), dispatch.WithLogger(logger))
	reactor := dispatch.NewReactor(hub, cfg.ReactorQueueSize, logger, m)

	accounts := account.NewService(store, tokens,
		account.WithFallback(cfg.LoginFallback),
		account.WithLogger(logger),
	)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger, "/health", "/health/db", "/metrics"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.RequestIDHeader},
	}))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(middleware.DefaultBodyLimit))
	e.Use(m.Middleware())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(pinger))
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	api := e.Group("/api/v1")
	dispatch.NewHandler(reactor).RegisterRoutes(api)
	account.NewHandler(accounts).RegisterRoutes(api,
		auth.BearerMiddleware(tokens),
		middleware.RateLimit(middleware.DefaultRateLimitConfig()),
	)

	websocket.NewHandler(gateway, reactor, logger, originChecker(cfg.CORSOrigins)).
		RegisterRoutes(e.Group(""))

	return &app{echo: e, gateway: gateway, reactor: reactor, writer: writer, metrics: m}, nil
}

// close drains the write-behind pool.
func (a *app) close(timeout time.Duration) {
	if a.writer != nil {
		_ = a.writer.Close(timeout)
	}
}

// originChecker accepts requests without an Origin header (native apps)
// and, unless "*" is configured, browsers from the listed origins only.
func originChecker(origins []string) func(*http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			return nil
		}
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}
