package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/hqrms/hqrms/internal/config"
	"github.com/hqrms/hqrms/internal/domain/city"
	"github.com/hqrms/hqrms/internal/domain/hospital"
	"github.com/hqrms/hqrms/internal/domain/session"
	"github.com/hqrms/hqrms/internal/platform/auth"
	"github.com/hqrms/hqrms/internal/platform/db"
	"github.com/hqrms/hqrms/internal/platform/middleware"
	"github.com/hqrms/hqrms/internal/platform/openapi"
	"github.com/hqrms/hqrms/internal/platform/plugin"
	"github.com/hqrms/hqrms/internal/platform/telemetry"
	"github.com/hqrms/hqrms/internal/platform/websocket"
	"github.com/hqrms/hqrms/internal/seed"
)

const (
	version           = "0.1.0"
	maxRequestBody    = "1M"
	revocationCleanup = 5 * time.Minute
)

// app holds the wired server and everything that needs closing.
type app struct {
	echo        *echo.Echo
	hub         *websocket.Hub
	hospital    *hospital.Service
	sessions    *session.Manager
	metrics     *telemetry.Provider
	revocations *auth.TokenRevocationStore
	pool        *pgxpool.Pool
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	key, err := cfg.SigningKey()
	if err != nil {
		return nil, err
	}

	a := &app{revocations: auth.NewTokenRevocationStore(revocationCleanup)}

	// Database (optional, city summaries only)
	var cityRepo city.Repository
	if cfg.DatabaseURL != "" {
		a.pool, err = db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect database: %w", err)
		}
		logger.Info().Msg("connected to database")
		cityRepo = city.NewHospitalRepoPG(a.pool)
	} else {
		var hospitals []city.Hospital
		if cfg.SeedDemo {
			hospitals = seed.CityHospitals()
		}
		cityRepo = city.NewMemoryRepo(hospitals)
	}

	// Hospital session state
	initial := hospital.Snapshot{}
	if cfg.SeedDemo {
		initial = seed.Hospital(time.Now())
		logger.Info().
			Int("doctors", len(initial.Doctors)).
			Int("beds", len(initial.Beds)).
			Int("medicines", len(initial.Medicines)).
			Int("patients", len(initial.Patients)).
			Msg("loaded demo data")
	}
	a.hospital = hospital.NewService(hospital.NewStore(initial), logger)

	a.hub = websocket.NewHub(logger)
	a.metrics = newMetrics(a.hospital, a.hub)
	a.hospital.SetNotifier(changeFeed{pub: a.hub, metrics: a.metrics, logger: logger})

	jwtCfg := auth.JWTConfig{
		Issuer:      auth.DefaultIssuer,
		SigningKey:  key,
		Revocations: a.revocations,
		Skipper:     auth.AuthSkipper,
	}
	a.sessions = session.NewManager(seed.Users(), jwtCfg, cfg.SessionTTL, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Recovery(logger))
	e.Use(a.metrics.MetricsMiddleware())
	e.Use(middleware.SecurityHeaders(cfg.TLSEnabled))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(echomw.BodyLimit(maxRequestBody))
	if cfg.RequestTimeout > 0 {
		e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	}

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware(jwtCfg))
	} else {
		e.Use(auth.JWTMiddleware(jwtCfg))
	}

	// Rate limiting middleware
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	e.Use(middleware.RateLimit(rateLimitCfg))

	// Audit middleware
	e.Use(middleware.Audit(logger))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":     "ok",
			"version":    version,
			"ws_clients": a.hub.ClientCount(),
		})
	})
	e.GET("/health/db", db.HealthHandler(a.pool))
	e.GET("/metrics", a.metrics.PrometheusHandler(), auth.RequireRole(auth.AdminRole))

	// API routes
	apiV1 := e.Group("/api/v1")
	domains := plugin.NewRegistry()
	for _, p := range []plugin.DomainPlugin{
		session.NewHandler(a.sessions),
		hospital.NewHandler(a.hospital),
		city.NewHandler(city.NewService(cityRepo, logger)),
	} {
		if err := domains.Register(p); err != nil {
			a.Close()
			return nil, err
		}
	}
	domains.RegisterRoutes(apiV1)
	auth.RegisterRevocationRoutes(apiV1, a.revocations)
	logger.Debug().Strs("domains", domains.Names()).Msg("routes registered")

	// API docs
	baseURL := fmt.Sprintf("http://localhost:%s", cfg.Port)
	openapi.NewGenerator(e.Routes, "/api/v1", version, baseURL).RegisterRoutes(apiV1)

	// Live change feed
	websocket.NewWebSocketHandler(a.hub, cfg.CORSOrigins...).RegisterRoutes(e.Group(""))

	a.echo = e
	return a, nil
}

// Close releases background resources. The HTTP server is shut down
// separately.
func (a *app) Close() {
	if a.revocations != nil {
		a.revocations.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

// newMetrics registers the live dashboard gauges.
func newMetrics(svc *hospital.Service, hub *websocket.Hub) *telemetry.Provider {
	p := telemetry.NewProvider()
	p.RegisterGauge("hqrms_patients_waiting", "Patients waiting for a doctor.", func() int64 {
		return int64(svc.Overview(context.Background()).PatientsWaiting)
	})
	p.RegisterGauge("hqrms_beds_available", "Beds currently available.", func() int64 {
		return int64(svc.Overview(context.Background()).TotalBeds.Available)
	})
	p.RegisterGauge("hqrms_doctors_available", "Doctors currently available.", func() int64 {
		return int64(svc.Overview(context.Background()).DoctorsAvailable)
	})
	p.RegisterGauge("hqrms_low_stock_medicines", "Medicines below their minimum stock.", func() int64 {
		return int64(svc.Overview(context.Background()).LowStockMedicines)
	})
	p.RegisterGauge("hqrms_ws_clients", "Connected websocket clients.", func() int64 {
		return int64(hub.ClientCount())
	})
	return p
}

// changeFeed forwards committed hospital changes to websocket subscribers
// and counts them.
type changeFeed struct {
	pub     websocket.EventPublisher
	metrics *telemetry.Provider
	logger  zerolog.Logger
}

func (f changeFeed) Notify(ctx context.Context, c hospital.Change) {
	if f.metrics != nil {
		f.metrics.CountOperation(c.Op)
	}
	err := f.pub.Publish(ctx, websocket.Event{
		Type:      "change",
		Op:        c.Op,
		Topics:    c.Topics,
		IDs:       c.IDs,
		Timestamp: c.At,
	})
	if err != nil {
		f.logger.Warn().Err(err).Str("op", c.Op).Msg("publish change failed")
	}
}
