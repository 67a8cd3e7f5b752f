package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	auth "github.com/goliatone/go-member-auth"
	"github.com/goliatone/go-member-auth/activitymap"
	"github.com/goliatone/go-member-auth/config"
	"github.com/goliatone/go-member-auth/events"
	"github.com/goliatone/go-member-auth/logging"
	"github.com/goliatone/go-member-auth/metrics"
	"github.com/goliatone/go-member-auth/middleware/jwtware"
	"github.com/goliatone/go-member-auth/middleware/ratelimit"
	"github.com/goliatone/go-router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"
)

func newApp(cfg *config.Config, db *bun.DB, logger *logging.Adapter, m *metrics.Collectors, gatherer prometheus.Gatherer) router.Server[*fiber.App] {
	sink := auth.MultiActivitySink{m, activityLogger(logger.Named("activity"))}
	gate := auth.NewGate(logger.Named("gate"))

	repos := newRepositoryManager(db)
	users := repos.Users()
	issuer := auth.NewClaimIssuerFromConfig(cfg, auth.WithIssuerLogger(logger.Named("issuer")))
	auther := auth.NewAuthenticator(auth.NewUserProvider(users).WithLogger(logger.Named("users")), issuer).
		WithLogger(logger.Named("auth")).
		WithActivitySink(sink).
		WithProfileStore(users).
		WithPhoneRegion(cfg.PhoneRegion)

	registrations := events.NewService(
		events.NewRegistrationsRepository(db),
		gate,
		events.WithLogger(logger.Named("events")),
		events.WithActivitySink(sink),
		events.WithPhoneRegion(cfg.PhoneRegion),
	)

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		app := router.DefaultFiberOptions(fiber.New(fiber.Config{
			AppName:      "member-portal",
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
			ErrorHandler: auth.FiberErrorHandler(logger.Named("http")),
		}))
		app.Use(recover.New())
		app.Use(m.Middleware())
		app.Use(requestLogger(logger.Named("http")))
		app.Get("/metrics", metrics.Handler(gatherer)).Name("metrics")
		return app
	})

	sessionCfg := jwtware.Config{
		Materializer: sessionMaterializer(cfg, issuer),
		ContextKey:   cfg.GetContextKey(),
		TokenLookup:  cfg.GetTokenLookup(),
		AuthScheme:   cfg.GetAuthScheme(),
		Gate:         gate,
		Logger:       logger.Named("jwt"),
	}
	protected := jwtware.New(sessionCfg)

	optionalCfg := sessionCfg
	optionalCfg.Optional = true
	optional := jwtware.New(optionalCfg)

	loginLimiter := ratelimit.New(ratelimit.Config{
		Name:       "login",
		RPS:        cfg.LoginLimit.RPS,
		Burst:      cfg.LoginLimit.Burst,
		OnDecision: m.RateLimited,
	})

	authController := auth.NewAuthController(auther,
		auth.WithControllerLogger(logger.Named("auth.http")),
		auth.WithControllerDebug(cfg.IsDevelopment()),
		auth.WithCookie(cfg.Auth.CookieName, cfg.Auth.CookieSecure),
		auth.WithContextKey(cfg.GetContextKey()),
	)

	r := srv.Router()
	auth.RegisterAuthRoutes(r.Group("/auth"), authController, protected, loginLimiter.Middleware())

	eventsController := events.NewController(registrations,
		events.WithControllerLogger(logger.Named("events.http")),
		events.WithControllerDebug(cfg.IsDevelopment()),
		events.WithContextKey(cfg.GetContextKey()),
	)
	events.RegisterRoutes(r.Group("/events"), eventsController, optional)

	r.Get("/healthz", func(c router.Context) error {
		if err := repos.Ping(c.Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
		return c.JSON(router.StatusOK, map[string]string{"status": "ok"})
	}).SetName("healthz")

	if i, ok := srv.(interface{ Init() }); ok {
		i.Init()
	}

	return srv
}

// sessionMaterializer verifies with the current key first, then with any
// retired keys still inside their token lifetime.
func sessionMaterializer(cfg *config.Config, current *auth.ClaimIssuer) auth.SessionMaterializer {
	if len(cfg.Auth.PreviousSigningKeys) == 0 {
		return current
	}

	materializers := []auth.SessionMaterializer{current}
	for _, key := range cfg.Auth.PreviousSigningKeys {
		materializers = append(materializers, auth.NewClaimIssuer(
			[]byte(key),
			cfg.GetTokenExpiration(),
			cfg.GetIssuer(),
			cfg.GetAudience(),
		))
	}
	return auth.NewMultiMaterializer(materializers...)
}

func requestLogger(logger auth.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = auth.HTTPStatus(err)
		}

		logger.Debug("request",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"duration", time.Since(start).String(),
			"ip", c.IP(),
		)
		return err
	}
}

func activityLogger(logger auth.Logger) auth.ActivitySink {
	return activitymap.NewSink(func(_ context.Context, r activitymap.Normalized) error {
		logger.Info("activity",
			"verb", r.Verb,
			"channel", r.Channel,
			"actor_id", r.ActorID,
			"object_type", r.ObjectType,
			"object_id", r.ObjectID,
			"metadata", r.Metadata,
			"occurred_at", r.OccurredAt,
		)
		return nil
	})
}
