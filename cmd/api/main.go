package main

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"circapi/docs"
	"circapi/internal/clock"
	"circapi/internal/config"
	"circapi/internal/database"
	"circapi/internal/database/migration"
	handlers "circapi/internal/http/handler"
	"circapi/internal/http/middleware"
	"circapi/internal/notify"
	"circapi/internal/otel"
	"circapi/internal/policy"
	"circapi/internal/repository/postgres"
	"circapi/internal/service"
)

// @title Circulation API
// @version 1.0
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := migration.EnsureMigrated(ctx, db, time.UTC, cfg.Database.Host); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	shutdownTracing, err := otel.Init(ctx, time.UTC)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer shutdownTracing(ctx)

	// Availability notifications go through the broker when one is
	// configured and degrade to JSON log lines otherwise.
	var dispatcher notify.Dispatcher = notify.LogDispatcher{}
	if cfg.AMQP.URL != "" {
		amqpDispatcher, err := notify.NewAMQPDispatcher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			log.Fatalf("failed to connect to amqp broker: %v", err)
		}
		defer amqpDispatcher.Close()
		dispatcher = amqpDispatcher
	}

	// Wire the circulation engine
	store := postgres.NewStore(db)
	clk := clock.System{}
	penaltyPolicy := policy.NewStandard(cfg.Circulation.Penalties)

	svcs := handlers.Services{
		Availability:  service.NewAvailabilityService(store),
		Loans:         service.NewLoanService(store, penaltyPolicy, dispatcher, clk, cfg.Circulation),
		Reservations:  service.NewReservationService(store, clk, cfg.Circulation),
		Consultations: service.NewConsultationService(store, clk),
		Eligibility:   service.NewEligibilityService(store, clk, cfg.Circulation),
		Penalties:     service.NewPenaltyService(store),
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	// Register global middleware
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger())
	app.Use(otelfiber.Middleware())

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	promMW, err := middleware.NewPrometheusMiddleware(registry)
	if err != nil {
		log.Fatalf("failed to register prometheus metrics: %v", err)
	}
	app.Use(promMW.Handler())

	metricsHandler := fasthttpadaptor.NewFastHTTPHandler(
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{ErrorHandling: promhttp.ContinueOnError}),
	)
	app.Get("/metrics", func(c *fiber.Ctx) error {
		metricsHandler(c.Context())
		return nil
	})

	// Register HTTP routes with injected services
	handlers.RegisterRoutes(app, db, svcs)

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	addr := ":" + cfg.Port

	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
