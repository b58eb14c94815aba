package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"github.com/locas/locas-backend/internal/analyzer"
	"github.com/locas/locas-backend/internal/api"
	"github.com/locas/locas-backend/internal/config"
	"github.com/locas/locas-backend/internal/database"
	"github.com/locas/locas-backend/internal/dispatcher"
	"github.com/locas/locas-backend/internal/environment"
	"github.com/locas/locas-backend/internal/location"
	"github.com/locas/locas-backend/internal/places"
	"github.com/locas/locas-backend/internal/providers"
	"github.com/locas/locas-backend/internal/providers/openai"
	"github.com/locas/locas-backend/internal/session"
	"github.com/locas/locas-backend/internal/tools"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	if cfg.OpenAI.APIKey == "" {
		log.Fatal("OpenAI API key is required (set OPENAI_API_KEY)")
	}
	if cfg.Maps.APIKey == "" {
		log.Fatal("Maps API key is required (set MAPS_API_KEY)")
	}

	store, cleanup, err := buildSessionStore(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize session store")
	}
	defer cleanup()

	registry := providers.NewRegistry()
	openaiProvider, err := openai.NewProvider("openai", cfg.OpenAI.APIKey)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize OpenAI provider")
	}
	registry.Register("openai", openaiProvider)

	llm := registry.Get(cfg.Provider)
	if llm == nil {
		log.WithFields(logrus.Fields{
			"provider":   cfg.Provider,
			"registered": registry.List(),
		}).Fatal("Configured provider is not registered")
	}

	placesClient := places.NewClient(cfg.Maps.APIKey, log)
	envClient := environment.NewClient(cfg.Maps.APIKey, log)

	land := analyzer.NewLandAnalyzer(placesClient, envClient, llm, cfg.OpenAI.Model, log)
	business := analyzer.NewBusinessAnalyzer(placesClient, envClient, llm, cfg.OpenAI.Model, log)

	toolRegistry, err := tools.DefaultRegistry(tools.Dependencies{
		Places:      placesClient,
		Environment: envClient,
		Land:        land,
		Business:    business,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to build tool registry")
	}

	extractor := location.NewParser(placesClient, log)
	classifier := dispatcher.NewClassifier()

	disp := dispatcher.New(store, extractor, classifier, toolRegistry, llm,
		[]analyzer.Analyzer{land, business},
		dispatcher.Config{
			Model:         cfg.OpenAI.Model,
			MaxToolRounds: cfg.Dispatcher.MaxToolRounds,
			HistoryWindow: cfg.Dispatcher.HistoryWindow,
			TurnTimeout:   time.Duration(cfg.Dispatcher.RequestTimeoutSeconds) * time.Second,
		}, log)

	app := fiber.New(fiber.Config{
		AppName:      "Locas Backend",
		ErrorHandler: customErrorHandler(log),
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	api.SetupRoutes(app, disp)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		log.Info("Shutting down server...")
		if err := app.Shutdown(); err != nil {
			log.WithError(err).Error("Server shutdown failed")
		}
	}()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.WithField("addr", addr).Info("Starting server")
	if err := app.Listen(addr); err != nil {
		log.WithError(err).Fatal("Server stopped")
	}
}

func buildSessionStore(cfg *config.Config, log *logrus.Logger) (session.Store, func(), error) {
	ttl := time.Duration(cfg.Session.TTLHours) * time.Hour
	if ttl <= 0 {
		ttl = session.DefaultTTL
	}

	switch strings.ToLower(cfg.Session.Backend) {
	case "", "memory":
		log.Info("Using in-memory session store")
		return session.NewMemoryStore(ttl), func() {}, nil
	case "postgres":
		db, err := database.NewConnection(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		if err := database.RunMigrations(cfg.Database); err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Info("Using PostgreSQL session store")
		return session.NewPostgresStore(db.DB, ttl), func() { db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}
}

func customErrorHandler(log *logrus.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Unable to process your request right now."
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
			// Framework 4xx messages are deliberate; anything else stays
			// in the logs only.
			if code < fiber.StatusInternalServerError {
				message = e.Message
			}
		}

		log.WithFields(logrus.Fields{
			"path":   c.Path(),
			"method": c.Method(),
			"status": code,
		}).WithError(err).Error("Request failed")

		return c.Status(code).JSON(fiber.Map{
			"status":  "error",
			"message": message,
		})
	}
}
