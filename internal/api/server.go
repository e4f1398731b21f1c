// Package api exposes the analysis engine over HTTP.
package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/darved2305/VeriTextAI/internal/analysis"
	"github.com/darved2305/VeriTextAI/internal/config"
	"github.com/darved2305/VeriTextAI/internal/corpus"
	"github.com/darved2305/VeriTextAI/internal/db"
	"github.com/darved2305/VeriTextAI/internal/metrics"
)

type CheckReader interface {
	GetCheck(ctx context.Context, runID string) (*db.Check, error)
}

// Deps are the collaborators behind the routes. Only Engine is required;
// routes whose dependency is nil answer 501.
type Deps struct {
	Engine  *analysis.Engine
	Records analysis.RecordStore
	Checks  CheckReader
	Corpus  corpus.Writer
	Stats   corpus.StatsReporter
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

func New(cfg config.ServerConfig, timeout time.Duration, deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:           time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout:          time.Duration(cfg.WriteTimeout) * time.Second,
		BodyLimit:             cfg.BodyLimit,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	h := newHandler(deps, timeout)
	app.Use(h.logRequests)

	v1 := app.Group("/api/v1")
	v1.Post("/analyze", h.Analyze)
	v1.Get("/checks/:id", h.GetCheck)
	v1.Post("/corpus/sources", h.AddSource)
	v1.Get("/corpus/stats", h.CorpusStats)
	v1.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	if deps.Metrics != nil {
		app.Get("/metrics", deps.Metrics.Handler())
	}
	return app
}
