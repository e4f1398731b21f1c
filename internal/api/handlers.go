package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/darved2305/VeriTextAI/internal/analysis"
	"github.com/darved2305/VeriTextAI/internal/corpus"
	"github.com/darved2305/VeriTextAI/internal/db"
	"github.com/darved2305/VeriTextAI/internal/model"
)

// StatusClientClosedRequest is the non-standard code used when the caller
// cancelled the run.
const StatusClientClosedRequest = 499

type handler struct {
	deps    Deps
	timeout time.Duration
	logger  *zap.Logger
}

func newHandler(deps Deps, timeout time.Duration) *handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &handler{deps: deps, timeout: timeout, logger: logger}
}

type analyzeRequest struct {
	Text      string `json:"text"`
	CheckType string `json:"checkType"`
}

func (h *handler) Analyze(c *fiber.Ctx) error {
	var req analyzeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	checkType, err := model.ParseCheckType(req.CheckType)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	ctx := c.UserContext()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	var res *model.AnalysisResult
	if h.deps.Records != nil {
		res, err = h.deps.Engine.AnalyzeAndRecord(ctx, h.deps.Records, req.Text, checkType)
	} else {
		res, err = h.deps.Engine.Analyze(ctx, req.Text, checkType)
	}
	if err != nil {
		status := statusFor(err)
		if status >= fiber.StatusInternalServerError {
			h.logger.Error("analysis failed", zap.Int("status", status), zap.Error(err))
		}
		return c.Status(status).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(res)
}

func (h *handler) GetCheck(c *fiber.Ctx) error {
	if h.deps.Checks == nil {
		return notConfigured(c, "check history")
	}
	check, err := h.deps.Checks.GetCheck(c.UserContext(), c.Params("id"))
	if errors.Is(err, db.ErrCheckNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "check not found",
		})
	}
	if err != nil {
		h.logger.Error("failed to load check", zap.String("run_id", c.Params("id")), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load check",
		})
	}
	return c.JSON(check)
}

func (h *handler) AddSource(c *fiber.Ctx) error {
	if h.deps.Corpus == nil {
		return notConfigured(c, "corpus writes")
	}
	var src corpus.Source
	if err := c.BodyParser(&src); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if src.ID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "id is required",
		})
	}
	if src.Type == "" {
		src.Type = model.SourceDatabase
	}
	if err := h.deps.Corpus.Add(c.UserContext(), src); err != nil {
		status := statusFor(err)
		h.logger.Warn("failed to add corpus source", zap.String("source_id", src.ID), zap.Error(err))
		return c.Status(status).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	h.deps.Metrics.SourceIngested()
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id": src.ID,
	})
}

func (h *handler) CorpusStats(c *fiber.Ctx) error {
	if h.deps.Stats == nil {
		return notConfigured(c, "corpus stats")
	}
	stats, err := h.deps.Stats.Stats(c.UserContext())
	if err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(stats)
}

func (h *handler) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	h.logger.Debug("request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("duration", time.Since(start)),
	)
	return err
}

func notConfigured(c *fiber.Ctx, what string) error {
	return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{
		"error": what + " not configured",
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, analysis.ErrEmptyInput), errors.Is(err, analysis.ErrInvalidCheckType):
		return fiber.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	case errors.Is(err, analysis.ErrCancelled), errors.Is(err, context.Canceled):
		return StatusClientClosedRequest
	case errors.Is(err, analysis.ErrCorpusUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}
