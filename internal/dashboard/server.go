package dashboard

import (
	"context"
	"errors"
	"time"

	_ "embed"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/mikey/activity-timeline/internal/adapters/huggingface"
	"github.com/mikey/activity-timeline/internal/analysis"
	"github.com/mikey/activity-timeline/internal/core"
	"github.com/mikey/activity-timeline/internal/timeline"
	"go.uber.org/zap"
)

//go:embed assets/index.html
var indexHTML []byte

// Server serves the dashboard page and its JSON API
type Server struct {
	app      *fiber.App
	service  *core.ActivityService
	source   core.EmailSource
	builder  *timeline.Builder
	analyzer *analysis.Analyzer
	session  *Session
	logger   *zap.Logger

	listenAddr    string
	defaultFolder string
	defaultLimit  int
}

// NewServer creates a new dashboard server
func NewServer(
	service *core.ActivityService,
	source core.EmailSource,
	builder *timeline.Builder,
	analyzer *analysis.Analyzer,
	session *Session,
	logger *zap.Logger,
	listenAddr string,
	defaultFolder string,
	defaultLimit int,
) *Server {
	s := &Server{
		service:       service,
		source:        source,
		builder:       builder,
		analyzer:      analyzer,
		session:       session,
		logger:        logger,
		listenAddr:    listenAddr,
		defaultFolder: defaultFolder,
		defaultLimit:  defaultLimit,
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
	})
	app.Use(recover.New())

	app.Get("/", s.index)
	app.Get("/healthz", s.health)
	app.Get("/api/timeline", s.getTimeline)
	app.Get("/api/patterns", s.getPatterns)
	app.Get("/api/summary", s.getSummary)
	app.Post("/api/classify", s.postClassify)
	app.Post("/api/ingest", s.postIngest)

	s.app = app
	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Dashboard server starting", zap.String("address", s.listenAddr))
	go func() {
		if err := s.app.Listen(s.listenAddr); err != nil {
			s.logger.Error("Dashboard server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	if s.app != nil {
		return s.app.Shutdown()
	}
	return nil
}

// App exposes the fiber app for tests
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) index(c *fiber.Ctx) error {
	c.Type("html")
	return c.Send(indexHTML)
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"events":    s.session.Len(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) getTimeline(c *fiber.Ctx) error {
	return c.JSON(s.builder.Build(s.session.Events()))
}

func (s *Server) getPatterns(c *fiber.Ctx) error {
	events := s.session.Events()
	patterns := s.analyzer.DailyRoutine(events)
	lifeEvents := s.analyzer.LifeEvents(events)

	return c.JSON(fiber.Map{
		"routine":     patterns,
		"life_events": lifeEvents,
		"insights":    s.analyzer.Insights(patterns, lifeEvents),
	})
}

func (s *Server) getSummary(c *fiber.Ctx) error {
	events := s.session.Events()

	labels := make(map[string]int)
	sentiments := make(map[string]int)
	highConfidence := 0
	for _, event := range events {
		labels[event.Label]++
		sentiments[event.Sentiment]++
		if event.HighConfidence {
			highConfidence++
		}
	}

	return c.JSON(fiber.Map{
		"total_events":    len(events),
		"high_confidence": highConfidence,
		"labels":          labels,
		"sentiments":      sentiments,
	})
}

type classifyRequest struct {
	Text      string    `json:"text"`
	Subject   string    `json:"subject"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) postClassify(c *fiber.Ctx) error {
	var req classifyRequest
	if err := c.BodyParser(&req); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.Text == "" {
		return apiError(c, fiber.StatusBadRequest, "text is required")
	}

	event, err := s.service.AnalyzeMessage(c.Context(), core.Message{
		Text:      req.Text,
		Subject:   req.Subject,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		return s.classificationError(c, err)
	}

	s.session.Append(*event)
	return c.JSON(event)
}

type ingestRequest struct {
	Folder string `json:"folder"`
	Limit  int    `json:"limit"`
}

func (s *Server) postIngest(c *fiber.Ctx) error {
	var req ingestRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apiError(c, fiber.StatusBadRequest, "invalid request body")
		}
	}
	if req.Folder == "" {
		req.Folder = s.defaultFolder
	}
	if req.Limit <= 0 {
		req.Limit = s.defaultLimit
	}

	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Minute)
	defer cancel()

	messages, err := s.source.Fetch(ctx, req.Folder, req.Limit)
	if err != nil {
		s.logger.Error("Failed to fetch messages", zap.Error(err))
		return apiError(c, fiber.StatusBadGateway, "failed to fetch messages: "+err.Error())
	}

	events, err := s.service.AnalyzeBatch(ctx, messages)
	if err != nil {
		s.logger.Error("Batch analysis aborted", zap.Error(err))
		return apiError(c, fiber.StatusBadGateway, "analysis aborted: "+err.Error())
	}

	s.session.Append(events...)

	return c.JSON(fiber.Map{
		"fetched":    len(messages),
		"classified": len(events),
		"total":      s.session.Len(),
	})
}

// classificationError maps service failures to response codes: permanent
// inference API errors stay visible to the user as upstream failures.
func (s *Server) classificationError(c *fiber.Ctx, err error) error {
	if errors.Is(err, core.ErrEmptyText) {
		return apiError(c, fiber.StatusBadRequest, "text is empty after preprocessing")
	}

	var apiErr *huggingface.APIError
	if errors.As(err, &apiErr) {
		s.logger.Error("Inference API rejected request",
			zap.Int("status", apiErr.StatusCode),
			zap.Error(err))
		return apiError(c, fiber.StatusBadGateway, err.Error())
	}

	s.logger.Error("Classification failed", zap.Error(err))
	return apiError(c, fiber.StatusBadGateway, err.Error())
}

func apiError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}
