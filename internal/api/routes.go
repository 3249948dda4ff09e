package api

import (
	"encoding/base64"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/hanzigo/backend/domain/repositories"
	"github.com/hanzigo/backend/internal/observability"
	"github.com/hanzigo/backend/internal/websocket"
)

// InitRoutes initializes all API routes
func InitRoutes(
	e *echo.Echo,
	hub *websocket.Hub,
	library repositories.Library,
	recognizer repositories.ImageRecognizer,
	sessionRepo repositories.SessionRepository,
	logger *zap.Logger,
) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "hanzigo-backend",
		})
	})

	// Prometheus metrics
	e.GET("/metrics", echo.WrapHandler(observability.MetricsHandler()))

	// API v1 routes
	v1 := e.Group("/api/v1")

	// Library APIs
	v1.POST("/lookup", func(c echo.Context) error {
		return lookupWord(c, library, logger)
	})
	v1.POST("/culture", func(c echo.Context) error {
		return cultureDeepDive(c, library, logger)
	})
	v1.POST("/hsk", func(c echo.Context) error {
		return generateHSKExam(c, library, logger)
	})
	v1.POST("/ocr", func(c echo.Context) error {
		return recognizeImage(c, recognizer, logger)
	})

	// Session archive APIs
	v1.GET("/sessions", func(c echo.Context) error {
		return listSessions(c, sessionRepo, logger)
	})
	v1.GET("/sessions/:id", func(c echo.Context) error {
		return getSession(c, sessionRepo, logger)
	})
	v1.DELETE("/sessions/:id", func(c echo.Context) error {
		return deleteSession(c, sessionRepo, logger)
	})

	// WebSocket endpoint for the tutor pipeline
	e.GET("/ws", func(c echo.Context) error {
		return websocket.HandleWebSocket(hub, c, logger)
	})
}

func lookupWord(c echo.Context, library repositories.Library, logger *zap.Logger) error {
	var req LookupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if req.Query == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Query is required",
		})
	}

	entry, err := library.LookupWord(c.Request().Context(), req.Query, req.Lang)
	if err != nil {
		logger.Error("Dictionary lookup failed", zap.String("query", req.Query), zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "lookup_failed",
			Message: "Could not generate a dictionary entry",
		})
	}

	return c.JSON(http.StatusOK, entry)
}

func cultureDeepDive(c echo.Context, library repositories.Library, logger *zap.Logger) error {
	var req CultureRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if req.Topic == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Topic is required",
		})
	}

	article, err := library.CultureDeepDive(c.Request().Context(), req.Topic, req.Lang)
	if err != nil {
		logger.Error("Culture deep-dive failed", zap.String("topic", req.Topic), zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "culture_failed",
			Message: "Could not generate the article",
		})
	}

	return c.JSON(http.StatusOK, article)
}

func generateHSKExam(c echo.Context, library repositories.Library, logger *zap.Logger) error {
	var req HSKRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if req.Level < 1 || req.Level > 6 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_level",
			Message: "Level must be between 1 and 6",
		})
	}

	questions, err := library.GenerateHSKExam(c.Request().Context(), req.Level, req.Lang)
	if err != nil {
		logger.Error("HSK exam generation failed", zap.Int("level", req.Level), zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "exam_failed",
			Message: "Could not generate the exam",
		})
	}

	return c.JSON(http.StatusOK, questions)
}

func recognizeImage(c echo.Context, recognizer repositories.ImageRecognizer, logger *zap.Logger) error {
	var req OCRRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if req.ImageBase64 == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Image data is required",
		})
	}

	imageData, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_image",
			Message: "Image data must be base64 encoded",
		})
	}

	text, err := recognizer.RecognizeImage(c.Request().Context(), imageData, req.MIMEType)
	if err != nil {
		logger.Error("Image recognition failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "ocr_failed",
			Message: "Could not recognize characters in the image",
		})
	}

	return c.JSON(http.StatusOK, OCRResponse{Text: text})
}

func listSessions(c echo.Context, sessionRepo repositories.SessionRepository, logger *zap.Logger) error {
	sessions, err := sessionRepo.List(c.Request().Context())
	if err != nil {
		logger.Error("Failed to list sessions", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "list_failed",
			Message: "Could not list sessions",
		})
	}

	return c.JSON(http.StatusOK, sessions)
}

func getSession(c echo.Context, sessionRepo repositories.SessionRepository, logger *zap.Logger) error {
	id := c.Param("id")
	session, err := sessionRepo.GetByID(c.Request().Context(), id)
	if err != nil {
		logger.Error("Failed to load session", zap.String("sessionId", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "load_failed",
			Message: "Could not load the session",
		})
	}
	if session == nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "No session with that id",
		})
	}

	return c.JSON(http.StatusOK, session)
}

func deleteSession(c echo.Context, sessionRepo repositories.SessionRepository, logger *zap.Logger) error {
	id := c.Param("id")
	if err := sessionRepo.Delete(c.Request().Context(), id); err != nil {
		logger.Error("Failed to delete session", zap.String("sessionId", id), zap.Error(err))
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "delete_failed",
			Message: "Could not delete the session",
		})
	}

	return c.NoContent(http.StatusNoContent)
}
