package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sanspareilsmyn/vo2lens/internal/message"
	"github.com/sanspareilsmyn/vo2lens/internal/pipeline"
)

// maxUploadBytes caps CSV uploads; a one hour recording at 100 Hz is well below it.
const maxUploadBytes = 32 << 20

// ErrorResponse is the body returned for requests that could not be processed.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Handler serves on-demand V̇O₂max analysis using the same stages as the streaming pipeline.
type Handler struct {
	calculator *pipeline.Calculator
	alerter    *pipeline.Alerter
	logger     *zap.Logger
	started    time.Time
}

// NewHandler creates a new Handler.
func NewHandler(calculator *pipeline.Calculator, alerter *pipeline.Alerter, logger *zap.Logger) *Handler {
	return &Handler{
		calculator: calculator,
		alerter:    alerter,
		logger:     logger,
		started:    time.Now(),
	}
}

// AnalyzeSession analyzes a JSON session document.
// POST /api/v1/vo2max
func (h *Handler) AnalyzeSession(c *gin.Context) {
	var session message.Session
	if err := c.ShouldBindJSON(&session); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid session document",
			Details: err.Error(),
		})
		return
	}
	session.SessionID = strings.TrimSpace(session.SessionID)
	if session.SessionID == "" {
		session.SessionID = uuid.NewString()
	}
	h.respond(c, session)
}

// AnalyzeCSV analyzes a CSV recording sent as the request body. Session
// metadata is taken from the query string; weight_kg is required.
// POST /api/v1/vo2max/csv?weight_kg=70&profile=rider&exercise_type=cycling
func (h *Handler) AnalyzeCSV(c *gin.Context) {
	weight, err := strconv.ParseFloat(c.Query("weight_kg"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid weight_kg",
			Details: err.Error(),
		})
		return
	}

	readings, err := message.ReadCSV(http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes))
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, ErrorResponse{
			Error:   "invalid recording",
			Details: err.Error(),
		})
		return
	}

	h.respond(c, message.Session{
		SessionID:    uuid.NewString(),
		Profile:      strings.TrimSpace(c.Query("profile")),
		WeightKg:     weight,
		ExerciseType: strings.TrimSpace(c.Query("exercise_type")),
		RecordedAt:   time.Now().UTC(),
		Readings:     readings,
	})
}

func (h *Handler) respond(c *gin.Context, session message.Session) {
	result := h.calculator.Analyze(session)
	h.alerter.Evaluate(&result)

	status := http.StatusOK
	if result.Status != pipeline.StatusOK {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, result)
}

// Health reports that the service is up.
// GET /api/v1/health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"uptime":    time.Since(h.started).Round(time.Second).String(),
		"timestamp": time.Now().UTC(),
	})
}
