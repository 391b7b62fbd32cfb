package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kurihiro0119/editor-activity-metrics/internal/collector"
	"github.com/kurihiro0119/editor-activity-metrics/internal/domain"
	apperrors "github.com/kurihiro0119/editor-activity-metrics/internal/errors"
	"github.com/kurihiro0119/editor-activity-metrics/internal/pomodoro"
	"github.com/kurihiro0119/editor-activity-metrics/internal/reminder"
	"github.com/kurihiro0119/editor-activity-metrics/internal/syncer"
	"github.com/kurihiro0119/editor-activity-metrics/internal/tracker"
)

// Handler handles control API requests. Editor plugins post activity
// events here; the CLI reads status and drives commands through it.
type Handler struct {
	collector *collector.Collector
	tracker   *tracker.Tracker
	engine    *syncer.Engine
	scheduler *reminder.Scheduler
	pomodoro  *pomodoro.Timer
}

// NewHandler creates a new API handler
func NewHandler(c *collector.Collector, t *tracker.Tracker, e *syncer.Engine, s *reminder.Scheduler, p *pomodoro.Timer) *Handler {
	return &Handler{
		collector: c,
		tracker:   t,
		engine:    e,
		scheduler: s,
		pomodoro:  p,
	}
}

// IngestEvent accepts one activity event from an editor plugin
// POST /api/v1/events
func (h *Handler) IngestEvent(c *gin.Context) {
	var event domain.ActivityEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		respondError(c, apperrors.NewBadRequestError("invalid activity event: "+err.Error()))
		return
	}
	if event.Kind == "" {
		respondError(c, apperrors.NewBadRequestError("activity event kind is required"))
		return
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	h.tracker.Ingest(event)

	c.JSON(http.StatusAccepted, gin.H{
		"data": gin.H{"id": event.ID},
	})
}

// GetMetrics returns the current metrics snapshot
// GET /api/v1/metrics
func (h *Handler) GetMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"data": h.collector.Peek(),
	})
}

// statusResponse aggregates every component's observable state
type statusResponse struct {
	Active          bool                 `json:"active"`
	Paused          bool                 `json:"paused"`
	LastActivity    time.Time            `json:"lastActivity"`
	TypingSpeed     float64              `json:"typingSpeed"`
	SessionDuration int64                `json:"sessionDuration"` // seconds
	Sync            syncer.Status        `json:"sync"`
	Pomodoro        domain.PomodoroState `json:"pomodoro"`
}

// GetStatus returns the daemon's combined status
// GET /api/v1/status
func (h *Handler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"data": statusResponse{
			Active:          h.tracker.IsActive(),
			Paused:          h.collector.IsPaused(),
			LastActivity:    h.tracker.LastActivityTime(),
			TypingSpeed:     h.tracker.TypingSpeed(),
			SessionDuration: int64(h.collector.SessionDuration() / time.Second),
			Sync:            h.engine.Status(),
			Pomodoro:        h.pomodoro.State(),
		},
	})
}

// ForceSync triggers an immediate forced sync cycle
// POST /api/v1/sync
func (h *Handler) ForceSync(c *gin.Context) {
	if err := h.engine.Sync(c.Request.Context(), true); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data": h.engine.Status(),
	})
}

// ListReminders returns all reminder definitions
// GET /api/v1/reminders
func (h *Handler) ListReminders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"data": h.scheduler.List(),
	})
}

// CreateReminder registers a custom reminder
// POST /api/v1/reminders
func (h *Handler) CreateReminder(c *gin.Context) {
	var def domain.ReminderDefinition
	if err := c.ShouldBindJSON(&def); err != nil {
		respondError(c, apperrors.NewBadRequestError("invalid reminder: "+err.Error()))
		return
	}
	if def.Interval <= 0 {
		respondError(c, apperrors.NewBadRequestError("reminder interval must be positive"))
		return
	}

	created, err := h.scheduler.Add(def)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"data": created,
	})
}

// DeleteReminder removes a custom reminder
// DELETE /api/v1/reminders/:id
func (h *Handler) DeleteReminder(c *gin.Context) {
	if err := h.scheduler.Remove(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{"deleted": c.Param("id")},
	})
}

// UpdateReminder toggles a reminder category on or off
// PATCH /api/v1/reminders/:id
func (h *Handler) UpdateReminder(c *gin.Context) {
	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Enabled == nil {
		respondError(c, apperrors.NewBadRequestError("body must contain 'enabled'"))
		return
	}
	if err := h.scheduler.SetEnabled(c.Param("id"), *body.Enabled); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{"id": c.Param("id"), "enabled": *body.Enabled},
	})
}

// GetPomodoro returns the current pomodoro state
// GET /api/v1/pomodoro
func (h *Handler) GetPomodoro(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"data": h.pomodoro.State(),
	})
}

// TogglePomodoro starts or stops the pomodoro timer
// POST /api/v1/pomodoro/toggle
func (h *Handler) TogglePomodoro(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"data": h.pomodoro.Toggle(),
	})
}

// HealthCheck returns the health status of the API
// GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// respondError sends an error response
func respondError(c *gin.Context, err error) {
	if appErr, ok := err.(*apperrors.AppError); ok {
		status := http.StatusInternalServerError
		switch appErr.Code {
		case apperrors.ErrCodeNotFound:
			status = http.StatusNotFound
		case apperrors.ErrCodeBadRequest:
			status = http.StatusBadRequest
		case apperrors.ErrCodeRateLimited:
			status = http.StatusTooManyRequests
		case apperrors.ErrCodeTransient, apperrors.ErrCodeRetryExhausted:
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{
			"error": gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
			},
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"error": gin.H{
			"code":    "INTERNAL_ERROR",
			"message": err.Error(),
		},
	})
}
