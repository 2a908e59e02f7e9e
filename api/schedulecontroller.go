package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"contentpilot/scheduler"
	"contentpilot/types"
)

// PreviewItem is a backlog entry of a schedule preview
type PreviewItem struct {
	ID           string    `json:"id" binding:"required"`
	Title        string    `json:"title"`
	Priority     int       `json:"priority"`
	QualityScore float64   `json:"quality_score"`
	CreatedAt    time.Time `json:"created_at"`
}

// PreviewRequest computes a schedule without touching stored items
type PreviewRequest struct {
	Schedule types.ScheduleSpec `json:"schedule"`
	Items    []PreviewItem      `json:"items"`
	// Anchor defaults to the current time
	Anchor *time.Time `json:"anchor,omitempty"`
	Strict bool       `json:"strict,omitempty"`
}

// AssignmentResponse is one scheduled item
type AssignmentResponse struct {
	ItemID       string    `json:"item_id"`
	Title        string    `json:"title,omitempty"`
	ScheduledFor time.Time `json:"scheduled_for"`
}

type scheduleController struct {
	scheduler Scheduler
	now       func() time.Time
	logger    *zap.Logger
}

// RegisterScheduleRoutes registers scheduling endpoints.
func RegisterScheduleRoutes(r *gin.Engine, s Scheduler, now func() time.Time, logger *zap.Logger) {
	ctl := &scheduleController{scheduler: s, now: now, logger: logger}
	r.POST("/api/projects/:id/reschedule", ctl.handleReschedule)
	r.POST("/api/items/:id/schedule", ctl.handleScheduleSingle)
	r.POST("/api/schedule/preview", ctl.handlePreview)
}

func (ctl *scheduleController) handleReschedule(c *gin.Context) {
	assignments, err := ctl.scheduler.Reschedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"project_id":  c.Param("id"),
		"assignments": toAssignmentResponses(assignments),
	})
}

func (ctl *scheduleController) handleScheduleSingle(c *gin.Context) {
	at, err := ctl.scheduler.ScheduleSingle(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	c.JSON(http.StatusOK, AssignmentResponse{ItemID: c.Param("id"), ScheduledFor: at})
}

// handlePreview runs the pure schedule computation on the posted backlog
func (ctl *scheduleController) handlePreview(c *gin.Context) {
	var req PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.Schedule.Frequency = types.ParseFrequency(string(req.Schedule.Frequency))
	if err := req.Schedule.Validate(req.Strict); err != nil {
		respondError(c, ctl.logger, err)
		return
	}

	anchor := ctl.now()
	if req.Anchor != nil {
		anchor = *req.Anchor
	}
	backlog := make([]*types.ContentItem, 0, len(req.Items))
	for _, it := range req.Items {
		backlog = append(backlog, &types.ContentItem{
			ID:           it.ID,
			Title:        it.Title,
			Priority:     it.Priority,
			QualityScore: it.QualityScore,
			Status:       types.StatusIdea,
			CreatedAt:    it.CreatedAt,
		})
	}

	assignments := scheduler.ComputeSchedule(req.Schedule, backlog, anchor)
	c.JSON(http.StatusOK, gin.H{"assignments": toAssignmentResponses(assignments)})
}

func toAssignmentResponses(assignments []scheduler.Assignment) []AssignmentResponse {
	out := make([]AssignmentResponse, 0, len(assignments))
	for _, a := range assignments {
		out = append(out, AssignmentResponse{ItemID: a.Item.ID, Title: a.Item.Title, ScheduledFor: a.ScheduledFor})
	}
	return out
}
