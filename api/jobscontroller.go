package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultJobListLimit = 20
	maxJobListLimit     = 100
)

// StartJobRequest asks for one content item to be generated
type StartJobRequest struct {
	ContentItemID string `json:"content_item_id" binding:"required"`
	OwnerID       string `json:"owner_id"`
}

type jobsController struct {
	jobs   JobRunner
	logger *zap.Logger
}

// RegisterJobRoutes registers job endpoints.
func RegisterJobRoutes(r *gin.Engine, jobs JobRunner, logger *zap.Logger) {
	ctl := &jobsController{jobs: jobs, logger: logger}
	g := r.Group("/api/jobs")
	g.POST("", ctl.handleStart)
	g.GET("", ctl.handleList)
	g.GET("/:id", ctl.handleGet)
}

// handleStart creates a job and runs it in the background
func (ctl *jobsController) handleStart(c *gin.Context) {
	var req StartJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := ctl.jobs.StartAsync(c.Request.Context(), req.ContentItemID, req.OwnerID)
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	c.JSON(http.StatusAccepted, job)
}

func (ctl *jobsController) handleGet(c *gin.Context) {
	job, err := ctl.jobs.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// handleList returns the owner's newest jobs; without owner_id all jobs are listed
func (ctl *jobsController) handleList(c *gin.Context) {
	limit := defaultJobListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxJobListLimit)
	}

	jobs, err := ctl.jobs.List(c.Request.Context(), c.Query("owner_id"), limit)
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "count": len(jobs)})
}
