package handler

import (
	"strconv"
	"time"

	"shopops/internal/clonejob"
	app_errors "shopops/internal/errors"
	"shopops/internal/models"
	"shopops/internal/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ScheduleCloneJob handles POST /api/clone-jobs.
func (s *Server) ScheduleCloneJob(c *gin.Context) {
	var req clonejob.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrInvalidJSON, err.Error()))
		return
	}

	job, err := s.CloneService.Schedule(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrValidation, err.Error()))
		return
	}
	response.SuccessI18n(c, "job.scheduled", job)
}

// ListCloneJobs handles GET /api/clone-jobs?shop_id=&status=.
func (s *Server) ListCloneJobs(c *gin.Context) {
	shopID, err := strconv.ParseUint(c.Query("shop_id"), 10, 64)
	if err != nil || shopID == 0 {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrBadRequest, "shop_id query parameter is required"))
		return
	}

	var jobs []models.ScheduledCloneJob
	page, err := response.Paginate(c, s.CloneService.ListQuery(shopID, c.Query("status")), &jobs)
	if err != nil {
		response.Error(c, app_errors.ParseDBError(err))
		return
	}
	response.Success(c, page)
}

// RunCloneJob handles POST /api/clone-jobs/:id/run. Runs a pending job
// immediately, ahead of its scheduled time.
func (s *Server) RunCloneJob(c *gin.Context) {
	jobID, ok := parseJobID(c)
	if !ok {
		return
	}

	job, err := s.CloneService.ForceRun(c.Request.Context(), jobID)
	if err != nil {
		respondJobError(c, err)
		return
	}
	response.SuccessI18n(c, "job.started", job)
}

// CancelCloneJob handles DELETE /api/clone-jobs/:id. Only pending jobs can
// be cancelled.
func (s *Server) CancelCloneJob(c *gin.Context) {
	jobID, ok := parseJobID(c)
	if !ok {
		return
	}

	if err := s.CloneService.Cancel(jobID); err != nil {
		respondJobError(c, err)
		return
	}
	response.SuccessI18n(c, "job.cancelled", nil)
}

// RequeueCloneJob handles POST /api/clone-jobs/:id/requeue. Returns a
// failed job to pending so the runner picks it up again.
func (s *Server) RequeueCloneJob(c *gin.Context) {
	jobID, ok := parseJobID(c)
	if !ok {
		return
	}

	if err := s.CloneService.Requeue(jobID); err != nil {
		respondJobError(c, err)
		return
	}
	response.SuccessI18n(c, "job.requeued", nil)
}

// UpdateCloneJobScheduleRequest carries the replacement run time.
type UpdateCloneJobScheduleRequest struct {
	ScheduledAt time.Time `json:"scheduled_at" binding:"required"`
}

// UpdateCloneJobSchedule handles PUT /api/clone-jobs/:id/schedule.
func (s *Server) UpdateCloneJobSchedule(c *gin.Context) {
	jobID, ok := parseJobID(c)
	if !ok {
		return
	}

	var req UpdateCloneJobScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrInvalidJSON, err.Error()))
		return
	}

	if err := s.CloneService.UpdateSchedule(jobID, req.ScheduledAt); err != nil {
		respondJobError(c, err)
		return
	}
	response.SuccessI18n(c, "job.rescheduled", nil)
}

func parseJobID(c *gin.Context) (uint, bool) {
	jobID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrBadRequest, "invalid job ID format"))
		return 0, false
	}
	return uint(jobID), true
}

func respondJobError(c *gin.Context, err error) {
	switch err {
	case gorm.ErrRecordNotFound:
		response.ErrorI18nFromAPIError(c, app_errors.ErrResourceNotFound, "job.not_found")
	case clonejob.ErrInvalidState:
		response.ErrorI18nFromAPIError(c, app_errors.ErrInvalidJobState, "job.invalid_state")
	default:
		response.Error(c, app_errors.ParseDBError(err))
	}
}
