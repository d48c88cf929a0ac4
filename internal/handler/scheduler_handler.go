package handler

import (
	"time"

	app_errors "shopops/internal/errors"
	"shopops/internal/response"

	"github.com/gin-gonic/gin"
)

// ProcessDue handles POST /api/scheduler/process-due, running one budget
// pass immediately instead of waiting for the cron trigger. Safe to call
// at any time: the hour-bucket idempotency check makes repeated passes
// free.
func (s *Server) ProcessDue(c *gin.Context) {
	summary, err := s.Engine.ProcessDue(c.Request.Context(), time.Now())
	if err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrInternalServer, err.Error()))
		return
	}
	response.SuccessI18n(c, "scheduler.pass_completed", summary, map[string]any{
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
		"skipped":   summary.Skipped,
	})
}
