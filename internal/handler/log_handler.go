package handler

import (
	app_errors "shopops/internal/errors"
	"shopops/internal/models"
	"shopops/internal/response"

	"github.com/gin-gonic/gin"
)

// ListLogs handles GET /api/logs with optional filters.
func (s *Server) ListLogs(c *gin.Context) {
	var logs []models.BudgetExecutionLog
	query := s.LogService.GetLogsQuery(c).Order("timestamp desc")
	page, err := response.Paginate(c, query, &logs)
	if err != nil {
		response.Error(c, app_errors.ParseDBError(err))
		return
	}
	response.Success(c, page)
}

// ExportLogs handles GET /api/logs/export, streaming the filtered logs as
// CSV.
func (s *Server) ExportLogs(c *gin.Context) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="execution_logs.csv"`)

	if err := s.LogService.StreamLogsToCSV(c, c.Writer); err != nil {
		response.Error(c, app_errors.ParseDBError(err))
	}
}
