package handler

import (
	"strconv"

	app_errors "shopops/internal/errors"
	"shopops/internal/response"

	"github.com/gin-gonic/gin"
)

func parseShopID(c *gin.Context) (uint64, bool) {
	shopID, err := strconv.ParseUint(c.Query("shop_id"), 10, 64)
	if err != nil || shopID == 0 {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrBadRequest, "shop_id query parameter is required"))
		return 0, false
	}
	return shopID, true
}

// GetSyncStatus handles GET /api/sync/status?shop_id=.
func (s *Server) GetSyncStatus(c *gin.Context) {
	shopID, ok := parseShopID(c)
	if !ok {
		return
	}

	status, err := s.Coordinator.Status(shopID)
	if err != nil {
		response.Error(c, app_errors.ParseDBError(err))
		return
	}
	response.Success(c, status)
}

// EnsureFresh handles POST /api/sync/ensure-fresh?shop_id=. Called on
// viewer mount; starts a refresh only when the data is stale and no
// refresh is running.
func (s *Server) EnsureFresh(c *gin.Context) {
	shopID, ok := parseShopID(c)
	if !ok {
		return
	}

	started, err := s.Coordinator.EnsureFresh(shopID)
	if err != nil {
		response.Error(c, app_errors.ParseDBError(err))
		return
	}
	if started {
		response.SuccessI18n(c, "sync.started", gin.H{"started": true})
		return
	}
	response.SuccessI18n(c, "sync.fresh", gin.H{"started": false})
}

// GetSyncProgress handles GET /api/sync/progress?shop_id=. Serves the live
// counters from the store hash, cheaper than the status row for pollers.
func (s *Server) GetSyncProgress(c *gin.Context) {
	shopID, ok := parseShopID(c)
	if !ok {
		return
	}

	progress, err := s.Coordinator.Progress(shopID)
	if err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrInternalServer, err.Error()))
		return
	}
	response.Success(c, progress)
}

// TriggerSync handles POST /api/sync/trigger?shop_id=. Forces a refresh
// regardless of staleness; still subject to the single-flight guarantee.
func (s *Server) TriggerSync(c *gin.Context) {
	shopID, ok := parseShopID(c)
	if !ok {
		return
	}

	started, err := s.Coordinator.TriggerSync(shopID)
	if err != nil {
		response.Error(c, app_errors.ParseDBError(err))
		return
	}
	if !started {
		response.ErrorI18nFromAPIError(c, app_errors.ErrSyncInProgress, "sync.in_progress")
		return
	}
	response.SuccessI18n(c, "sync.started", gin.H{"started": true})
}
