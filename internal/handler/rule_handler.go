package handler

import (
	"strconv"

	app_errors "shopops/internal/errors"
	"shopops/internal/models"
	"shopops/internal/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CreateRuleRequest defines the payload for creating one budget rule.
type CreateRuleRequest struct {
	ShopID       uint64            `json:"shop_id" binding:"required"`
	CampaignID   uint64            `json:"campaign_id" binding:"required"`
	CampaignName string            `json:"campaign_name"`
	CampaignType string            `json:"campaign_type" binding:"required"`
	HourStart    int               `json:"hour_start"`
	HourEnd      int               `json:"hour_end" binding:"required"`
	Recurrence   models.Recurrence `json:"recurrence"`
	Budget       int64             `json:"budget"`
}

func (req *CreateRuleRequest) toModel() *models.BudgetScheduleRule {
	return &models.BudgetScheduleRule{
		ShopID:       req.ShopID,
		CampaignID:   req.CampaignID,
		CampaignName: req.CampaignName,
		CampaignType: req.CampaignType,
		HourStart:    req.HourStart,
		HourEnd:      req.HourEnd,
		Recurrence:   req.Recurrence,
		Budget:       req.Budget,
		IsActive:     true,
	}
}

// CreateRule handles POST /api/rules.
func (s *Server) CreateRule(c *gin.Context) {
	var req CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrInvalidJSON, err.Error()))
		return
	}

	rule := req.toModel()
	if err := s.RuleService.Create(rule); err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrValidation, err.Error()))
		return
	}
	response.SuccessI18n(c, "rule.created", rule)
}

// BulkCreateRulesRequest defines the payload for applying one rule template
// to many campaigns.
type BulkCreateRulesRequest struct {
	ShopID       uint64            `json:"shop_id" binding:"required"`
	CampaignIDs  []uint64          `json:"campaign_ids" binding:"required"`
	CampaignType string            `json:"campaign_type" binding:"required"`
	HourStart    int               `json:"hour_start"`
	HourEnd      int               `json:"hour_end" binding:"required"`
	Recurrence   models.Recurrence `json:"recurrence"`
	Budget       int64             `json:"budget"`
}

// BulkCreateRules handles POST /api/rules/bulk.
func (s *Server) BulkCreateRules(c *gin.Context) {
	var req BulkCreateRulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrInvalidJSON, err.Error()))
		return
	}
	if len(req.CampaignIDs) == 0 {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrValidation, "campaign_ids cannot be empty"))
		return
	}

	template := &models.BudgetScheduleRule{
		ShopID:       req.ShopID,
		CampaignType: req.CampaignType,
		HourStart:    req.HourStart,
		HourEnd:      req.HourEnd,
		Recurrence:   req.Recurrence,
		Budget:       req.Budget,
		IsActive:     true,
	}

	result, err := s.RuleService.BulkCreate(template, req.CampaignIDs)
	if err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrValidation, err.Error()))
		return
	}
	response.SuccessI18n(c, "rule.bulk_created", result, map[string]any{
		"created": result.CreatedCount,
		"failed":  result.FailedCount,
	})
}

// ListRules handles GET /api/rules?shop_id=&active_only=.
func (s *Server) ListRules(c *gin.Context) {
	shopID, err := strconv.ParseUint(c.Query("shop_id"), 10, 64)
	if err != nil || shopID == 0 {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrBadRequest, "shop_id query parameter is required"))
		return
	}
	activeOnly, _ := strconv.ParseBool(c.DefaultQuery("active_only", "false"))

	var rules []models.BudgetScheduleRule
	page, err := response.Paginate(c, s.RuleService.ListQuery(shopID, activeOnly), &rules)
	if err != nil {
		response.Error(c, app_errors.ParseDBError(err))
		return
	}
	response.Success(c, page)
}

// UpdateRuleBudgetRequest carries the replacement budget amount.
type UpdateRuleBudgetRequest struct {
	Budget int64 `json:"budget"`
}

// UpdateRuleBudget handles PUT /api/rules/:id/budget.
func (s *Server) UpdateRuleBudget(c *gin.Context) {
	ruleID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrBadRequest, "invalid rule ID format"))
		return
	}

	var req UpdateRuleBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrInvalidJSON, err.Error()))
		return
	}
	if req.Budget < 0 {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrValidation, "budget cannot be negative"))
		return
	}

	rule, err := s.RuleService.UpdateBudget(uint(ruleID), req.Budget)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			response.ErrorI18nFromAPIError(c, app_errors.ErrResourceNotFound, "rule.not_found")
			return
		}
		response.Error(c, app_errors.ParseDBError(err))
		return
	}
	response.SuccessI18n(c, "rule.updated", rule)
}

// DeactivateRule handles DELETE /api/rules/:id. Rules are never deleted;
// deactivation preserves the execution log's foreign reference.
func (s *Server) DeactivateRule(c *gin.Context) {
	ruleID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrBadRequest, "invalid rule ID format"))
		return
	}

	if err := s.RuleService.Deactivate(uint(ruleID)); err != nil {
		if err == gorm.ErrRecordNotFound {
			response.ErrorI18nFromAPIError(c, app_errors.ErrResourceNotFound, "rule.not_found")
			return
		}
		response.Error(c, app_errors.ParseDBError(err))
		return
	}
	response.SuccessI18n(c, "rule.deactivated", nil)
}
