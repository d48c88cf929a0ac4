package scheduler

import (
	"fmt"

	"shopops/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RuleService owns budget rule CRUD. Rules are immutable once created
// except for the budget amount and the active flag.
type RuleService struct {
	DB *gorm.DB
}

// NewRuleService creates a new RuleService.
func NewRuleService(db *gorm.DB) *RuleService {
	return &RuleService{DB: db}
}

// ValidateRule checks a rule definition before any insert. Validation
// errors are synchronous and never produce execution log rows.
func ValidateRule(rule *models.BudgetScheduleRule) error {
	if rule.ShopID == 0 {
		return fmt.Errorf("shop_id is required")
	}
	if rule.CampaignID == 0 {
		return fmt.Errorf("campaign_id is required")
	}
	if rule.CampaignType != models.CampaignTypeAuto && rule.CampaignType != models.CampaignTypeManual {
		return fmt.Errorf("campaign_type must be %q or %q", models.CampaignTypeAuto, models.CampaignTypeManual)
	}
	if rule.HourStart < 0 || rule.HourStart > 23 {
		return fmt.Errorf("hour_start must be in [0,24)")
	}
	if rule.HourEnd < 1 || rule.HourEnd > 24 {
		return fmt.Errorf("hour_end must be in (0,24]")
	}
	if rule.HourStart >= rule.HourEnd {
		return fmt.Errorf("hour_start must be before hour_end")
	}
	if rule.Budget < 0 {
		return fmt.Errorf("budget must not be negative")
	}
	return rule.Recurrence.Validate()
}

// Create validates and inserts a single rule.
func (s *RuleService) Create(rule *models.BudgetScheduleRule) error {
	if err := ValidateRule(rule); err != nil {
		return err
	}
	return s.DB.Create(rule).Error
}

// BulkItemResult records the per-campaign outcome of a bulk creation.
type BulkItemResult struct {
	CampaignID uint64 `json:"campaign_id"`
	RuleID     uint   `json:"rule_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// BulkCreateResult aggregates a bulk creation. Item failures are isolated;
// one rejected campaign never aborts its siblings.
type BulkCreateResult struct {
	CreatedCount int              `json:"created_count"`
	FailedCount  int              `json:"failed_count"`
	Items        []BulkItemResult `json:"items"`
}

// BulkCreate applies one rule definition to N campaigns, expanding into N
// independent rule inserts. Campaigns must be present in the synced read
// model and in the ongoing state.
func (s *RuleService) BulkCreate(template *models.BudgetScheduleRule, campaignIDs []uint64) (*BulkCreateResult, error) {
	if len(campaignIDs) == 0 {
		return nil, fmt.Errorf("at least one campaign must be selected")
	}
	probe := *template
	probe.CampaignID = campaignIDs[0]
	if err := ValidateRule(&probe); err != nil {
		return nil, err
	}

	result := &BulkCreateResult{Items: make([]BulkItemResult, 0, len(campaignIDs))}
	for _, campaignID := range campaignIDs {
		item := BulkItemResult{CampaignID: campaignID}

		var campaign models.Campaign
		err := s.DB.Where("shop_id = ? AND campaign_id = ?", template.ShopID, campaignID).
			First(&campaign).Error
		switch {
		case err == gorm.ErrRecordNotFound:
			item.Error = "campaign not found in synced data"
		case err != nil:
			item.Error = "campaign lookup failed"
			logrus.WithError(err).WithField("campaign_id", campaignID).Error("RuleService: bulk lookup failed")
		case campaign.Status != models.CampaignStatusOngoing:
			item.Error = fmt.Sprintf("campaign is %s, only ongoing campaigns accept budget rules", campaign.Status)
		default:
			rule := *template
			rule.ID = 0
			rule.CampaignID = campaignID
			rule.CampaignName = campaign.Name
			rule.CampaignType = campaign.Type
			rule.IsActive = true
			if err := s.DB.Create(&rule).Error; err != nil {
				item.Error = "insert failed"
				logrus.WithError(err).WithField("campaign_id", campaignID).Error("RuleService: bulk insert failed")
			} else {
				item.RuleID = rule.ID
			}
		}

		if item.Error == "" {
			result.CreatedCount++
		} else {
			result.FailedCount++
		}
		result.Items = append(result.Items, item)
	}
	return result, nil
}

// UpdateBudget replaces the budget amount, the only mutable payload field.
func (s *RuleService) UpdateBudget(ruleID uint, budget int64) (*models.BudgetScheduleRule, error) {
	if budget < 0 {
		return nil, fmt.Errorf("budget must not be negative")
	}
	var rule models.BudgetScheduleRule
	if err := s.DB.First(&rule, ruleID).Error; err != nil {
		return nil, err
	}
	if err := s.DB.Model(&rule).Update("budget", budget).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

// Deactivate soft-deletes a rule. Superseded rules are kept for the
// execution log's foreign reference.
func (s *RuleService) Deactivate(ruleID uint) error {
	res := s.DB.Model(&models.BudgetScheduleRule{}).
		Where("id = ?", ruleID).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListQuery returns a query for a shop's rules, newest first.
func (s *RuleService) ListQuery(shopID uint64, activeOnly bool) *gorm.DB {
	query := s.DB.Model(&models.BudgetScheduleRule{}).
		Where("shop_id = ?", shopID).
		Order("created_at DESC")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	return query
}
