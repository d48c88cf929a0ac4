package models

import (
	"time"

	"gorm.io/datatypes"
)

// Campaign kind constants. "auto" campaigns are algorithmically bid by the
// marketplace, "manual" ones carry seller-managed bids.
const (
	CampaignTypeAuto   = "auto"
	CampaignTypeManual = "manual"
)

// Campaign status constants as reported by the marketplace.
const (
	CampaignStatusOngoing = "ongoing"
	CampaignStatusPaused  = "paused"
	CampaignStatusEnded   = "ended"
)

// Execution outcome constants.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// Clone job status constants.
const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// Sync domain constants. Each domain has its own staleness clock on the
// ShopSyncStatus row.
const (
	SyncDomainCampaigns       = "campaigns"
	SyncDomainFlashSales      = "flash_sales"
	SyncDomainShopPerformance = "shop_performance"
)

// SyncDomains lists all tracked domains.
var SyncDomains = []string{SyncDomainCampaigns, SyncDomainFlashSales, SyncDomainShopPerformance}

// BudgetScheduleRule corresponds to the budget_schedule_rules table.
// A rule is read-only once created except for the budget amount and the
// active flag; supersession deactivates instead of deleting.
type BudgetScheduleRule struct {
	ID           uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	ShopID       uint64     `gorm:"not null;index:idx_rules_shop_active" json:"shop_id"`
	CampaignID   uint64     `gorm:"not null;index" json:"campaign_id"`
	CampaignName string     `gorm:"type:varchar(255)" json:"campaign_name"`
	CampaignType string     `gorm:"type:varchar(20);not null" json:"campaign_type"`
	HourStart    int        `gorm:"not null" json:"hour_start"`
	HourEnd      int        `gorm:"not null" json:"hour_end"`
	Recurrence   Recurrence `gorm:"type:json;not null" json:"recurrence"`
	// Budget is the target daily budget in the shop currency's minor unit.
	// Zero denotes "unlimited".
	Budget    int64     `gorm:"not null;default:0" json:"budget"`
	IsActive  bool      `gorm:"not null;default:true;index:idx_rules_shop_active" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BudgetExecutionLog corresponds to the budget_execution_logs table.
// Rows are append-only; the (rule_id, hour_bucket) index backs the
// once-per-hour-bucket idempotency check.
type BudgetExecutionLog struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	RuleID       *uint     `gorm:"index:idx_exec_rule_bucket" json:"rule_id"`
	ShopID       uint64    `gorm:"not null;index" json:"shop_id"`
	CampaignID   uint64    `gorm:"not null;index" json:"campaign_id"`
	Budget       int64     `gorm:"not null" json:"budget"`
	Outcome      string    `gorm:"type:varchar(20);not null;index" json:"outcome"`
	HourBucket   time.Time `gorm:"not null;index:idx_exec_rule_bucket" json:"hour_bucket"`
	Timestamp    time.Time `gorm:"not null;index" json:"timestamp"`
	ErrorMessage string    `gorm:"type:text" json:"error_message"`
}

// ScheduledCloneJob corresponds to the scheduled_clone_jobs table.
// scheduled_at is fixed at creation; UpdateSchedule replaces it while the
// job is still pending. ResultFlashSaleID is persisted as soon as the
// target promotion is created so a requeued job resumes at the populate
// step instead of creating a second empty promotion.
type ScheduledCloneJob struct {
	ID                uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	ShopID            uint64         `gorm:"not null;index" json:"shop_id"`
	SourceFlashSaleID int64          `gorm:"not null" json:"source_flash_sale_id"`
	TargetTimeSlotID  int64          `gorm:"not null" json:"target_time_slot_id"`
	TargetStartAt     time.Time      `gorm:"not null" json:"target_start_at"`
	ScheduledAt       time.Time      `gorm:"not null;index:idx_jobs_status_due" json:"scheduled_at"`
	Status            string         `gorm:"type:varchar(20);not null;default:'pending';index:idx_jobs_status_due" json:"status"`
	ItemsPayload      datatypes.JSON `gorm:"type:json" json:"items_payload"`
	ResultFlashSaleID *int64         `json:"result_flash_sale_id"`
	ResultMessage     string         `gorm:"type:varchar(512)" json:"result_message"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// ShopSyncStatus corresponds to the shop_sync_statuses table, one row per
// shop. is_syncing is owned by the sync coordinator and is only flipped
// through conditional updates.
type ShopSyncStatus struct {
	ID                      uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	ShopID                  uint64     `gorm:"not null;uniqueIndex" json:"shop_id"`
	CampaignsSyncedAt       *time.Time `json:"campaigns_synced_at"`
	FlashSalesSyncedAt      *time.Time `json:"flash_sales_synced_at"`
	ShopPerformanceSyncedAt *time.Time `json:"shop_performance_synced_at"`
	IsSyncing               bool       `gorm:"not null;default:false" json:"is_syncing"`
	SyncStep                string     `gorm:"type:varchar(100)" json:"sync_step"`
	SyncTotal               int        `gorm:"not null;default:0" json:"sync_total"`
	SyncProcessed           int        `gorm:"not null;default:0" json:"sync_processed"`
	LastSyncError           string     `gorm:"type:text" json:"last_sync_error"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

// SyncedAtFor returns the last-synced timestamp for a domain, nil when the
// domain has never been refreshed.
func (s *ShopSyncStatus) SyncedAtFor(domain string) *time.Time {
	switch domain {
	case SyncDomainCampaigns:
		return s.CampaignsSyncedAt
	case SyncDomainFlashSales:
		return s.FlashSalesSyncedAt
	case SyncDomainShopPerformance:
		return s.ShopPerformanceSyncedAt
	}
	return nil
}

// SyncedAtColumn maps a domain to its timestamp column name.
func SyncedAtColumn(domain string) (string, bool) {
	switch domain {
	case SyncDomainCampaigns:
		return "campaigns_synced_at", true
	case SyncDomainFlashSales:
		return "flash_sales_synced_at", true
	case SyncDomainShopPerformance:
		return "shop_performance_synced_at", true
	}
	return "", false
}

// Campaign is the synced read model of a marketplace ad campaign.
type Campaign struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ShopID      uint64    `gorm:"not null;uniqueIndex:idx_campaigns_shop_campaign" json:"shop_id"`
	CampaignID  uint64    `gorm:"not null;uniqueIndex:idx_campaigns_shop_campaign" json:"campaign_id"`
	Name        string    `gorm:"type:varchar(255)" json:"name"`
	Type        string    `gorm:"type:varchar(20)" json:"type"`
	Status      string    `gorm:"type:varchar(20);index" json:"status"`
	DailyBudget int64     `gorm:"not null;default:0" json:"daily_budget"`
	SyncedAt    time.Time `json:"synced_at"`
}

// FlashSale is the synced read model of a time-bounded promotion.
type FlashSale struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ShopID      uint64    `gorm:"not null;uniqueIndex:idx_flash_sales_shop_sale" json:"shop_id"`
	FlashSaleID int64     `gorm:"not null;uniqueIndex:idx_flash_sales_shop_sale" json:"flash_sale_id"`
	TimeSlotID  int64     `gorm:"not null" json:"time_slot_id"`
	StartAt     time.Time `json:"start_at"`
	EndAt       time.Time `json:"end_at"`
	Status      string    `gorm:"type:varchar(20);index" json:"status"`
	ItemCount   int       `gorm:"not null;default:0" json:"item_count"`
	SyncedAt    time.Time `json:"synced_at"`
}

// ShopPerformance is the synced read model of shop health metrics.
type ShopPerformance struct {
	ID               uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ShopID           uint64    `gorm:"not null;uniqueIndex" json:"shop_id"`
	Rating           float64   `gorm:"not null;default:0" json:"rating"`
	LateShipmentRate float64   `gorm:"not null;default:0" json:"late_shipment_rate"`
	ResponseRate     float64   `gorm:"not null;default:0" json:"response_rate"`
	PenaltyPoints    int       `gorm:"not null;default:0" json:"penalty_points"`
	SyncedAt         time.Time `json:"synced_at"`
}
