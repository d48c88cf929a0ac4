// Package marketplace defines the narrow interface to the external,
// rate-limited marketplace API. The scheduler, clone jobs and sync
// refreshers consume this interface only; the default implementation is a
// thin JSON adapter. Authentication and token refresh live outside this
// module and are expected to be handled by the http.Client's transport.
package marketplace

import (
	"context"
	"time"
)

// CampaignInfo is one page item of the campaign listing.
type CampaignInfo struct {
	CampaignID  uint64 `json:"campaign_id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	DailyBudget int64  `json:"daily_budget"`
}

// FlashSaleInfo is one page item of the flash sale listing.
type FlashSaleInfo struct {
	FlashSaleID int64     `json:"flash_sale_id"`
	TimeSlotID  int64     `json:"time_slot_id"`
	StartAt     time.Time `json:"start_at"`
	EndAt       time.Time `json:"end_at"`
	Status      string    `json:"status"`
	ItemCount   int       `json:"item_count"`
}

// FlashSaleItem is one item/price/stock entry of a flash sale payload.
type FlashSaleItem struct {
	ItemID         uint64 `json:"item_id"`
	ModelID        uint64 `json:"model_id,omitempty"`
	PromotionPrice int64  `json:"promotion_price"`
	Stock          int    `json:"stock"`
}

// PerformanceInfo is the shop health snapshot.
type PerformanceInfo struct {
	Rating           float64 `json:"rating"`
	LateShipmentRate float64 `json:"late_shipment_rate"`
	ResponseRate     float64 `json:"response_rate"`
	PenaltyPoints    int     `json:"penalty_points"`
}

// Client is the outbound marketplace API surface.
//
// All mutating calls are subject to upstream rate limiting; callers must
// treat IsRateLimited errors as retryable on the next scheduled pass, never
// immediately.
type Client interface {
	// GetCampaignBudget returns the campaign's current daily budget.
	GetCampaignBudget(ctx context.Context, shopID, campaignID uint64) (int64, error)
	// SetCampaignBudget replaces the campaign's daily budget. Zero means unlimited.
	SetCampaignBudget(ctx context.Context, shopID, campaignID uint64, budget int64) error

	// CreateFlashSale creates an empty promotion bound to a time slot and
	// returns its id.
	CreateFlashSale(ctx context.Context, shopID uint64, timeSlotID int64) (int64, error)
	// AddFlashSaleItems populates a promotion with an item payload.
	AddFlashSaleItems(ctx context.Context, shopID uint64, flashSaleID int64, items []FlashSaleItem) error
	// GetFlashSaleItems returns a promotion's item payload; clone jobs
	// capture it from the source at schedule time.
	GetFlashSaleItems(ctx context.Context, shopID uint64, flashSaleID int64) ([]FlashSaleItem, error)
	// DeleteFlashSale removes a promotion; used as compensating cleanup for
	// a half-created clone.
	DeleteFlashSale(ctx context.Context, shopID uint64, flashSaleID int64) error

	// ListCampaigns pages through the shop's campaigns. An empty cursor
	// starts from the beginning; an empty next cursor ends the listing.
	ListCampaigns(ctx context.Context, shopID uint64, cursor string) ([]CampaignInfo, string, error)
	// ListFlashSales pages through the shop's flash sales.
	ListFlashSales(ctx context.Context, shopID uint64, cursor string) ([]FlashSaleInfo, string, error)
	// GetShopPerformance returns the shop health snapshot.
	GetShopPerformance(ctx context.Context, shopID uint64) (*PerformanceInfo, error)
}
