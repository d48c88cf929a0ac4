package syncsvc

import (
	"context"
	"time"

	"shopops/internal/models"

	"gorm.io/gorm/clause"
)

// refreshCampaigns pages through the shop's campaigns and upserts them into
// the read model. Returns the number of items pulled.
func (c *Coordinator) refreshCampaigns(ctx context.Context, shopID uint64) (int, error) {
	now := time.Now()
	processed := 0
	cursor := ""
	for {
		page, next, err := c.client.ListCampaigns(ctx, shopID, cursor)
		if err != nil {
			return processed, err
		}
		for i := range page {
			row := models.Campaign{
				ShopID:      shopID,
				CampaignID:  page[i].CampaignID,
				Name:        page[i].Name,
				Type:        page[i].Type,
				Status:      page[i].Status,
				DailyBudget: page[i].DailyBudget,
				SyncedAt:    now,
			}
			if err := c.db.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "shop_id"}, {Name: "campaign_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"name", "type", "status", "daily_budget", "synced_at"}),
			}).Create(&row).Error; err != nil {
				return processed, err
			}
			processed++
		}
		c.reportProgress(shopID, models.SyncDomainCampaigns, processed, processed)
		if next == "" {
			return processed, nil
		}
		cursor = next
	}
}

// refreshFlashSales pages through the shop's flash sales and upserts them.
func (c *Coordinator) refreshFlashSales(ctx context.Context, shopID uint64) (int, error) {
	now := time.Now()
	processed := 0
	cursor := ""
	for {
		page, next, err := c.client.ListFlashSales(ctx, shopID, cursor)
		if err != nil {
			return processed, err
		}
		for i := range page {
			row := models.FlashSale{
				ShopID:      shopID,
				FlashSaleID: page[i].FlashSaleID,
				TimeSlotID:  page[i].TimeSlotID,
				StartAt:     page[i].StartAt,
				EndAt:       page[i].EndAt,
				Status:      page[i].Status,
				ItemCount:   page[i].ItemCount,
				SyncedAt:    now,
			}
			if err := c.db.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "shop_id"}, {Name: "flash_sale_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"time_slot_id", "start_at", "end_at", "status", "item_count", "synced_at"}),
			}).Create(&row).Error; err != nil {
				return processed, err
			}
			processed++
		}
		c.reportProgress(shopID, models.SyncDomainFlashSales, processed, processed)
		if next == "" {
			return processed, nil
		}
		cursor = next
	}
}

// refreshShopPerformance pulls the single health snapshot for the shop.
func (c *Coordinator) refreshShopPerformance(ctx context.Context, shopID uint64) (int, error) {
	info, err := c.client.GetShopPerformance(ctx, shopID)
	if err != nil {
		return 0, err
	}
	row := models.ShopPerformance{
		ShopID:           shopID,
		Rating:           info.Rating,
		LateShipmentRate: info.LateShipmentRate,
		ResponseRate:     info.ResponseRate,
		PenaltyPoints:    info.PenaltyPoints,
		SyncedAt:         time.Now(),
	}
	if err := c.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "shop_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating", "late_shipment_rate", "response_rate", "penalty_points", "synced_at"}),
	}).Create(&row).Error; err != nil {
		return 0, err
	}
	c.reportProgress(shopID, models.SyncDomainShopPerformance, 1, 1)
	return 1, nil
}
