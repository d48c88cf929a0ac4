// Package syncsvc keeps the synced read models (campaigns, flash sales,
// shop performance) warm against the marketplace API. It tracks per-domain
// staleness on the ShopSyncStatus row and guarantees at most one in-flight
// refresh per shop through a store lock plus a conditional update on the
// is_syncing flag.
package syncsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"shopops/internal/marketplace"
	"shopops/internal/models"
	"shopops/internal/store"
	"shopops/internal/types"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ProgressChannel returns the pub/sub channel carrying progress updates for
// a shop's sync pass.
func ProgressChannel(shopID uint64) string {
	return fmt.Sprintf("sync:progress:%d", shopID)
}

func lockKey(shopID uint64) string {
	return fmt.Sprintf("sync:lock:%d", shopID)
}

// ProgressEvent is the payload published on the progress channel.
type ProgressEvent struct {
	ShopID    uint64 `json:"shop_id"`
	Step      string `json:"step"`
	Total     int    `json:"total"`
	Processed int    `json:"processed"`
	Done      bool   `json:"done"`
	Error     string `json:"error,omitempty"`
}

// Coordinator owns the staleness policy and the single-flight refresh.
type Coordinator struct {
	db        *gorm.DB
	client    marketplace.Client
	store     store.Store
	threshold time.Duration
	timeout   time.Duration

	wg sync.WaitGroup
}

// NewCoordinator creates a Coordinator from configuration.
func NewCoordinator(db *gorm.DB, client marketplace.Client, st store.Store, configManager types.ConfigManager) *Coordinator {
	cfg := configManager.GetSchedulerConfig()
	return &Coordinator{
		db:        db,
		client:    client,
		store:     st,
		threshold: time.Duration(cfg.StalenessThresholdMinutes) * time.Minute,
		timeout:   time.Duration(cfg.SyncTimeoutSeconds) * time.Second,
	}
}

// IsStale reports whether a last-synced timestamp is older than the
// threshold. A nil timestamp (never synced) is always stale.
func IsStale(lastSyncedAt *time.Time, threshold time.Duration, now time.Time) bool {
	if lastSyncedAt == nil {
		return true
	}
	return now.Sub(*lastSyncedAt) > threshold
}

// Status returns the shop's sync status row, creating it on first access.
func (c *Coordinator) Status(shopID uint64) (*models.ShopSyncStatus, error) {
	var status models.ShopSyncStatus
	err := c.db.Where("shop_id = ?", shopID).First(&status).Error
	if err == gorm.ErrRecordNotFound {
		status = models.ShopSyncStatus{ShopID: shopID}
		if err := c.db.Create(&status).Error; err != nil {
			// Lost a create race with a concurrent caller; re-read.
			if rerr := c.db.Where("shop_id = ?", shopID).First(&status).Error; rerr != nil {
				return nil, rerr
			}
		}
		return &status, nil
	}
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// EnsureFresh checks the shop's staleness and triggers a background refresh
// when any tracked domain is stale. It returns true when this call started
// a refresh; false means the data was fresh or a refresh is already
// running.
func (c *Coordinator) EnsureFresh(shopID uint64) (bool, error) {
	status, err := c.Status(shopID)
	if err != nil {
		return false, err
	}

	now := time.Now()
	stale := false
	for _, domain := range models.SyncDomains {
		if IsStale(status.SyncedAtFor(domain), c.threshold, now) {
			stale = true
			break
		}
	}
	if !stale {
		return false, nil
	}
	return c.TriggerSync(shopID)
}

// TriggerSync starts a background refresh of all tracked domains for the
// shop. At most one refresh per shop is in flight at a time: the store lock
// fences concurrent processes and the conditional update on is_syncing
// fences concurrent callers sharing the database. Returns false without
// error when a refresh is already running.
func (c *Coordinator) TriggerSync(shopID uint64) (bool, error) {
	if _, err := c.Status(shopID); err != nil {
		return false, err
	}

	acquired, err := c.store.SetNX(lockKey(shopID), []byte("1"), c.timeout+time.Minute)
	if err != nil {
		return false, err
	}
	if !acquired {
		return false, nil
	}

	res := c.db.Model(&models.ShopSyncStatus{}).
		Where("shop_id = ? AND is_syncing = ?", shopID, false).
		Updates(map[string]any{
			"is_syncing":     true,
			"sync_step":      "starting",
			"sync_total":     0,
			"sync_processed": 0,
		})
	if res.Error != nil {
		c.releaseLock(shopID)
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		// The flag was already set; another refresh is running.
		c.releaseLock(shopID)
		return false, nil
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		c.runSync(ctx, shopID)
	}()
	return true, nil
}

// Wait blocks until all in-flight refreshes finish. Used during shutdown
// and by tests.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Progress returns the live progress snapshot mirrored into the store hash
// during a refresh. Empty when no pass has reported yet.
func (c *Coordinator) Progress(shopID uint64) (map[string]string, error) {
	return c.store.HGetAll(ProgressChannel(shopID))
}

// runSync executes the full refresh pass. Whatever happens inside, the
// is_syncing flag is cleared and last_sync_error recorded before it
// returns; a stuck flag would starve every future EnsureFresh for the
// shop.
func (c *Coordinator) runSync(ctx context.Context, shopID uint64) {
	var syncErr error
	defer func() {
		errMsg := ""
		if syncErr != nil {
			errMsg = syncErr.Error()
		}
		if err := c.db.Model(&models.ShopSyncStatus{}).
			Where("shop_id = ?", shopID).
			Updates(map[string]any{
				"is_syncing":      false,
				"last_sync_error": errMsg,
			}).Error; err != nil {
			logrus.WithError(err).WithField("shop_id", shopID).Error("Sync: failed to clear is_syncing flag")
		}
		c.releaseLock(shopID)
		c.publishProgress(&ProgressEvent{ShopID: shopID, Step: "done", Done: true, Error: errMsg})

		if syncErr != nil {
			logrus.WithError(syncErr).WithField("shop_id", shopID).Warn("Sync: refresh pass failed")
		} else {
			logrus.WithField("shop_id", shopID).Debug("Sync: refresh pass completed")
		}
	}()

	steps := []struct {
		domain  string
		refresh func(context.Context, uint64) (int, error)
	}{
		{models.SyncDomainCampaigns, c.refreshCampaigns},
		{models.SyncDomainFlashSales, c.refreshFlashSales},
		{models.SyncDomainShopPerformance, c.refreshShopPerformance},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			syncErr = fmt.Errorf("sync cancelled before %s: %w", step.domain, err)
			return
		}
		c.setStep(shopID, step.domain)
		count, err := step.refresh(ctx, shopID)
		if err != nil {
			syncErr = fmt.Errorf("refresh %s: %w", step.domain, err)
			return
		}
		c.stampSyncedAt(shopID, step.domain)
		logrus.WithFields(logrus.Fields{
			"shop_id": shopID,
			"domain":  step.domain,
			"items":   count,
		}).Debug("Sync: domain refreshed")
	}
}

func (c *Coordinator) releaseLock(shopID uint64) {
	if err := c.store.Delete(lockKey(shopID)); err != nil {
		logrus.WithError(err).WithField("shop_id", shopID).Warn("Sync: failed to release lock")
	}
}

func (c *Coordinator) setStep(shopID uint64, step string) {
	if err := c.db.Model(&models.ShopSyncStatus{}).
		Where("shop_id = ?", shopID).
		Updates(map[string]any{"sync_step": step, "sync_total": 0, "sync_processed": 0}).Error; err != nil {
		logrus.WithError(err).Warn("Sync: failed to record step")
	}
	c.publishProgress(&ProgressEvent{ShopID: shopID, Step: step})
}

// reportProgress updates the live counters on the row, mirrors them into
// the store hash and notifies subscribers. processed must be monotonically
// non-decreasing within a step.
func (c *Coordinator) reportProgress(shopID uint64, step string, total, processed int) {
	if err := c.db.Model(&models.ShopSyncStatus{}).
		Where("shop_id = ?", shopID).
		Updates(map[string]any{"sync_total": total, "sync_processed": processed}).Error; err != nil {
		logrus.WithError(err).Warn("Sync: failed to record progress")
	}
	if err := c.store.HSet(ProgressChannel(shopID), map[string]any{
		"step":      step,
		"total":     total,
		"processed": processed,
	}); err != nil {
		logrus.WithError(err).Warn("Sync: failed to store progress snapshot")
	}
	c.publishProgress(&ProgressEvent{ShopID: shopID, Step: step, Total: total, Processed: processed})
}

func (c *Coordinator) publishProgress(event *ProgressEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := c.store.Publish(ProgressChannel(event.ShopID), payload); err != nil {
		logrus.WithError(err).Warn("Sync: failed to publish progress")
	}
}

func (c *Coordinator) stampSyncedAt(shopID uint64, domain string) {
	column, ok := models.SyncedAtColumn(domain)
	if !ok {
		return
	}
	if err := c.db.Model(&models.ShopSyncStatus{}).
		Where("shop_id = ?", shopID).
		Update(column, time.Now()).Error; err != nil {
		logrus.WithError(err).WithField("domain", domain).Warn("Sync: failed to stamp synced_at")
	}
}
