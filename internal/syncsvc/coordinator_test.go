package syncsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"shopops/internal/config"
	"shopops/internal/marketplace"
	"shopops/internal/models"
	"shopops/internal/store"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		PrepareStmt: false,
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.ShopSyncStatus{},
		&models.Campaign{},
		&models.FlashSale{},
		&models.ShopPerformance{},
	)
	require.NoError(t, err)
	return db
}

// fakeClient serves canned listing pages and counts refresh calls.
type fakeClient struct {
	mu sync.Mutex

	campaigns  []marketplace.CampaignInfo
	flashSales []marketplace.FlashSaleInfo

	campaignsErr  error
	flashSalesErr error

	campaignListCalls int

	// When set, ListCampaigns blocks until the gate is closed.
	gate chan struct{}
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		campaigns: []marketplace.CampaignInfo{
			{CampaignID: 1, Name: "search ads", Type: models.CampaignTypeAuto, Status: models.CampaignStatusOngoing, DailyBudget: 50000},
			{CampaignID: 2, Name: "display ads", Type: models.CampaignTypeManual, Status: models.CampaignStatusPaused, DailyBudget: 20000},
		},
		flashSales: []marketplace.FlashSaleInfo{
			{FlashSaleID: 10, TimeSlotID: 3, StartAt: time.Now(), EndAt: time.Now().Add(2 * time.Hour), Status: "upcoming", ItemCount: 4},
		},
	}
}

func (f *fakeClient) ListCampaigns(_ context.Context, _ uint64, _ string) ([]marketplace.CampaignInfo, string, error) {
	f.mu.Lock()
	f.campaignListCalls++
	gate := f.gate
	err := f.campaignsErr
	page := f.campaigns
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, "", err
	}
	return page, "", nil
}

func (f *fakeClient) ListFlashSales(_ context.Context, _ uint64, _ string) ([]marketplace.FlashSaleInfo, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.flashSalesErr != nil {
		return nil, "", f.flashSalesErr
	}
	return f.flashSales, "", nil
}

func (f *fakeClient) GetShopPerformance(context.Context, uint64) (*marketplace.PerformanceInfo, error) {
	return &marketplace.PerformanceInfo{Rating: 4.8, ResponseRate: 0.97}, nil
}

func (f *fakeClient) GetCampaignBudget(context.Context, uint64, uint64) (int64, error) {
	return 0, nil
}

func (f *fakeClient) SetCampaignBudget(context.Context, uint64, uint64, int64) error {
	return nil
}

func (f *fakeClient) CreateFlashSale(context.Context, uint64, int64) (int64, error) {
	return 0, nil
}

func (f *fakeClient) AddFlashSaleItems(context.Context, uint64, int64, []marketplace.FlashSaleItem) error {
	return nil
}

func (f *fakeClient) GetFlashSaleItems(context.Context, uint64, int64) ([]marketplace.FlashSaleItem, error) {
	return nil, nil
}

func (f *fakeClient) DeleteFlashSale(context.Context, uint64, int64) error {
	return nil
}

func newTestCoordinator(t *testing.T) (*Coordinator, *fakeClient, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	client := newFakeClient()
	st := store.NewMemoryStore()
	t.Cleanup(func() { st.Close() })
	coordinator := NewCoordinator(db, client, st, config.NewMockConfig())
	return coordinator, client, db
}

func TestIsStale(t *testing.T) {
	now := time.Now()
	threshold := 5 * time.Minute

	assert.True(t, IsStale(nil, threshold, now), "never synced is stale")

	recent := now.Add(-3 * time.Minute)
	assert.False(t, IsStale(&recent, threshold, now))

	old := now.Add(-6 * time.Minute)
	assert.True(t, IsStale(&old, threshold, now))
}

func TestStatusCreatesRowOnFirstAccess(t *testing.T) {
	coordinator, _, db := newTestCoordinator(t)

	status, err := coordinator.Status(77)
	require.NoError(t, err)
	assert.Equal(t, uint64(77), status.ShopID)
	assert.False(t, status.IsSyncing)
	assert.Nil(t, status.CampaignsSyncedAt)

	var count int64
	require.NoError(t, db.Model(&models.ShopSyncStatus{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// Second call reuses the existing row.
	_, err = coordinator.Status(77)
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.ShopSyncStatus{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestTriggerSyncRefreshesAllDomains(t *testing.T) {
	coordinator, _, db := newTestCoordinator(t)

	started, err := coordinator.TriggerSync(42)
	require.NoError(t, err)
	require.True(t, started)
	coordinator.Wait()

	status, err := coordinator.Status(42)
	require.NoError(t, err)
	assert.False(t, status.IsSyncing)
	assert.Empty(t, status.LastSyncError)
	for _, domain := range models.SyncDomains {
		assert.NotNil(t, status.SyncedAtFor(domain), domain)
	}

	var campaigns []models.Campaign
	require.NoError(t, db.Where("shop_id = ?", 42).Find(&campaigns).Error)
	assert.Len(t, campaigns, 2)

	var perf models.ShopPerformance
	require.NoError(t, db.Where("shop_id = ?", 42).First(&perf).Error)
	assert.Equal(t, 4.8, perf.Rating)
}

func TestTriggerSyncSingleFlight(t *testing.T) {
	coordinator, client, _ := newTestCoordinator(t)
	gate := make(chan struct{})
	client.gate = gate

	started, err := coordinator.TriggerSync(42)
	require.NoError(t, err)
	require.True(t, started)

	// While the first pass is blocked inside the client, every further
	// trigger must be refused without error.
	for i := 0; i < 3; i++ {
		started, err = coordinator.TriggerSync(42)
		require.NoError(t, err)
		assert.False(t, started)
	}

	close(gate)
	coordinator.Wait()

	client.mu.Lock()
	calls := client.campaignListCalls
	client.mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestTriggerSyncAllowedAgainAfterCompletion(t *testing.T) {
	coordinator, client, _ := newTestCoordinator(t)

	started, err := coordinator.TriggerSync(42)
	require.NoError(t, err)
	require.True(t, started)
	coordinator.Wait()

	started, err = coordinator.TriggerSync(42)
	require.NoError(t, err)
	assert.True(t, started)
	coordinator.Wait()

	client.mu.Lock()
	calls := client.campaignListCalls
	client.mu.Unlock()
	assert.Equal(t, 2, calls)
}

func TestEnsureFreshSkipsFreshData(t *testing.T) {
	coordinator, client, db := newTestCoordinator(t)

	_, err := coordinator.Status(42)
	require.NoError(t, err)
	now := time.Now()
	require.NoError(t, db.Model(&models.ShopSyncStatus{}).
		Where("shop_id = ?", 42).
		Updates(map[string]any{
			"campaigns_synced_at":        now,
			"flash_sales_synced_at":      now,
			"shop_performance_synced_at": now,
		}).Error)

	started, err := coordinator.EnsureFresh(42)
	require.NoError(t, err)
	assert.False(t, started)
	assert.Equal(t, 0, client.campaignListCalls)
}

func TestEnsureFreshTriggersOnStaleDomain(t *testing.T) {
	coordinator, _, db := newTestCoordinator(t)

	_, err := coordinator.Status(42)
	require.NoError(t, err)
	now := time.Now()
	stale := now.Add(-10 * time.Minute)
	// Two domains fresh, one past the threshold.
	require.NoError(t, db.Model(&models.ShopSyncStatus{}).
		Where("shop_id = ?", 42).
		Updates(map[string]any{
			"campaigns_synced_at":        now,
			"flash_sales_synced_at":      stale,
			"shop_performance_synced_at": now,
		}).Error)

	started, err := coordinator.EnsureFresh(42)
	require.NoError(t, err)
	assert.True(t, started)
	coordinator.Wait()
}

func TestFailedRefreshClearsFlagAndRecordsError(t *testing.T) {
	coordinator, client, _ := newTestCoordinator(t)
	client.flashSalesErr = fmt.Errorf("upstream 500")

	started, err := coordinator.TriggerSync(42)
	require.NoError(t, err)
	require.True(t, started)
	coordinator.Wait()

	status, err := coordinator.Status(42)
	require.NoError(t, err)
	assert.False(t, status.IsSyncing, "flag must never stay set after a failed pass")
	assert.Contains(t, status.LastSyncError, "flash_sales")
	assert.Contains(t, status.LastSyncError, "upstream 500")

	// Campaigns completed before the failure, flash sales did not.
	assert.NotNil(t, status.CampaignsSyncedAt)
	assert.Nil(t, status.FlashSalesSyncedAt)

	// The lock was released, so a retry can start.
	client.flashSalesErr = nil
	started, err = coordinator.TriggerSync(42)
	require.NoError(t, err)
	assert.True(t, started)
	coordinator.Wait()
}

func TestProgressEventsPublished(t *testing.T) {
	coordinator, _, _ := newTestCoordinator(t)
	st := coordinator.store

	sub, err := st.Subscribe(ProgressChannel(42))
	require.NoError(t, err)
	defer sub.Close()

	started, err := coordinator.TriggerSync(42)
	require.NoError(t, err)
	require.True(t, started)
	coordinator.Wait()

	progress, err := coordinator.Progress(42)
	require.NoError(t, err)
	assert.NotEmpty(t, progress["step"])

	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-sub.Channel():
			var event ProgressEvent
			require.NoError(t, json.Unmarshal(msg.Payload, &event))
			assert.Equal(t, uint64(42), event.ShopID)
			if event.Done {
				assert.Empty(t, event.Error)
				return
			}
		case <-deadline:
			t.Fatal("no terminal progress event received")
		}
	}
}
