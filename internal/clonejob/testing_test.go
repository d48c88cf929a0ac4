package clonejob

import (
	"context"
	"sync"
	"testing"

	"shopops/internal/config"
	"shopops/internal/marketplace"
	"shopops/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		PrepareStmt: false,
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.ScheduledCloneJob{})
	require.NoError(t, err)
	return db
}

// fakeClient simulates the flash sale endpoints of the marketplace.
type fakeClient struct {
	mu sync.Mutex

	sourceItems []marketplace.FlashSaleItem
	nextSaleID  int64

	createErr error
	addErr    error
	deleteErr error

	created   []int64
	added     map[int64][]marketplace.FlashSaleItem
	deleted   []int64
	addCalls  int
	createCnt int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		nextSaleID: 9000,
		added:      make(map[int64][]marketplace.FlashSaleItem),
		sourceItems: []marketplace.FlashSaleItem{
			{ItemID: 1, PromotionPrice: 19900, Stock: 10},
			{ItemID: 2, ModelID: 7, PromotionPrice: 29900, Stock: 5},
		},
	}
}

func (f *fakeClient) GetCampaignBudget(context.Context, uint64, uint64) (int64, error) {
	return 0, nil
}

func (f *fakeClient) SetCampaignBudget(context.Context, uint64, uint64, int64) error {
	return nil
}

func (f *fakeClient) CreateFlashSale(_ context.Context, _ uint64, _ int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCnt++
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.nextSaleID++
	f.created = append(f.created, f.nextSaleID)
	return f.nextSaleID, nil
}

func (f *fakeClient) AddFlashSaleItems(_ context.Context, _ uint64, flashSaleID int64, items []marketplace.FlashSaleItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addCalls++
	if f.addErr != nil {
		return f.addErr
	}
	f.added[flashSaleID] = items
	return nil
}

func (f *fakeClient) GetFlashSaleItems(context.Context, uint64, int64) ([]marketplace.FlashSaleItem, error) {
	return f.sourceItems, nil
}

func (f *fakeClient) DeleteFlashSale(_ context.Context, _ uint64, flashSaleID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, flashSaleID)
	return nil
}

func (f *fakeClient) ListCampaigns(context.Context, uint64, string) ([]marketplace.CampaignInfo, string, error) {
	return nil, "", nil
}

func (f *fakeClient) ListFlashSales(context.Context, uint64, string) ([]marketplace.FlashSaleInfo, string, error) {
	return nil, "", nil
}

func (f *fakeClient) GetShopPerformance(context.Context, uint64) (*marketplace.PerformanceInfo, error) {
	return &marketplace.PerformanceInfo{}, nil
}

func newTestService(t *testing.T) (*Service, *fakeClient, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	client := newFakeClient()
	service := NewService(db, client, config.NewMockConfig())
	return service, client, db
}
