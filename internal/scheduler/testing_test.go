package scheduler

import (
	"context"
	"sync"
	"testing"

	"shopops/internal/marketplace"
	"shopops/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// setupTestDB creates an isolated in-memory SQLite database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		PrepareStmt: false,
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.BudgetScheduleRule{},
		&models.BudgetExecutionLog{},
		&models.Campaign{},
	)
	require.NoError(t, err)
	return db
}

// fakeClient is an in-memory marketplace.Client recording budget writes.
type fakeClient struct {
	mu sync.Mutex

	budgets   map[uint64]int64
	setCalls  int
	setErr    error
	getErr    error
	setCalled []uint64
}

func newFakeClient() *fakeClient {
	return &fakeClient{budgets: make(map[uint64]int64)}
}

func (f *fakeClient) GetCampaignBudget(_ context.Context, _ uint64, campaignID uint64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return 0, f.getErr
	}
	return f.budgets[campaignID], nil
}

func (f *fakeClient) SetCampaignBudget(_ context.Context, _ uint64, campaignID uint64, budget int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls++
	f.setCalled = append(f.setCalled, campaignID)
	if f.setErr != nil {
		return f.setErr
	}
	f.budgets[campaignID] = budget
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

func (f *fakeClient) ListCampaigns(context.Context, uint64, string) ([]marketplace.CampaignInfo, string, error) {
	return nil, "", nil
}

func (f *fakeClient) ListFlashSales(context.Context, uint64, string) ([]marketplace.FlashSaleInfo, string, error) {
	return nil, "", nil
}

func (f *fakeClient) GetShopPerformance(context.Context, uint64) (*marketplace.PerformanceInfo, error) {
	return &marketplace.PerformanceInfo{}, nil
}
