package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shopops/internal/clonejob"
	"shopops/internal/config"
	"shopops/internal/handler"
	"shopops/internal/i18n"
	"shopops/internal/marketplace"
	"shopops/internal/models"
	"shopops/internal/router"
	"shopops/internal/scheduler"
	"shopops/internal/services"
	"shopops/internal/store"
	"shopops/internal/syncsvc"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// stubClient is a marketplace client whose reads succeed with empty data.
type stubClient struct{}

func (stubClient) GetCampaignBudget(context.Context, uint64, uint64) (int64, error) { return 0, nil }
func (stubClient) SetCampaignBudget(context.Context, uint64, uint64, int64) error   { return nil }
func (stubClient) CreateFlashSale(context.Context, uint64, int64) (int64, error)    { return 9001, nil }
func (stubClient) AddFlashSaleItems(context.Context, uint64, int64, []marketplace.FlashSaleItem) error {
	return nil
}
func (stubClient) GetFlashSaleItems(context.Context, uint64, int64) ([]marketplace.FlashSaleItem, error) {
	return []marketplace.FlashSaleItem{{ItemID: 1, PromotionPrice: 9900, Stock: 3}}, nil
}
func (stubClient) DeleteFlashSale(context.Context, uint64, int64) error { return nil }
func (stubClient) ListCampaigns(context.Context, uint64, string) ([]marketplace.CampaignInfo, string, error) {
	return nil, "", nil
}
func (stubClient) ListFlashSales(context.Context, uint64, string) ([]marketplace.FlashSaleInfo, string, error) {
	return nil, "", nil
}
func (stubClient) GetShopPerformance(context.Context, uint64) (*marketplace.PerformanceInfo, error) {
	return &marketplace.PerformanceInfo{}, nil
}

type testEnv struct {
	router      *gin.Engine
	db          *gorm.DB
	coordinator *syncsvc.Coordinator
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	require.NoError(t, i18n.Init())

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		PrepareStmt: false,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.BudgetScheduleRule{},
		&models.BudgetExecutionLog{},
		&models.ScheduledCloneJob{},
		&models.ShopSyncStatus{},
		&models.Campaign{},
		&models.FlashSale{},
		&models.ShopPerformance{},
	))

	configManager := config.NewMockConfig()
	client := stubClient{}
	st := store.NewMemoryStore()
	t.Cleanup(func() { st.Close() })
	coordinator := syncsvc.NewCoordinator(db, client, st, configManager)

	server := handler.NewServer(handler.ServerParams{
		DB:            db,
		ConfigManager: configManager,
		RuleService:   scheduler.NewRuleService(db),
		Engine:        scheduler.NewEngine(db, client),
		CloneService:  clonejob.NewService(db, client, configManager),
		Coordinator:   coordinator,
		LogService:    services.NewLogService(db),
	})

	return &testEnv{
		router:      router.NewRouter(server, configManager),
		db:          db,
		coordinator: coordinator,
	}
}

func (e *testEnv) request(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer test-key")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeSuccess(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func validRulePayload() map[string]any {
	return map[string]any{
		"shop_id":       42,
		"campaign_id":   100,
		"campaign_type": models.CampaignTypeAuto,
		"hour_start":    9,
		"hour_end":      17,
		"budget":        50000,
		"recurrence": map[string]any{
			"kind":     "weekly",
			"weekdays": []int{0, 1, 2, 3, 4, 5, 6},
		},
	}
}

func TestAuthRequired(t *testing.T) {
	env := setupTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/rules?shop_id=42", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/rules?shop_id=42", nil)
	req.Header.Set("Authorization", "Bearer wrong-key")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealthBypassesAuth(t *testing.T) {
	env := setupTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateRule(t *testing.T) {
	env := setupTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/rules", validRulePayload())
	assert.Equal(t, http.StatusOK, w.Code)

	var count int64
	require.NoError(t, env.db.Model(&models.BudgetScheduleRule{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateRuleValidationError(t *testing.T) {
	env := setupTestEnv(t)

	payload := validRulePayload()
	payload["hour_start"] = 17
	payload["hour_end"] = 9

	w := env.request(t, http.MethodPost, "/api/rules", payload)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION_FAILED", resp["code"])
}

func TestListRulesRequiresShopID(t *testing.T) {
	env := setupTestEnv(t)

	w := env.request(t, http.MethodGet, "/api/rules", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListRulesPaginated(t *testing.T) {
	env := setupTestEnv(t)

	for i := 0; i < 3; i++ {
		payload := validRulePayload()
		payload["campaign_id"] = 100 + i
		w := env.request(t, http.MethodPost, "/api/rules", payload)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := env.request(t, http.MethodGet, "/api/rules?shop_id=42&page=1&page_size=2", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeSuccess(t, w)
	data := resp["data"].(map[string]any)
	items := data["items"].([]any)
	assert.Len(t, items, 2)
}

func TestUpdateRuleBudgetNotFound(t *testing.T) {
	env := setupTestEnv(t)

	w := env.request(t, http.MethodPut, "/api/rules/9999/budget", map[string]any{"budget": 1000})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeactivateRule(t *testing.T) {
	env := setupTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/rules", validRulePayload())
	require.Equal(t, http.StatusOK, w.Code)

	w = env.request(t, http.MethodDelete, "/api/rules/1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var rule models.BudgetScheduleRule
	require.NoError(t, env.db.First(&rule, 1).Error)
	assert.False(t, rule.IsActive)
}

func TestScheduleAndCancelCloneJob(t *testing.T) {
	env := setupTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/clone-jobs", map[string]any{
		"shop_id":              42,
		"source_flash_sale_id": 100,
		"target_time_slot_id":  555,
		"target_start_at":      time.Now().Add(2 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusOK, w.Code)

	var job models.ScheduledCloneJob
	require.NoError(t, env.db.First(&job).Error)
	assert.Equal(t, models.JobStatusPending, job.Status)

	w = env.request(t, http.MethodDelete, fmt.Sprintf("/api/clone-jobs/%d", job.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	err := env.db.First(&models.ScheduledCloneJob{}, job.ID).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRunCloneJobInvalidStateConflict(t *testing.T) {
	env := setupTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/clone-jobs", map[string]any{
		"shop_id":              42,
		"source_flash_sale_id": 100,
		"target_time_slot_id":  555,
		"target_start_at":      time.Now().Add(2 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusOK, w.Code)

	var job models.ScheduledCloneJob
	require.NoError(t, env.db.First(&job).Error)

	// Force-run completes the job, a second run is a state conflict.
	w = env.request(t, http.MethodPost, fmt.Sprintf("/api/clone-jobs/%d/run", job.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.request(t, http.MethodPost, fmt.Sprintf("/api/clone-jobs/%d/run", job.ID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSyncStatusAndTrigger(t *testing.T) {
	env := setupTestEnv(t)

	w := env.request(t, http.MethodGet, "/api/sync/status?shop_id=42", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeSuccess(t, w)
	status := resp["data"].(map[string]any)
	assert.Equal(t, false, status["is_syncing"])

	w = env.request(t, http.MethodPost, "/api/sync/trigger?shop_id=42", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	env.coordinator.Wait()

	w = env.request(t, http.MethodGet, "/api/sync/status?shop_id=42", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp = decodeSuccess(t, w)
	status = resp["data"].(map[string]any)
	assert.NotNil(t, status["campaigns_synced_at"])

	w = env.request(t, http.MethodGet, "/api/sync/progress?shop_id=42", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProcessDuePass(t *testing.T) {
	env := setupTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/scheduler/process-due", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestExportLogsCSV(t *testing.T) {
	env := setupTestEnv(t)

	w := env.request(t, http.MethodGet, "/api/logs/export?shop_id=42", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
}
