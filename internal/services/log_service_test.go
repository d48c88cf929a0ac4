package services

import (
	"bytes"
	"encoding/csv"
	"net/http/httptest"
	"testing"
	"time"

	"shopops/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
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

	err = db.AutoMigrate(&models.BudgetExecutionLog{})
	require.NoError(t, err)
	return db
}

func seedLog(t *testing.T, db *gorm.DB, shopID uint64, outcome, errMsg string, ts time.Time) *models.BudgetExecutionLog {
	t.Helper()
	ruleID := uint(1)
	log := &models.BudgetExecutionLog{
		ID:           uuid.NewString(),
		RuleID:       &ruleID,
		ShopID:       shopID,
		CampaignID:   100,
		Budget:       50000,
		Outcome:      outcome,
		HourBucket:   ts.Truncate(time.Hour),
		Timestamp:    ts,
		ErrorMessage: errMsg,
	}
	require.NoError(t, db.Create(log).Error)
	return log
}

func testContext(t *testing.T, query string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/api/logs?"+query, nil)
	return c
}

func TestGetLogsQueryFilters(t *testing.T) {
	db := setupTestDB(t)
	service := NewLogService(db)
	now := time.Now()

	seedLog(t, db, 42, models.OutcomeSuccess, "", now)
	seedLog(t, db, 42, models.OutcomeFailed, "rate limited by upstream", now.Add(-time.Hour))
	seedLog(t, db, 77, models.OutcomeSuccess, "", now)

	var logs []models.BudgetExecutionLog
	require.NoError(t, service.GetLogsQuery(testContext(t, "shop_id=42")).Find(&logs).Error)
	assert.Len(t, logs, 2)

	logs = nil
	require.NoError(t, service.GetLogsQuery(testContext(t, "shop_id=42&outcome=failed")).Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, models.OutcomeFailed, logs[0].Outcome)

	logs = nil
	require.NoError(t, service.GetLogsQuery(testContext(t, "error_contains=rate+limited")).Find(&logs).Error)
	assert.Len(t, logs, 1)

	logs = nil
	cutoff := now.Add(-30 * time.Minute).Format(time.RFC3339)
	require.NoError(t, service.GetLogsQuery(testContext(t, "shop_id=42&start_time="+cutoff)).Find(&logs).Error)
	assert.Len(t, logs, 1)
}

func TestGetLogsQueryEscapesLikeWildcards(t *testing.T) {
	db := setupTestDB(t)
	service := NewLogService(db)
	now := time.Now()

	seedLog(t, db, 42, models.OutcomeFailed, "budget 100% consumed", now)
	seedLog(t, db, 42, models.OutcomeFailed, "campaign archived", now)

	// A literal % must not act as a wildcard.
	var logs []models.BudgetExecutionLog
	require.NoError(t, service.GetLogsQuery(testContext(t, "error_contains=100%25")).Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Contains(t, logs[0].ErrorMessage, "100%")
}

func TestStreamLogsToCSV(t *testing.T) {
	db := setupTestDB(t)
	service := NewLogService(db)
	now := time.Now()

	seedLog(t, db, 42, models.OutcomeSuccess, "", now)
	seedLog(t, db, 42, models.OutcomeSkipped, "", now.Add(-time.Hour))

	var buf bytes.Buffer
	require.NoError(t, service.StreamLogsToCSV(testContext(t, "shop_id=42"), &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3) // header + 2 rows
	assert.Equal(t, "id", records[0][0])
	assert.Equal(t, "outcome", records[0][5])
	// Newest first.
	assert.Equal(t, models.OutcomeSuccess, records[1][5])
	assert.Equal(t, models.OutcomeSkipped, records[2][5])
}
