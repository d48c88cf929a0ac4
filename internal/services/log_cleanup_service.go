package services

import (
	"context"
	"sync"
	"time"

	"shopops/internal/models"
	"shopops/internal/types"
	"shopops/internal/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// LogCleanupService deletes execution log rows past the retention window.
type LogCleanupService struct {
	db            *gorm.DB
	configManager types.ConfigManager
	stopCh        chan struct{}
	wg            sync.WaitGroup
}

// NewLogCleanupService creates a new log cleanup service.
func NewLogCleanupService(db *gorm.DB, configManager types.ConfigManager) *LogCleanupService {
	return &LogCleanupService{
		db:            db,
		configManager: configManager,
		stopCh:        make(chan struct{}),
	}
}

// Start starts the cleanup loop.
func (s *LogCleanupService) Start() {
	s.wg.Add(1)
	go s.run()
	logrus.Debug("Log cleanup service started")
}

// Stop stops the cleanup loop gracefully.
func (s *LogCleanupService) Stop(ctx context.Context) {
	close(s.stopCh)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logrus.Info("LogCleanupService stopped gracefully.")
	case <-ctx.Done():
		logrus.Warn("LogCleanupService stop timed out.")
	}
}

func (s *LogCleanupService) run() {
	defer s.wg.Done()
	ticker := time.NewTicker(2 * time.Hour)
	defer ticker.Stop()

	// Initial cleanup on startup.
	s.cleanupExpiredLogs()

	for {
		select {
		case <-ticker.C:
			s.cleanupExpiredLogs()
		case <-s.stopCh:
			return
		}
	}
}

// cleanupExpiredLogs deletes expired rows in time-indexed batches to keep
// lock windows short.
func (s *LogCleanupService) cleanupExpiredLogs() {
	retentionDays := s.configManager.GetSchedulerConfig().ExecutionLogRetentionDays
	if retentionDays <= 0 {
		logrus.Debug("Execution log retention is disabled (retention_days <= 0)")
		return
	}

	cutoffTime := time.Now().AddDate(0, 0, -retentionDays).UTC()

	const batchSize = 2000
	totalDeleted := int64(0)
	dialect := s.db.Dialector.Name()

	for {
		batchCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		var result *gorm.DB
		switch dialect {
		case "postgres":
			// PostgreSQL does not support LIMIT in DELETE directly.
			result = s.db.WithContext(batchCtx).Exec(`
				WITH c AS (
					SELECT id
					FROM budget_execution_logs
					WHERE timestamp < ?
					ORDER BY timestamp
					LIMIT ?
				)
				DELETE FROM budget_execution_logs
				WHERE id IN (SELECT id FROM c)
			`, cutoffTime, batchSize)
		case "mysql":
			result = s.db.WithContext(batchCtx).Exec(
				"DELETE FROM budget_execution_logs WHERE timestamp < ? ORDER BY timestamp LIMIT ?",
				cutoffTime,
				batchSize,
			)
		case "sqlite":
			result = s.db.WithContext(batchCtx).Exec(
				"DELETE FROM budget_execution_logs WHERE rowid IN (SELECT rowid FROM budget_execution_logs WHERE timestamp < ? LIMIT ?)",
				cutoffTime,
				batchSize,
			)
		default:
			logrus.Warnf("Log cleanup using fallback deletion for unsupported dialect: %s", dialect)
			result = s.db.WithContext(batchCtx).Where("timestamp < ?", cutoffTime).Limit(batchSize).Delete(&models.BudgetExecutionLog{})
		}
		cancel()

		if result.Error != nil {
			if utils.IsTransientDBError(result.Error) {
				logrus.WithError(result.Error).Warn("Cleanup of expired execution logs hit a transient DB error")
				return
			}
			logrus.WithError(result.Error).Error("Failed to cleanup expired execution logs")
			return
		}

		deletedCount := result.RowsAffected
		totalDeleted += deletedCount

		if deletedCount < int64(batchSize) {
			break
		}

		// Short jittered pause between batches to reduce lock contention.
		time.Sleep(50*time.Millisecond + utils.Jitter(50*time.Millisecond))
	}

	if totalDeleted > 0 {
		logrus.WithFields(logrus.Fields{
			"deleted_count":  totalDeleted,
			"cutoff_time":    cutoffTime.Format(time.RFC3339),
			"retention_days": retentionDays,
		}).Info("Cleaned up expired execution logs")
	} else {
		logrus.Debug("No expired execution logs found to cleanup")
	}
}
