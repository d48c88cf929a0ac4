// Package services hosts cross-cutting services around the persisted
// records: execution log querying/export and retention cleanup.
package services

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"shopops/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const likeEscapeChar = "!"

// LogService provides querying over the append-only execution log.
type LogService struct {
	DB *gorm.DB
}

// NewLogService creates a new LogService.
func NewLogService(db *gorm.DB) *LogService {
	return &LogService{DB: db}
}

// escapeLike escapes special characters in LIKE pattern.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, likeEscapeChar, likeEscapeChar+likeEscapeChar)
	s = strings.ReplaceAll(s, "%", likeEscapeChar+"%")
	s = strings.ReplaceAll(s, "_", likeEscapeChar+"_")
	return s
}

// logFiltersScope returns a GORM scope applying filters from the request.
func (s *LogService) logFiltersScope(c *gin.Context) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if shopIDStr := c.Query("shop_id"); shopIDStr != "" {
			if shopID, err := strconv.ParseUint(shopIDStr, 10, 64); err == nil {
				db = db.Where("shop_id = ?", shopID)
			}
		}
		if campaignIDStr := c.Query("campaign_id"); campaignIDStr != "" {
			if campaignID, err := strconv.ParseUint(campaignIDStr, 10, 64); err == nil {
				db = db.Where("campaign_id = ?", campaignID)
			}
		}
		if ruleIDStr := c.Query("rule_id"); ruleIDStr != "" {
			if ruleID, err := strconv.ParseUint(ruleIDStr, 10, 32); err == nil {
				db = db.Where("rule_id = ?", uint(ruleID))
			}
		}
		if outcome := c.Query("outcome"); outcome != "" {
			db = db.Where("outcome = ?", outcome)
		}
		if errorContains := c.Query("error_contains"); errorContains != "" {
			db = db.Where("error_message LIKE ? ESCAPE '!'", "%"+escapeLike(errorContains)+"%")
		}
		if startTimeStr := c.Query("start_time"); startTimeStr != "" {
			if startTime, err := time.Parse(time.RFC3339, startTimeStr); err == nil {
				db = db.Where("timestamp >= ?", startTime)
			}
		}
		if endTimeStr := c.Query("end_time"); endTimeStr != "" {
			if endTime, err := time.Parse(time.RFC3339, endTimeStr); err == nil {
				db = db.Where("timestamp <= ?", endTime)
			}
		}
		return db
	}
}

// GetLogsQuery returns a GORM query for fetching execution logs with
// filters applied.
func (s *LogService) GetLogsQuery(c *gin.Context) *gorm.DB {
	return s.DB.Model(&models.BudgetExecutionLog{}).Scopes(s.logFiltersScope(c))
}

// StreamLogsToCSV streams the filtered execution logs as a CSV document.
func (s *LogService) StreamLogsToCSV(c *gin.Context, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	defer csvWriter.Flush()

	header := []string{"id", "rule_id", "shop_id", "campaign_id", "budget", "outcome", "hour_bucket", "timestamp", "error_message"}
	if err := csvWriter.Write(header); err != nil {
		return err
	}

	rows, err := s.GetLogsQuery(c).Order("timestamp desc").Rows()
	if err != nil {
		return err
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var log models.BudgetExecutionLog
		if err := s.DB.ScanRows(rows, &log); err != nil {
			return err
		}
		ruleID := ""
		if log.RuleID != nil {
			ruleID = strconv.FormatUint(uint64(*log.RuleID), 10)
		}
		record := []string{
			log.ID,
			ruleID,
			strconv.FormatUint(log.ShopID, 10),
			strconv.FormatUint(log.CampaignID, 10),
			strconv.FormatInt(log.Budget, 10),
			log.Outcome,
			log.HourBucket.Format(time.RFC3339),
			log.Timestamp.Format(time.RFC3339),
			log.ErrorMessage,
		}
		if err := csvWriter.Write(record); err != nil {
			return err
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return err
	}

	logrus.WithField("count", count).Debug("Streamed execution logs to CSV")
	return nil
}
