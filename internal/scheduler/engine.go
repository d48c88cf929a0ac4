package scheduler

import (
	"context"
	"fmt"
	"time"

	"shopops/internal/marketplace"
	"shopops/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ExecutionSummary reports the outcome counts of a ProcessDue pass.
type ExecutionSummary struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Engine consumes due rules and applies their budgets against the
// marketplace, recording one immutable execution log row per attempt.
type Engine struct {
	DB     *gorm.DB
	Client marketplace.Client
}

// NewEngine creates a new Engine.
func NewEngine(db *gorm.DB, client marketplace.Client) *Engine {
	return &Engine{DB: db, Client: client}
}

// ProcessDue evaluates all active rules at the given instant and executes
// the due ones. Each rule is isolated: one failure never aborts the pass.
// Failures are recorded and naturally retried on the next pass; nothing is
// retried within a pass. Re-invocations inside the same hour bucket are
// idempotent: a prior success (or at-target skip) row for the
// (rule, hour bucket) pair suppresses re-execution.
func (e *Engine) ProcessDue(ctx context.Context, now time.Time) (ExecutionSummary, error) {
	var summary ExecutionSummary

	var rules []models.BudgetScheduleRule
	if err := e.DB.Where("is_active = ?", true).Find(&rules).Error; err != nil {
		return summary, fmt.Errorf("failed to load rules: %w", err)
	}

	due := DueRules(rules, now)
	if len(due) == 0 {
		return summary, nil
	}

	bucket := now.Truncate(time.Hour)
	logrus.WithFields(logrus.Fields{
		"due_rules":   len(due),
		"hour_bucket": bucket.Format(time.RFC3339),
	}).Debug("Engine: processing due budget rules")

	for i := range due {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		e.executeRule(ctx, &due[i], bucket, &summary)
	}

	logrus.WithFields(logrus.Fields{
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
		"skipped":   summary.Skipped,
	}).Info("Engine: budget pass finished")
	return summary, nil
}

func (e *Engine) executeRule(ctx context.Context, rule *models.BudgetScheduleRule, bucket time.Time, summary *ExecutionSummary) {
	done, err := e.alreadyExecuted(rule.ID, bucket)
	if err != nil {
		// An infrastructure failure, not an at-target skip: count it as
		// failed so operators can tell the two apart. The rule retries on
		// the next pass.
		logrus.WithError(err).WithField("rule_id", rule.ID).Error("Engine: idempotency check failed, deferring rule")
		summary.Failed++
		return
	}
	if done {
		summary.Skipped++
		return
	}

	// Budget lookup is an optimization: when the campaign is already at
	// target the mutation is skipped. A lookup failure falls through to
	// the mutation attempt.
	if current, err := e.Client.GetCampaignBudget(ctx, rule.ShopID, rule.CampaignID); err == nil && current == rule.Budget {
		e.appendLog(rule, bucket, models.OutcomeSkipped, "campaign already at target budget")
		summary.Skipped++
		return
	}

	if err := e.Client.SetCampaignBudget(ctx, rule.ShopID, rule.CampaignID, rule.Budget); err != nil {
		e.appendLog(rule, bucket, models.OutcomeFailed, err.Error())
		summary.Failed++
		if marketplace.IsRateLimited(err) {
			logrus.WithField("campaign_id", rule.CampaignID).Warn("Engine: rate limited, deferring to next pass")
		}
		return
	}

	e.appendLog(rule, bucket, models.OutcomeSuccess, "")
	summary.Succeeded++
}

// alreadyExecuted reports whether the rule already has a success or
// at-target skip row inside the hour bucket.
func (e *Engine) alreadyExecuted(ruleID uint, bucket time.Time) (bool, error) {
	var count int64
	err := e.DB.Model(&models.BudgetExecutionLog{}).
		Where("rule_id = ? AND hour_bucket = ? AND outcome IN ?", ruleID, bucket, []string{models.OutcomeSuccess, models.OutcomeSkipped}).
		Count(&count).Error
	return count > 0, err
}

func (e *Engine) appendLog(rule *models.BudgetScheduleRule, bucket time.Time, outcome, errText string) {
	ruleID := rule.ID
	entry := models.BudgetExecutionLog{
		ID:           uuid.NewString(),
		RuleID:       &ruleID,
		ShopID:       rule.ShopID,
		CampaignID:   rule.CampaignID,
		Budget:       rule.Budget,
		Outcome:      outcome,
		HourBucket:   bucket,
		Timestamp:    time.Now(),
		ErrorMessage: errText,
	}
	if err := e.DB.Create(&entry).Error; err != nil {
		logrus.WithError(err).WithField("rule_id", rule.ID).Error("Engine: failed to append execution log")
	}
}
