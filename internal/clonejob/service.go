// Package clonejob implements one-shot deferred flash sale clone jobs and
// their pending → running → {completed, failed} state machine.
package clonejob

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"shopops/internal/marketplace"
	"shopops/internal/models"
	"shopops/internal/types"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrInvalidState is returned when an operation is attempted on a job
// outside the state it requires.
var ErrInvalidState = fmt.Errorf("clonejob: operation not allowed in current state")

// ScheduleRequest describes a new clone job.
type ScheduleRequest struct {
	ShopID            uint64    `json:"shop_id"`
	SourceFlashSaleID int64     `json:"source_flash_sale_id"`
	TargetTimeSlotID  int64     `json:"target_time_slot_id"`
	TargetStartAt     time.Time `json:"target_start_at"`
	// LeadMinutes overrides the configured default lead time when > 0.
	LeadMinutes int `json:"lead_minutes"`
}

// Service owns the clone job lifecycle.
type Service struct {
	DB                 *gorm.DB
	Client             marketplace.Client
	defaultLeadMinutes int
}

// NewService creates a new clone job Service.
func NewService(db *gorm.DB, client marketplace.Client, configManager types.ConfigManager) *Service {
	return &Service{
		DB:                 db,
		Client:             client,
		defaultLeadMinutes: configManager.GetSchedulerConfig().CloneLeadMinutes,
	}
}

// Schedule computes scheduled_at = target start − lead time, captures the
// source item payload, and inserts the job as pending. scheduled_at is
// fixed here; only UpdateSchedule may move it, and only while pending.
func (s *Service) Schedule(ctx context.Context, req *ScheduleRequest) (*models.ScheduledCloneJob, error) {
	if req.ShopID == 0 || req.SourceFlashSaleID == 0 || req.TargetTimeSlotID == 0 {
		return nil, fmt.Errorf("shop_id, source_flash_sale_id and target_time_slot_id are required")
	}
	if req.TargetStartAt.IsZero() {
		return nil, fmt.Errorf("target_start_at is required")
	}
	lead := req.LeadMinutes
	if lead <= 0 {
		lead = s.defaultLeadMinutes
	}

	items, err := s.Client.GetFlashSaleItems(ctx, req.ShopID, req.SourceFlashSaleID)
	if err != nil {
		return nil, fmt.Errorf("failed to capture source payload: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("source flash sale %d has no items", req.SourceFlashSaleID)
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	job := &models.ScheduledCloneJob{
		ShopID:            req.ShopID,
		SourceFlashSaleID: req.SourceFlashSaleID,
		TargetTimeSlotID:  req.TargetTimeSlotID,
		TargetStartAt:     req.TargetStartAt,
		ScheduledAt:       req.TargetStartAt.Add(-time.Duration(lead) * time.Minute),
		Status:            models.JobStatusPending,
		ItemsPayload:      payload,
	}
	if err := s.DB.Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

// ListDue returns all pending jobs whose scheduled_at has passed.
func (s *Service) ListDue(now time.Time) ([]models.ScheduledCloneJob, error) {
	var jobs []models.ScheduledCloneJob
	err := s.DB.Where("status = ? AND scheduled_at <= ?", models.JobStatusPending, now).
		Find(&jobs).Error
	return jobs, err
}

// Run picks up a due pending job and executes it. The pending → running
// transition is a conditional update guarded on both status and
// scheduled_at, so concurrent runners cannot claim the same job and an
// early job cannot be started by accident.
func (s *Service) Run(ctx context.Context, jobID uint) (*models.ScheduledCloneJob, error) {
	return s.run(ctx, jobID, false)
}

// ForceRun is Run without the scheduled_at gate, for explicit operator
// override. The state transition rules are unchanged: pending only.
func (s *Service) ForceRun(ctx context.Context, jobID uint) (*models.ScheduledCloneJob, error) {
	return s.run(ctx, jobID, true)
}

func (s *Service) run(ctx context.Context, jobID uint, force bool) (*models.ScheduledCloneJob, error) {
	claim := s.DB.Model(&models.ScheduledCloneJob{}).
		Where("id = ? AND status = ?", jobID, models.JobStatusPending)
	if !force {
		claim = claim.Where("scheduled_at <= ?", time.Now())
	}
	res := claim.Update("status", models.JobStatusRunning)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if err := s.DB.First(&models.ScheduledCloneJob{}, jobID).Error; err != nil {
			return nil, err
		}
		return nil, ErrInvalidState
	}

	var job models.ScheduledCloneJob
	if err := s.DB.First(&job, jobID).Error; err != nil {
		return nil, err
	}

	s.execute(ctx, &job)
	return &job, nil
}

// execute performs the two non-transactional steps: create the target
// promotion, then populate it. The created promotion's id is persisted
// before step 2 so a requeued job resumes at the populate step instead of
// leaving a trail of empty promotions. The job always reaches a terminal
// state before execute returns.
func (s *Service) execute(ctx context.Context, job *models.ScheduledCloneJob) {
	var items []marketplace.FlashSaleItem
	if err := json.Unmarshal(job.ItemsPayload, &items); err != nil {
		s.finishFailed(job, fmt.Sprintf("corrupt item payload: %v", err))
		return
	}

	if job.ResultFlashSaleID == nil {
		flashSaleID, err := s.Client.CreateFlashSale(ctx, job.ShopID, job.TargetTimeSlotID)
		if err != nil {
			s.finishFailed(job, fmt.Sprintf("failed to create flash sale for time slot %d: %v", job.TargetTimeSlotID, err))
			return
		}
		job.ResultFlashSaleID = &flashSaleID
		if err := s.DB.Model(job).UpdateColumn("result_flash_sale_id", flashSaleID).Error; err != nil {
			logrus.WithError(err).WithField("job_id", job.ID).Error("CloneJob: failed to persist created flash sale id")
		}
	}

	if err := s.Client.AddFlashSaleItems(ctx, job.ShopID, *job.ResultFlashSaleID, items); err != nil {
		// compensate may clear the persisted id; keep it for the message.
		flashSaleID := *job.ResultFlashSaleID
		s.compensate(job)
		s.finishFailed(job, fmt.Sprintf("flash sale %d created but item population failed: %v", flashSaleID, err))
		return
	}

	s.finish(job, models.JobStatusCompleted, fmt.Sprintf("cloned %d items from flash sale %d", len(items), job.SourceFlashSaleID))
}

// compensate attempts to delete the half-created empty promotion. Cleanup
// is best effort: on success the persisted id is cleared so a requeue
// starts over at step 1, on failure the id stays so the failure message
// and a later requeue can target the existing artifact.
func (s *Service) compensate(job *models.ScheduledCloneJob) {
	cleanupCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.Client.DeleteFlashSale(cleanupCtx, job.ShopID, *job.ResultFlashSaleID); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"job_id":        job.ID,
			"flash_sale_id": *job.ResultFlashSaleID,
		}).Warn("CloneJob: compensating delete failed, empty flash sale left behind")
		return
	}
	job.ResultFlashSaleID = nil
	if err := s.DB.Model(job).UpdateColumn("result_flash_sale_id", nil).Error; err != nil {
		logrus.WithError(err).WithField("job_id", job.ID).Error("CloneJob: failed to clear flash sale id after cleanup")
	}
}

func (s *Service) finishFailed(job *models.ScheduledCloneJob, message string) {
	s.finish(job, models.JobStatusFailed, message)
}

func (s *Service) finish(job *models.ScheduledCloneJob, status, message string) {
	job.Status = status
	job.ResultMessage = message
	updates := map[string]any{
		"status":         status,
		"result_message": message,
	}
	if err := s.DB.Model(&models.ScheduledCloneJob{}).
		Where("id = ? AND status = ?", job.ID, models.JobStatusRunning).
		Updates(updates).Error; err != nil {
		logrus.WithError(err).WithField("job_id", job.ID).Error("CloneJob: failed to persist terminal state")
	}
	if status == models.JobStatusFailed {
		logrus.WithFields(logrus.Fields{"job_id": job.ID, "message": message}).Warn("CloneJob: job failed")
	} else {
		logrus.WithFields(logrus.Fields{"job_id": job.ID}).Info("CloneJob: job completed")
	}
}

// Cancel removes a pending job. No cancelled record is retained.
func (s *Service) Cancel(jobID uint) error {
	res := s.DB.Where("id = ? AND status = ?", jobID, models.JobStatusPending).
		Delete(&models.ScheduledCloneJob{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if err := s.DB.First(&models.ScheduledCloneJob{}, jobID).Error; err != nil {
			return err
		}
		return ErrInvalidState
	}
	return nil
}

// UpdateSchedule replaces scheduled_at on a pending job.
func (s *Service) UpdateSchedule(jobID uint, scheduledAt time.Time) error {
	res := s.DB.Model(&models.ScheduledCloneJob{}).
		Where("id = ? AND status = ?", jobID, models.JobStatusPending).
		Update("scheduled_at", scheduledAt)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if err := s.DB.First(&models.ScheduledCloneJob{}, jobID).Error; err != nil {
			return err
		}
		return ErrInvalidState
	}
	return nil
}

// Requeue moves a failed job back to pending for another attempt. The
// persisted result_flash_sale_id is kept so execution resumes at the
// populate step.
func (s *Service) Requeue(jobID uint) error {
	res := s.DB.Model(&models.ScheduledCloneJob{}).
		Where("id = ? AND status = ?", jobID, models.JobStatusFailed).
		Updates(map[string]any{
			"status":         models.JobStatusPending,
			"result_message": "",
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if err := s.DB.First(&models.ScheduledCloneJob{}, jobID).Error; err != nil {
			return err
		}
		return ErrInvalidState
	}
	return nil
}

// ListQuery returns a query for a shop's jobs, newest first.
func (s *Service) ListQuery(shopID uint64, status string) *gorm.DB {
	query := s.DB.Model(&models.ScheduledCloneJob{}).
		Where("shop_id = ?", shopID).
		Order("created_at DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	return query
}
