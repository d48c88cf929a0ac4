package clonejob

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"shopops/internal/marketplace"
	"shopops/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func scheduleJob(t *testing.T, service *Service, targetStartAt time.Time) *models.ScheduledCloneJob {
	t.Helper()
	job, err := service.Schedule(context.Background(), &ScheduleRequest{
		ShopID:            42,
		SourceFlashSaleID: 100,
		TargetTimeSlotID:  555,
		TargetStartAt:     targetStartAt,
	})
	require.NoError(t, err)
	return job
}

func reloadJob(t *testing.T, db *gorm.DB, id uint) *models.ScheduledCloneJob {
	t.Helper()
	var job models.ScheduledCloneJob
	require.NoError(t, db.First(&job, id).Error)
	return &job
}

func TestScheduleComputesLeadTime(t *testing.T) {
	service, _, _ := newTestService(t)
	targetStartAt := time.Now().Add(2 * time.Hour)

	job := scheduleJob(t, service, targetStartAt)

	assert.Equal(t, models.JobStatusPending, job.Status)
	// Default lead is 10 minutes.
	assert.True(t, job.ScheduledAt.Equal(targetStartAt.Add(-10*time.Minute)))
}

func TestScheduleExplicitLeadOverride(t *testing.T) {
	service, _, _ := newTestService(t)
	targetStartAt := time.Now().Add(2 * time.Hour)

	job, err := service.Schedule(context.Background(), &ScheduleRequest{
		ShopID:            42,
		SourceFlashSaleID: 100,
		TargetTimeSlotID:  555,
		TargetStartAt:     targetStartAt,
		LeadMinutes:       30,
	})
	require.NoError(t, err)
	assert.True(t, job.ScheduledAt.Equal(targetStartAt.Add(-30*time.Minute)))
}

func TestScheduleCapturesSourcePayload(t *testing.T) {
	service, client, _ := newTestService(t)

	job := scheduleJob(t, service, time.Now().Add(time.Hour))

	var items []marketplace.FlashSaleItem
	require.NoError(t, json.Unmarshal(job.ItemsPayload, &items))
	assert.Equal(t, client.sourceItems, items)
}

func TestScheduleRejectsEmptySource(t *testing.T) {
	service, client, _ := newTestService(t)
	client.sourceItems = nil

	_, err := service.Schedule(context.Background(), &ScheduleRequest{
		ShopID:            42,
		SourceFlashSaleID: 100,
		TargetTimeSlotID:  555,
		TargetStartAt:     time.Now().Add(time.Hour),
	})
	assert.Error(t, err)
}

func TestListDue(t *testing.T) {
	service, _, _ := newTestService(t)
	now := time.Now()

	due := scheduleJob(t, service, now.Add(5*time.Minute)) // scheduled 5m ago
	notDue := scheduleJob(t, service, now.Add(3*time.Hour))

	jobs, err := service.ListDue(now)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, due.ID, jobs[0].ID)
	assert.NotEqual(t, notDue.ID, jobs[0].ID)
}

func TestRunCompletesJob(t *testing.T) {
	service, client, db := newTestService(t)
	job := scheduleJob(t, service, time.Now().Add(5*time.Minute))

	done, err := service.Run(context.Background(), job.ID)
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusCompleted, done.Status)
	require.NotNil(t, done.ResultFlashSaleID)
	assert.Equal(t, 1, client.createCnt)
	assert.Equal(t, client.sourceItems, client.added[*done.ResultFlashSaleID])

	persisted := reloadJob(t, db, job.ID)
	assert.Equal(t, models.JobStatusCompleted, persisted.Status)
}

func TestRunRejectsEarlyJob(t *testing.T) {
	service, _, db := newTestService(t)
	job := scheduleJob(t, service, time.Now().Add(3*time.Hour))

	_, err := service.Run(context.Background(), job.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, models.JobStatusPending, reloadJob(t, db, job.ID).Status)
}

func TestForceRunBypassesSchedule(t *testing.T) {
	service, _, _ := newTestService(t)
	job := scheduleJob(t, service, time.Now().Add(3*time.Hour))

	done, err := service.ForceRun(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, done.Status)
}

func TestRunRejectsNonPendingJob(t *testing.T) {
	service, _, _ := newTestService(t)
	job := scheduleJob(t, service, time.Now().Add(5*time.Minute))

	_, err := service.Run(context.Background(), job.ID)
	require.NoError(t, err)

	_, err = service.Run(context.Background(), job.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestRunMissingJob(t *testing.T) {
	service, _, _ := newTestService(t)

	_, err := service.Run(context.Background(), 9999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRunCreateFailureEndsFailed(t *testing.T) {
	service, client, db := newTestService(t)
	client.createErr = fmt.Errorf("slot unavailable")
	job := scheduleJob(t, service, time.Now().Add(5*time.Minute))

	done, err := service.Run(context.Background(), job.ID)
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusFailed, done.Status)
	assert.Contains(t, done.ResultMessage, "slot unavailable")
	assert.Nil(t, done.ResultFlashSaleID)

	// Never left running.
	assert.Equal(t, models.JobStatusFailed, reloadJob(t, db, job.ID).Status)
}

func TestRunPopulateFailureCompensates(t *testing.T) {
	service, client, db := newTestService(t)
	client.addErr = fmt.Errorf("item rejected")
	job := scheduleJob(t, service, time.Now().Add(5*time.Minute))

	done, err := service.Run(context.Background(), job.ID)
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusFailed, done.Status)
	assert.Contains(t, done.ResultMessage, "item population failed")
	// The message still names the deleted promotion even though the
	// persisted id was cleared by the successful cleanup.
	assert.Contains(t, done.ResultMessage, "flash sale 9001")
	require.Len(t, client.deleted, 1)
	persisted := reloadJob(t, db, job.ID)
	assert.Nil(t, persisted.ResultFlashSaleID)
	// Terminal state is reached, never left running.
	assert.Equal(t, models.JobStatusFailed, persisted.Status)
}

func TestRequeueResumesAtPopulateStep(t *testing.T) {
	service, client, db := newTestService(t)
	client.addErr = fmt.Errorf("item rejected")
	client.deleteErr = fmt.Errorf("delete unavailable")
	job := scheduleJob(t, service, time.Now().Add(5*time.Minute))

	done, err := service.Run(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, models.JobStatusFailed, done.Status)
	// Compensation failed, so the created promotion id survives.
	require.NotNil(t, reloadJob(t, db, job.ID).ResultFlashSaleID)

	require.NoError(t, service.Requeue(job.ID))
	requeued := reloadJob(t, db, job.ID)
	assert.Equal(t, models.JobStatusPending, requeued.Status)
	assert.Empty(t, requeued.ResultMessage)
	assert.NotNil(t, requeued.ResultFlashSaleID)

	client.addErr = nil
	done, err = service.Run(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, done.Status)
	// The second attempt reused the existing promotion.
	assert.Equal(t, 1, client.createCnt)
}

func TestRequeueRequiresFailedState(t *testing.T) {
	service, _, _ := newTestService(t)
	job := scheduleJob(t, service, time.Now().Add(time.Hour))

	assert.ErrorIs(t, service.Requeue(job.ID), ErrInvalidState)
	assert.ErrorIs(t, service.Requeue(9999), gorm.ErrRecordNotFound)
}

func TestCancelPendingOnly(t *testing.T) {
	service, _, db := newTestService(t)
	job := scheduleJob(t, service, time.Now().Add(time.Hour))

	require.NoError(t, service.Cancel(job.ID))
	err := db.First(&models.ScheduledCloneJob{}, job.ID).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	completed := scheduleJob(t, service, time.Now().Add(5*time.Minute))
	_, err = service.Run(context.Background(), completed.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, service.Cancel(completed.ID), ErrInvalidState)
}

func TestUpdateSchedulePendingOnly(t *testing.T) {
	service, _, db := newTestService(t)
	job := scheduleJob(t, service, time.Now().Add(time.Hour))

	newTime := time.Now().Add(30 * time.Minute)
	require.NoError(t, service.UpdateSchedule(job.ID, newTime))
	assert.True(t, reloadJob(t, db, job.ID).ScheduledAt.Equal(newTime))

	completed := scheduleJob(t, service, time.Now().Add(5*time.Minute))
	_, err := service.Run(context.Background(), completed.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, service.UpdateSchedule(completed.ID, newTime), ErrInvalidState)
}

func TestListQueryFilters(t *testing.T) {
	service, _, _ := newTestService(t)
	scheduleJob(t, service, time.Now().Add(time.Hour))
	ran := scheduleJob(t, service, time.Now().Add(5*time.Minute))
	_, err := service.Run(context.Background(), ran.ID)
	require.NoError(t, err)

	var jobs []models.ScheduledCloneJob
	require.NoError(t, service.ListQuery(42, "").Find(&jobs).Error)
	assert.Len(t, jobs, 2)

	jobs = nil
	require.NoError(t, service.ListQuery(42, models.JobStatusCompleted).Find(&jobs).Error)
	require.Len(t, jobs, 1)
	assert.Equal(t, ran.ID, jobs[0].ID)
}
