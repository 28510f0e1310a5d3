package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/moltboard/moltbot/db"
	"github.com/moltboard/moltbot/db/models"
)

func testScheduler(t *testing.T) (*Scheduler, *gorm.DB) {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	s, err := New(gdb, DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	return s, gdb
}

func seedJob(t *testing.T, gdb *gorm.DB, job models.AutomationJob) models.AutomationJob {
	t.Helper()
	if err := gdb.Create(&job).Error; err != nil {
		t.Fatalf("create job: %v", err)
	}
	return job
}

func TestEnqueueJobIfDue_QueuesAndAdvances(t *testing.T) {
	s, gdb := testScheduler(t)
	now := time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC).Unix()
	interval := int64(900)
	job := seedJob(t, gdb, models.AutomationJob{
		Name: "stuck scan", Kind: models.JobKindStuckScan, Enabled: true,
		IntervalSeconds: &interval, NextRunAt: &now,
	})

	queued, err := s.enqueueJobIfDue(context.Background(), job.ID, now)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if !queued {
		t.Fatal("expected a queued run")
	}

	var run models.AutomationRun
	if err := gdb.Where("job_id = ?", job.ID).First(&run).Error; err != nil {
		t.Fatalf("find run: %v", err)
	}
	if run.Status != StatusQueued || run.ScheduledFor != now {
		t.Fatalf("run = %+v", run)
	}

	var after models.AutomationJob
	if err := gdb.Where("id = ?", job.ID).First(&after).Error; err != nil {
		t.Fatalf("find job: %v", err)
	}
	if after.NextRunAt == nil || *after.NextRunAt != now+900 {
		t.Fatalf("next_run_at = %v", after.NextRunAt)
	}
	if after.LastRunAt == nil || *after.LastRunAt != now {
		t.Fatalf("last_run_at = %v", after.LastRunAt)
	}
}

func TestEnqueueJobIfDue_NotYetDue(t *testing.T) {
	s, gdb := testScheduler(t)
	now := time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC).Unix()
	future := now + 600
	interval := int64(900)
	job := seedJob(t, gdb, models.AutomationJob{
		Name: "stuck scan", Kind: models.JobKindStuckScan, Enabled: true,
		IntervalSeconds: &interval, NextRunAt: &future,
	})

	queued, err := s.enqueueJobIfDue(context.Background(), job.ID, now)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if queued {
		t.Fatal("job should not be due yet")
	}
}

func TestEnqueueJobIfDue_RunOnceDisables(t *testing.T) {
	s, gdb := testScheduler(t)
	now := time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC).Unix()
	job := seedJob(t, gdb, models.AutomationJob{
		Name: "one-off briefing", Kind: models.JobKindDailyBriefing, Enabled: true,
		RunOnce: true, NextRunAt: &now,
	})

	if _, err := s.enqueueJobIfDue(context.Background(), job.ID, now); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	var after models.AutomationJob
	if err := gdb.Where("id = ?", job.ID).First(&after).Error; err != nil {
		t.Fatalf("find job: %v", err)
	}
	if after.Enabled || after.NextRunAt != nil {
		t.Fatalf("job = %+v", after)
	}
}

func TestEnqueueJobIfDue_OverlapForbidSkips(t *testing.T) {
	s, gdb := testScheduler(t)
	now := time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC).Unix()
	interval := int64(900)
	job := seedJob(t, gdb, models.AutomationJob{
		Name: "stuck scan", Kind: models.JobKindStuckScan, Enabled: true,
		IntervalSeconds: &interval, NextRunAt: &now, OverlapPolicy: "forbid",
	})
	prior := models.AutomationRun{JobID: job.ID, Status: StatusRunning, ScheduledFor: now - 900}
	if err := gdb.Create(&prior).Error; err != nil {
		t.Fatalf("create prior run: %v", err)
	}

	queued, err := s.enqueueJobIfDue(context.Background(), job.ID, now)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if queued {
		t.Fatal("overlapping run must not queue")
	}

	var skipped models.AutomationRun
	if err := gdb.Where("job_id = ? AND status = ?", job.ID, StatusSkipped).First(&skipped).Error; err != nil {
		t.Fatalf("find skipped run: %v", err)
	}
	if skipped.Error == nil || *skipped.Error == "" {
		t.Fatal("skipped run should record a reason")
	}

	// The schedule still advances so the job fires again next interval.
	var after models.AutomationJob
	if err := gdb.Where("id = ?", job.ID).First(&after).Error; err != nil {
		t.Fatalf("find job: %v", err)
	}
	if after.NextRunAt == nil || *after.NextRunAt != now+900 {
		t.Fatalf("next_run_at = %v", after.NextRunAt)
	}
}

func TestRecoverOrphanedRuns(t *testing.T) {
	s, gdb := testScheduler(t)
	now := time.Now().UTC().Unix()
	interval := int64(900)
	job := seedJob(t, gdb, models.AutomationJob{
		Name: "stuck scan", Kind: models.JobKindStuckScan, Enabled: true,
		IntervalSeconds: &interval,
	})
	orphan := models.AutomationRun{JobID: job.ID, Status: StatusRunning, ScheduledFor: now - 60}
	if err := gdb.Create(&orphan).Error; err != nil {
		t.Fatalf("create orphan: %v", err)
	}

	if err := s.recoverOrphanedRuns(context.Background()); err != nil {
		t.Fatalf("recover: %v", err)
	}

	var after models.AutomationRun
	if err := gdb.Where("id = ?", orphan.ID).First(&after).Error; err != nil {
		t.Fatalf("find run: %v", err)
	}
	if after.Status != StatusFailed || after.FinishedAt == nil {
		t.Fatalf("run = %+v", after)
	}
}

func TestExecuteRun_DispatchesByKind(t *testing.T) {
	s, gdb := testScheduler(t)
	now := time.Now().UTC().Unix()
	job := seedJob(t, gdb, models.AutomationJob{
		Name: "stuck scan", Kind: models.JobKindStuckScan, Enabled: true,
	})
	run := models.AutomationRun{JobID: job.ID, Status: StatusRunning, ScheduledFor: now}
	if err := gdb.Create(&run).Error; err != nil {
		t.Fatalf("create run: %v", err)
	}

	called := false
	if err := s.Register(models.JobKindStuckScan, func(context.Context) (string, error) {
		called = true
		return "checked 4, stuck 1, alerts 1", nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := s.executeRun(context.Background(), 1, run); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !called {
		t.Fatal("runner not invoked")
	}

	var after models.AutomationRun
	if err := gdb.Where("id = ?", run.ID).First(&after).Error; err != nil {
		t.Fatalf("find run: %v", err)
	}
	if after.Status != StatusSuccess {
		t.Fatalf("status = %q", after.Status)
	}
	if after.ResultSummary == nil || *after.ResultSummary != "checked 4, stuck 1, alerts 1" {
		t.Fatalf("summary = %v", after.ResultSummary)
	}
}

func TestExecuteRun_UnregisteredKindFails(t *testing.T) {
	s, gdb := testScheduler(t)
	now := time.Now().UTC().Unix()
	job := seedJob(t, gdb, models.AutomationJob{
		Name: "mystery", Kind: "unknown_kind", Enabled: true,
	})
	run := models.AutomationRun{JobID: job.ID, Status: StatusRunning, ScheduledFor: now}
	if err := gdb.Create(&run).Error; err != nil {
		t.Fatalf("create run: %v", err)
	}

	if err := s.executeRun(context.Background(), 1, run); err != nil {
		t.Fatalf("execute: %v", err)
	}

	var after models.AutomationRun
	if err := gdb.Where("id = ?", run.ID).First(&after).Error; err != nil {
		t.Fatalf("find run: %v", err)
	}
	if after.Status != StatusFailed || after.Error == nil {
		t.Fatalf("run = %+v", after)
	}
}
