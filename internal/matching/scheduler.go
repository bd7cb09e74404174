package matching

import (
	"context"
	"log"
	"time"
)

// SchedulerConfig carries the run times for the background jobs.
type SchedulerConfig struct {
	ScheduleSweepHour int
	ProfileSweepHour  int
	DigestWeekday     time.Weekday
	DigestHour        int
	ReminderHour      int
}

// Scheduler runs the background sweeps and digests on fixed local times.
type Scheduler struct {
	orchestrator *Orchestrator
	cfg          SchedulerConfig
}

func NewScheduler(orchestrator *Orchestrator, cfg SchedulerConfig) *Scheduler {
	return &Scheduler{orchestrator: orchestrator, cfg: cfg}
}

func (s *Scheduler) Start(ctx context.Context) {
	// Full schedule-axis sweep nightly
	go s.runDaily(ctx, s.cfg.ScheduleSweepHour, 0, s.orchestrator.RunScheduleSweep)

	// Profile-axis proposals one hour later so the two sweeps don't contend
	go s.runDaily(ctx, s.cfg.ProfileSweepHour, 0, s.orchestrator.RunProfileSweep)

	// Week-ahead digest once a week
	go s.runWeekly(ctx, s.cfg.DigestWeekday, s.cfg.DigestHour, 0, s.orchestrator.RunWeeklyDigest)

	// Day-before playdate reminders every evening
	go s.runDaily(ctx, s.cfg.ReminderHour, 0, s.orchestrator.RunDayBeforeReminders)
}

func (s *Scheduler) runDaily(ctx context.Context, hour, minute int, task func(context.Context)) {
	for {
		now := time.Now()
		next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
		if now.After(next) {
			next = next.Add(24 * time.Hour)
		}

		timer := time.NewTimer(next.Sub(now))

		select {
		case <-timer.C:
			task(ctx)
		case <-ctx.Done():
			timer.Stop()
			log.Println("matching: scheduler stopping")
			return
		}
	}
}

func (s *Scheduler) runWeekly(ctx context.Context, weekday time.Weekday, hour, minute int, task func(context.Context)) {
	for {
		now := time.Now()
		next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
		for next.Weekday() != weekday || now.After(next) {
			next = next.Add(24 * time.Hour)
		}

		timer := time.NewTimer(next.Sub(now))

		select {
		case <-timer.C:
			task(ctx)
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}
