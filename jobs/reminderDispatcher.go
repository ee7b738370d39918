package jobs

import (
	"HealPing/cache"
	"HealPing/database"
	"HealPing/services"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	dispatchLockKey = "reminder_dispatch_lock"
	poolStatsEvery  = 5 * time.Minute
)

// ErrDispatchBusy is returned when another instance holds the dispatch lock.
var ErrDispatchBusy = errors.New("reminder dispatch already running")

// DueDispatcher sends the reminders whose time has come.
type DueDispatcher interface {
	DispatchDue(ctx context.Context, limit int) (services.DispatchResult, error)
}

// ReminderDispatcher runs the reminder dispatch on a schedule. Instances share
// a Redis lock so a batch is only dispatched once.
type ReminderDispatcher struct {
	reminders DueDispatcher
	cache     *cache.Cache
	interval  time.Duration
	batchSize int
	scheduler *gocron.Scheduler
}

func NewReminderDispatcher(reminders DueDispatcher, cache *cache.Cache, interval time.Duration, batchSize int) *ReminderDispatcher {
	if interval <= 0 {
		interval = time.Minute
	}
	if batchSize <= 0 {
		batchSize = services.DefaultDispatchBatch
	}
	return &ReminderDispatcher{
		reminders: reminders,
		cache:     cache,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Start schedules the dispatch and the Redis pool report, and returns at once.
func (d *ReminderDispatcher) Start() error {
	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.SingletonModeAll()

	if _, err := scheduler.Every(d.interval).Do(d.tick); err != nil {
		return fmt.Errorf("failed to schedule reminder dispatch: %w", err)
	}
	if client := d.cache.Client(); client != nil {
		if _, err := scheduler.Every(poolStatsEvery).Do(database.MonitorRedisPool, client); err != nil {
			return fmt.Errorf("failed to schedule pool monitor: %w", err)
		}
	}

	scheduler.StartAsync()
	d.scheduler = scheduler
	log.Info().Dur("interval", d.interval).Int("batch_size", d.batchSize).Msg("Reminder dispatcher started")
	return nil
}

// Stop waits for a running dispatch to finish and stops the schedule.
func (d *ReminderDispatcher) Stop() {
	if d.scheduler == nil {
		return
	}
	d.scheduler.Stop()
	d.scheduler = nil
	log.Info().Msg("Reminder dispatcher stopped")
}

func (d *ReminderDispatcher) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), d.lockTTL())
	defer cancel()

	result, err := d.RunOnce(ctx)
	switch {
	case errors.Is(err, ErrDispatchBusy):
		log.Debug().Msg("Reminder dispatch skipped, another instance holds the lock")
	case err != nil:
		log.Error().Err(err).Msg("Reminder dispatch failed")
	case result.Sent+result.Failed > 0:
		log.Info().Int("sent", result.Sent).Int("failed", result.Failed).Msg("Reminders dispatched")
	}
}

// RunOnce dispatches one batch under the shared lock.
func (d *ReminderDispatcher) RunOnce(ctx context.Context) (services.DispatchResult, error) {
	lockValue := uuid.New().String()
	locked, err := d.cache.AcquireLock(ctx, dispatchLockKey, lockValue, d.lockTTL())
	if err != nil {
		return services.DispatchResult{}, fmt.Errorf("failed to acquire dispatch lock: %w", err)
	}
	if !locked {
		return services.DispatchResult{}, ErrDispatchBusy
	}
	defer func() {
		// The run context may be done by now.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.cache.ReleaseLock(releaseCtx, dispatchLockKey, lockValue); err != nil {
			log.Warn().Err(err).Msg("Failed to release dispatch lock")
		}
	}()

	return d.reminders.DispatchDue(ctx, d.batchSize)
}

// lockTTL bounds one run so a crashed instance does not block the others for long.
func (d *ReminderDispatcher) lockTTL() time.Duration {
	if ttl := 5 * d.interval; ttl < 10*time.Minute {
		return ttl
	}
	return 10 * time.Minute
}
