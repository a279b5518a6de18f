package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VendorProvider lists the vendors due a digest
type VendorProvider interface {
	VendorsNeedingDigest(ctx context.Context) ([]uuid.UUID, error)
}

// CronTriggerConfig holds configuration for the cron trigger
type CronTriggerConfig struct {
	// DigestHour and DigestMinute are the daily run time in 24h local time
	DigestHour   int
	DigestMinute int

	// CheckInterval is how often to check if it's time to run
	CheckInterval time.Duration
}

// DefaultCronTriggerConfig returns default cron trigger configuration
func DefaultCronTriggerConfig() CronTriggerConfig {
	return CronTriggerConfig{
		DigestHour:    7,
		DigestMinute:  0,
		CheckInterval: time.Minute,
	}
}

// CronTrigger fans the daily digest out to the scheduler once per day
type CronTrigger struct {
	config    CronTriggerConfig
	scheduler *Scheduler
	vendors   VendorProvider
	logger    *zap.Logger
	now       func() time.Time

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate string
}

// NewCronTrigger creates a new cron trigger
func NewCronTrigger(
	config CronTriggerConfig,
	scheduler *Scheduler,
	vendors VendorProvider,
	logger *zap.Logger,
) *CronTrigger {
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CronTrigger{
		config:    config,
		scheduler: scheduler,
		vendors:   vendors,
		logger:    logger,
		now:       time.Now,
	}
}

// Start starts the check loop
func (c *CronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Low stock digest trigger started",
		zap.Int("digest_hour", c.config.DigestHour),
		zap.Int("digest_minute", c.config.DigestMinute),
		zap.Duration("check_interval", c.config.CheckInterval),
	)
	return nil
}

// Stop stops the check loop
func (c *CronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Low stock digest trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *CronTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkAndTrigger(ctx)
		}
	}
}

// shouldRun reports whether now is the configured minute on a day that has
// not run yet.
func (c *CronTrigger) shouldRun(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastRunDate == now.Format(time.DateOnly) {
		return false
	}
	return now.Hour() == c.config.DigestHour && now.Minute() == c.config.DigestMinute
}

func (c *CronTrigger) checkAndTrigger(ctx context.Context) {
	now := c.now()
	if !c.shouldRun(now) {
		return
	}

	c.mu.Lock()
	c.lastRunDate = now.Format(time.DateOnly)
	c.mu.Unlock()

	if _, err := c.RunNow(ctx); err != nil {
		c.logger.Error("Failed to schedule low stock digests", zap.Error(err))
	}
}

// RunNow schedules a digest for every vendor currently low on stock and
// returns how many jobs were queued.
func (c *CronTrigger) RunNow(ctx context.Context) (int, error) {
	vendorIDs, err := c.vendors.VendorsNeedingDigest(ctx)
	if err != nil {
		return 0, err
	}

	queued, err := c.scheduler.ScheduleDigests(vendorIDs)
	c.logger.Info("Scheduled low stock digests",
		zap.Int("vendors", len(vendorIDs)),
		zap.Int("queued", queued),
	)
	return queued, err
}
