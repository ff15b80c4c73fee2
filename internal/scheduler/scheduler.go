// Package scheduler runs periodic maintenance jobs with gocron.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"ticket-booking/pkg/logger"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// InventoryWarmer rewrites the inventory read model from storage.
type InventoryWarmer interface {
	WarmUp(ctx context.Context) (int, error)
}

type Scheduler struct {
	cron     gocron.Scheduler
	warmer   InventoryWarmer
	interval time.Duration
}

func New(warmer InventoryWarmer, interval time.Duration) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("inventory sync interval must be positive, got %s", interval)
	}
	cron, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, err
	}
	return &Scheduler{cron: cron, warmer: warmer, interval: interval}, nil
}

// Start 註冊庫存重同步工作並開始排程，ctx 結束時進行中的工作會收到取消
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(s.resyncInventory),
		gocron.WithName("inventory-resync"),
		gocron.WithContext(ctx),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule inventory resync: %w", err)
	}

	s.cron.Start()
	logger.WithComponent("scheduler").Info("scheduler started", zap.Duration("inventory_sync_interval", s.interval))
	return nil
}

func (s *Scheduler) Shutdown() error {
	return s.cron.Shutdown()
}

func (s *Scheduler) resyncInventory(ctx context.Context) {
	written, err := s.warmer.WarmUp(ctx)
	if err != nil {
		logger.WithComponent("scheduler").Warn("inventory resync failed", zap.Error(err))
		return
	}
	logger.WithComponent("scheduler").Debug("inventory resynced", zap.Int("written", written))
}
