package scheduler

import (
	"context"

	"docstream/internal/config"
	"docstream/internal/features/producer"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler triggers the periodic pull across all active producers.
type Scheduler struct {
	cron    *cron.Cron
	service producer.ProducerService
	spec    string
	logger  *zap.Logger
}

func NewScheduler(cfg *config.Config, service producer.ProducerService, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		service: service,
		spec:    cfg.PullSchedule,
		logger:  logger,
	}
}

func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.service.PullAll(context.Background())
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("pull scheduler started", zap.String("schedule", s.spec))
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("pull scheduler stopped")
}
