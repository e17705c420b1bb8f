package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/inkos/inkd/internal/logging"
)

// digestSpec enqueues the digest for the day that just ended, 02:00 UTC
const digestSpec = "0 2 * * *"

// Scheduler feeds recurring jobs into the pool
type Scheduler struct {
	cron *cron.Cron
	pool *Pool
}

// NewScheduler creates a Scheduler running on UTC
func NewScheduler(pool *Pool) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithLocation(time.UTC)),
		pool: pool,
	}
}

// Start registers the schedules and starts the cron loop
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(digestSpec, func() {
		date := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
		payload, _ := json.Marshal(DigestPayload{Date: date})
		if _, err := s.pool.Enqueue(context.Background(), KindDailyDigest, payload, nil); err != nil {
			logging.Errorf("failed to enqueue daily digest: %v", err)
			return
		}
		logging.Infof("daily digest enqueued for %s", date)
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the cron loop, waiting for a running dispatch
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
