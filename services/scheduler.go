// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartDeadlineScheduler runs the sweep on an in-process timer in addition to
// the external cron trigger. The sweep is idempotent, so overlapping ticks
// from both sources are harmless.
func (s *SweepService) StartDeadlineScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every minute: expire published OPEN bounties whose deadline passed
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			summary, err := s.SweepExpiredBounties(time.Now())
			if err != nil {
				log.Printf("[Scheduler] Sweep failed: %v", err)
				return
			}
			if summary.UpdatedCount > 0 {
				log.Printf("✅ Swept %d expired bounties into reviewing", summary.UpdatedCount)
			}
		}),
	)
}
