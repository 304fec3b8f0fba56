// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartCleanupScheduler runs the expiry sweep immediately and then on the
// given interval for the lifetime of the process.
func (s *MatchService) StartCleanupScheduler(interval time.Duration) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			log.Println("Running match cleanup...")
			count, err := s.DeleteExpiredMatches()
			if err != nil {
				log.Printf("[Cleanup] DB error: %v", err)
				return
			}
			log.Printf("🧹 Deleted %d expired matches", count)
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
}
