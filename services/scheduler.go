// services/scheduler.go
package services

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"elevation-league-system/models"
	"elevation-league-system/utils"

	"github.com/go-co-op/gocron/v2"
)

// StartBackupScheduler snapshots the whole bonus state (stock counters plus
// usage records) to object storage on an interval, so an operator can restore
// or audit the competition after a bad admin action.
func (s *BonusService) StartBackupScheduler(interval time.Duration) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			var stocks []models.BonusStock
			if err := s.DB.Find(&stocks).Error; err != nil {
				log.Printf("[Scheduler] DB error reading stock: %v", err)
				return
			}
			var usages []models.BonusUsage
			if err := s.DB.Find(&usages).Error; err != nil {
				log.Printf("[Scheduler] DB error reading usages: %v", err)
				return
			}

			snapshot := map[string]interface{}{
				"taken_at": time.Now().UTC().Format(time.RFC3339),
				"stocks":   stocks,
				"usages":   usages,
			}
			payload, err := json.Marshal(snapshot)
			if err != nil {
				log.Printf("[Scheduler] Failed to marshal snapshot: %v", err)
				return
			}

			key := fmt.Sprintf("backups/bonus-state/%s.json", time.Now().UTC().Format("2006-01-02T15-04-05"))
			if err := utils.UploadStateSnapshot(key, payload); err != nil {
				log.Printf("[Scheduler] Failed to upload snapshot: %v", err)
				return
			}
			log.Printf("✅ Bonus state snapshot uploaded: %s (%d stocks, %d usages)", key, len(stocks), len(usages))
		}),
	)
}
