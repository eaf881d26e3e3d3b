package services

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"elevation-league-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// StreamBonusUsagesSSE streams newly recorded bonus activations for live
// dashboards. Polls the usage table and pushes every record created after the
// connection's cursor.
func (s *BonusService) StreamBonusUsagesSSE(c *fiber.Ctx) error {
	leagueID := c.Query("league_id", "")

	// SSE headers
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		var lastMaxCreatedAt time.Time

		// Initialize cursor at the newest existing record.
		var latest models.BonusUsage
		if err := s.DB.Order("created_at DESC").First(&latest).Error; err == nil {
			lastMaxCreatedAt = latest.CreatedAt
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("SSE init error: %v", err)
		}

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		w.Flush()

		for {
			select {
			case <-ticker.C:
				query := s.DB.Where("created_at > ?", lastMaxCreatedAt).Order("created_at ASC")
				if leagueID != "" {
					query = query.Where("participant_id IN (?)",
						s.DB.Model(&models.Participant{}).Select("id").Where("league_id = ?", leagueID))
				}

				var newUsages []models.BonusUsage
				if err := query.Find(&newUsages).Error; err != nil {
					log.Printf("SSE query error: %v", err)
					continue
				}
				if len(newUsages) == 0 {
					continue
				}

				lastMaxCreatedAt = newUsages[len(newUsages)-1].CreatedAt

				for _, u := range newUsages {
					payload, _ := json.Marshal(u)
					fmt.Fprintf(w, "event: bonus\ndata: %s\n\n", payload)
				}

				if err := w.Flush(); err != nil {
					// Client disconnected
					return
				}

			case <-c.Context().Done():
				return
			}
		}
	})

	return nil
}
