package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"elevation-league-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ElevationSyncClient pulls per-day round elevations from the activity service.
type ElevationSyncClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB
}

func NewElevationSyncClient(db *gorm.DB) *ElevationSyncClient {
	baseURL := os.Getenv("ACTIVITY_SERVICE_URL")
	if baseURL == "" {
		log.Fatal("ACTIVITY_SERVICE_URL environment variable is required")
	}
	token := os.Getenv("LEAGUE_SERVICE_TOKEN")
	if token == "" {
		log.Fatal("LEAGUE_SERVICE_TOKEN environment variable is required for elevation sync")
	}

	return &ElevationSyncClient{
		BaseURL: baseURL,
		Token:   token,
		DB:      db,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// RoundElevationChange is one athlete's per-day elevations for one round, as
// reported by the activity service (already aggregated from raw activities).
type RoundElevationChange struct {
	ExternalAthleteID string     `json:"athlete_id"`
	Round             int        `json:"round"`
	Days              [5]float64 `json:"days"`
}

func (c *ElevationSyncClient) GetChangedElevations(ctx context.Context, since time.Time) ([]RoundElevationChange, error) {
	u, err := url.Parse(fmt.Sprintf("%s/api/v1/public/elevations", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	q := u.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call activity service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("activity service returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Elevations []RoundElevationChange `json:"elevations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode activity service response: %w", err)
	}

	return response.Elevations, nil
}

// PollElevations keeps the round_totals table in step with the activity service.
func PollElevations(ctx context.Context, client *ElevationSyncClient, pollInterval time.Duration) {
	log.Println("Starting elevation polling (DB-backed)...")
	lastSyncTime := time.Now().UTC().Add(-24 * time.Hour)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Elevation polling stopped.")
			return
		case <-ticker.C:
			logTime := time.Now().UTC()

			changes, err := client.GetChangedElevations(ctx, lastSyncTime)
			if err != nil {
				log.Printf("❌ Error polling elevations: %v", err)
				continue
			}
			if len(changes) == 0 {
				continue
			}

			upserted := 0
			for _, change := range changes {
				// Resolve the activity-service athlete id to our participant row.
				var participant models.Participant
				if err := client.DB.Where("external_athlete_id = ?", change.ExternalAthleteID).
					First(&participant).Error; err != nil {
					if err == gorm.ErrRecordNotFound {
						// Profile sync hasn't seen this athlete yet — next tick will.
						continue
					}
					log.Printf("❌ DB error resolving athlete %s: %v", change.ExternalAthleteID, err)
					continue
				}

				total := models.RoundTotal{
					ID:            uuid.NewString(),
					ParticipantID: participant.ID,
					Round:         change.Round,
				}
				for i, d := range change.Days {
					total.SetDay(i, d)
				}

				if err := client.DB.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "participant_id"}, {Name: "round"}},
					DoUpdates: clause.AssignmentColumns([]string{"day0", "day1", "day2", "day3", "day4"}),
				}).Create(&total).Error; err != nil {
					log.Printf("❌ Failed to upsert round totals for %s round %d: %v", participant.ID, change.Round, err)
					continue
				}
				upserted++
			}

			if upserted < len(changes) {
				// Do NOT advance lastSyncTime past unprocessed work — retry same window next tick
				log.Printf("📥 Upserted %d/%d elevation change(s), will retry remainder", upserted, len(changes))
				continue
			}

			lastSyncTime = logTime
			log.Printf("✅ Upserted %d elevation change(s) into round_totals.", upserted)
		}
	}
}
