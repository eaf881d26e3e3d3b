// workers/participant_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"elevation-league-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AthleteFromActivityService matches the JSON response from the activity service.
// Token refresh, OAuth and provider pagination all live over there; this worker
// only ever sees the mirrored profile shape.
type AthleteFromActivityService struct {
	ID             string     `json:"id"`
	DisplayName    string     `json:"display_name"`
	AvatarURL      *string    `json:"avatar_url,omitempty"`
	TotalElevation float64    `json:"total_elevation"`
	LastActivityAt *time.Time `json:"last_activity_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// GetAthleteChangesResponse is the top-level structure of the activity service response.
type GetAthleteChangesResponse struct {
	Athletes []AthleteFromActivityService `json:"athletes"`
}

type ParticipantSyncWorker struct {
	db           *gorm.DB
	interval     time.Duration
	baseURL      string // e.g., "http://localhost:8600"
	endpointPath string // e.g., "/api/v1/public/athletes"
	serviceToken string
	httpClient   *http.Client
}

// NewParticipantSyncWorker requires the activity service URL and this service's token.
func NewParticipantSyncWorker(db *gorm.DB, activityServiceBaseURL, endpointPath, serviceToken string) *ParticipantSyncWorker {
	return &ParticipantSyncWorker{
		db:           db,
		interval:     1 * time.Minute,
		baseURL:      activityServiceBaseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (w *ParticipantSyncWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting Participant Sync Worker (activity-service → participants)…")
	go w.run(ctx)
}

func (w *ParticipantSyncWorker) run(ctx context.Context) {
	// Initial sync (backfill if needed) - sync from the beginning of time
	if err := w.syncBatch(ctx, time.Time{}); err != nil {
		log.Printf("⚠️ Initial participant sync failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			lastSyncTime := w.getLastSyncTime()
			if err := w.syncBatch(ctx, lastSyncTime); err != nil {
				log.Printf("❌ Participant sync batch failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("⏹️ Participant Sync Worker stopped")
			return
		}
	}
}

// getLastSyncTime finds the most recent UpdatedAt from the local participants table.
func (w *ParticipantSyncWorker) getLastSyncTime() time.Time {
	var lastTime time.Time
	err := w.db.Raw("SELECT MAX(updated_at) FROM participants WHERE deleted_at IS NULL").Scan(&lastTime).Error
	if err != nil || lastTime.IsZero() {
		return time.Unix(0, 0)
	}
	return lastTime
}

// syncBatch fetches athlete changes from the activity service and upserts the
// local participants table. Display names recorded on past usage records stay
// frozen on purpose — they are snapshots from activation time.
func (w *ParticipantSyncWorker) syncBatch(ctx context.Context, since time.Time) error {
	sinceStr := since.UTC().Format(time.RFC3339)

	base, err := url.Parse(w.baseURL)
	if err != nil {
		return fmt.Errorf("invalid activity service URL '%s': %w", w.baseURL, err)
	}

	endpointURL := base.JoinPath(w.endpointPath)
	q := endpointURL.Query()
	q.Set("since", sinceStr)
	endpointURL.RawQuery = q.Encode()
	finalURL := endpointURL.String()

	req, err := http.NewRequestWithContext(ctx, "GET", finalURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request to %s: %w", finalURL, err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request to activity service failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("activity service non-200 response: %d — %s", resp.StatusCode, string(body))
	}

	var response GetAthleteChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("failed to decode activity service response: %w", err)
	}

	if len(response.Athletes) == 0 {
		return nil
	}

	log.Printf("[SYNC] 📥 Processing %d athlete(s) from activity service…", len(response.Athletes))

	var upsertCount, errorCount int
	for _, remote := range response.Athletes {
		local := models.Participant{
			ID:                uuid.NewString(),
			ExternalAthleteID: remote.ID,
			DisplayName:       remote.DisplayName,
			AvatarURL:         remote.AvatarURL,
			TotalElevation:    remote.TotalElevation,
			LastActivityAt:    remote.LastActivityAt,
			CreatedAt:         remote.CreatedAt,
			UpdatedAt:         remote.UpdatedAt,
		}

		if err := w.db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "external_athlete_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"display_name", "avatar_url", "total_elevation", "last_activity_at", "updated_at",
			}),
		}).Create(&local).Error; err != nil {
			errorCount++
			log.Printf("[SYNC] ⚠️ Failed to upsert participant (external_id=%q, name=%q): %v",
				remote.ID, remote.DisplayName, err)
		} else {
			upsertCount++
		}
	}

	log.Printf("[SYNC] ✅ Synced %d athlete(s) (%d upserted, %d errors)", len(response.Athletes), upsertCount, errorCount)
	return nil
}
