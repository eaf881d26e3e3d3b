package models

import (
	"time"

	"gorm.io/gorm"
)

// Participant is a local snapshot of athlete data needed for the competition.
// Owned and managed solely by the league service.
// Populated via sync worker from the activity service's athlete table.
type Participant struct {
	ID                string     `json:"id" gorm:"primaryKey"`
	ExternalAthleteID string     `gorm:"uniqueIndex;not null" json:"external_athlete_id"` // the activity service's athlete id
	DisplayName       string     `gorm:"index;not null" json:"display_name"`
	AvatarURL         *string    `json:"avatar_url,omitempty"`
	LeagueID          string     `gorm:"index" json:"league_id"`
	TotalElevation    float64    `json:"total_elevation" gorm:"default:0"` // cumulative, all rounds
	LastActivityAt    *time.Time `json:"last_activity_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time  `json:"updated_at" gorm:"autoUpdateTime"`

	// Soft delete (athletes who leave keep their usage history)
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// League is one competition instance. CurrentRound/CurrentDay form the round
// context the eligibility checks depend on (final-day and final-round flags).
type League struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"not null"`
	JoinCode     string    `json:"join_code" gorm:"uniqueIndex"` // slug, e.g. "velo-club-2026"
	TotalRounds  int       `json:"total_rounds" gorm:"default:1"`
	CurrentRound int       `json:"current_round" gorm:"default:1"`
	CurrentDay   int       `json:"current_day" gorm:"default:0"`   // 0..4 within the round
	Status       string    `json:"status" gorm:"default:'active'"` // active, completed
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// IsFinalRound reports whether the league is in its last round.
func (l *League) IsFinalRound() bool {
	return l.CurrentRound >= l.TotalRounds
}

// IsFinalDay reports whether the league is on the last sub-day of the current round.
func (l *League) IsFinalDay() bool {
	return l.CurrentDay >= 4
}

// RoundTotal holds one participant's elevation for one round, split per sub-day.
// The per-day split is what lets a multiplier scale a single day's contribution
// before aggregation.
type RoundTotal struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	ParticipantID string    `json:"participant_id" gorm:"not null;uniqueIndex:idx_round_total_participant_round"`
	Round         int       `json:"round" gorm:"not null;uniqueIndex:idx_round_total_participant_round"`
	Day0          float64   `json:"day0" gorm:"default:0"`
	Day1          float64   `json:"day1" gorm:"default:0"`
	Day2          float64   `json:"day2" gorm:"default:0"`
	Day3          float64   `json:"day3" gorm:"default:0"`
	Day4          float64   `json:"day4" gorm:"default:0"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Days returns the per-day elevations as a fixed slice indexed by day index.
func (rt RoundTotal) Days() [5]float64 {
	return [5]float64{rt.Day0, rt.Day1, rt.Day2, rt.Day3, rt.Day4}
}

// SetDay writes one sub-day elevation. Out-of-range indexes are ignored.
func (rt *RoundTotal) SetDay(idx int, elevation float64) {
	switch idx {
	case 0:
		rt.Day0 = elevation
	case 1:
		rt.Day1 = elevation
	case 2:
		rt.Day2 = elevation
	case 3:
		rt.Day3 = elevation
	case 4:
		rt.Day4 = elevation
	}
}
