package models

import (
	"time"
)

// BonusType identifies one of the four bonus cards.
type BonusType string

const (
	BonusDuel       BonusType = "duel"
	BonusMultiplier BonusType = "multiplier"
	BonusShield     BonusType = "shield"
	BonusSabotage   BonusType = "sabotage"
)

// Usage lifecycle statuses
const (
	UsageStatusActive    = "active"
	UsageStatusCancelled = "cancelled"
)

// MaxStockPerType is the administrative cap on any single stock counter.
const MaxStockPerType = 5

// BonusConfig is the immutable per-type configuration held by the catalog.
type BonusConfig struct {
	Type         BonusType `json:"type"`
	DisplayName  string    `json:"display_name"`
	InitialStock int       `json:"initial_stock"`

	// Type-specific parameters (zero for types that don't use them)
	StealPercentage float64 `json:"steal_percentage,omitempty"` // duel: share of target total transferred
	Factor          float64 `json:"factor,omitempty"`           // multiplier: day scaling factor
	Penalty         float64 `json:"penalty,omitempty"`          // sabotage: fixed elevation deduction

	// Usability restrictions, evaluated against league round context
	NotUsableOnFinalDay   bool `json:"not_usable_on_final_day,omitempty"`
	NotUsableInFinalRound bool `json:"not_usable_in_final_round,omitempty"`
}

// StockState maps each bonus type to the remaining activation count for one participant.
type StockState map[BonusType]int

// BonusStock is the persisted stock counter for one (participant, type) pair.
// Absence of a row means the participant still holds the catalog's initial stock
// for that type — reads must not create rows.
type BonusStock struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	ParticipantID string    `json:"participant_id" gorm:"not null;uniqueIndex:idx_stock_participant_type"`
	BonusType     BonusType `json:"bonus_type" gorm:"not null;uniqueIndex:idx_stock_participant_type"`
	Count         int       `json:"count" gorm:"not null"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// BonusUsage records one activation of a bonus card and its eventual resolution.
// Rows are never deleted; admin cancellation flips Status to "cancelled".
type BonusUsage struct {
	ID              string    `json:"id" gorm:"primaryKey"`
	ParticipantID   string    `json:"participant_id" gorm:"not null;index"`
	ParticipantName string    `json:"participant_name"` // denormalized at activation time
	BonusType       BonusType `json:"bonus_type" gorm:"not null;index"`
	Round           int       `json:"round" gorm:"not null;index"`

	// duel / sabotage
	TargetID   *string `json:"target_id,omitempty"`
	TargetName *string `json:"target_name,omitempty"`
	// duel: which metric the duel is judged on
	CriteriaID *string `json:"criteria_id,omitempty"`
	// multiplier: which of the five sub-days it applies to (0..4)
	DayIndex *int `json:"day_index,omitempty"`

	Status     string     `json:"status" gorm:"default:'active';index"`
	Resolved   bool       `json:"resolved" gorm:"default:false"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	Result     string     `json:"result,omitempty"` // opaque resolution payload, e.g. {"winner": "..."}

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// RankingEntry is one line of a ranking snapshot. Position is derived, never persisted.
type RankingEntry struct {
	ParticipantID string  `json:"participant_id"`
	DisplayName   string  `json:"display_name,omitempty"`
	Total         float64 `json:"total"`
	Position      int     `json:"position"`
}

// Effect types emitted by the resolver
const (
	EffectDuelWon  = "duel_won"
	EffectSabotage = "sabotage"
)

// BonusEffect is one entry of the ordered effect log produced alongside an adjusted ranking.
type BonusEffect struct {
	Type     string  `json:"type"`
	WinnerID string  `json:"winner_id,omitempty"`
	LoserID  string  `json:"loser_id,omitempty"`
	TargetID string  `json:"target_id,omitempty"`
	Amount   float64 `json:"amount"`
}

// AdjustedRanking bundles the resolver output.
type AdjustedRanking struct {
	Ranking []RankingEntry `json:"ranking"`
	Effects []BonusEffect  `json:"effects"`
}
