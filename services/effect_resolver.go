package services

import (
	"math"
	"sort"

	"elevation-league-system/models"
)

// ApplyBonusEffects transforms a ranking snapshot by the active bonus usages of a
// round and returns the adjusted ranking plus the ordered effect log.
//
// Two passes over a working copy, pass order fixed: duels first, then sabotages.
// Multiplier and shield never reach this function — they act on the per-day
// source data before aggregation (see RankingService.BuildRoundSnapshot).
//
// The input slice is never mutated; identical inputs yield identical outputs.
func ApplyBonusEffects(entries []models.RankingEntry, usages []models.BonusUsage, catalog *BonusCatalog) ([]models.RankingEntry, []models.BonusEffect) {
	working := make([]models.RankingEntry, len(entries))
	copy(working, entries)

	index := make(map[string]int, len(working))
	for i, e := range working {
		index[e.ParticipantID] = i
	}

	effects := []models.BonusEffect{}

	// Pass 1: duels. Transfer only on a strictly greater challenger total; a lost
	// duel stays silent — the card was already spent at activation time.
	for _, u := range usages {
		if u.BonusType != models.BonusDuel || u.TargetID == nil {
			continue
		}
		ci, ok := index[u.ParticipantID]
		if !ok {
			continue // challenger absent from this ranking context
		}
		ti, ok := index[*u.TargetID]
		if !ok {
			continue // target absent
		}
		if working[ci].Total <= working[ti].Total {
			continue
		}
		pct := DefaultDuelStealPercentage
		if cfg, err := catalog.ConfigFor(models.BonusDuel); err == nil {
			pct = cfg.StealPercentage
		}
		amount := math.Round(working[ti].Total * pct)
		working[ti].Total -= amount
		working[ci].Total += amount
		effects = append(effects, models.BonusEffect{
			Type:     models.EffectDuelWon,
			WinnerID: u.ParticipantID,
			LoserID:  *u.TargetID,
			Amount:   amount,
		})
	}

	// Pass 2: sabotages, in activation order, each independent and cumulative.
	for _, u := range usages {
		if u.BonusType != models.BonusSabotage || u.TargetID == nil {
			continue
		}
		ti, ok := index[*u.TargetID]
		if !ok {
			continue
		}
		penalty := DefaultSabotagePenalty
		if cfg, err := catalog.ConfigFor(models.BonusSabotage); err == nil {
			penalty = cfg.Penalty
		}
		amount := penalty
		if working[ti].Total < amount {
			amount = working[ti].Total // floor the total at zero
		}
		working[ti].Total -= amount
		effects = append(effects, models.BonusEffect{
			Type:     models.EffectSabotage,
			TargetID: *u.TargetID,
			Amount:   penalty,
		})
	}

	// Re-rank: descending total, ties keep their pre-sort relative order.
	sort.SliceStable(working, func(i, j int) bool {
		return working[i].Total > working[j].Total
	})
	for i := range working {
		working[i].Position = i + 1
	}

	return working, effects
}
