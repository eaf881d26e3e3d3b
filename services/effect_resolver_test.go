package services

import (
	"testing"

	"elevation-league-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rankingFixture() []models.RankingEntry {
	return []models.RankingEntry{
		{ParticipantID: "alice", DisplayName: "Alice", Total: 1000},
		{ParticipantID: "bob", DisplayName: "Bob", Total: 400},
		{ParticipantID: "carol", DisplayName: "Carol", Total: 160},
	}
}

func totalsByID(entries []models.RankingEntry) map[string]float64 {
	out := make(map[string]float64, len(entries))
	for _, e := range entries {
		out[e.ParticipantID] = e.Total
	}
	return out
}

func TestApplyBonusEffects_DuelWonTransfersQuarter(t *testing.T) {
	catalog := DefaultBonusCatalog()
	usages := []models.BonusUsage{
		{ParticipantID: "alice", BonusType: models.BonusDuel, TargetID: strPtr("bob")},
	}

	ranking, effects := ApplyBonusEffects(rankingFixture(), usages, catalog)

	totals := totalsByID(ranking)
	assert.Equal(t, 1100.0, totals["alice"]) // 1000 + round(400 * 0.25)
	assert.Equal(t, 300.0, totals["bob"])

	require.Len(t, effects, 1)
	assert.Equal(t, models.EffectDuelWon, effects[0].Type)
	assert.Equal(t, "alice", effects[0].WinnerID)
	assert.Equal(t, "bob", effects[0].LoserID)
	assert.Equal(t, 100.0, effects[0].Amount)
}

func TestApplyBonusEffects_DuelLostIsSilent(t *testing.T) {
	catalog := DefaultBonusCatalog()
	// Bob challenges Alice but has the lower total: no transfer, no effect entry.
	usages := []models.BonusUsage{
		{ParticipantID: "bob", BonusType: models.BonusDuel, TargetID: strPtr("alice")},
	}

	ranking, effects := ApplyBonusEffects(rankingFixture(), usages, catalog)

	totals := totalsByID(ranking)
	assert.Equal(t, 1000.0, totals["alice"])
	assert.Equal(t, 400.0, totals["bob"])
	assert.Empty(t, effects)
}

func TestApplyBonusEffects_DuelTieIsSilent(t *testing.T) {
	catalog := DefaultBonusCatalog()
	entries := []models.RankingEntry{
		{ParticipantID: "alice", Total: 500},
		{ParticipantID: "bob", Total: 500},
	}
	usages := []models.BonusUsage{
		{ParticipantID: "alice", BonusType: models.BonusDuel, TargetID: strPtr("bob")},
	}

	ranking, effects := ApplyBonusEffects(entries, usages, catalog)

	totals := totalsByID(ranking)
	assert.Equal(t, 500.0, totals["alice"])
	assert.Equal(t, 500.0, totals["bob"])
	assert.Empty(t, effects)
}

func TestApplyBonusEffects_SkipsAbsentParticipants(t *testing.T) {
	catalog := DefaultBonusCatalog()
	usages := []models.BonusUsage{
		{ParticipantID: "ghost", BonusType: models.BonusDuel, TargetID: strPtr("bob")},
		{ParticipantID: "alice", BonusType: models.BonusDuel, TargetID: strPtr("ghost")},
		{ParticipantID: "ghost", BonusType: models.BonusSabotage, TargetID: strPtr("ghost")},
	}

	ranking, effects := ApplyBonusEffects(rankingFixture(), usages, catalog)

	assert.Equal(t, totalsByID(rankingFixture()), totalsByID(ranking))
	assert.Empty(t, effects)
}

func TestApplyBonusEffects_SabotageDeductsPenalty(t *testing.T) {
	catalog := DefaultBonusCatalog()
	usages := []models.BonusUsage{
		{ParticipantID: "carol", BonusType: models.BonusSabotage, TargetID: strPtr("bob")},
	}

	ranking, effects := ApplyBonusEffects(rankingFixture(), usages, catalog)

	totals := totalsByID(ranking)
	assert.Equal(t, 150.0, totals["bob"]) // 400 - 250

	require.Len(t, effects, 1)
	assert.Equal(t, models.EffectSabotage, effects[0].Type)
	assert.Equal(t, "bob", effects[0].TargetID)
	assert.Equal(t, 250.0, effects[0].Amount)
}

func TestApplyBonusEffects_SabotageFloorsAtZero(t *testing.T) {
	catalog := DefaultBonusCatalog()
	// Carol only has 160; a 250 penalty takes her to 0, never negative.
	usages := []models.BonusUsage{
		{ParticipantID: "alice", BonusType: models.BonusSabotage, TargetID: strPtr("carol")},
	}

	ranking, effects := ApplyBonusEffects(rankingFixture(), usages, catalog)

	totals := totalsByID(ranking)
	assert.Equal(t, 0.0, totals["carol"])

	// The effect log records the configured penalty, not the clamped deduction.
	require.Len(t, effects, 1)
	assert.Equal(t, 250.0, effects[0].Amount)
}

func TestApplyBonusEffects_DuelsResolveBeforeSabotages(t *testing.T) {
	catalog := DefaultBonusCatalog()
	// Sabotage appears first in activation order but must run after the duel:
	// the duel drains Bob to 300, then the sabotage takes him to 50.
	usages := []models.BonusUsage{
		{ParticipantID: "carol", BonusType: models.BonusSabotage, TargetID: strPtr("bob")},
		{ParticipantID: "alice", BonusType: models.BonusDuel, TargetID: strPtr("bob")},
	}

	ranking, effects := ApplyBonusEffects(rankingFixture(), usages, catalog)

	totals := totalsByID(ranking)
	assert.Equal(t, 1100.0, totals["alice"])
	assert.Equal(t, 50.0, totals["bob"])

	require.Len(t, effects, 2)
	assert.Equal(t, models.EffectDuelWon, effects[0].Type)
	assert.Equal(t, models.EffectSabotage, effects[1].Type)
}

func TestApplyBonusEffects_SabotageTieKeepsInputOrder(t *testing.T) {
	catalog := DefaultBonusCatalog()
	entries := []models.RankingEntry{
		{ParticipantID: "alice", Total: 1000},
		{ParticipantID: "bob", Total: 400},
		{ParticipantID: "carol", Total: 150},
	}
	// The sabotage lands Bob exactly on Carol's 150; Bob entered first and stays ahead.
	usages := []models.BonusUsage{
		{ParticipantID: "carol", BonusType: models.BonusSabotage, TargetID: strPtr("bob")},
	}

	ranking, _ := ApplyBonusEffects(entries, usages, catalog)

	require.Len(t, ranking, 3)
	assert.Equal(t, "bob", ranking[1].ParticipantID)
	assert.Equal(t, "carol", ranking[2].ParticipantID)
	assert.Equal(t, ranking[1].Total, ranking[2].Total)
}

func TestApplyBonusEffects_RerankedPositionsContiguous(t *testing.T) {
	catalog := DefaultBonusCatalog()
	// Sabotage drops Bob (400-250=150) below Carol (160).
	usages := []models.BonusUsage{
		{ParticipantID: "carol", BonusType: models.BonusSabotage, TargetID: strPtr("bob")},
	}

	ranking, _ := ApplyBonusEffects(rankingFixture(), usages, catalog)

	require.Len(t, ranking, 3)
	assert.Equal(t, "alice", ranking[0].ParticipantID)
	assert.Equal(t, "carol", ranking[1].ParticipantID)
	assert.Equal(t, "bob", ranking[2].ParticipantID)
	for i, e := range ranking {
		assert.Equal(t, i+1, e.Position)
	}
}

func TestApplyBonusEffects_TiesKeepInputOrder(t *testing.T) {
	catalog := DefaultBonusCatalog()
	entries := []models.RankingEntry{
		{ParticipantID: "first", Total: 300},
		{ParticipantID: "second", Total: 300},
		{ParticipantID: "third", Total: 300},
	}

	ranking, _ := ApplyBonusEffects(entries, nil, catalog)

	assert.Equal(t, "first", ranking[0].ParticipantID)
	assert.Equal(t, "second", ranking[1].ParticipantID)
	assert.Equal(t, "third", ranking[2].ParticipantID)
}

func TestApplyBonusEffects_InputNotMutated(t *testing.T) {
	catalog := DefaultBonusCatalog()
	entries := rankingFixture()
	usages := []models.BonusUsage{
		{ParticipantID: "alice", BonusType: models.BonusDuel, TargetID: strPtr("bob")},
		{ParticipantID: "carol", BonusType: models.BonusSabotage, TargetID: strPtr("bob")},
	}

	_, _ = ApplyBonusEffects(entries, usages, catalog)

	assert.Equal(t, rankingFixture(), entries)
}

func TestApplyBonusEffects_Deterministic(t *testing.T) {
	catalog := DefaultBonusCatalog()
	usages := []models.BonusUsage{
		{ParticipantID: "alice", BonusType: models.BonusDuel, TargetID: strPtr("bob")},
		{ParticipantID: "bob", BonusType: models.BonusSabotage, TargetID: strPtr("alice")},
		{ParticipantID: "carol", BonusType: models.BonusSabotage, TargetID: strPtr("alice")},
	}

	firstRanking, firstEffects := ApplyBonusEffects(rankingFixture(), usages, catalog)
	for i := 0; i < 10; i++ {
		ranking, effects := ApplyBonusEffects(rankingFixture(), usages, catalog)
		require.Equal(t, firstRanking, ranking)
		require.Equal(t, firstEffects, effects)
	}
}

func TestApplyBonusEffects_HonorsInjectedCatalogParameters(t *testing.T) {
	// An explicit zero penalty means zero, not "fall back to the default".
	catalog := NewBonusCatalog([]models.BonusConfig{
		{Type: models.BonusDuel, DisplayName: "Duel", InitialStock: 2, StealPercentage: 0.5},
		{Type: models.BonusSabotage, DisplayName: "Sabotage", InitialStock: 1, Penalty: 0},
	})
	usages := []models.BonusUsage{
		{ParticipantID: "alice", BonusType: models.BonusDuel, TargetID: strPtr("bob")},
		{ParticipantID: "carol", BonusType: models.BonusSabotage, TargetID: strPtr("alice")},
	}

	ranking, effects := ApplyBonusEffects(rankingFixture(), usages, catalog)

	totals := totalsByID(ranking)
	assert.Equal(t, 1200.0, totals["alice"]) // 1000 + round(400 * 0.5), zero sabotage
	assert.Equal(t, 200.0, totals["bob"])

	require.Len(t, effects, 2)
	assert.Equal(t, 200.0, effects[0].Amount)
	assert.Equal(t, 0.0, effects[1].Amount)
}

func TestApplyBonusEffects_MultipleSabotagesCumulative(t *testing.T) {
	catalog := DefaultBonusCatalog()
	usages := []models.BonusUsage{
		{ParticipantID: "bob", BonusType: models.BonusSabotage, TargetID: strPtr("alice")},
		{ParticipantID: "carol", BonusType: models.BonusSabotage, TargetID: strPtr("alice")},
	}

	ranking, effects := ApplyBonusEffects(rankingFixture(), usages, catalog)

	totals := totalsByID(ranking)
	assert.Equal(t, 500.0, totals["alice"]) // 1000 - 250 - 250
	assert.Len(t, effects, 2)
}
