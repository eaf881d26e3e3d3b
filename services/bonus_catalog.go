package services

import (
	"elevation-league-system/models"
)

// Default bonus parameters (tunable via config/env later)
const (
	DefaultDuelStealPercentage = 0.25
	DefaultMultiplierFactor    = 2.0
	DefaultSabotagePenalty     = 250.0
)

// BonusCatalog is the read-only configuration table for the four bonus cards.
// Built once at startup and injected into every service that needs it.
type BonusCatalog struct {
	configs map[models.BonusType]models.BonusConfig
	order   []models.BonusType // stable iteration order for listings
}

// DefaultBonusCatalog returns the standard league catalog.
func DefaultBonusCatalog() *BonusCatalog {
	return NewBonusCatalog([]models.BonusConfig{
		{
			Type:                models.BonusDuel,
			DisplayName:         "Duel",
			InitialStock:        2,
			StealPercentage:     DefaultDuelStealPercentage,
			NotUsableOnFinalDay: true,
		},
		{
			Type:         models.BonusMultiplier,
			DisplayName:  "Multiplier",
			InitialStock: 2,
			Factor:       DefaultMultiplierFactor,
		},
		{
			Type:                  models.BonusShield,
			DisplayName:           "Shield",
			InitialStock:          1,
			NotUsableInFinalRound: true,
		},
		{
			Type:         models.BonusSabotage,
			DisplayName:  "Sabotage",
			InitialStock: 1,
			Penalty:      DefaultSabotagePenalty,
		},
	})
}

func NewBonusCatalog(configs []models.BonusConfig) *BonusCatalog {
	c := &BonusCatalog{configs: make(map[models.BonusType]models.BonusConfig, len(configs))}
	for _, cfg := range configs {
		c.configs[cfg.Type] = cfg
		c.order = append(c.order, cfg.Type)
	}
	return c
}

// ConfigFor returns the configuration for one bonus type.
func (c *BonusCatalog) ConfigFor(t models.BonusType) (models.BonusConfig, error) {
	cfg, ok := c.configs[t]
	if !ok {
		return models.BonusConfig{}, ErrUnknownBonusType
	}
	return cfg, nil
}

// Knows reports whether the type exists in the catalog.
func (c *BonusCatalog) Knows(t models.BonusType) bool {
	_, ok := c.configs[t]
	return ok
}

// InitialStock returns a fresh StockState with every type at its configured count.
func (c *BonusCatalog) InitialStock() models.StockState {
	stock := make(models.StockState, len(c.configs))
	for t, cfg := range c.configs {
		stock[t] = cfg.InitialStock
	}
	return stock
}

// Configs returns all configurations in catalog order, for listings.
func (c *BonusCatalog) Configs() []models.BonusConfig {
	out := make([]models.BonusConfig, 0, len(c.order))
	for _, t := range c.order {
		out = append(out, c.configs[t])
	}
	return out
}
