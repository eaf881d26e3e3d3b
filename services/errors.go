package services

import "errors"

// Error kinds surfaced by the bonus engine. Handlers map these to HTTP statuses;
// everything else is treated as a storage failure.
var (
	ErrUnknownBonusType      = errors.New("unknown bonus type")
	ErrInsufficientStock     = errors.New("insufficient bonus stock")
	ErrAlreadyUsedThisRound  = errors.New("bonus already used this round")
	ErrMissingDuelParameters = errors.New("duel requires target and criteria")
	ErrMissingTarget         = errors.New("sabotage requires a target")
	ErrInvalidDayIndex       = errors.New("day index must be between 0 and 4")
	ErrBonusNotUsableNow     = errors.New("bonus not usable at this point of the competition")
	ErrValidation            = errors.New("invalid input")
	ErrNotFound              = errors.New("not found")
	ErrDuplicateUsage        = errors.New("duplicate usage record")
	ErrBusy                  = errors.New("participant is busy, retry")
	ErrStorageUnavailable    = errors.New("storage unavailable")
)
