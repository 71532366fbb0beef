package rules

import "github.com/glougarou/backend/internal/models"

// Next returns the phase following p in the fixed play cycle:
// waiting → preparation → night → day → voting → waiting.
// The night counter is bumped by the caller exactly when the returned
// phase is night (see EntersNight).
func Next(p models.Phase) models.Phase {
	switch p {
	case models.PhaseWaiting:
		return models.PhasePreparation
	case models.PhasePreparation:
		return models.PhaseNight
	case models.PhaseNight:
		return models.PhaseDay
	case models.PhaseDay:
		return models.PhaseVoting
	case models.PhaseVoting:
		return models.PhaseWaiting
	default:
		return p
	}
}

// EntersNight reports whether moving from p to next crosses into night,
// which is the only transition that increments the night counter.
func EntersNight(next models.Phase) bool {
	return next == models.PhaseNight
}

var validTransitions = map[models.Phase][]models.Phase{
	models.PhaseWaiting:     {models.PhasePreparation},
	models.PhasePreparation: {models.PhaseNight},
	models.PhaseNight:       {models.PhaseDay},
	models.PhaseDay:         {models.PhaseVoting, models.PhaseEnded},
	models.PhaseVoting:      {models.PhaseNight, models.PhaseWaiting, models.PhaseEnded},
	models.PhaseEnded:       {},
}

// CanTransitionTo checks whether a transition from p to target is legal.
// The write boundary rejects phase changes that fail this check.
func CanTransitionTo(p, target models.Phase) bool {
	for _, allowed := range validTransitions[p] {
		if allowed == target {
			return true
		}
	}
	return false
}
