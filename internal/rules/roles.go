package rules

import (
	"fmt"
	"math/rand"

	"github.com/glougarou/backend/internal/models"
)

// ValidateRoleCounts checks a settings role deck against the actual player
// count. Roles not listed in RoleCounts are filled with villagers, so the
// explicit counts may sum to less than playerCount but never more, and no
// disabled role may carry a count.
func ValidateRoleCounts(settings models.GameSettings, playerCount int) error {
	total := 0
	for role, count := range settings.RoleCounts {
		if count < 0 {
			return fmt.Errorf("role %s has negative count %d", role, count)
		}
		if count > 0 && len(settings.EnabledRoles) > 0 && !settings.RoleEnabled(role) {
			return fmt.Errorf("role %s is not enabled", role)
		}
		total += count
	}
	if total > playerCount {
		return fmt.Errorf("role counts sum to %d but only %d players joined", total, playerCount)
	}
	return nil
}

// BuildDeck expands settings into one role per player. Unassigned slots
// become villagers. Werewolf count defaults to roughly a quarter of the
// table when the settings name none.
func BuildDeck(settings models.GameSettings, playerCount int) ([]models.Role, error) {
	if err := ValidateRoleCounts(settings, playerCount); err != nil {
		return nil, err
	}

	counts := make(map[models.Role]int, len(settings.RoleCounts))
	for role, count := range settings.RoleCounts {
		counts[role] = count
	}
	if counts[models.RoleWerewolf] == 0 {
		counts[models.RoleWerewolf] = playerCount / 4
		if counts[models.RoleWerewolf] == 0 {
			counts[models.RoleWerewolf] = 1
		}
	}

	deck := make([]models.Role, 0, playerCount)
	for role, count := range counts {
		for i := 0; i < count; i++ {
			deck = append(deck, role)
		}
	}
	if len(deck) > playerCount {
		return nil, fmt.Errorf("deck size %d exceeds player count %d", len(deck), playerCount)
	}
	for len(deck) < playerCount {
		deck = append(deck, models.RoleVillager)
	}
	return deck, nil
}

// AssignRoles shuffles the deck and maps one role onto each player id.
func AssignRoles(settings models.GameSettings, players []models.Player) (map[string]models.Role, error) {
	deck, err := BuildDeck(settings, len(players))
	if err != nil {
		return nil, err
	}

	rand.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})

	assigned := make(map[string]models.Role, len(players))
	for i, p := range players {
		assigned[p.ID.String()] = deck[i]
	}
	return assigned, nil
}
