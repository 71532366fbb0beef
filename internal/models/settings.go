package models

// GameSettings holds JSONB per-game configuration.
type GameSettings struct {
	MaxPlayers   int          `json:"max_players"`
	MinPlayers   int          `json:"min_players"`
	EnabledRoles []Role       `json:"enabled_roles,omitempty"`
	RoleCounts   map[Role]int `json:"role_counts,omitempty"`
}

// DefaultGameSettings returns the settings applied when a create request
// carries none.
func DefaultGameSettings() GameSettings {
	return GameSettings{
		MaxPlayers:   12,
		MinPlayers:   3,
		EnabledRoles: []Role{RoleVillager, RoleWerewolf, RoleSeer},
		RoleCounts:   map[Role]int{},
	}
}

// RoleEnabled reports whether a role may appear in this game.
func (s GameSettings) RoleEnabled(role Role) bool {
	for _, r := range s.EnabledRoles {
		if r == role {
			return true
		}
	}
	return false
}
