package rules

import "github.com/glougarou/backend/internal/models"

// Winner identifies the side that ended the game.
type Winner string

const (
	WinnerNone       Winner = ""
	WinnerVillage    Winner = "village"
	WinnerWerewolves Winner = "werewolves"
)

// CheckWin tallies alive players. Werewolves win when they match or
// outnumber the rest of the table; the village wins when no werewolf
// remains alive.
func CheckWin(players []models.Player) Winner {
	aliveWolves := 0
	aliveOthers := 0
	for i := range players {
		if !players[i].Alive() {
			continue
		}
		if players[i].Role == models.RoleWerewolf {
			aliveWolves++
		} else {
			aliveOthers++
		}
	}

	if aliveWolves == 0 && aliveOthers > 0 {
		return WinnerVillage
	}
	if aliveWolves > 0 && aliveWolves >= aliveOthers {
		return WinnerWerewolves
	}
	return WinnerNone
}

// TallyVotes counts vote targets among alive players and returns the id
// with the most votes. A tie or an empty tally returns ok=false.
func TallyVotes(players []models.Player) (targetID string, ok bool) {
	counts := make(map[string]int)
	for i := range players {
		if !players[i].Alive() || players[i].VoteTarget == nil {
			continue
		}
		counts[players[i].VoteTarget.String()]++
	}

	best, bestCount, tied := "", 0, false
	for id, n := range counts {
		switch {
		case n > bestCount:
			best, bestCount, tied = id, n, false
		case n == bestCount:
			tied = true
		}
	}
	if bestCount == 0 || tied {
		return "", false
	}
	return best, true
}
