package store

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/glougarou/backend/internal/events"
	"github.com/glougarou/backend/internal/models"
	"github.com/glougarou/backend/internal/rules"
)

// ApplyEvent folds a delivered relay event into the local snapshots.
// The sender never receives its own broadcasts, so mutations applied
// here always describe someone else's change. Unknown types and
// payloads that fail to decode are ignored.
func (s *GameStore) ApplyEvent(event *events.GameEvent) {
	switch event.Type {
	case events.TypeGameStateUpdated:
		var p events.GameStateUpdatedPayload
		if json.Unmarshal(event.Data, &p) == nil && p.GameState != nil {
			s.SetCurrentGame(p.GameState)
			s.resyncCurrentPlayer()
		}

	case events.TypePhaseChanged:
		var p events.PhaseChangedPayload
		if json.Unmarshal(event.Data, &p) == nil {
			s.applyPhase(p.Phase)
		}

	case events.TypeVoteReceived:
		var p events.VotePayload
		if json.Unmarshal(event.Data, &p) == nil {
			voterID, err := uuid.Parse(p.VoterID)
			if err != nil {
				return
			}
			targetID, err := uuid.Parse(p.TargetID)
			if err != nil {
				return
			}
			s.UpdatePlayer(voterID, func(pl *models.Player) {
				pl.VoteTarget = &targetID
			})
		}

	case events.TypePlayerEliminated:
		var p events.PlayerEliminatedPayload
		if json.Unmarshal(event.Data, &p) == nil {
			playerID, err := uuid.Parse(p.PlayerID)
			if err != nil {
				return
			}
			s.UpdatePlayer(playerID, func(pl *models.Player) {
				pl.Status = models.PlayerStatusEliminated
			})
		}

	case events.TypeRoleRevealed:
		var p events.RoleRevealedPayload
		if json.Unmarshal(event.Data, &p) == nil {
			playerID, err := uuid.Parse(p.PlayerID)
			if err != nil {
				return
			}
			s.UpdatePlayer(playerID, func(pl *models.Player) {
				pl.Role = p.Role
			})
		}
	}
}

func (s *GameStore) applyPhase(phase models.Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentGame == nil || s.currentGame.Phase == phase {
		return
	}
	s.currentGame.Phase = phase
	if rules.EntersNight(phase) {
		s.currentGame.CurrentNight++
	}
}

// resyncCurrentPlayer repoints currentPlayer at its row in the freshly
// replaced roster, keeping the two snapshots consistent.
func (s *GameStore) resyncCurrentPlayer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentGame == nil || s.currentPlayer == nil {
		return
	}
	for i := range s.currentGame.Players {
		if s.currentGame.Players[i].ID == s.currentPlayer.ID {
			s.currentPlayer = &s.currentGame.Players[i]
			return
		}
	}
}
