// internal/game/sync_state.go
package game

import (
	"github.com/google/uuid"
	"github.com/rajamantri/server/internal/models"
)

// PlayerView is the state of one seat from the perspective of a requesting
// player. Role is nil while that role is still secret from the viewer.
type PlayerView struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	Role        *models.Role      `json:"role,omitempty"`
	TotalPoints int               `json:"totalPoints"`
	IsConnected bool              `json:"isConnected"`
	JoinOrder   int               `json:"joinOrder"`
	RoleHistory []models.RoleName `json:"roleHistory,omitempty"`
}

// RoomView is the full-room snapshot sent to a specific seat on every state
// change and on (re)connect. Role-id fields appear only once the phase makes
// them public: Raja and Mantri from revealing onward, Chor and Sipahi from
// results onward.
type RoomView struct {
	RoomCode     string                `json:"roomCode"`
	Players      map[string]PlayerView `json:"players"`
	CurrentRound int                   `json:"currentRound"`
	TotalRounds  int                   `json:"totalRounds"`
	GamePhase    models.GamePhase      `json:"gamePhase"`

	RajaID   string `json:"rajaId,omitempty"`
	MantriID string `json:"mantriId,omitempty"`
	ChorID   string `json:"chorId,omitempty"`
	SipahiID string `json:"sipahiId,omitempty"`

	MantriSelection *models.MantriSelection `json:"mantriSelection,omitempty"`

	CreatedBy string `json:"createdBy"`

	YourID   string       `json:"yourId"`
	YourRole *models.Role `json:"yourRole,omitempty"`
}

// buildRoomViewLocked generates the snapshot for one viewer. Assumes lock is held.
func (g *GameRoom) buildRoomViewLocked(forPlayer uuid.UUID) *RoomView {
	view := &RoomView{
		RoomCode:        g.Code,
		Players:         make(map[string]PlayerView, len(g.Players)),
		CurrentRound:    g.CurrentRound,
		TotalRounds:     g.TotalRounds,
		GamePhase:       g.Phase,
		MantriSelection: g.Selection,
		CreatedBy:       g.CreatedBy.String(),
		YourID:          forPlayer.String(),
	}

	if g.rolesAnnouncedLocked() {
		view.RajaID = g.Roles.RajaID.String()
		view.MantriID = g.Roles.MantriID.String()
	}
	if g.rolesPublicLocked() {
		view.ChorID = g.Roles.ChorID.String()
		view.SipahiID = g.Roles.SipahiID.String()
	}

	for _, p := range g.Players {
		pv := PlayerView{
			ID:          p.ID,
			Name:        p.Name,
			TotalPoints: p.TotalPoints,
			IsConnected: p.IsConnected,
			JoinOrder:   p.JoinOrder,
		}
		if g.roleVisibleLocked(forPlayer, p) {
			pv.Role = models.RoleByName(p.Role)
			pv.RoleHistory = p.RoleHistory
		}
		view.Players[p.ID.String()] = pv
		if p.ID == forPlayer {
			view.YourRole = models.RoleByName(p.Role)
		}
	}
	return view
}

// rolesAnnouncedLocked reports whether the Raja and Mantri identities are
// public knowledge: true from revealing onward while a round's roles stand.
func (g *GameRoom) rolesAnnouncedLocked() bool {
	switch g.Phase {
	case models.PhaseRevealing, models.PhaseMantriChoice, models.PhaseResults, models.PhaseFinished:
		return g.Roles.RajaID != uuid.Nil
	default:
		return false
	}
}

// rolesPublicLocked reports whether every role is public: true once the
// round has been resolved.
func (g *GameRoom) rolesPublicLocked() bool {
	switch g.Phase {
	case models.PhaseResults, models.PhaseFinished:
		return g.Roles.ChorID != uuid.Nil
	default:
		return false
	}
}

// roleVisibleLocked decides whether the viewer may see a seat's role. A seat
// always sees its own; the Raja and Mantri slips are face-up from revealing
// onward; everything is face-up once the round is resolved.
func (g *GameRoom) roleVisibleLocked(viewer uuid.UUID, p *models.Player) bool {
	if p.Role == "" {
		return false
	}
	if p.ID == viewer {
		return true
	}
	if g.rolesPublicLocked() {
		return true
	}
	if g.rolesAnnouncedLocked() && (p.ID == g.Roles.RajaID || p.ID == g.Roles.MantriID) {
		return true
	}
	return false
}
