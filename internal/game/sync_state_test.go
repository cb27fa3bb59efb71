package game

import (
	"testing"

	"github.com/google/uuid"
	"github.com/rajamantri/server/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func viewFor(g *GameRoom, viewer uuid.UUID) *RoomView {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.buildRoomViewLocked(viewer)
}

func TestRoomViewLobbyHidesEverything(t *testing.T) {
	g, players, _ := setupTestRoom(t, 4, 5)

	view := viewFor(g, players[0].ID)
	assert.Equal(t, models.PhaseLobby, view.GamePhase)
	assert.Empty(t, view.RajaID)
	assert.Empty(t, view.MantriID)
	assert.Empty(t, view.ChorID)
	assert.Empty(t, view.SipahiID)
	assert.Nil(t, view.YourRole)
	for _, pv := range view.Players {
		assert.Nil(t, pv.Role)
	}
	assert.Equal(t, players[0].ID.String(), view.CreatedBy)
	assert.Equal(t, players[0].ID.String(), view.YourID)
}

func TestRoomViewSecrecyDuringMantriChoice(t *testing.T) {
	g, players, _ := setupTestRoom(t, 4, 5)
	require.NoError(t, g.StartGame(players[0].ID))
	waitForPhase(t, g, models.PhaseMantriChoice)
	roles := rolesOf(g)

	// The Chor sees the announced pair, its own slip, and nothing else.
	view := viewFor(g, roles.ChorID)
	assert.Equal(t, roles.RajaID.String(), view.RajaID)
	assert.Equal(t, roles.MantriID.String(), view.MantriID)
	assert.Empty(t, view.ChorID, "the Chor's identity stays secret until the round resolves")
	assert.Empty(t, view.SipahiID)

	require.NotNil(t, view.YourRole)
	assert.Equal(t, models.RoleChor, view.YourRole.Name)

	assert.NotNil(t, view.Players[roles.RajaID.String()].Role)
	assert.NotNil(t, view.Players[roles.MantriID.String()].Role)
	assert.NotNil(t, view.Players[roles.ChorID.String()].Role, "own slip is always visible")
	assert.Nil(t, view.Players[roles.SipahiID.String()].Role)

	// The Sipahi's own view mirrors that: it cannot see the Chor.
	view = viewFor(g, roles.SipahiID)
	assert.Nil(t, view.Players[roles.ChorID.String()].Role)
	require.NotNil(t, view.YourRole)
	assert.Equal(t, models.RoleSipahi, view.YourRole.Name)
}

func TestRoomViewPublicAfterResults(t *testing.T) {
	g, players, _ := setupTestRoom(t, 4, 5)
	require.NoError(t, g.StartGame(players[0].ID))
	waitForPhase(t, g, models.PhaseMantriChoice)
	roles := rolesOf(g)
	require.NoError(t, g.SubmitGuess(roles.MantriID, roles.SipahiID, roles.ChorID))

	view := viewFor(g, roles.ChorID)
	assert.Equal(t, models.PhaseResults, view.GamePhase)
	assert.Equal(t, roles.ChorID.String(), view.ChorID)
	assert.Equal(t, roles.SipahiID.String(), view.SipahiID)
	require.NotNil(t, view.MantriSelection)
	assert.False(t, view.MantriSelection.Correct)
	for id, pv := range view.Players {
		assert.NotNil(t, pv.Role, "all slips are face-up at results (seat %s)", id)
		assert.Len(t, pv.RoleHistory, 1)
	}
}
