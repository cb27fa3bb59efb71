package game

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRoles() RoundRoles {
	return RoundRoles{
		RajaID:   uuid.New(),
		MantriID: uuid.New(),
		ChorID:   uuid.New(),
		SipahiID: uuid.New(),
	}
}

func TestScoreRoundCorrectGuess(t *testing.T) {
	roles := testRoles()

	res, err := ScoreRound(roles, roles.ChorID, roles.SipahiID)
	require.NoError(t, err)

	assert.True(t, res.Correct)
	assert.Equal(t, 1000, res.Awards[roles.RajaID])
	assert.Equal(t, 800, res.Awards[roles.MantriID])
	assert.Equal(t, 0, res.Awards[roles.ChorID])
	assert.Equal(t, 200, res.Awards[roles.SipahiID])
}

func TestScoreRoundWrongGuess(t *testing.T) {
	roles := testRoles()

	// Chor and Sipahi swapped: a legal guess, but wrong.
	res, err := ScoreRound(roles, roles.SipahiID, roles.ChorID)
	require.NoError(t, err)

	assert.False(t, res.Correct)
	assert.Equal(t, 1000, res.Awards[roles.RajaID])
	assert.Equal(t, 0, res.Awards[roles.MantriID])
	assert.Equal(t, 800, res.Awards[roles.ChorID])
	assert.Equal(t, 200, res.Awards[roles.SipahiID])
}

// A single wrong half flips correct to false; the 800 swings to the Chor.
func TestScoreRoundHalfRightIsWrong(t *testing.T) {
	roles := testRoles()

	res, err := ScoreRound(roles, roles.ChorID, roles.RajaID)
	require.NoError(t, err)
	assert.False(t, res.Correct)

	res, err = ScoreRound(roles, roles.RajaID, roles.SipahiID)
	require.NoError(t, err)
	assert.False(t, res.Correct)
}

// Every legal guess pair awards exactly 2000 points in total.
func TestScoreRoundConservesPoints(t *testing.T) {
	roles := testRoles()
	candidates := []uuid.UUID{roles.RajaID, roles.ChorID, roles.SipahiID}

	for _, chorGuess := range candidates {
		for _, sipahiGuess := range candidates {
			if chorGuess == sipahiGuess {
				continue
			}
			res, err := ScoreRound(roles, chorGuess, sipahiGuess)
			require.NoError(t, err)

			sum := 0
			for _, award := range res.Awards {
				sum += award
			}
			assert.Equal(t, 2000, sum)
			assert.Equal(t, chorGuess == roles.ChorID && sipahiGuess == roles.SipahiID, res.Correct)
		}
	}
}

func TestScoreRoundInvalidGuesses(t *testing.T) {
	roles := testRoles()

	// Same player named twice.
	_, err := ScoreRound(roles, roles.ChorID, roles.ChorID)
	assert.ErrorIs(t, err, ErrInvalidGuess)

	// The Mantri cannot accuse themselves.
	_, err = ScoreRound(roles, roles.MantriID, roles.SipahiID)
	assert.ErrorIs(t, err, ErrInvalidGuess)
	_, err = ScoreRound(roles, roles.ChorID, roles.MantriID)
	assert.ErrorIs(t, err, ErrInvalidGuess)

	// Guesses must reference players holding roles this round.
	_, err = ScoreRound(roles, uuid.New(), roles.SipahiID)
	assert.ErrorIs(t, err, ErrInvalidGuess)
	_, err = ScoreRound(roles, roles.ChorID, uuid.New())
	assert.ErrorIs(t, err, ErrInvalidGuess)
}
