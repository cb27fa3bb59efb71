// internal/game/assign.go
package game

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/rajamantri/server/internal/models"
)

// AssignRoles maps the four seated players to the four roles so that each
// role is used exactly once. The permutation is produced by a Fisher-Yates
// shuffle whose swap index comes from crypto/rand via rand.Int, which
// rejection-samples internally, so all 24 permutations are equally likely.
// Pure: no side effects beyond consuming randomness.
func AssignRoles(playerIDs []uuid.UUID) (map[uuid.UUID]models.RoleName, error) {
	if len(playerIDs) != 4 {
		return nil, ErrInvalidPlayerCount
	}

	roles := []models.RoleName{models.RoleRaja, models.RoleMantri, models.RoleChor, models.RoleSipahi}
	for i := len(roles) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return nil, fmt.Errorf("draw shuffle index: %w", err)
		}
		j := int(n.Int64())
		roles[i], roles[j] = roles[j], roles[i]
	}

	assignments := make(map[uuid.UUID]models.RoleName, 4)
	for i, id := range playerIDs {
		assignments[id] = roles[i]
	}
	return assignments, nil
}
