// internal/models/role.go
package models

// RoleName is one of the four round roles.
type RoleName string

const (
	RoleRaja   RoleName = "Raja"
	RoleMantri RoleName = "Mantri"
	RoleChor   RoleName = "Chor"
	RoleSipahi RoleName = "Sipahi"
)

// Role carries the static metadata for a role: its baseline point value and
// the display color clients render the paper slip with. The actual round
// award depends on the Mantri's guess, not on Points alone.
type Role struct {
	Name   RoleName `json:"name"`
	Points int      `json:"points"`
	Color  string   `json:"color"`
}

// Roles lists the four roles in canonical order. Every round uses each of
// them exactly once.
var Roles = []Role{
	{Name: RoleRaja, Points: 1000, Color: "#FFD700"},
	{Name: RoleMantri, Points: 800, Color: "#4169E1"},
	{Name: RoleChor, Points: 0, Color: "#DC143C"},
	{Name: RoleSipahi, Points: 200, Color: "#228B22"},
}

// RoleByName returns the static metadata for a role name, or nil if the name
// is not one of the four roles.
func RoleByName(name RoleName) *Role {
	for i := range Roles {
		if Roles[i].Name == name {
			return &Roles[i]
		}
	}
	return nil
}
