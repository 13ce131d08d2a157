package utils

import (
	"coolbot/models"

	"github.com/bwmarrin/discordgo"
)

// Permission levels for commands and controls.
const (
	LevelGuest      = "guest"
	LevelAuthorized = "authorized"
	LevelAdmin      = "admin"
)

// Auth provides methods for authorization checks.
type Auth struct {
	roles models.RoleConfig
}

// NewAuth creates a new Auth instance for the configured roles.
func NewAuth(roles models.RoleConfig) *Auth {
	return &Auth{roles: roles}
}

// HasRole reports whether member holds roleID. An empty roleID is held by nobody.
func HasRole(member *discordgo.Member, roleID string) bool {
	if member == nil || roleID == "" {
		return false
	}
	for _, userRoleID := range member.Roles {
		if userRoleID == roleID {
			return true
		}
	}
	return false
}

// IsAuthorized checks if a member holds the support staff role.
func (a *Auth) IsAuthorized(member *discordgo.Member) bool {
	return HasRole(member, a.roles.Authorized)
}

// IsAdmin checks if a member holds the bot admin role. Only admins may run
// raw SQL against the store.
func (a *Auth) IsAdmin(member *discordgo.Member) bool {
	return HasRole(member, a.roles.Admin)
}

// CheckPermission checks if the invoking member has the required permission level.
// Interactions outside a guild carry no member and only pass guest checks.
func (a *Auth) CheckPermission(i *discordgo.InteractionCreate, requiredLevel string) bool {
	member := i.Member

	switch requiredLevel {
	case LevelGuest:
		return true
	case LevelAuthorized:
		return a.IsAuthorized(member)
	case LevelAdmin:
		return a.IsAdmin(member)
	default:
		return false
	}
}
