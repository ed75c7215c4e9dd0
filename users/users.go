package users

import (
	"strings"
	"time"
)

// RoleType is the account role reported by the API.
type RoleType string

const (
	RoleUser  RoleType = "user"  // Regular account, the default when the API omits the role
	RoleAdmin RoleType = "admin" // Can reach the admin area
)

// Profile is the signed-in account as returned by the API.
type Profile struct {
	ID              string    `json:"id"`                 // Unique identifier of the account
	Email           string    `json:"email"`              // Account email address
	Username        string    `json:"username"`           // Display name chosen at registration
	Role            RoleType  `json:"role,omitempty"`     // Account role, empty means user
	IsEmailVerified bool      `json:"isEmailVerified"`    // Whether the email address has been confirmed
	CreatedAt       time.Time `json:"createdAt,omitzero"` // When the account was created
	UpdatedAt       time.Time `json:"updatedAt,omitzero"` // Last time the account changed
}

// IsAdmin compares the role case-insensitively.
func (p *Profile) IsAdmin() bool {
	return p != nil && strings.EqualFold(string(p.Role), string(RoleAdmin))
}

// EffectiveRole returns the role, defaulting to user.
func (p *Profile) EffectiveRole() RoleType {
	if p == nil || p.Role == "" {
		return RoleUser
	}
	return RoleType(strings.ToLower(string(p.Role)))
}

// DisplayName prefers the username and falls back to the email.
func (p *Profile) DisplayName() string {
	if p == nil {
		return ""
	}
	if p.Username != "" {
		return p.Username
	}
	return p.Email
}

// ParseRole accepts any casing of the known roles.
func ParseRole(s string) (RoleType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(RoleUser):
		return RoleUser, true
	case string(RoleAdmin):
		return RoleAdmin, true
	}
	return "", false
}
