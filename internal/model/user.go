package model

import (
	"fmt"
	"strings"
	"time"
)

// User represents an authentication account: a broker, an administrator, or
// one of the automated service accounts that orchestrate lot lifecycles.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	Levels       string     `json:"levels,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// Roles.
const (
	RoleBroker        = "broker"
	RoleAdministrator = "administrator"
	RoleConcierge     = "concierge"
	RoleConvoy        = "convoy"
)

// LotOwnerRole is the effective role of a broker acting on a lot it owns.
const LotOwnerRole = "lot_owner"

// LevelTest is the sandbox accreditation tier. Brokers holding only this
// tier may create lots in test mode exclusively.
const LevelTest = "t"

// ValidRole reports whether role is one of the known account roles.
func ValidRole(role string) bool {
	switch role {
	case RoleBroker, RoleAdministrator, RoleConcierge, RoleConvoy:
		return true
	}
	return false
}

// IsBot reports whether role is an automated service-account role.
func IsBot(role string) bool {
	return role == RoleConcierge || role == RoleConvoy
}

// HasAccreditation reports whether the actor's level set contains at least
// one of the required level characters.
func HasAccreditation(levels, required string) bool {
	for _, r := range required {
		if strings.ContainsRune(levels, r) {
			return true
		}
	}
	return false
}

// TestOnlyAccreditation reports whether the actor holds the sandbox tier
// and nothing else.
func TestOnlyAccreditation(levels string) bool {
	return levels != "" && strings.Trim(levels, LevelTest) == ""
}

// ValidLevels reports whether levels contains only known accreditation
// characters ('0'-'9' tiers plus the sandbox tier).
func ValidLevels(levels string) bool {
	for _, r := range levels {
		if (r < '0' || r > '9') && string(r) != LevelTest {
			return false
		}
	}
	return true
}

// ValidatePassword checks password strength for account management.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	return nil
}
