package domain

import "strings"

type Role string

const (
	RoleNone  Role = "none"
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func ParseRole(raw string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleUser:
		return RoleUser
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleNone
	}
}

type SessionState struct {
	IsAuthenticated bool
	Role            Role
	Username        string
}

func AnonymousSession() SessionState {
	return SessionState{Role: RoleNone}
}

// PollingAllowed is the only condition under which charge polling may run.
func (s SessionState) PollingAllowed() bool {
	return s.IsAuthenticated && s.Role == RoleUser
}

type Credentials struct {
	Username string
	Password string
}

// UserProfile is what /current-user/ reports. Balance is nil when the server
// omitted it.
type UserProfile struct {
	Username string
	Role     Role
	Balance  *AccountBalance
}
