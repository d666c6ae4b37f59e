package credentials

// Principal is what a successful password check yields: enough to issue a
// session the gateway can later replay.
type Principal struct {
	UserID string
	Role   string
}

// IsAdmin reports whether the principal sees every unit's events.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
