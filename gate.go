package auth

// Gate checks a session against a minimum role. A nil session is the
// anonymous state, and that is the only place it is handled.
type Gate struct {
	logger Logger
}

// NewGate creates a Gate
func NewGate(logger Logger) *Gate {
	return &Gate{logger: normalizeLogger(logger)}
}

// Allowed reports whether the session meets the minimum role
func (g *Gate) Allowed(session *Session, min UserRole) bool {
	return session.role().IsAtLeast(min)
}

// Authorize returns ErrAccessDenied when the session does not meet the
// minimum role. Missing sessions and low roles get the same error.
func (g *Gate) Authorize(session *Session, min UserRole) error {
	if g.Allowed(session, min) {
		return nil
	}

	if g != nil && g.logger != nil {
		g.logger.Debug("gate denied access", "role", session.role(), "required", min)
	}

	return ErrAccessDenied
}
