package float

// SessionStatus is the float status of a Cx session
type SessionStatus string

const (
	SessionStatusDormant            SessionStatus = "DORMANT"
	SessionStatusFloatOpenStart     SessionStatus = "FLOAT_OPEN_START"
	SessionStatusFloatOpenComplete  SessionStatus = "FLOAT_OPEN_COMPLETE"
	SessionStatusFloatCloseStart    SessionStatus = "FLOAT_CLOSE_START"
	SessionStatusFloatCloseComplete SessionStatus = "FLOAT_CLOSE_COMPLETE"
)

// transitions lists the allowed moves. FLOAT_CLOSE_START may step back to
// FLOAT_OPEN_COMPLETE when a close is cancelled.
var transitions = map[SessionStatus][]SessionStatus{
	SessionStatusDormant:           {SessionStatusFloatOpenStart},
	SessionStatusFloatOpenStart:    {SessionStatusFloatOpenComplete},
	SessionStatusFloatOpenComplete: {SessionStatusFloatCloseStart},
	SessionStatusFloatCloseStart:   {SessionStatusFloatCloseComplete, SessionStatusFloatOpenComplete},
}

// IsValid checks if the status is a known value
func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionStatusDormant, SessionStatusFloatOpenStart, SessionStatusFloatOpenComplete,
		SessionStatusFloatCloseStart, SessionStatusFloatCloseComplete:
		return true
	}
	return false
}

// IsTerminal returns true once the float has been closed
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusFloatCloseComplete
}

// CanTransitionTo reports whether target is reachable in one step
func (s SessionStatus) CanTransitionTo(target SessionStatus) bool {
	for _, next := range transitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// IsTrading returns true when orders may be completed against the session
func (s SessionStatus) IsTrading() bool {
	return s == SessionStatusFloatOpenComplete
}

// NonTerminalStatuses returns every status in which a session is still active
func NonTerminalStatuses() []SessionStatus {
	return []SessionStatus{
		SessionStatusDormant,
		SessionStatusFloatOpenStart,
		SessionStatusFloatOpenComplete,
		SessionStatusFloatCloseStart,
	}
}
