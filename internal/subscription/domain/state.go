package domain

// Allowed lifecycle transitions. Expired is terminal.
var transitions = map[Status][]Status{
	StatusPendingPayment: {StatusActive, StatusPendingStart, StatusExpired},
	StatusPendingStart:   {StatusActive, StatusExpired},
	StatusActive:         {StatusSuspended, StatusExpired},
	StatusSuspended:      {StatusActive, StatusExpired},
}

func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsSuspensionManaged reports whether the transition belongs to the suspend and
// unsuspend operations rather than a plain status change.
func IsSuspensionManaged(from, to Status) bool {
	return to == StatusSuspended || (from == StatusSuspended && to == StatusActive)
}

// CheckSuspensionInvariant verifies that the suspension shadow fields agree
// with status before a write.
func CheckSuspensionInvariant(sub *Subscription) error {
	suspended := sub.Status == StatusSuspended
	if sub.IsSuspended != suspended {
		return ErrSuspensionStateDrift
	}
	if suspended && (sub.SuspensionStartDate == nil || sub.SuspensionEndDate == nil) {
		return ErrSuspensionStateDrift
	}
	return nil
}
