// protocol.go implements the link redemption state machine as pure functions.
//
// Go Pattern: the decision logic mutates an in-memory snapshot of the link
// and returns an outcome; persistence happens in the service layer after the
// decision. Keeping the protocol free of I/O makes every transition unit
// testable without a database.
package links

import (
	"time"

	"github.com/payflow/payflow-api/internal/models"
)

// State is the computed redemption state of a link at a point in time.
type State string

const (
	StateActive  State = "active"
	StateLocked  State = "locked"
	StateExpired State = "expired"
	StateRevoked State = "revoked"
)

// Outcome identifies the result of one protocol transition. Each terminal
// condition gets its own code so the public endpoints can surface a specific
// reason — none of these are errors.
type Outcome string

const (
	OutcomeGranted        Outcome = "granted"
	OutcomeInvalidToken   Outcome = "invalid_token"
	OutcomeRevoked        Outcome = "revoked"
	OutcomeExpired        Outcome = "expired"
	OutcomeLocked         Outcome = "locked"
	OutcomeWrongMatricule Outcome = "wrong_matricule"
	OutcomeNotVerified    Outcome = "not_verified"
	OutcomeFileMissing    Outcome = "file_missing"
)

// StateOf computes the current state of a link. Revoked dominates: an
// administrator revocation blocks redemption regardless of attempts or
// expiry. Expired is checked before Locked so a link that is both reports
// the unrecoverable condition.
func StateOf(l *models.DownloadLink, now time.Time) State {
	if l.Status == models.LinkRevoked {
		return StateRevoked
	}
	if !now.Before(l.ExpiresAt) {
		return StateExpired
	}
	if l.Attempts >= l.MaxAttempts {
		return StateLocked
	}
	return StateActive
}

// Remaining returns the attempt budget left, floored at 0.
func Remaining(l *models.DownloadLink) int {
	r := l.MaxAttempts - l.Attempts
	if r < 0 {
		return 0
	}
	return r
}

// blockedOutcome maps a non-active state to its outcome code.
func blockedOutcome(s State) Outcome {
	switch s {
	case StateRevoked:
		return OutcomeRevoked
	case StateExpired:
		return OutcomeExpired
	default:
		return OutcomeLocked
	}
}

// Verify runs the verify transition against the snapshot. The state check
// comes first: calls against a locked, expired or revoked link are rejected
// without touching the attempt counter. While the link is active, every call
// costs one attempt — including the successful one. Attempts are a call
// budget, not a failure budget.
func Verify(l *models.DownloadLink, submitted, clientIP string, now time.Time) Outcome {
	if s := StateOf(l, now); s != StateActive {
		return blockedOutcome(s)
	}

	l.Attempts++
	l.LastClientIP = clientIP
	l.LastAccessAt = &now
	if l.FirstAccessAt == nil {
		l.FirstAccessAt = &now
	}

	if submitted != l.MatriculeRequired {
		return OutcomeWrongMatricule
	}

	l.Downloads++
	return OutcomeGranted
}

// Fetch runs the file-release check. A fetch is only authorized after at
// least one successful verify in the link's lifetime (Downloads > 0), which
// prevents bypassing matricule verification by guessing tokens and fetching
// directly. Revocation and expiry still block; lockout does not — a link
// whose attempt budget ran out after a successful verify stays fetchable
// until it expires.
func Fetch(l *models.DownloadLink, now time.Time) Outcome {
	if l.Status == models.LinkRevoked {
		return OutcomeRevoked
	}
	if !now.Before(l.ExpiresAt) {
		return OutcomeExpired
	}
	if l.Downloads == 0 {
		return OutcomeNotVerified
	}
	return OutcomeGranted
}
