package links

import (
	"testing"
	"time"

	"github.com/payflow/payflow-api/internal/models"
)

func testLink(maxAttempts int, expiresIn time.Duration) *models.DownloadLink {
	return &models.DownloadLink{
		Token:             "tok",
		MatriculeRequired: "1001",
		MaxAttempts:       maxAttempts,
		Status:            models.LinkActive,
		ExpiresAt:         time.Now().Add(expiresIn),
	}
}

func TestStateOf(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		link *models.DownloadLink
		want State
	}{
		{"fresh link", testLink(10, time.Hour), StateActive},
		{"attempts exhausted", func() *models.DownloadLink {
			l := testLink(10, time.Hour)
			l.Attempts = 10
			return l
		}(), StateLocked},
		{"past expiry", testLink(10, -time.Hour), StateExpired},
		{"revoked dominates everything", func() *models.DownloadLink {
			l := testLink(10, -time.Hour)
			l.Attempts = 10
			l.Status = models.LinkRevoked
			return l
		}(), StateRevoked},
		{"expired and locked reports expired", func() *models.DownloadLink {
			l := testLink(10, -time.Hour)
			l.Attempts = 10
			return l
		}(), StateExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StateOf(tt.link, now); got != tt.want {
				t.Errorf("StateOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVerify_AttemptBudget(t *testing.T) {
	now := time.Now()
	l := testLink(3, time.Hour)

	// Three wrong calls consume the whole budget.
	for i := 1; i <= 3; i++ {
		got := Verify(l, "9999", "10.0.0.1", now)
		if got != OutcomeWrongMatricule {
			t.Fatalf("call %d: Verify() = %q, want %q", i, got, OutcomeWrongMatricule)
		}
		if l.Attempts != i {
			t.Fatalf("call %d: attempts = %d, want %d", i, l.Attempts, i)
		}
	}

	// The next call is rejected at the state check and not re-counted,
	// even with the correct matricule.
	got := Verify(l, "1001", "10.0.0.1", now)
	if got != OutcomeLocked {
		t.Errorf("post-lock Verify() = %q, want %q", got, OutcomeLocked)
	}
	if l.Attempts != 3 {
		t.Errorf("post-lock attempts = %d, want 3 (blocked calls must not count)", l.Attempts)
	}
}

func TestVerify_SuccessCostsOneAttempt(t *testing.T) {
	now := time.Now()
	l := testLink(10, time.Hour)

	got := Verify(l, "1001", "10.0.0.1", now)
	if got != OutcomeGranted {
		t.Fatalf("Verify() = %q, want %q", got, OutcomeGranted)
	}
	if l.Attempts != 1 {
		t.Errorf("attempts = %d, want 1 (success still costs an attempt)", l.Attempts)
	}
	if l.Downloads != 1 {
		t.Errorf("downloads = %d, want 1", l.Downloads)
	}
	if l.FirstAccessAt == nil || l.LastAccessAt == nil {
		t.Error("access timestamps not stamped")
	}
	if l.LastClientIP != "10.0.0.1" {
		t.Errorf("last client IP = %q, want 10.0.0.1", l.LastClientIP)
	}
}

func TestVerify_SingleAttemptBudget(t *testing.T) {
	now := time.Now()
	l := testLink(1, time.Hour)

	if got := Verify(l, "9999", "10.0.0.1", now); got != OutcomeWrongMatricule {
		t.Fatalf("Verify() = %q, want %q", got, OutcomeWrongMatricule)
	}
	if got := Verify(l, "1001", "10.0.0.1", now); got != OutcomeLocked {
		t.Errorf("second Verify() = %q, want %q (budget of one is spent)", got, OutcomeLocked)
	}
}

func TestVerify_ExpiredRejectedUncounted(t *testing.T) {
	now := time.Now()
	l := testLink(10, -time.Minute)

	if got := Verify(l, "1001", "10.0.0.1", now); got != OutcomeExpired {
		t.Fatalf("Verify() = %q, want %q", got, OutcomeExpired)
	}
	if l.Attempts != 0 {
		t.Errorf("attempts = %d, want 0", l.Attempts)
	}
}

func TestVerify_RevokedRejected(t *testing.T) {
	now := time.Now()
	l := testLink(10, time.Hour)
	l.Status = models.LinkRevoked

	if got := Verify(l, "1001", "10.0.0.1", now); got != OutcomeRevoked {
		t.Errorf("Verify() = %q, want %q", got, OutcomeRevoked)
	}
}

func TestVerify_FirstAccessStampedOnce(t *testing.T) {
	now := time.Now()
	l := testLink(10, time.Hour)

	Verify(l, "9999", "10.0.0.1", now)
	first := l.FirstAccessAt
	if first == nil {
		t.Fatal("first access not stamped")
	}

	later := now.Add(time.Minute)
	Verify(l, "1001", "10.0.0.2", later)
	if l.FirstAccessAt != first {
		t.Error("first access timestamp must not move on later calls")
	}
	if l.LastAccessAt == nil || !l.LastAccessAt.Equal(later) {
		t.Error("last access timestamp must follow the latest call")
	}
}

func TestFetch_RequiresPriorVerify(t *testing.T) {
	now := time.Now()
	l := testLink(10, time.Hour)

	if got := Fetch(l, now); got != OutcomeNotVerified {
		t.Fatalf("Fetch() = %q, want %q (no successful verify yet)", got, OutcomeNotVerified)
	}

	Verify(l, "1001", "10.0.0.1", now)
	if got := Fetch(l, now); got != OutcomeGranted {
		t.Errorf("Fetch() after verify = %q, want %q", got, OutcomeGranted)
	}
}

func TestFetch_LockedButVerifiedStaysFetchable(t *testing.T) {
	now := time.Now()
	l := testLink(2, time.Hour)

	Verify(l, "1001", "10.0.0.1", now) // success, spends one attempt
	Verify(l, "9999", "10.0.0.1", now) // spends the last attempt

	if got := StateOf(l, now); got != StateLocked {
		t.Fatalf("StateOf() = %q, want %q", got, StateLocked)
	}
	if got := Fetch(l, now); got != OutcomeGranted {
		t.Errorf("Fetch() = %q, want %q (lockout blocks verify, not fetch)", got, OutcomeGranted)
	}
}

func TestFetch_BlockedStates(t *testing.T) {
	now := time.Now()

	expired := testLink(10, -time.Hour)
	expired.Downloads = 1
	if got := Fetch(expired, now); got != OutcomeExpired {
		t.Errorf("expired Fetch() = %q, want %q", got, OutcomeExpired)
	}

	revoked := testLink(10, time.Hour)
	revoked.Downloads = 1
	revoked.Status = models.LinkRevoked
	if got := Fetch(revoked, now); got != OutcomeRevoked {
		t.Errorf("revoked Fetch() = %q, want %q", got, OutcomeRevoked)
	}
}

func TestRemaining(t *testing.T) {
	l := testLink(10, time.Hour)
	if got := Remaining(l); got != 10 {
		t.Errorf("Remaining() = %d, want 10", got)
	}
	l.Attempts = 12
	if got := Remaining(l); got != 0 {
		t.Errorf("Remaining() = %d, want 0 (floored)", got)
	}
}

func TestNewToken(t *testing.T) {
	a, err := NewToken()
	if err != nil {
		t.Fatalf("NewToken() error: %v", err)
	}
	b, err := NewToken()
	if err != nil {
		t.Fatalf("NewToken() error: %v", err)
	}
	if a == b {
		t.Error("two tokens must not collide")
	}
	// 32 bytes of randomness, base64url without padding.
	if len(a) != 43 {
		t.Errorf("token length = %d, want 43", len(a))
	}
}
