// Package links issues secure download links and runs the redemption
// protocol that governs their use.
package links

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/payflow/payflow-api/internal/models"
)

// Store is the persistence the service needs. Go Pattern: accept
// interfaces, return structs — *database.DB satisfies this, and tests can
// substitute a fake.
type Store interface {
	CreateDownloadLink(ctx context.Context, l *models.DownloadLink) error
	GetLinkByToken(ctx context.Context, token string) (*models.DownloadLink, error)
	SpendVerifyAttempt(ctx context.Context, l *models.DownloadLink, granted bool) (bool, error)
	GetEmployee(ctx context.Context, id string) (*models.Employee, error)
}

// Service issues download links and applies protocol transitions,
// persisting the mutated snapshots.
type Service struct {
	db          Store
	maxAttempts int
	expiryDays  int

	// now is swappable in tests.
	now func() time.Time
}

// New creates a link service with the configured redemption budget.
func New(db Store, maxAttempts, expiryDays int) *Service {
	return &Service{
		db:          db,
		maxAttempts: maxAttempts,
		expiryDays:  expiryDays,
		now:         time.Now,
	}
}

// NewToken returns a URL-safe random token with 256 bits of entropy.
func NewToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("token generation failed: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Issue creates and persists a download link for one generated file.
// Returns nil (not an error) when persistence fails: the pipeline logs the
// gap and keeps processing — the employee counts as processed without
// distribution, never as a failed run.
func (s *Service) Issue(ctx context.Context, employeeID, treatmentID, filename, filePath, matricule string) *models.DownloadLink {
	token, err := NewToken()
	if err != nil {
		log.Printf("❌ Links: token generation failed: %v", err)
		return nil
	}

	now := s.now()
	link := &models.DownloadLink{
		Token:             token,
		EmployeeID:        employeeID,
		TreatmentID:       treatmentID,
		Filename:          filename,
		FilePath:          filePath,
		MatriculeRequired: matricule,
		MaxAttempts:       s.maxAttempts,
		Status:            models.LinkActive,
		ExpiresAt:         now.AddDate(0, 0, s.expiryDays),
	}

	if err := s.db.CreateDownloadLink(ctx, link); err != nil {
		log.Printf("❌ Links: failed to persist link for employee %s: %v", employeeID, err)
		return nil
	}
	return link
}

// View returns the read-only public state of a token. Never mutates the
// link. An unknown token is reported as invalid, distinguishable from a
// known-but-blocked link.
func (s *Service) View(ctx context.Context, token string) (*models.LinkInfoResponse, error) {
	link, err := s.db.GetLinkByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return &models.LinkInfoResponse{Valid: false, State: string(OutcomeInvalidToken)}, nil
	}

	now := s.now()
	state := StateOf(link, now)

	info := &models.LinkInfoResponse{
		Valid:             state == StateActive,
		State:             string(state),
		RemainingAttempts: Remaining(link),
		ExpiresInDays:     link.ExpiresInDays(now),
	}
	if state == StateActive {
		info.Filename = link.Filename
		if emp, err := s.db.GetEmployee(ctx, link.EmployeeID); err == nil {
			info.EmployeeName = emp.Name
		}
	}
	return info, nil
}

// VerifyResult carries the outcome of a verify transition back to the
// handler along with the post-transition snapshot.
type VerifyResult struct {
	Outcome           Outcome
	Link              *models.DownloadLink
	RemainingAttempts int
}

// Verify applies the verify transition for a token and persists the result.
func (s *Service) Verify(ctx context.Context, token, submitted, clientIP string) (*VerifyResult, error) {
	link, err := s.db.GetLinkByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return &VerifyResult{Outcome: OutcomeInvalidToken}, nil
	}

	now := s.now()
	outcome := Verify(link, submitted, clientIP, now)

	// Only active-state calls mutate the snapshot; blocked calls are
	// rejected before the counter and need no write-back. The write-back
	// re-checks the budget inside the UPDATE, so a concurrent call racing
	// on the same token cannot overspend it.
	if outcome == OutcomeWrongMatricule || outcome == OutcomeGranted {
		ok, err := s.db.SpendVerifyAttempt(ctx, link, outcome == OutcomeGranted)
		if err != nil {
			return nil, fmt.Errorf("failed to persist verify transition: %w", err)
		}
		if !ok {
			// Lost the race: the link left the active state between our
			// read and the guarded write. Report the current blocked
			// state instead of the stale grant.
			fresh, err := s.db.GetLinkByToken(ctx, token)
			if err != nil {
				return nil, err
			}
			if fresh == nil {
				return &VerifyResult{Outcome: OutcomeInvalidToken}, nil
			}
			return &VerifyResult{
				Outcome:           blockedOutcome(StateOf(fresh, now)),
				Link:              fresh,
				RemainingAttempts: Remaining(fresh),
			}, nil
		}
	}

	return &VerifyResult{
		Outcome:           outcome,
		Link:              link,
		RemainingAttempts: Remaining(link),
	}, nil
}

// FetchResult is the outcome of a fetch transition. Path is set only when
// the outcome is granted.
type FetchResult struct {
	Outcome  Outcome
	Path     string
	Filename string
}

// Fetch authorizes release of the file bytes for a token.
func (s *Service) Fetch(ctx context.Context, token string) (*FetchResult, error) {
	link, err := s.db.GetLinkByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return &FetchResult{Outcome: OutcomeInvalidToken}, nil
	}

	outcome := Fetch(link, s.now())
	if outcome != OutcomeGranted {
		return &FetchResult{Outcome: outcome}, nil
	}

	if _, err := os.Stat(link.FilePath); err != nil {
		log.Printf("⚠️  Links: file missing on storage for link %s: %s", link.TokenPrefix(), link.FilePath)
		return &FetchResult{Outcome: OutcomeFileMissing}, nil
	}

	return &FetchResult{Outcome: OutcomeGranted, Path: link.FilePath, Filename: link.Filename}, nil
}
