// Package pipeline orchestrates one treatment run: segment the uploaded PDF,
// onboard newly seen employees, write and protect the per-employee output
// files, issue download links and send notifications, and record everything
// in the treatment ledger.
//
// Go Pattern: the runner holds its collaborators behind a single struct and
// runs synchronously inside the upload request. A process-wide slot
// serializes runs — a second concurrent upload is rejected immediately, not
// queued.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/payflow/payflow-api/internal/models"
	"github.com/payflow/payflow-api/internal/services/links"
	"github.com/payflow/payflow-api/internal/services/mailer"
	"github.com/payflow/payflow-api/internal/services/payslip"
	"github.com/payflow/payflow-api/internal/services/pdf"
	"github.com/payflow/payflow-api/internal/services/storage"
)

// ErrBusy is returned when a run is already holding the processing slot.
var ErrBusy = errors.New("a treatment is already in progress")

// Store is the subset of the database the pipeline writes at its commit
// checkpoints. Go Pattern: accept interfaces, return structs — *database.DB
// satisfies this, and tests can substitute a fake.
type Store interface {
	CreateTreatment(ctx context.Context, t *models.Treatment) error
	CloseTreatment(ctx context.Context, t *models.Treatment) error
	ActiveMatricules(ctx context.Context) (map[string]bool, error)
	OnboardEmployees(ctx context.Context, employees []*models.Employee) (int, error)
	FindByMatricule(ctx context.Context, matricule string) (*models.Employee, error)
	CreateTreatmentEmployee(ctx context.Context, te *models.TreatmentEmployee) error
}

// Runner executes treatment runs one at a time.
type Runner struct {
	db      Store
	links   *links.Service
	mailer  *mailer.Service
	storage *storage.Service

	busy atomic.Bool

	// now is swappable in tests.
	now func() time.Time
}

// New creates a pipeline runner.
func New(db Store, linksSvc *links.Service, mailerSvc *mailer.Service, store *storage.Service) *Runner {
	return &Runner{
		db:      db,
		links:   linksSvc,
		mailer:  mailerSvc,
		storage: store,
		now:     time.Now,
	}
}

// Processing reports whether a run currently holds the slot.
func (r *Runner) Processing() bool {
	return r.busy.Load()
}

// Run executes a full treatment for one uploaded PDF. It acquires the
// processing slot for the duration of the run and returns ErrBusy without
// queueing when another run holds it.
func (r *Runner) Run(ctx context.Context, file multipart.File, filename string) (*models.Treatment, error) {
	if !r.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer r.busy.Store(false)

	started := r.now()
	runID := storage.NewRunID(started)
	log.Printf("🚀 Pipeline: starting run %s for %s", runID, filename)

	// Storage trouble (disk full, bad mount) is pipeline-fatal but still
	// leaves a failed ledger entry for audit.
	_, outputDir, err := r.storage.CreateRunDirs(runID)
	if err != nil {
		return r.recordFailure(ctx, runID, filename, 0, 0, err)
	}

	srcPath, size, err := r.storage.SaveUpload(file, runID, filename)
	if err != nil {
		return r.recordFailure(ctx, runID, filename, 0, 0, err)
	}

	treatment, err := r.process(ctx, runID, srcPath, outputDir, filename, size, started)
	if err != nil {
		return treatment, err
	}

	log.Printf("✅ Pipeline: run %s finished — %d/%d employees processed, %d new, status %s",
		runID, treatment.ProcessedCount, treatment.DetectedCount, treatment.NewEmployees, treatment.Status)
	return treatment, nil
}

// process is the run body once the slot is held and the source is on disk.
func (r *Runner) process(ctx context.Context, runID, srcPath, outputDir, filename string, size int64, started time.Time) (*models.Treatment, error) {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return r.recordFailure(ctx, runID, filename, size, 0, fmt.Errorf("failed to read source: %w", err))
	}

	pageTexts, err := pdf.PageTexts(data)
	if err != nil {
		return r.recordFailure(ctx, runID, filename, size, 0, fmt.Errorf("failed to open source PDF: %w", err))
	}

	groups := payslip.Segment(pageTexts)

	newCount, err := r.onboardNew(ctx, groups)
	if err != nil {
		// Onboarding trouble degrades to zero-added; known employees
		// still get their files.
		log.Printf("⚠️  Pipeline: onboarding failed for run %s: %v", runID, err)
	}

	treatment := &models.Treatment{
		RunFolder:       runID,
		SourceFilename:  filename,
		SourceSizeBytes: size,
		PageCount:       len(pageTexts),
		DetectedCount:   len(groups),
		NewEmployees:    newCount,
		Status:          models.TreatmentInProgress,
	}
	if err := r.db.CreateTreatment(ctx, treatment); err != nil {
		// Without a run-open record there is no audit trail to attach
		// partial progress to; this is the one DB failure that aborts.
		return nil, fmt.Errorf("failed to open treatment record: %w", err)
	}

	processed := 0
	for _, g := range groups {
		if r.processGroup(ctx, treatment, g, srcPath, outputDir) {
			processed++
		}
	}

	treatment.ProcessedCount = processed
	treatment.DurationSeconds = int(r.now().Sub(started).Seconds())
	if processed == treatment.DetectedCount {
		treatment.Status = models.TreatmentComplete
	} else {
		treatment.Status = models.TreatmentPartial
	}
	if err := r.db.CloseTreatment(ctx, treatment); err != nil {
		log.Printf("❌ Pipeline: failed to close run %s: %v", runID, err)
	}
	return treatment, nil
}

// processGroup produces the artifacts for one employee group. Returns true
// when the group counts as processed — its output PDF was written, even if
// protection, link issuance or notification later degraded.
func (r *Runner) processGroup(ctx context.Context, treatment *models.Treatment, g *payslip.Group, srcPath, outputDir string) bool {
	period := g.Period
	if period == "" {
		// Documented degrade path: a page set with no recognizable
		// period is filed under the current processing month.
		period = r.now().Format("2006_01")
	}

	filename := pdf.OutputFilename(g.Name, period)
	outPath, err := pdf.WriteSubset(srcPath, outputDir, filename, g.Pages)
	if err != nil {
		log.Printf("❌ Pipeline: failed to write subset for %q: %v", g.Name, err)
		return false
	}

	if g.Matricule == "" {
		log.Printf("⚠️  Pipeline: no matricule for %q, file written without protection or link", g.Name)
		return true
	}

	emp, err := r.db.FindByMatricule(ctx, g.Matricule)
	if err != nil {
		log.Printf("⚠️  Pipeline: lookup failed for matricule %s: %v", g.Matricule, err)
		return true
	}
	if emp == nil {
		log.Printf("⚠️  Pipeline: no active employee for matricule %s, skipping distribution", g.Matricule)
		return true
	}

	if err := pdf.Protect(outPath, g.Matricule); err != nil {
		// Processed but unprotected, not a run failure.
		log.Printf("⚠️  Pipeline: protection failed for %s, file left unprotected: %v", filename, err)
	}

	te := &models.TreatmentEmployee{
		TreatmentID:      treatment.ID,
		EmployeeID:       emp.ID,
		MatriculeExtract: &g.Matricule,
		OutputFilename:   filename,
	}
	if g.Period != "" {
		te.PeriodExtract = &g.Period
	}

	link := r.links.Issue(ctx, emp.ID, treatment.ID, filename, outPath, g.Matricule)
	if link == nil {
		te.MarkEmailFailed("no link issued")
	} else if err := r.mailer.SendLink(ctx, emp, link); err != nil {
		// The link stays valid; an administrator can resend.
		log.Printf("⚠️  Pipeline: notification failed for %s: %v", emp.Email, err)
		te.MarkEmailFailed(err.Error())
	} else {
		te.MarkEmailSent(r.now())
	}

	if err := r.db.CreateTreatmentEmployee(ctx, te); err != nil {
		log.Printf("⚠️  Pipeline: failed to record audit row for %s: %v", g.Matricule, err)
	}
	return true
}

// newEmployeeCandidates returns onboarding candidates: groups whose
// matricule was extracted and is unknown to the directory. Groups without a
// matricule are never proposed.
func newEmployeeCandidates(groups []*payslip.Group, existing map[string]bool) []*models.Employee {
	var candidates []*models.Employee
	for _, g := range groups {
		if g.Matricule == "" {
			log.Printf("⚠️  Pipeline: group %q has no matricule, not onboarded", g.Name)
			continue
		}
		if existing[g.Matricule] {
			continue
		}
		candidates = append(candidates, &models.Employee{
			Matricule: g.Matricule,
			Name:      g.Name,
			Email:     fmt.Sprintf("employe.%s@temporaire.com", g.Matricule),
			Status:    models.EmployeeActive,
			Source:    models.SourcePDFImport,
		})
	}
	return candidates
}

// onboardNew inserts the newly seen employees of a run.
func (r *Runner) onboardNew(ctx context.Context, groups []*payslip.Group) (int, error) {
	existing, err := r.db.ActiveMatricules(ctx)
	if err != nil {
		return 0, err
	}

	candidates := newEmployeeCandidates(groups, existing)
	if len(candidates) == 0 {
		return 0, nil
	}

	added, err := r.db.OnboardEmployees(ctx, candidates)
	if err != nil {
		return 0, err
	}
	if added > 0 {
		log.Printf("✅ Pipeline: onboarded %d new employees from PDF import", added)
	}
	return added, nil
}

// recordFailure writes a failed ledger entry for a run that could not start
// processing. The partially written run record is preserved for audit.
func (r *Runner) recordFailure(ctx context.Context, runID, filename string, size int64, pages int, cause error) (*models.Treatment, error) {
	log.Printf("❌ Pipeline: run %s failed: %v", runID, cause)

	treatment := &models.Treatment{
		RunFolder:       runID,
		SourceFilename:  filepath.Base(filename),
		SourceSizeBytes: size,
		PageCount:       pages,
		Status:          models.TreatmentFailed,
		ErrorText:       cause.Error(),
	}
	if err := r.db.CreateTreatment(ctx, treatment); err != nil {
		log.Printf("❌ Pipeline: could not record failed run %s: %v", runID, err)
	}
	return treatment, cause
}
