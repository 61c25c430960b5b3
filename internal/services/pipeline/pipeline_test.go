package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/payflow/payflow-api/internal/models"
	"github.com/payflow/payflow-api/internal/services/payslip"
	"github.com/payflow/payflow-api/internal/services/storage"
)

// fakeStore records ledger writes without a database.
type fakeStore struct {
	created    []*models.Treatment
	closed     []*models.Treatment
	matricules map[string]bool
}

func (f *fakeStore) CreateTreatment(_ context.Context, t *models.Treatment) error {
	f.created = append(f.created, t)
	return nil
}

func (f *fakeStore) CloseTreatment(_ context.Context, t *models.Treatment) error {
	f.closed = append(f.closed, t)
	return nil
}

func (f *fakeStore) ActiveMatricules(_ context.Context) (map[string]bool, error) {
	return f.matricules, nil
}

func (f *fakeStore) OnboardEmployees(_ context.Context, employees []*models.Employee) (int, error) {
	return len(employees), nil
}

func (f *fakeStore) FindByMatricule(_ context.Context, _ string) (*models.Employee, error) {
	return nil, nil
}

func (f *fakeStore) CreateTreatmentEmployee(_ context.Context, _ *models.TreatmentEmployee) error {
	return nil
}

func TestRun_RejectsConcurrentRun(t *testing.T) {
	store := &fakeStore{}
	r := New(store, nil, nil, nil)
	r.busy.Store(true) // another run holds the slot

	treatment, err := r.Run(context.Background(), nil, "payslips.pdf")
	if err != ErrBusy {
		t.Fatalf("err = %v, want ErrBusy", err)
	}
	if treatment != nil {
		t.Errorf("treatment = %+v, want nil", treatment)
	}
	if len(store.created) != 0 {
		t.Errorf("rejected run wrote %d ledger entries", len(store.created))
	}
	if !r.Processing() {
		t.Error("rejected run released a slot it never held")
	}
}

func TestRun_StorageFailureRecordsFailedRun(t *testing.T) {
	base := t.TempDir()
	store, err := storage.New(filepath.Join(base, "uploads"), filepath.Join(base, "output"))
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}

	started := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)
	runID := storage.NewRunID(started)

	// A regular file where the run directory should go makes MkdirAll fail.
	if err := os.WriteFile(filepath.Join(base, "uploads", runID), []byte("x"), 0o644); err != nil {
		t.Fatalf("plant blocking file: %v", err)
	}

	db := &fakeStore{}
	r := New(db, nil, nil, store)
	r.now = func() time.Time { return started }

	treatment, err := r.Run(context.Background(), nil, "payslips.pdf")
	if err == nil {
		t.Fatal("Run succeeded despite storage failure")
	}
	if treatment == nil {
		t.Fatal("no treatment returned for failed run")
	}

	if len(db.created) != 1 {
		t.Fatalf("ledger writes = %d, want 1", len(db.created))
	}
	got := db.created[0]
	if got.Status != models.TreatmentFailed {
		t.Errorf("status = %s, want %s", got.Status, models.TreatmentFailed)
	}
	if got.RunFolder != runID {
		t.Errorf("run folder = %s, want %s", got.RunFolder, runID)
	}
	if got.SourceFilename != "payslips.pdf" {
		t.Errorf("source filename = %s, want payslips.pdf", got.SourceFilename)
	}
	if got.ErrorText == "" {
		t.Error("failed run recorded without an error text")
	}

	if r.Processing() {
		t.Error("slot still held after the run returned")
	}
}

func TestNewEmployeeCandidates(t *testing.T) {
	groups := []*payslip.Group{
		{Name: "DUPONT Marie", Matricule: "1001", Pages: []int{0, 1}},
		{Name: "MARTIN Paul", Matricule: "", Pages: []int{2}},     // no identifier
		{Name: "BERNARD Luc", Matricule: "1002", Pages: []int{3}}, // already known
	}
	existing := map[string]bool{"1002": true}

	candidates := newEmployeeCandidates(groups, existing)

	if len(candidates) != 1 {
		t.Fatalf("candidates = %d, want 1", len(candidates))
	}
	for _, c := range candidates {
		if c.Matricule == "" {
			t.Error("candidate proposed without a matricule")
		}
	}

	got := candidates[0]
	if got.Matricule != "1001" {
		t.Errorf("matricule = %s, want 1001", got.Matricule)
	}
	if got.Name != "DUPONT Marie" {
		t.Errorf("name = %s, want DUPONT Marie", got.Name)
	}
	if got.Email != "employe.1001@temporaire.com" {
		t.Errorf("email = %s, want employe.1001@temporaire.com", got.Email)
	}
	if got.Status != models.EmployeeActive {
		t.Errorf("status = %s, want %s", got.Status, models.EmployeeActive)
	}
	if got.Source != models.SourcePDFImport {
		t.Errorf("source = %s, want %s", got.Source, models.SourcePDFImport)
	}
}

func TestNewEmployeeCandidates_NoGroups(t *testing.T) {
	if got := newEmployeeCandidates(nil, map[string]bool{}); got != nil {
		t.Errorf("candidates = %v, want nil", got)
	}
}
