// Package models defines the data structures used throughout the application.
//
// Go Pattern: Models are plain structs with JSON tags for serialization.
// The `db` tags work with sqlx for database column mapping — the database
// package handles persistence, models are just data containers.
package models

import (
	"time"
)

// EmployeeStatus is the lifecycle state of an employee record.
// Employees are never hard-deleted; removal is a status transition.
type EmployeeStatus string

const (
	EmployeeActive   EmployeeStatus = "active"
	EmployeeInactive EmployeeStatus = "inactive"
	EmployeeRemoved  EmployeeStatus = "removed"
)

// Employee provenance values. Automatically discovered employees carry
// SourcePDFImport; records entered through the admin API carry SourceManual.
const (
	SourcePDFImport = "pdf_import"
	SourceManual    = "manual"
)

// Employee is a payroll recipient. The matricule (stable numeric identifier)
// is the authoritative key — display names are not assumed unique.
type Employee struct {
	ID        string         `json:"id" db:"id"`
	Matricule string         `json:"matricule" db:"matricule"`
	Name      string         `json:"name" db:"name"`
	Email     string         `json:"email" db:"email"`
	Status    EmployeeStatus `json:"status" db:"status"`
	Source    string         `json:"source" db:"source"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}

// TreatmentStatus represents the outcome state of one pipeline run.
type TreatmentStatus string

const (
	TreatmentInProgress TreatmentStatus = "in_progress"
	TreatmentComplete   TreatmentStatus = "complete"
	TreatmentPartial    TreatmentStatus = "partial"
	TreatmentFailed     TreatmentStatus = "failed"
)

// Treatment records one execution of the upload-to-distribution pipeline.
// "complete" requires ProcessedCount == DetectedCount.
type Treatment struct {
	ID              string          `json:"id" db:"id"`
	RunFolder       string          `json:"run_folder" db:"run_folder"` // YYYYMMDDHHMMSS, unique per run
	SourceFilename  string          `json:"source_filename" db:"source_filename"`
	SourceSizeBytes int64           `json:"source_size_bytes" db:"source_size_bytes"`
	PageCount       int             `json:"page_count" db:"page_count"`
	DetectedCount   int             `json:"detected_count" db:"detected_count"`
	ProcessedCount  int             `json:"processed_count" db:"processed_count"`
	NewEmployees    int             `json:"new_employees" db:"new_employees"`
	DurationSeconds int             `json:"duration_seconds" db:"duration_seconds"`
	Status          TreatmentStatus `json:"status" db:"status"`
	ErrorText       string          `json:"error_text,omitempty" db:"error_text"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// TreatmentEmployee ties one treatment to one employee for a given run,
// carrying what was extracted from the PDF plus the email delivery audit.
type TreatmentEmployee struct {
	ID               string     `json:"id" db:"id"`
	TreatmentID      string     `json:"treatment_id" db:"treatment_id"`
	EmployeeID       string     `json:"employee_id" db:"employee_id"`
	MatriculeExtract *string    `json:"matricule_extract,omitempty" db:"matricule_extract"`
	PeriodExtract    *string    `json:"period_extract,omitempty" db:"period_extract"` // YYYY_MM, NULL when not found on any page
	OutputFilename   string     `json:"output_filename" db:"output_filename"`
	EmailSent        bool       `json:"email_sent" db:"email_sent"`
	EmailSentAt      *time.Time `json:"email_sent_at,omitempty" db:"email_sent_at"`
	EmailError       string     `json:"email_error,omitempty" db:"email_error"`
}

// MarkEmailSent records a successful notification, clearing any error left
// by an earlier failed attempt.
func (te *TreatmentEmployee) MarkEmailSent(now time.Time) {
	te.EmailSent = true
	te.EmailSentAt = &now
	te.EmailError = ""
}

// MarkEmailFailed records a failed notification attempt.
func (te *TreatmentEmployee) MarkEmailFailed(reason string) {
	te.EmailSent = false
	te.EmailSentAt = nil
	te.EmailError = reason
}

// LinkStatus is the administrative flag on a download link. It is orthogonal
// to the computed Locked/Expired states — a revoked link blocks redemption
// regardless of attempts or expiry.
type LinkStatus string

const (
	LinkActive  LinkStatus = "active"
	LinkRevoked LinkStatus = "revoked"
)

// DownloadLink is the redemption-protocol state for one generated file.
// Mutated only by the redemption protocol after creation.
type DownloadLink struct {
	ID                string     `json:"id" db:"id"`
	Token             string     `json:"-" db:"token"` // opaque lookup key, never serialized in full
	EmployeeID        string     `json:"employee_id" db:"employee_id"`
	TreatmentID       string     `json:"treatment_id" db:"treatment_id"`
	Filename          string     `json:"filename" db:"filename"`
	FilePath          string     `json:"-" db:"file_path"`
	MatriculeRequired string     `json:"-" db:"matricule_required"`
	Attempts          int        `json:"attempts" db:"attempts"`
	MaxAttempts       int        `json:"max_attempts" db:"max_attempts"`
	Downloads         int        `json:"downloads" db:"downloads"`
	LastClientIP      string     `json:"last_client_ip,omitempty" db:"last_client_ip"`
	Status            LinkStatus `json:"status" db:"status"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	ExpiresAt         time.Time  `json:"expires_at" db:"expires_at"`
	FirstAccessAt     *time.Time `json:"first_access_at,omitempty" db:"first_access_at"`
	LastAccessAt      *time.Time `json:"last_access_at,omitempty" db:"last_access_at"`
}

// TokenPrefix returns the first 8 characters of the token, safe for logs
// and admin listings.
func (l *DownloadLink) TokenPrefix() string {
	if len(l.Token) < 8 {
		return l.Token
	}
	return l.Token[:8]
}

// ExpiresInDays returns whole days until expiry, floored at 0.
func (l *DownloadLink) ExpiresInDays(now time.Time) int {
	if !now.Before(l.ExpiresAt) {
		return 0
	}
	return int(l.ExpiresAt.Sub(now).Hours() / 24)
}

// User is an administrator account for the back office.
// Note: we store the bcrypt HASH of the password, never the raw password.
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"` // "-" means never serialize to JSON
	Name         string    `json:"name" db:"name"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// --- Request/Response DTOs (Data Transfer Objects) ---
// Separate structs for API input/output vs database models keep the API
// contract independent of the schema.

// UploadResponse reports the outcome of a treatment upload.
type UploadResponse struct {
	TreatmentID  string `json:"treatment_id"`
	RunFolder    string `json:"run_folder"`
	Detected     int    `json:"detected"`
	Processed    int    `json:"processed"`
	NewEmployees int    `json:"new_employees"`
	Status       string `json:"status"`
	Message      string `json:"message"`
}

// CreateEmployeeRequest is the JSON body for POST /api/v1/employees.
type CreateEmployeeRequest struct {
	Matricule string `json:"matricule" binding:"required"`
	Name      string `json:"name" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
}

// UpdateEmployeeRequest is the JSON body for PATCH /api/v1/employees/:id.
// All fields optional — only non-nil fields are applied.
type UpdateEmployeeRequest struct {
	Name   *string `json:"name,omitempty"`
	Email  *string `json:"email,omitempty"`
	Status *string `json:"status,omitempty"`
}

// EmployeeListParams holds query parameters for listing employees.
type EmployeeListParams struct {
	Page    int    `form:"page"`
	PerPage int    `form:"per_page"`
	Status  string `form:"status"`
	Search  string `form:"search"` // matches name or matricule
}

// VerifyRequest is the JSON body for POST /dl/:token/verify.
type VerifyRequest struct {
	Matricule string `json:"matricule" binding:"required"`
}

// LinkInfoResponse is the read-only public view of a download link.
type LinkInfoResponse struct {
	Valid             bool   `json:"valid"`
	State             string `json:"state"` // active, locked, expired, revoked
	Filename          string `json:"filename,omitempty"`
	EmployeeName      string `json:"employee_name,omitempty"`
	RemainingAttempts int    `json:"remaining_attempts"`
	ExpiresInDays     int    `json:"expires_in_days"`
}

// VerifyResponse is returned by the verify transition.
type VerifyResponse struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	RemainingAttempts int    `json:"remaining_attempts"`
	DownloadURL       string `json:"download_url,omitempty"`
	Filename          string `json:"filename,omitempty"`
	Downloads         int    `json:"downloads,omitempty"`
}

// TreatmentDetail is a treatment with its per-employee rows and links.
type TreatmentDetail struct {
	Treatment Treatment              `json:"treatment"`
	Employees []TreatmentEmployeeRow `json:"employees"`
	Links     []DownloadLink         `json:"links"`
}

// TreatmentEmployeeRow joins a TreatmentEmployee with the employee identity
// for display in the treatment detail view.
type TreatmentEmployeeRow struct {
	TreatmentEmployee
	EmployeeName      string `json:"employee_name" db:"employee_name"`
	EmployeeMatricule string `json:"employee_matricule" db:"employee_matricule"`
}

// MaintenanceStats is returned by GET /api/v1/maintenance/stats.
type MaintenanceStats struct {
	ExpiredLinks   int   `json:"expired_links"`
	OldRunDirs     int   `json:"old_run_dirs"`
	OldRunDirBytes int64 `json:"old_run_dir_bytes"`
	UploadsBytes   int64 `json:"uploads_bytes"`
	OutputBytes    int64 `json:"output_bytes"`
	EmployeeCount  int   `json:"employee_count"`
	TreatmentCount int   `json:"treatment_count"`
	LinkCount      int   `json:"link_count"`
}

// CleanupResult reports what a maintenance cleanup removed.
type CleanupResult struct {
	ExpiredLinksRevoked int   `json:"expired_links_revoked"`
	RunDirsRemoved      int   `json:"run_dirs_removed"`
	BytesFreed          int64 `json:"bytes_freed"`
}

// --- Auth DTOs ---

// RegisterRequest is the JSON body for POST /api/v1/auth/register.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
}

// LoginRequest is the JSON body for POST /api/v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse is returned on successful register/login.
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// PaginatedResponse wraps a list response with pagination metadata.
type PaginatedResponse[T any] struct {
	Data       []T `json:"data"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// ErrorResponse is a standard error format for all API errors.
// Error holds a machine-readable code (no_file, bad_extension, busy,
// internal_error, ...), Message a human-readable explanation.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	Database   string `json:"database"`
	Processing bool   `json:"processing"` // true while a pipeline run holds the slot
}
