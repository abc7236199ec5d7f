// Package history records reconciliation runs.
package history

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/erp/orderrecon/internal/domain/reconcile"
	"github.com/erp/orderrecon/internal/domain/shared"
)

// Status represents the state of a run
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsValid checks if the status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// IsTerminal returns true if this is a terminal state
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Counts are the headline numbers of a finished run
type Counts struct {
	FilesRead    int
	FilesSkipped int
	RowsRead     int
	OutputRows   int
	Warnings     int
}

// Run tracks one reconciliation run of a platform
type Run struct {
	shared.BaseEntity
	Platform     string     `json:"platform"`
	Status       Status     `json:"status"`
	FilesRead    int        `json:"files_read"`
	FilesSkipped int        `json:"files_skipped"`
	RowsRead     int        `json:"rows_read"`
	OutputRows   int        `json:"output_rows"`
	Warnings     int        `json:"warnings"`
	OutputPath   string     `json:"output_path,omitempty"`
	Diagnostics  string     `json:"diagnostics,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// NewRun creates a pending run
func NewRun(platform string) (*Run, error) {
	platform = strings.TrimSpace(platform)
	if platform == "" {
		return nil, shared.NewDomainError("INVALID_PLATFORM", "Platform cannot be empty")
	}
	return &Run{
		BaseEntity: shared.NewBaseEntity(),
		Platform:   platform,
		Status:     StatusPending,
	}, nil
}

// Start marks the run as processing
func (r *Run) Start(outputPath string) error {
	if r.Status != StatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot start run from state: %s", r.Status))
	}
	now := time.Now()
	r.Status = StatusProcessing
	r.OutputPath = outputPath
	r.StartedAt = &now
	r.Touch(now)
	return nil
}

// Complete marks the run as completed with its counts and diagnostics
func (r *Run) Complete(counts Counts, diag *reconcile.Diagnostics) error {
	if r.Status != StatusProcessing {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot complete run from state: %s", r.Status))
	}
	if err := r.SetDiagnostics(diag); err != nil {
		return err
	}
	now := time.Now()
	r.Status = StatusCompleted
	r.FilesRead = counts.FilesRead
	r.FilesSkipped = counts.FilesSkipped
	r.RowsRead = counts.RowsRead
	r.OutputRows = counts.OutputRows
	r.Warnings = counts.Warnings
	r.CompletedAt = &now
	r.Touch(now)
	return nil
}

// Fail marks the run as failed
func (r *Run) Fail(cause error) error {
	if r.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot fail run from terminal state: %s", r.Status))
	}
	now := time.Now()
	r.Status = StatusFailed
	if cause != nil {
		r.ErrorMessage = cause.Error()
	}
	r.CompletedAt = &now
	r.Touch(now)
	return nil
}

// SetDiagnostics stores the run diagnostics as JSON
func (r *Run) SetDiagnostics(diag *reconcile.Diagnostics) error {
	if diag == nil {
		r.Diagnostics = ""
		return nil
	}
	data, err := json.Marshal(diag)
	if err != nil {
		return fmt.Errorf("failed to marshal diagnostics: %w", err)
	}
	r.Diagnostics = string(data)
	return nil
}

// DecodeDiagnostics parses the stored diagnostics
func (r *Run) DecodeDiagnostics() (*reconcile.Diagnostics, error) {
	diag := reconcile.NewDiagnostics(0)
	if r.Diagnostics == "" {
		return diag, nil
	}
	if err := json.Unmarshal([]byte(r.Diagnostics), diag); err != nil {
		return nil, fmt.Errorf("failed to unmarshal diagnostics: %w", err)
	}
	return diag, nil
}

// Duration returns how long the run took, or has been running
func (r *Run) Duration() time.Duration {
	if r.StartedAt == nil {
		return 0
	}
	end := time.Now()
	if r.CompletedAt != nil {
		end = *r.CompletedAt
	}
	return end.Sub(*r.StartedAt)
}
