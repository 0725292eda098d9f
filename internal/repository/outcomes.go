package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/tomide-ak/invoice-bridge/constants"
	"github.com/tomide-ak/invoice-bridge/internal/common"
)

// ErrOutcomeNotFound is returned when a tracking id matches no live row.
var ErrOutcomeNotFound = fmt.Errorf("outcome not found: %w", common.ErrNotFound)

// StepError is one persisted diagnostic from a failed pipeline step.
type StepError struct {
	Step        string   `json:"step"`
	ErrorType   string   `json:"error_type"`
	Message     string   `json:"error_message"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// SuccessOutcome records a submission that produced a valid X12 document.
type SuccessOutcome struct {
	TrackingID string
	Filename   string
	XMLLocator string
	EDILocator string
	Message    string
}

// FailureOutcome records a submission that finished in a failed stage.
type FailureOutcome struct {
	TrackingID string
	Filename   string
	XMLLocator string
	EDILocator string
	FailedStep string
	Message    string
	StepErrors []StepError
}

// Outcome is the unified row shape used by listings.
type Outcome struct {
	ID         int64
	TrackingID string
	Filename   string
	Status     constants.OutcomeStatus
	XMLLocator string
	EDILocator string
	FailedStep string
	Message    string
	StepErrors []StepError
	CreatedAt  time.Time
	DeletedAt  *time.Time
}

// Counts summarizes the outcome table for the counts endpoint.
type Counts struct {
	Successful int64 `json:"successful"`
	Failed     int64 `json:"failed"`
	Deleted    int64 `json:"deleted"`
}

// OutcomeRepository is the persistence collaborator of the pipeline. Rows
// are append-only; deletion is a soft-delete timestamp so counts stay
// auditable.
type OutcomeRepository interface {
	SaveSuccess(ctx context.Context, o SuccessOutcome) error
	SaveFailure(ctx context.Context, o FailureOutcome) error
	List(ctx context.Context, limit int) ([]Outcome, error)
	Counts(ctx context.Context) (Counts, error)
	SoftDelete(ctx context.Context, trackingID string) error
}
