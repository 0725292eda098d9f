package server

import (
	"time"

	"github.com/tomide-ak/invoice-bridge/internal/repository"
)

// outcomeView is the list-endpoint JSON shape for one persisted outcome.
type outcomeView struct {
	TrackingID string                 `json:"tracking_id"`
	Filename   string                 `json:"filename"`
	Status     string                 `json:"status"`
	FailedStep string                 `json:"failed_step,omitempty"`
	Message    string                 `json:"message,omitempty"`
	StepErrors []repository.StepError `json:"step_errors,omitempty"`
	CreatedAt  string                 `json:"created_at"`
}

func newOutcomeView(o repository.Outcome) outcomeView {
	return outcomeView{
		TrackingID: o.TrackingID,
		Filename:   o.Filename,
		Status:     string(o.Status),
		FailedStep: o.FailedStep,
		Message:    o.Message,
		StepErrors: o.StepErrors,
		CreatedAt:  o.CreatedAt.Format(time.RFC3339Nano),
	}
}
