package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomide-ak/invoice-bridge/constants"
	"github.com/tomide-ak/invoice-bridge/internal/advisor"
	"github.com/tomide-ak/invoice-bridge/internal/metrics"
	"github.com/tomide-ak/invoice-bridge/internal/repository"
	"github.com/tomide-ak/invoice-bridge/internal/storage"
	"github.com/tomide-ak/invoice-bridge/internal/ubl"
	"github.com/tomide-ak/invoice-bridge/internal/x12"
)

const previewLimit = 500

// Submission is one uploaded source document plus its processing options.
type Submission struct {
	Filename    string
	ContentType string
	Content     []byte
	Strict      bool
}

// Orchestrator drives a submission through the five pipeline stages:
// upload, XML validation, EDI conversion, EDI format validation, persist.
// The XML and EDI validation stages each carry a one-shot correction edge:
// on failure the corrector is consulted at most once and its output
// re-validated once, after which the stage outcome is final.
type Orchestrator struct {
	store        storage.Store
	outcomes     repository.OutcomeRepository
	corrector    advisor.Corrector
	xmlValidator *ubl.Validator
	encoder      *x12.Encoder
	ediValidator *x12.Validator
	logger       *slog.Logger

	newTrackingID func() string
}

// New wires the orchestrator. outcomes and corrector may be nil: a nil
// repository skips persistence, a nil corrector disables the correction
// edges.
func New(store storage.Store, outcomes repository.OutcomeRepository, corrector advisor.Corrector, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:         store,
		outcomes:      outcomes,
		corrector:     corrector,
		xmlValidator:  ubl.NewValidator(logger),
		encoder:       x12.NewEncoder(logger),
		ediValidator:  x12.NewValidator(logger),
		logger:        logger,
		newTrackingID: func() string { return uuid.New().String() },
	}
}

// Process runs the full pipeline for one submission. The returned error is
// non-nil only for upload rejections (*UploadError) and internal faults;
// every processing failure comes back as a Result with Success=false.
func (o *Orchestrator) Process(ctx context.Context, sub Submission) (Result, error) {
	trackingID := o.newTrackingID()
	start := time.Now()

	res := Result{TrackingID: trackingID}
	var steps []Step
	var allErrors []ErrorDetail

	o.logger.Info("pipeline.start",
		"tracking_id", trackingID,
		"filename", sub.Filename,
		"strict", sub.Strict,
		"bytes", len(sub.Content),
	)

	// Step 1: file upload.
	stepStart := time.Now()
	if reason := rejectUpload(sub); reason != "" {
		res.UploadMessage = reason
		o.logger.Warn("pipeline.upload.rejected", "tracking_id", trackingID, "reason", reason)
		return res, &UploadError{Message: reason}
	}

	xmlName := fmt.Sprintf("%s_%s", trackingID, sub.Filename)
	xmlLocator, err := o.store.Write(sub.Content, xmlName, constants.CategoryUploads)
	if err != nil {
		return res, fmt.Errorf("save uploaded file: %w", err)
	}
	res.FileUploadOK = true
	res.UploadMessage = "File uploaded successfully"
	res.XMLLocator = xmlLocator
	res.ContentPreview = preview(sub.Content)
	steps = o.record(steps, newStep(constants.StepFileUpload, true, stepStart, "File uploaded successfully", nil))

	currentXML := sub.Content

	// Step 2: XML validation, with one correction edge.
	stepStart = time.Now()
	vres := o.xmlValidator.Validate(currentXML, sub.Strict)
	res.Warnings = append(res.Warnings, vres.Warnings...)

	if !vres.OK && o.corrector != nil {
		metrics.CorrectionsAttempted.WithLabelValues(string(constants.StepXMLValidation)).Inc()
		cres, cErr := o.corrector.CorrectXML(ctx, advisor.XMLRequest{XML: string(currentXML), Strict: sub.Strict})
		switch {
		case cErr != nil:
			metrics.AdvisorErrors.Inc()
			o.logger.Warn("pipeline.xmlvalidate.advisor_unavailable", "tracking_id", trackingID, "error", cErr)
		case cres.Changed:
			metrics.CorrectionsApplied.WithLabelValues(string(constants.StepXMLValidation)).Inc()
			currentXML = []byte(cres.Corrected)
			if loc, wErr := o.store.Write(currentXML, xmlName, constants.CategoryUploads); wErr == nil {
				res.XMLLocator = loc
			} else {
				o.logger.Warn("pipeline.xmlvalidate.save_corrected_failed", "tracking_id", trackingID, "error", wErr)
			}
			vres = o.xmlValidator.Validate(currentXML, sub.Strict)
			res.Warnings = append(res.Warnings, vres.Warnings...)
			if vres.OK {
				res.Warnings = append(res.Warnings, "AI autocorrection fixed XML issues automatically")
			}
		}
	}

	res.XMLValidationOK = vres.OK
	res.XMLMessage = vres.Message
	if !vres.OK {
		details := xmlFailureDetails(vres)
		allErrors = append(allErrors, details...)
		steps = o.record(steps, newStep(constants.StepXMLValidation, false, stepStart, vres.Message, details))
		res.EDIMessage = "Skipped due to XML validation failure"
		return o.finalizeFailure(ctx, &res, sub, steps, allErrors, constants.StepXMLValidation, vres.Message), nil
	}

	xmlMessage := "XML validation passed"
	var warnDetails []ErrorDetail
	if len(vres.Warnings) > 0 {
		xmlMessage = fmt.Sprintf("XML validation passed with %d warnings", len(vres.Warnings))
		for _, w := range vres.Warnings {
			warnDetails = append(warnDetails, ErrorDetail{
				Step:        constants.StepXMLValidation,
				ErrorType:   constants.ErrTypeWarning,
				Message:     w,
				Suggestions: warningSuggestions,
			})
		}
	}
	res.XMLMessage = xmlMessage
	steps = o.record(steps, newStep(constants.StepXMLValidation, true, stepStart, xmlMessage, warnDetails))

	// Step 3: EDI conversion.
	stepStart = time.Now()
	ediText, convDetail := o.convert(currentXML)
	if convDetail != nil {
		allErrors = append(allErrors, *convDetail)
		res.EDIMessage = convDetail.Message
		steps = o.record(steps, newStep(constants.StepEDIConversion, false, stepStart, convDetail.Message, []ErrorDetail{*convDetail}))
		return o.finalizeFailure(ctx, &res, sub, steps, allErrors, constants.StepEDIConversion, convDetail.Message), nil
	}

	ediName := trackingID + "_converted.x12"
	ediLocator, err := o.store.Write([]byte(ediText), ediName, constants.CategoryConverted)
	if err != nil {
		return res, fmt.Errorf("save converted file: %w", err)
	}
	res.EDIConversionOK = true
	res.EDIMessage = "EDI conversion completed successfully"
	res.EDILocator = ediLocator
	steps = o.record(steps, newStep(constants.StepEDIConversion, true, stepStart, "EDI conversion completed successfully", nil))

	// Step 4: EDI format validation, with one correction edge.
	stepStart = time.Now()
	report := o.ediValidator.Validate(ediText)
	if !report.OK {
		details := formatFailureDetails(report)

		if o.corrector != nil {
			metrics.CorrectionsAttempted.WithLabelValues(string(constants.StepEDIFormat)).Inc()
			cres, cErr := o.corrector.CorrectEDI(ctx, advisor.EDIRequest{
				XML:    string(currentXML),
				EDI:    ediText,
				Errors: flattenDetails(details),
				Strict: true,
			})
			switch {
			case cErr != nil:
				metrics.AdvisorErrors.Inc()
				o.logger.Warn("pipeline.edivalidate.advisor_unavailable", "tracking_id", trackingID, "error", cErr)
			case cres.Changed:
				metrics.CorrectionsApplied.WithLabelValues(string(constants.StepEDIFormat)).Inc()
				fixedName := trackingID + "_converted_ai_fixed.x12"
				if loc, wErr := o.store.Write([]byte(cres.Corrected), fixedName, constants.CategoryConverted); wErr == nil {
					if retry := o.ediValidator.Validate(cres.Corrected); retry.OK {
						report = retry
						ediText = cres.Corrected
						res.EDILocator = loc
						res.EDIMessage = "AI correction successful and EDI passed format validation"
						res.Warnings = append(res.Warnings, "AI correction applied to the converted EDI document")
					}
				} else {
					o.logger.Warn("pipeline.edivalidate.save_corrected_failed", "tracking_id", trackingID, "error", wErr)
				}
			}
		}

		if !report.OK {
			allErrors = append(allErrors, details...)
			res.EDIConversionOK = false
			res.EDIMessage = "EDI conversion completed but format validation failed: " + report.Message
			steps = o.record(steps, newStep(constants.StepEDIFormat, false, stepStart, report.Message, details))
			return o.finalizeFailure(ctx, &res, sub, steps, allErrors, constants.StepEDIFormat, res.EDIMessage), nil
		}
	}
	steps = o.record(steps, newStep(constants.StepEDIFormat, true, stepStart, "EDI format validation passed", nil))

	// Step 5: persist the success outcome.
	stepStart = time.Now()
	if o.outcomes != nil {
		saveErr := o.outcomes.SaveSuccess(ctx, repository.SuccessOutcome{
			TrackingID: trackingID,
			Filename:   sub.Filename,
			XMLLocator: res.XMLLocator,
			EDILocator: res.EDILocator,
			Message:    "EDI conversion and format validation completed successfully",
		})
		if saveErr != nil {
			return res, fmt.Errorf("save success outcome: %w", saveErr)
		}
		steps = o.record(steps, newStep(constants.StepPersist, true, stepStart, "Invoice saved successfully", nil))
	} else {
		steps = o.record(steps, newStep(constants.StepPersist, true, stepStart, "Database save skipped (no repository configured)", nil))
	}

	res.Success = true
	res.Steps = steps
	metrics.SubmissionsTotal.WithLabelValues("success").Inc()
	o.logger.Info("pipeline.ok",
		"tracking_id", trackingID,
		"warnings", len(res.Warnings),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// rejectUpload returns a non-empty reason when the submission must be
// refused before any processing.
func rejectUpload(sub Submission) string {
	if sub.ContentType != "text/xml" && sub.ContentType != "application/xml" {
		return fmt.Sprintf("Only XML files are accepted. Received: %s", sub.ContentType)
	}
	if strings.TrimSpace(sub.Filename) == "" {
		return "No filename provided"
	}
	if !constants.AllowedExt(filepath.Ext(sub.Filename)) {
		return fmt.Sprintf("Only XML files are accepted. Received extension: %s", filepath.Ext(sub.Filename))
	}
	return ""
}

// convert parses the source document and encodes it; a failure comes back
// as a ready-made diagnostic, never a panic or a raw error.
func (o *Orchestrator) convert(currentXML []byte) (string, *ErrorDetail) {
	doc, err := ubl.Parse(currentXML)
	if err != nil {
		return "", &ErrorDetail{
			Step:        constants.StepEDIConversion,
			ErrorType:   constants.ErrTypeParsing,
			Message:     fmt.Sprintf("X12 conversion error: %v", err),
			Suggestions: parsingSuggestions,
		}
	}
	fields := ubl.ExtractFields(doc)
	cn := x12.DeriveControlNumbers(fields)
	ediText, err := o.encoder.Encode(fields, cn)
	if err != nil {
		return "", &ErrorDetail{
			Step:        constants.StepEDIConversion,
			ErrorType:   constants.ErrTypeEncoding,
			Message:     fmt.Sprintf("X12 conversion error: %v", err),
			Suggestions: conversionSuggestions,
		}
	}
	return ediText, nil
}

// record observes step metrics as steps are appended.
func (o *Orchestrator) record(steps []Step, s Step) []Step {
	metrics.StepDuration.WithLabelValues(s.Name).Observe(s.Duration)
	if !s.Success {
		metrics.StepFailuresTotal.WithLabelValues(s.Name).Inc()
	}
	return append(steps, s)
}

// finalizeFailure persists the failure outcome and assembles the
// structured non-5xx failure result.
func (o *Orchestrator) finalizeFailure(ctx context.Context, res *Result, sub Submission, steps []Step, allErrors []ErrorDetail, failedStep constants.StepName, message string) Result {
	metrics.SubmissionsTotal.WithLabelValues("failed").Inc()

	if o.outcomes != nil {
		saveErr := o.outcomes.SaveFailure(ctx, repository.FailureOutcome{
			TrackingID: res.TrackingID,
			Filename:   sub.Filename,
			XMLLocator: res.XMLLocator,
			EDILocator: res.EDILocator,
			FailedStep: string(failedStep),
			Message:    message,
			StepErrors: toStepErrors(allErrors),
		})
		if saveErr != nil {
			o.logger.Error("pipeline.persist_failure_failed", "tracking_id", res.TrackingID, "error", saveErr)
		}
	}

	res.Steps = steps
	res.ErrorSummary = &ErrorSummary{
		TotalErrors:      len(allErrors),
		FailedStep:       string(failedStep),
		ErrorCategories:  errorCategories(allErrors),
		SuggestedActions: summaryActions[failedStep],
	}
	res.SuggestedActions = res.ErrorSummary.SuggestedActions

	o.logger.Warn("pipeline.failed",
		"tracking_id", res.TrackingID,
		"failed_step", string(failedStep),
		"errors", len(allErrors),
	)
	return *res
}

// xmlFailureDetails classifies an XML validation failure: a strict failure
// yields one diagnostic per warning, everything else is a parsing error.
func xmlFailureDetails(vres ubl.Result) []ErrorDetail {
	if strings.Contains(vres.Message, "Strict validation failed") {
		if len(vres.Warnings) == 0 {
			return []ErrorDetail{{
				Step:        constants.StepXMLValidation,
				ErrorType:   constants.ErrTypeStrict,
				Message:     vres.Message,
				Suggestions: strictValidationSuggestions,
			}}
		}
		details := make([]ErrorDetail, 0, len(vres.Warnings))
		for _, w := range vres.Warnings {
			details = append(details, ErrorDetail{
				Step:        constants.StepXMLValidation,
				ErrorType:   constants.ErrTypeStrict,
				Message:     w,
				Suggestions: strictValidationSuggestions,
			})
		}
		return details
	}
	return []ErrorDetail{{
		Step:        constants.StepXMLValidation,
		ErrorType:   constants.ErrTypeParsing,
		Message:     vres.Message,
		Suggestions: parsingSuggestions,
	}}
}

// formatFailureDetails flattens the per-segment validation report into
// diagnostics, in stable segment-group order.
func formatFailureDetails(report x12.Report) []ErrorDetail {
	keys := make([]string, 0, len(report.Details))
	for k := range report.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var details []ErrorDetail
	for _, key := range keys {
		group := report.Details[key]
		if group.Valid {
			continue
		}
		for _, e := range group.Errors {
			details = append(details, ErrorDetail{
				Step:        constants.StepEDIFormat,
				ErrorType:   constants.ErrTypeFormat,
				Message:     fmt.Sprintf("%s: %s", strings.ToUpper(key), e),
				Suggestions: formatSuggestions,
			})
		}
	}
	return details
}

func flattenDetails(details []ErrorDetail) []string {
	out := make([]string, len(details))
	for i, d := range details {
		out[i] = fmt.Sprintf("%s: %s", d.ErrorType, d.Message)
	}
	return out
}

func errorCategories(details []ErrorDetail) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, d := range details {
		key := string(d.ErrorType)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

// preview truncates content for the response body so a failed submission
// can be diagnosed without re-fetching the file.
func preview(content []byte) string {
	text := string(content)
	if len(text) > previewLimit {
		return text[:previewLimit] + "..."
	}
	return text
}
