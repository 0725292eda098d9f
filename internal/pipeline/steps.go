package pipeline

import (
	"time"

	"github.com/tomide-ak/invoice-bridge/constants"
	"github.com/tomide-ak/invoice-bridge/internal/repository"
)

// ErrorDetail is one structured diagnostic attached to a failed step.
type ErrorDetail struct {
	Step        constants.StepName  `json:"step"`
	ErrorType   constants.ErrorType `json:"error_type"`
	Message     string              `json:"error_message"`
	Suggestions []string            `json:"suggestions,omitempty"`
}

// Step is the recorded outcome of one pipeline stage.
type Step struct {
	Name         string        `json:"step_name"`
	Ordinal      int           `json:"step_number"`
	Success      bool          `json:"success"`
	Duration     float64       `json:"duration_seconds"`
	Message      string        `json:"message"`
	ErrorDetails []ErrorDetail `json:"error_details,omitempty"`
}

// ErrorSummary aggregates every diagnostic for the response body.
type ErrorSummary struct {
	TotalErrors      int      `json:"total_errors"`
	FailedStep       string   `json:"failed_step"`
	ErrorCategories  []string `json:"error_categories"`
	SuggestedActions []string `json:"suggested_actions"`
}

// Result is the full outcome of one submission. A processing failure is a
// normal Result with Success=false; it is not an error.
type Result struct {
	TrackingID       string        `json:"tracking_id"`
	Success          bool          `json:"invoice_operation_success"`
	FileUploadOK     bool          `json:"file_upload_pass"`
	XMLValidationOK  bool          `json:"xml_validation_pass"`
	EDIConversionOK  bool          `json:"edi_convert_pass"`
	UploadMessage    string        `json:"file_upload_message,omitempty"`
	XMLMessage       string        `json:"xml_convert_message,omitempty"`
	EDIMessage       string        `json:"edi_convert_message,omitempty"`
	Steps            []Step        `json:"processing_steps"`
	Warnings         []string      `json:"warnings,omitempty"`
	ErrorSummary     *ErrorSummary `json:"error_summary,omitempty"`
	SuggestedActions []string      `json:"suggested_actions,omitempty"`
	ContentPreview   string        `json:"file_content_preview,omitempty"`

	XMLLocator string `json:"-"`
	EDILocator string `json:"-"`
}

// UploadError marks a client-side upload rejection (bad content type,
// missing filename). The HTTP adapter maps it to a 400 response.
type UploadError struct {
	Message string
}

func (e *UploadError) Error() string {
	return e.Message
}

func newStep(name constants.StepName, success bool, since time.Time, message string, details []ErrorDetail) Step {
	return Step{
		Name:         name.Title(),
		Ordinal:      name.Ordinal(),
		Success:      success,
		Duration:     time.Since(since).Seconds(),
		Message:      message,
		ErrorDetails: details,
	}
}

func toStepErrors(details []ErrorDetail) []repository.StepError {
	out := make([]repository.StepError, len(details))
	for i, d := range details {
		out[i] = repository.StepError{
			Step:        string(d.Step),
			ErrorType:   string(d.ErrorType),
			Message:     d.Message,
			Suggestions: d.Suggestions,
		}
	}
	return out
}

// Operator guidance attached to diagnostics, by failure class.
var (
	strictValidationSuggestions = []string{
		"Review XML content for missing or invalid elements",
		"Check data formats and field lengths",
		"Ensure all required UBL elements are present",
		"Use AI assistant for detailed correction guidance",
	}
	parsingSuggestions = []string{
		"Check XML file structure and syntax",
		"Ensure XML is well-formed",
		"Verify file encoding and format",
	}
	conversionSuggestions = []string{
		"Check XML data completeness",
		"Verify all required fields for EDI conversion",
		"Review XML to EDI mapping logic",
	}
	formatSuggestions = []string{
		"Check EDI segment structure and field lengths",
		"Verify required segments are present",
		"Ensure field formats match X12 standards",
		"Review EDI field validation rules",
	}
	warningSuggestions = []string{
		"Review XML content for potential improvements",
	}
)

// Response-level suggested actions, by failed step.
var summaryActions = map[constants.StepName][]string{
	constants.StepXMLValidation: {
		"Review XML file structure and required elements",
		"Check data formats for InvoiceDate and TotalAmount",
		"Ensure XML is well-formed and valid",
		"Use AI assistant for detailed correction guidance",
	},
	constants.StepEDIConversion: {
		"Review XML file structure and content",
		"Check EDI conversion requirements",
		"Verify data completeness for EDI format",
		"Use AI assistant for conversion guidance",
	},
	constants.StepEDIFormat: {
		"Review EDI format and field validation requirements",
		"Check X12 compliance standards",
		"Verify EDI segment structure and field lengths",
		"Use AI assistant for EDI format guidance",
	},
}
