package constants

// StepName identifies one stage of the invoice processing pipeline.
type StepName string

// Stable values (these exact strings appear in persisted step errors).
const (
	StepFileUpload    StepName = "FILE_UPLOAD"
	StepXMLValidation StepName = "XML_VALIDATION"
	StepEDIConversion StepName = "EDI_CONVERSION"
	StepEDIFormat     StepName = "EDI_FORMAT_VALIDATION"
	StepPersist       StepName = "DATABASE_SAVE"
)

// Ordinal returns the 1-based position of the step in the pipeline.
func (s StepName) Ordinal() int {
	switch s {
	case StepFileUpload:
		return 1
	case StepXMLValidation:
		return 2
	case StepEDIConversion:
		return 3
	case StepEDIFormat:
		return 4
	case StepPersist:
		return 5
	}
	return 0
}

// Title is the human-readable step name used in step results.
func (s StepName) Title() string {
	switch s {
	case StepFileUpload:
		return "File Upload"
	case StepXMLValidation:
		return "XML Validation"
	case StepEDIConversion:
		return "EDI Conversion"
	case StepEDIFormat:
		return "EDI Format Validation"
	case StepPersist:
		return "Database Save"
	}
	return string(s)
}
