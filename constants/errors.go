package constants

// ErrorType classifies a step failure in persisted error details.
type ErrorType string

const (
	ErrTypeParsing    ErrorType = "PARSING_ERROR"
	ErrTypeStrict     ErrorType = "STRICT_VALIDATION_ERROR"
	ErrTypeFormat     ErrorType = "FORMAT_ERROR"
	ErrTypeEncoding   ErrorType = "ENCODING_ERROR"
	ErrTypeConversion ErrorType = "CONVERSION_ERROR"
	ErrTypeWarning    ErrorType = "WARNING"
)
