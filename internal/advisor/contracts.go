package advisor

import "context"

// Corrector proposes a corrected rendition of a document that failed a
// validation stage. Implementations must be safe for concurrent use. A
// failed call is never fatal to the caller: the pipeline logs it and
// finalizes the stage failure with the original document.
type Corrector interface {
	CorrectXML(ctx context.Context, req XMLRequest) (Result, error)
	CorrectEDI(ctx context.Context, req EDIRequest) (Result, error)
}

// XMLRequest asks for a repaired source document.
type XMLRequest struct {
	XML    string
	Strict bool
}

// EDIRequest asks for a repaired X12 document, with the source XML as
// context and the format validator's findings to fix.
type EDIRequest struct {
	XML    string
	EDI    string
	Errors []string
	Strict bool
}

// Result carries the corrected document. Changed is false when the oracle
// returned the input unchanged or empty output.
type Result struct {
	Changed   bool
	Corrected string
}
