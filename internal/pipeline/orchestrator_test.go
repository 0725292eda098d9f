package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomide-ak/invoice-bridge/constants"
	"github.com/tomide-ak/invoice-bridge/internal/advisor"
	"github.com/tomide-ak/invoice-bridge/internal/repository"
	"github.com/tomide-ak/invoice-bridge/internal/storage"
	"github.com/tomide-ak/invoice-bridge/internal/ubl"
	"github.com/tomide-ak/invoice-bridge/internal/x12"
)

const completeInvoiceXML = `<?xml version="1.0" encoding="UTF-8"?>
<Invoice xmlns:cbc="urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
         xmlns:cac="urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2">
  <cbc:ID>INV001</cbc:ID>
  <cbc:IssueDate>2024-03-15</cbc:IssueDate>
  <cbc:DocumentCurrencyCode>AUD</cbc:DocumentCurrencyCode>
  <cac:OrderReference><cbc:ID>PO4711</cbc:ID></cac:OrderReference>
  <cac:AccountingSupplierParty>
    <cac:Party>
      <cac:PartyName><cbc:Name>Acme Supplies</cbc:Name></cac:PartyName>
      <cbc:EndpointID schemeID="0088">AU123</cbc:EndpointID>
    </cac:Party>
  </cac:AccountingSupplierParty>
  <cac:AccountingCustomerParty>
    <cac:Party>
      <cac:PartyName><cbc:Name>Globex Retail</cbc:Name></cac:PartyName>
      <cbc:EndpointID schemeID="0088">NZ456</cbc:EndpointID>
    </cac:Party>
  </cac:AccountingCustomerParty>
  <cac:LegalMonetaryTotal><cbc:PayableAmount>150.00</cbc:PayableAmount></cac:LegalMonetaryTotal>
  <cac:InvoiceLine>
    <cbc:ID>1</cbc:ID>
    <cbc:InvoicedQuantity>2</cbc:InvoicedQuantity>
    <cac:Item>
      <cac:SellersItemIdentification><cbc:ID>SKU-1</cbc:ID></cac:SellersItemIdentification>
    </cac:Item>
    <cac:Price><cbc:PriceAmount>75.00</cbc:PriceAmount></cac:Price>
  </cac:InvoiceLine>
</Invoice>`

// noIssueDateXML drops cbc:IssueDate so validation raises exactly one warning.
var noIssueDateXML = strings.Replace(completeInvoiceXML,
	"  <cbc:IssueDate>2024-03-15</cbc:IssueDate>\n", "", 1)

// noLinesXML drops the invoice line so the converted document has no IT1.
var noLinesXML = completeInvoiceXML[:strings.Index(completeInvoiceXML, "  <cac:InvoiceLine>")] + "</Invoice>"

type fakeCorrector struct {
	xmlCalls    int
	ediCalls    int
	xmlResult   advisor.Result
	ediResult   advisor.Result
	xmlErr      error
	ediErr      error
	lastEDIReq  advisor.EDIRequest
	lastXMLReq  advisor.XMLRequest
}

func (f *fakeCorrector) CorrectXML(_ context.Context, req advisor.XMLRequest) (advisor.Result, error) {
	f.xmlCalls++
	f.lastXMLReq = req
	return f.xmlResult, f.xmlErr
}

func (f *fakeCorrector) CorrectEDI(_ context.Context, req advisor.EDIRequest) (advisor.Result, error) {
	f.ediCalls++
	f.lastEDIReq = req
	return f.ediResult, f.ediErr
}

type fakeRepo struct {
	successes []repository.SuccessOutcome
	failures  []repository.FailureOutcome
}

func (f *fakeRepo) SaveSuccess(_ context.Context, o repository.SuccessOutcome) error {
	f.successes = append(f.successes, o)
	return nil
}

func (f *fakeRepo) SaveFailure(_ context.Context, o repository.FailureOutcome) error {
	f.failures = append(f.failures, o)
	return nil
}

func (f *fakeRepo) List(context.Context, int) ([]repository.Outcome, error) { return nil, nil }
func (f *fakeRepo) Counts(context.Context) (repository.Counts, error)      { return repository.Counts{}, nil }
func (f *fakeRepo) SoftDelete(context.Context, string) error               { return nil }

func newTestOrchestrator(t *testing.T, repo repository.OutcomeRepository, corrector advisor.Corrector) *Orchestrator {
	t.Helper()
	base := t.TempDir()
	store, err := storage.NewLocalStore(filepath.Join(base, "uploads"), filepath.Join(base, "converted"), nil)
	require.NoError(t, err)
	o := New(store, repo, corrector, nil)
	o.newTrackingID = func() string { return "test-track" }
	return o
}

func submission(content string, strict bool) Submission {
	return Submission{
		Filename:    "invoice.xml",
		ContentType: "text/xml",
		Content:     []byte(content),
		Strict:      strict,
	}
}

// validEDIFor runs the real converter over a parseable document so a fake
// corrector can hand back output that passes format validation.
func validEDIFor(t *testing.T, xmlText string) string {
	t.Helper()
	doc, err := ubl.Parse([]byte(xmlText))
	require.NoError(t, err)
	fields := ubl.ExtractFields(doc)
	edi, err := x12.NewEncoder(nil).Encode(fields, x12.DeriveControlNumbers(fields))
	require.NoError(t, err)
	return edi
}

func TestProcessSuccess(t *testing.T) {
	repo := &fakeRepo{}
	o := newTestOrchestrator(t, repo, nil)

	res, err := o.Process(context.Background(), submission(completeInvoiceXML, false))
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.True(t, res.FileUploadOK)
	assert.True(t, res.XMLValidationOK)
	assert.True(t, res.EDIConversionOK)
	assert.Equal(t, "test-track", res.TrackingID)
	assert.Equal(t, "XML validation passed", res.XMLMessage)
	assert.Empty(t, res.Warnings)
	assert.Nil(t, res.ErrorSummary)

	require.Len(t, res.Steps, 5)
	for i, step := range res.Steps {
		assert.True(t, step.Success, step.Name)
		assert.Equal(t, i+1, step.Ordinal)
	}

	require.Len(t, repo.successes, 1)
	assert.Equal(t, "test-track", repo.successes[0].TrackingID)
	assert.Contains(t, repo.successes[0].EDILocator, "test-track_converted.x12")
}

func TestProcessRejectsNonXMLContentType(t *testing.T) {
	o := newTestOrchestrator(t, nil, nil)

	_, err := o.Process(context.Background(), Submission{
		Filename:    "invoice.json",
		ContentType: "application/json",
		Content:     []byte("{}"),
	})

	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Contains(t, uploadErr.Message, "Only XML files are accepted")
	assert.Contains(t, uploadErr.Message, "application/json")
}

func TestProcessRejectsMissingFilename(t *testing.T) {
	o := newTestOrchestrator(t, nil, nil)

	_, err := o.Process(context.Background(), Submission{
		ContentType: "text/xml",
		Content:     []byte(completeInvoiceXML),
	})

	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, "No filename provided", uploadErr.Message)
}

func TestProcessMissingIssueDateLenient(t *testing.T) {
	// A missing issue date is a warning in lenient mode and conversion
	// proceeds; the empty BIG date is then caught by format validation.
	o := newTestOrchestrator(t, nil, nil)

	res, err := o.Process(context.Background(), submission(noIssueDateXML, false))
	require.NoError(t, err)

	assert.True(t, res.XMLValidationOK)
	assert.Contains(t, res.Warnings, "No UBL Issue Date (cbc:IssueDate) found - may affect conversion")
	assert.Contains(t, res.XMLMessage, "passed with 1 warnings")

	assert.False(t, res.Success)
	assert.False(t, res.EDIConversionOK)
	require.NotNil(t, res.ErrorSummary)
	assert.Equal(t, string(constants.StepEDIFormat), res.ErrorSummary.FailedStep)

	found := false
	for _, step := range res.Steps {
		if step.Name == constants.StepEDIFormat.Title() {
			for _, d := range step.ErrorDetails {
				if strings.Contains(d.Message, "BIG02") {
					found = true
				}
			}
		}
	}
	assert.True(t, found, "expected a BIG02 diagnostic")
}

func TestProcessStrictFailureAttemptsCorrectionOnce(t *testing.T) {
	repo := &fakeRepo{}
	corrector := &fakeCorrector{
		xmlResult: advisor.Result{Changed: true, Corrected: noIssueDateXML},
	}
	o := newTestOrchestrator(t, repo, corrector)

	res, err := o.Process(context.Background(), submission(noIssueDateXML, true))
	require.NoError(t, err)

	assert.Equal(t, 1, corrector.xmlCalls)
	assert.True(t, corrector.lastXMLReq.Strict)
	assert.False(t, res.Success)
	assert.False(t, res.XMLValidationOK)
	assert.Contains(t, res.XMLMessage, "Strict validation failed")
	assert.Equal(t, "Skipped due to XML validation failure", res.EDIMessage)

	require.NotNil(t, res.ErrorSummary)
	assert.Equal(t, string(constants.StepXMLValidation), res.ErrorSummary.FailedStep)
	assert.Contains(t, res.ErrorSummary.ErrorCategories, string(constants.ErrTypeStrict))

	require.Len(t, repo.failures, 1)
	assert.Equal(t, string(constants.StepXMLValidation), repo.failures[0].FailedStep)
	require.NotEmpty(t, repo.failures[0].StepErrors)
	assert.Equal(t, string(constants.ErrTypeStrict), repo.failures[0].StepErrors[0].ErrorType)
}

func TestProcessStrictFailureCorrectedToSuccess(t *testing.T) {
	repo := &fakeRepo{}
	corrector := &fakeCorrector{
		xmlResult: advisor.Result{Changed: true, Corrected: completeInvoiceXML},
	}
	o := newTestOrchestrator(t, repo, corrector)

	res, err := o.Process(context.Background(), submission(noIssueDateXML, true))
	require.NoError(t, err)

	assert.Equal(t, 1, corrector.xmlCalls)
	assert.True(t, res.Success)
	assert.True(t, res.XMLValidationOK)
	assert.Contains(t, res.Warnings, "AI autocorrection fixed XML issues automatically")
	require.Len(t, repo.successes, 1)
}

func TestProcessAdvisorErrorIsNotFatal(t *testing.T) {
	corrector := &fakeCorrector{xmlErr: errors.New("oracle unreachable")}
	o := newTestOrchestrator(t, nil, corrector)

	res, err := o.Process(context.Background(), submission(noIssueDateXML, true))
	require.NoError(t, err)

	assert.Equal(t, 1, corrector.xmlCalls)
	assert.False(t, res.Success)
	assert.Contains(t, res.XMLMessage, "Strict validation failed")
}

func TestProcessFormatFailureRepairedByCorrection(t *testing.T) {
	repo := &fakeRepo{}
	corrector := &fakeCorrector{
		ediResult: advisor.Result{Changed: true, Corrected: validEDIFor(t, completeInvoiceXML)},
	}
	o := newTestOrchestrator(t, repo, corrector)

	res, err := o.Process(context.Background(), submission(noLinesXML, false))
	require.NoError(t, err)

	assert.Equal(t, 1, corrector.ediCalls)
	assert.NotEmpty(t, corrector.lastEDIReq.Errors)
	assert.True(t, res.Success)
	assert.Equal(t, "AI correction successful and EDI passed format validation", res.EDIMessage)
	assert.Contains(t, res.EDILocator, "test-track_converted_ai_fixed.x12")
	require.Len(t, repo.successes, 1)
}

func TestProcessFormatFailureRetriesAtMostOnce(t *testing.T) {
	repo := &fakeRepo{}
	// The corrected document is still invalid; the stage must finalize
	// after a single attempt.
	corrector := &fakeCorrector{
		ediResult: advisor.Result{Changed: true, Corrected: "ISA*00~"},
	}
	o := newTestOrchestrator(t, repo, corrector)

	res, err := o.Process(context.Background(), submission(noLinesXML, false))
	require.NoError(t, err)

	assert.Equal(t, 1, corrector.ediCalls)
	assert.False(t, res.Success)
	assert.False(t, res.EDIConversionOK)
	assert.Contains(t, res.EDIMessage, "format validation failed")

	require.NotNil(t, res.ErrorSummary)
	assert.Equal(t, string(constants.StepEDIFormat), res.ErrorSummary.FailedStep)
	require.Len(t, repo.failures, 1)
}

func TestProcessZeroLinesFailsFormatValidation(t *testing.T) {
	o := newTestOrchestrator(t, nil, nil)

	res, err := o.Process(context.Background(), submission(noLinesXML, false))
	require.NoError(t, err)

	assert.False(t, res.Success)
	require.NotNil(t, res.ErrorSummary)
	assert.Equal(t, string(constants.StepEDIFormat), res.ErrorSummary.FailedStep)

	var messages []string
	for _, step := range res.Steps {
		for _, d := range step.ErrorDetails {
			messages = append(messages, d.Message)
		}
	}
	assert.Contains(t, messages, "IT1_SEGMENT: IT1 segment not found")
}

func TestProcessMalformedXMLFails(t *testing.T) {
	repo := &fakeRepo{}
	o := newTestOrchestrator(t, repo, nil)

	res, err := o.Process(context.Background(), submission("<Invoice><unclosed>", false))
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.False(t, res.XMLValidationOK)
	require.NotNil(t, res.ErrorSummary)
	assert.Equal(t, string(constants.StepXMLValidation), res.ErrorSummary.FailedStep)
	assert.Contains(t, res.ErrorSummary.ErrorCategories, string(constants.ErrTypeParsing))
	require.Len(t, repo.failures, 1)
}

func TestPreviewTruncation(t *testing.T) {
	long := strings.Repeat("a", previewLimit+10)
	assert.Equal(t, previewLimit+3, len(preview([]byte(long))))
	assert.True(t, strings.HasSuffix(preview([]byte(long)), "..."))
	assert.Equal(t, "short", preview([]byte("short")))
}
