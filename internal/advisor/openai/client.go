package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomide-ak/invoice-bridge/internal/advisor"
)

const (
	xmlCorrectionTemp = 0.3
	ediCorrectionTemp = 0.2
)

// CorrectXML implements advisor.Corrector for the source-document side:
// it asks the model to repair syntax, structure or schema issues while
// keeping the business data intact.
func (c *Client) CorrectXML(ctx context.Context, req advisor.XMLRequest) (advisor.Result, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("advisor.xml.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"strict", req.Strict,
		"xml_len", len(req.XML),
	)

	prompt := fmt.Sprintf(`You are an XML data correction assistant for e-invoices.
Given the XML below, correct any syntax, structure, or schema-related issues
that could cause validation or EDI conversion to fail.
Keep the same business data and structure; only fix formatting, tag mismatches,
or missing required elements.

Strict validation: %t
---
%s`, req.Strict, req.XML)

	corrected, err := c.complete(ctx, rid, "advisor.xml", prompt, xmlCorrectionTemp)
	if err != nil {
		return advisor.Result{}, err
	}

	changed := corrected != "" && corrected != req.XML
	c.log.Info("advisor.xml.ok",
		"req_id", rid,
		"changed", changed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if !changed {
		return advisor.Result{Changed: false, Corrected: req.XML}, nil
	}
	return advisor.Result{Changed: true, Corrected: corrected}, nil
}

// CorrectEDI implements advisor.Corrector for the X12 side. The source XML
// travels along as context so the model can re-derive mis-mapped values. The
// deterministic safety net runs over the model output before it is returned.
func (c *Client) CorrectEDI(ctx context.Context, req advisor.EDIRequest) (advisor.Result, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("advisor.edi.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"strict", req.Strict,
		"edi_len", len(req.EDI),
		"errors", len(req.Errors),
	)

	var errList strings.Builder
	for _, e := range req.Errors {
		errList.WriteString("- ")
		errList.WriteString(e)
		errList.WriteString("\n")
	}

	prompt := fmt.Sprintf(`You are an expert in EDI X12 810 invoice correction and validation.
Your task is to fix all listed EDI format and mapping errors using the XML source data.

Follow all the rules below strictly:
%s

Strict validation: %t

---
XML CONTENT:
%s
---
CURRENT EDI:
%s
---
ERRORS TO FIX:
%s`, ediFormatRules, req.Strict, req.XML, req.EDI, errList.String())

	corrected, err := c.complete(ctx, rid, "advisor.edi", prompt, ediCorrectionTemp)
	if err != nil {
		return advisor.Result{}, err
	}

	corrected = advisor.ApplyEDISafetyNet(corrected)

	changed := corrected != "" && corrected != req.EDI
	c.log.Info("advisor.edi.ok",
		"req_id", rid,
		"changed", changed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if !changed {
		return advisor.Result{Changed: false, Corrected: req.EDI}, nil
	}
	return advisor.Result{Changed: true, Corrected: corrected}, nil
}

// complete runs one chat completion and extracts the corrected document.
// The model is asked for JSON matching the correction schema; if the reply
// validates, the document field is used, otherwise the raw reply is taken
// as the document after fence stripping.
func (c *Client) complete(ctx context.Context, rid, event, prompt string, temperature float32) (string, error) {
	schema := advisor.BuildCorrectionJSONSchema()
	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "user", "content": prompt +
				"\n\nReturn ONLY JSON that matches the provided schema, with the full corrected document in 'corrected_document'."},
			{"role": "system", "content": "JSON Schema:\n" + mustJSON(schema)},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, httpErr := c.post(ctx, endpoint, body)
	if httpErr != nil {
		c.log.Error(event+".http_error", "req_id", rid, "error", httpErr)
		return "", httpErr
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error(event+".decode_error", "req_id", rid, "error", err, "raw_bytes", len(raw))
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		c.log.Error(event+".no_choices", "req_id", rid, "raw", string(raw))
		return "", fmt.Errorf("no choices in openai response")
	}

	content := advisor.StripFences(cc.Choices[0].Message.Content)
	rawContent := []byte(content)

	if err := advisor.ValidateJSONAgainstSchema(schema, rawContent); err == nil {
		var out advisor.CorrectionResponse
		if uErr := json.Unmarshal(rawContent, &out); uErr == nil {
			return advisor.StripFences(out.CorrectedDocument), nil
		}
	}

	// Lenient fallback: some replies are the bare document, not JSON.
	c.log.Warn(event+".lenient_fallback", "req_id", rid, "content_len", len(content))
	return content, nil
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai http error: %w", err)
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			c.log.Warn("openai response body close error", "error", err)
		}
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(resp.Body)
		return nil, fmt.Errorf("openai status %d: %s", resp.StatusCode, buf.String())
	}

	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(resp.Body)
	return buf.Bytes(), nil
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

const ediFormatRules = `EDI 810 STRICT FORMAT RULES:
1. ISA Segment (16 fields, fixed-length):
   - ISA06 (Sender ID): Must be exactly 15 characters (pad right with spaces if shorter).
   - ISA08 (Receiver ID): Must be exactly 15 characters (pad right with spaces if shorter).
   - ISA09 (Date): YYMMDD format.
   - ISA10 (Time): HHMM format.
   - Field separator: '*', segment terminator: '~'.

2. GS Segment:
   - GS02: Application Sender Code must be 2 characters (usually first 2 letters of Sender ID).
   - GS03: Application Receiver Code must be 2 characters (usually first 2 letters of Receiver ID).

3. N1 Segments:
   - Each invoice must have exactly two N1 segments:
     - One for Seller, Entity Identifier Code 'SE'.
     - One for Buyer, Entity Identifier Code 'BY'.
   - The Seller (SE) Name and ID should match the XML supplier/sender.
   - The Buyer (BY) Name and ID should match the XML customer/receiver.

4. Maintain all EDI segment ordering and structure (ST, BIG, N1, IT1, TDS, SE, GE, IEA).
5. Keep data accurate to XML (invoice number, date, totals, currency).
6. Do not include markdown, explanations, or comments. Output only valid EDI text.`
