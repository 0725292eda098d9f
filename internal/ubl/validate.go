package ubl

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Result is the outcome of validating one source document.
// OK is false only for malformed XML or, in strict mode, when any
// semantic warning exists.
type Result struct {
	OK       bool
	Message  string
	Warnings []string
}

// Validator checks well-formedness and runs the UBL element and content
// checklists. It is a pure function over its input; the caller decides
// whether to persist or retry.
type Validator struct {
	logger *slog.Logger
}

func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{logger: logger}
}

// Validate confirms the document is well-formed and collects semantic
// warnings. With strict=true any warning fails the call; otherwise warnings
// are returned alongside OK=true.
func (v *Validator) Validate(raw []byte, strict bool) Result {
	doc, err := Parse(raw)
	if err != nil {
		v.logger.Error("ubl.validate.parse_failed", "error", err)
		return Result{OK: false, Message: err.Error()}
	}

	warnings := v.checkElements(doc)
	warnings = append(warnings, v.checkContent(doc)...)

	if strict && len(warnings) > 0 {
		msg := "Strict validation failed: " + strings.Join(warnings, "; ")
		v.logger.Warn("ubl.validate.strict_failed", "warnings", len(warnings))
		return Result{OK: false, Message: msg, Warnings: warnings}
	}

	v.logger.Info("ubl.validate.ok", "warnings", len(warnings), "strict", strict)
	return Result{OK: true, Message: "XML validation passed - file is well-formed", Warnings: warnings}
}

// checkElements runs the fixed checklist of UBL element lookups.
func (v *Validator) checkElements(doc *Document) []string {
	var warnings []string
	if doc.find(pathInvoiceID) == nil {
		warnings = append(warnings, "No UBL Invoice ID (cbc:ID) found - may affect conversion")
	}
	if doc.find(pathIssueDate) == nil {
		warnings = append(warnings, "No UBL Issue Date (cbc:IssueDate) found - may affect conversion")
	}
	if doc.find(pathPayableAmount) == nil {
		warnings = append(warnings, "No UBL Payable Amount found - may affect conversion")
	}
	if doc.find(pathSupplierBranch) == nil {
		warnings = append(warnings, "No UBL Supplier Party found - may affect conversion")
	}
	if doc.find(pathCustomerBranch) == nil {
		warnings = append(warnings, "No UBL Customer Party found - may affect conversion")
	}
	if len(doc.findAll(pathInvoiceLines)) == 0 {
		warnings = append(warnings, "No UBL Invoice Lines found - may affect conversion")
	}
	return warnings
}

// checkContent validates the content of elements that are present.
func (v *Validator) checkContent(doc *Document) []string {
	var warnings []string

	if id := doc.find(pathInvoiceID); id != nil {
		switch value := elemText(id); {
		case value == "":
			warnings = append(warnings, "Invoice ID is empty")
		case len(value) > 100:
			warnings = append(warnings, "Invoice ID is too long (>100 characters)")
		}
	}

	if date := doc.find(pathIssueDate); date != nil {
		value := elemText(date)
		if value == "" {
			warnings = append(warnings, "Issue Date is empty")
		} else if _, err := time.Parse("2006-01-02", value); err != nil {
			warnings = append(warnings, "Issue Date format may be invalid (expected YYYY-MM-DD)")
		}
	}

	if amount := doc.find(pathPayableAmount); amount != nil {
		value := elemText(amount)
		if value == "" {
			warnings = append(warnings, "Payable Amount is empty")
		} else if _, err := strconv.ParseFloat(value, 64); err != nil {
			warnings = append(warnings, "Payable Amount format may be invalid (expected decimal number)")
		}
	}

	warnings = append(warnings, checkPartyName(doc, pathSupplierBranch, "Supplier")...)
	warnings = append(warnings, checkPartyName(doc, pathCustomerBranch, "Customer")...)

	for i, line := range doc.findAll(pathInvoiceLines) {
		n := i + 1
		if id := line.FindElement("cbc:ID"); id != nil && elemText(id) == "" {
			warnings = append(warnings, fmt.Sprintf("Invoice Line %d ID is empty", n))
		}
		if qty := line.FindElement("cbc:InvoicedQuantity"); qty != nil && elemText(qty) != "" {
			if _, err := strconv.ParseFloat(elemText(qty), 64); err != nil {
				warnings = append(warnings, fmt.Sprintf("Invoice Line %d quantity format may be invalid", n))
			}
		}
		if price := line.FindElement(".//cac:Price/cbc:PriceAmount"); price != nil && elemText(price) != "" {
			if _, err := strconv.ParseFloat(elemText(price), 64); err != nil {
				warnings = append(warnings, fmt.Sprintf("Invoice Line %d price format may be invalid", n))
			}
		}
	}
	return warnings
}

func checkPartyName(doc *Document, branchPath, label string) []string {
	branch := doc.find(branchPath)
	if branch == nil {
		return nil
	}
	name := branch.FindElement(".//cbc:Name")
	if name == nil {
		return nil
	}
	switch value := elemText(name); {
	case value == "":
		return []string{label + " Name is empty"}
	case len(value) > 255:
		return []string{label + " Name is too long (>255 characters)"}
	}
	return nil
}
