package x12

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

// SegmentResult is the validity verdict for one segment group.
type SegmentResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Report is the full format-validation outcome. Details always carries an
// entry per segment group, pass or fail.
type Report struct {
	OK      bool                     `json:"ok"`
	Message string                   `json:"message"`
	Details map[string]SegmentResult `json:"details"`
}

// Segment group keys in Report.Details.
const (
	DetailISA     = "isa_segment"
	DetailGS      = "gs_segment"
	DetailST      = "st_segment"
	DetailBIG     = "big_segment"
	DetailN1      = "n1_segments"
	DetailIT1     = "it1_segment"
	DetailTDS     = "tds_segment"
	DetailTrailer = "trailer_segments"
)

// Validator checks X12 810 text against the 810 segment constraints.
// It never returns an error: malformed input surfaces as segment-level
// failures in the report.
type Validator struct {
	logger *slog.Logger
}

func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{logger: logger}
}

// Validate splits the document into segments and checks field counts,
// widths and allowed values per segment group. OK is the conjunction of
// every group's validity.
func (v *Validator) Validate(text string) Report {
	segs := SplitSegments(text)

	details := map[string]SegmentResult{
		DetailISA:     checkISA(findSegment(segs, TagISA)),
		DetailGS:      checkGS(findSegment(segs, TagGS)),
		DetailST:      checkST(findSegment(segs, TagST)),
		DetailBIG:     checkBIG(findSegment(segs, TagBIG)),
		DetailN1:      checkN1(findSegments(segs, TagN1)),
		DetailIT1:     checkIT1(findSegment(segs, TagIT1)),
		DetailTDS:     checkTDS(findSegment(segs, TagTDS)),
		DetailTrailer: checkTrailers(segs),
	}

	ok := true
	errCount := 0
	for _, r := range details {
		if !r.Valid {
			ok = false
		}
		errCount += len(r.Errors)
	}

	if ok {
		v.logger.Info("x12.validate.ok", "segments", len(segs))
		return Report{OK: true, Message: "EDI format validation passed", Details: details}
	}
	v.logger.Warn("x12.validate.failed", "segments", len(segs), "errors", errCount)
	return Report{
		OK:      false,
		Message: fmt.Sprintf("EDI format validation failed with %d errors", errCount),
		Details: details,
	}
}

func findSegment(segs []Segment, tag string) Segment {
	for _, s := range segs {
		if s.Tag() == tag {
			return s
		}
	}
	return nil
}

func findSegments(segs []Segment, tag string) []Segment {
	var out []Segment
	for _, s := range segs {
		if s.Tag() == tag {
			out = append(out, s)
		}
	}
	return out
}

func result(errs []string) SegmentResult {
	return SegmentResult{Valid: len(errs) == 0, Errors: errs}
}

func checkISA(seg Segment) SegmentResult {
	if seg == nil {
		return result([]string{"ISA segment not found"})
	}
	if len(seg) < 16 {
		return result([]string{"ISA segment must have at least 16 fields"})
	}
	widths := []struct {
		index int
		width int
		msg   string
	}{
		{1, 2, "ISA02: Authorization Info Qualifier must be 2 characters"},
		{2, 10, "ISA03: Authorization Info must be 10 characters"},
		{3, 2, "ISA04: Security Info Qualifier must be 2 characters"},
		{4, 10, "ISA05: Security Info must be 10 characters"},
		{5, 2, "ISA06: Interchange ID Qualifier must be 2 characters"},
		{6, 15, "ISA07: Sender ID must be 15 characters"},
		{7, 2, "ISA08: Interchange ID Qualifier must be 2 characters"},
		{8, 15, "ISA09: Receiver ID must be 15 characters"},
	}
	var errs []string
	for _, w := range widths {
		if len(seg[w.index]) != w.width {
			errs = append(errs, w.msg)
		}
	}
	return result(errs)
}

func checkGS(seg Segment) SegmentResult {
	if seg == nil {
		return result([]string{"GS segment not found"})
	}
	if len(seg) < 8 {
		return result([]string{"GS segment must have at least 8 fields"})
	}
	var errs []string
	if seg[1] != "IN" {
		errs = append(errs, "GS02: Functional Identifier must be 'IN' for Invoice")
	}
	if len(seg[2]) != 2 {
		errs = append(errs, "GS03: Application Sender Code must be 2 characters")
	}
	if len(seg[3]) != 2 {
		errs = append(errs, "GS04: Application Receiver Code must be 2 characters")
	}
	return result(errs)
}

func checkST(seg Segment) SegmentResult {
	if seg == nil {
		return result([]string{"ST segment not found"})
	}
	if len(seg) < 2 {
		return result([]string{"ST segment must have at least 2 fields"})
	}
	if seg[1] != "810" {
		return result([]string{"ST02: Transaction Set Identifier must be '810' for Invoice"})
	}
	return result(nil)
}

func checkBIG(seg Segment) SegmentResult {
	if seg == nil {
		return result([]string{"BIG segment not found"})
	}
	if len(seg) < 3 {
		return result([]string{"BIG segment must have at least 3 fields"})
	}
	var errs []string
	if date := seg[1]; len(date) == 8 {
		if _, err := strconv.Atoi(date); err != nil {
			errs = append(errs, "BIG02: Date must be numeric YYYYMMDD format")
		} else if _, err := time.Parse("20060102", date); err != nil {
			errs = append(errs, "BIG02: Invalid date format")
		}
	} else {
		errs = append(errs, "BIG02: Invoice date must be 8 characters (YYYYMMDD)")
	}
	if seg[2] == "" {
		errs = append(errs, "BIG03: Invoice number cannot be empty")
	}
	return result(errs)
}

func checkN1(segs []Segment) SegmentResult {
	if len(segs) < 2 {
		return result([]string{"Must have at least 2 N1 segments (Buyer and Seller)"})
	}
	var errs []string
	if len(segs) > 2 {
		errs = append(errs, "Exactly two N1 segments required (one Buyer and one Seller)")
	}
	codes := map[string]int{}
	for i, seg := range segs {
		if len(seg) < 2 {
			errs = append(errs, fmt.Sprintf("N1-%d: Segment must have at least 2 fields", i+1))
			continue
		}
		if seg[1] != "BY" && seg[1] != "SE" {
			errs = append(errs, fmt.Sprintf("N1-%d: Entity Identifier must be 'BY' or 'SE'", i+1))
			continue
		}
		codes[seg[1]]++
	}
	if len(errs) == 0 && (codes["BY"] != 1 || codes["SE"] != 1) {
		errs = append(errs, "N1 segments must include one Buyer (BY) and one Seller (SE)")
	}
	return result(errs)
}

func checkIT1(seg Segment) SegmentResult {
	if seg == nil {
		return result([]string{"IT1 segment not found"})
	}
	if len(seg) < 6 {
		return result([]string{"IT1 segment must have at least 6 fields"})
	}
	qty, err := strconv.ParseFloat(seg[2], 64)
	switch {
	case seg[2] != "" && err != nil:
		return result([]string{"IT103: Quantity must be numeric"})
	case seg[2] == "" || qty <= 0:
		return result([]string{"IT103: Quantity must be greater than 0"})
	}
	return result(nil)
}

func checkTDS(seg Segment) SegmentResult {
	if seg == nil {
		return result([]string{"TDS segment not found"})
	}
	if len(seg) < 2 {
		return result([]string{"TDS segment must have at least 2 fields"})
	}
	amount, err := strconv.ParseFloat(seg[1], 64)
	switch {
	case seg[1] != "" && err != nil:
		return result([]string{"TDS02: Total amount must be numeric"})
	case seg[1] == "" || amount <= 0:
		return result([]string{"TDS02: Total amount must be greater than 0"})
	}
	return result(nil)
}

func checkTrailers(segs []Segment) SegmentResult {
	var errs []string
	for _, tag := range []string{TagCTT, TagSE, TagGE, TagIEA} {
		if findSegment(segs, tag) == nil {
			errs = append(errs, tag+" segment not found")
		}
	}
	return result(errs)
}
