package x12

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tomide-ak/invoice-bridge/internal/ubl"
)

// Encoder turns extracted invoice fields into one X12 810 document.
// Segment order is fixed: ISA, GS, ST, BIG, optional NTE/CUR/REF/PER, the
// two N1 party groups with their N3/N4 address lines, optional ITD/DTM/FOB,
// one IT1 per invoice line, TDS, CTT, SE, GE, IEA.
type Encoder struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewEncoder(logger *slog.Logger) *Encoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Encoder{logger: logger, now: time.Now}
}

// Encode builds the document text, segments joined with newlines. It fails
// only when a present date field cannot be parsed; everything else degrades
// to defaults the format validator will report.
func (e *Encoder) Encode(f ubl.Fields, cn ControlNumbers) (string, error) {
	start := time.Now()
	now := e.now()

	supplier, customer := f.Supplier, f.Customer
	if strings.TrimSpace(supplier.ID) == unknownPartyID {
		supplier.ID = ubl.NormalizePartyID(defaultSenderID)
	}
	if strings.TrimSpace(customer.ID) == unknownPartyID {
		customer.ID = ubl.NormalizePartyID(defaultReceiverID)
	}

	issueDate, err := formatDate(f.IssueDate)
	if err != nil {
		return "", fmt.Errorf("invalid issue date %q: %w", f.IssueDate, err)
	}

	segs := []Segment{
		buildISA(supplier, customer, cn, now),
		{TagGS, "IN", applicationCode(supplier.ID), applicationCode(customer.ID),
			now.Format("20060102"), now.Format("1504"), cn.Group, "X", "004010"},
		{TagST, "810", cn.Transaction},
		{TagBIG, issueDate, f.InvoiceID},
	}

	if note := strings.TrimSpace(f.Note); note != "" && note != "." {
		segs = append(segs, Segment{TagNTE, "GEN", note})
	}
	if f.Currency != "" {
		segs = append(segs, Segment{TagCUR, "BY", f.Currency})
	}
	if f.ContractRef != "" {
		segs = append(segs, Segment{TagREF, "CT", f.ContractRef})
	}
	if f.SupplierContact.Name != "" && f.SupplierContact.Telephone != "" {
		segs = append(segs, Segment{TagPER, "IC", f.SupplierContact.Name, "TE", f.SupplierContact.Telephone})
	}

	segs = append(segs, Segment{TagN1, "SE", supplier.Name, supplier.Qualifier, strings.TrimSpace(supplier.ID)})
	segs = appendAddress(segs, f.SupplierAddress)
	segs = append(segs, Segment{TagN1, "BY", customer.Name, customer.Qualifier, strings.TrimSpace(customer.ID)})
	segs = appendAddress(segs, f.CustomerAddress)

	if f.PaymentTerms != "" {
		term := f.PaymentTerms
		if strings.HasPrefix(strings.ToLower(term), "pay immediately") {
			term = "1"
		}
		segs = append(segs, Segment{TagITD, "01", term})
	}
	if f.DueDate != "" {
		dueDate, err := formatDate(f.DueDate)
		if err != nil {
			return "", fmt.Errorf("invalid due date %q: %w", f.DueDate, err)
		}
		segs = append(segs, Segment{TagDTM, "011", dueDate})
	}
	if f.HasDelivery {
		segs = append(segs, Segment{TagFOB, "CC"})
	}

	for idx, line := range f.Lines {
		qty := line.Quantity
		if qty == "" {
			qty = "0"
		}
		segs = append(segs, Segment{
			TagIT1, strconv.Itoa(idx + 1), qty, "EA",
			formatMinorUnits(line.PriceAmount), "CP", "VP", line.ProductCode,
		})
	}

	if f.PayableAmount != "" {
		segs = append(segs, Segment{TagTDS, formatMinorUnits(f.PayableAmount)})
	}
	segs = append(segs, Segment{TagCTT, strconv.Itoa(len(f.Lines)), strconv.Itoa(hashTotal(f.Lines))})

	// SE01 counts every segment from ST through SE inclusive.
	stIndex := 0
	for i, s := range segs {
		if s.Tag() == TagST {
			stIndex = i
			break
		}
	}
	segs = append(segs, Segment{TagSE, strconv.Itoa(len(segs) - stIndex + 1), cn.Transaction})
	segs = append(segs, Segment{TagGE, "1", cn.Group})
	segs = append(segs, Segment{TagIEA, "1", cn.Interchange})

	lines := make([]string, len(segs))
	for i, s := range segs {
		lines[i] = s.String()
	}
	e.logger.Info("x12.encode.ok",
		"segments", len(segs),
		"invoice_lines", len(f.Lines),
		"elapsed_ms", time.Since(start).Milliseconds())
	return strings.Join(lines, "\n"), nil
}

const (
	unknownPartyID    = "UNKNOWN"
	defaultSenderID   = "SENDERID"
	defaultReceiverID = "RECEIVERID"
)

// buildISA assembles the fixed-width interchange header: the tag plus 16
// data elements. No padding is applied after assembly, that would corrupt
// the single-character ISA16 delimiter element.
func buildISA(supplier, customer ubl.PartyInfo, cn ControlNumbers, now time.Time) Segment {
	return Segment{
		TagISA,
		"00", strings.Repeat(" ", 10),
		"00", strings.Repeat(" ", 10),
		fixedWidth(supplier.Qualifier, 2), fixedWidth(supplier.ID, 15),
		fixedWidth(customer.Qualifier, 2), fixedWidth(customer.ID, 15),
		now.Format("060102"), now.Format("1504"),
		"U", "00401",
		cn.Interchange,
		"0", "P", ">",
	}
}

// fixedWidth truncates or right-pads s with spaces to exactly width.
func fixedWidth(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}

// applicationCode shortens a party id to the two-character GS02/GS04 code.
func applicationCode(id string) string {
	return fixedWidth(strings.TrimSpace(id), 2)
}

// formatDate converts YYYY-MM-DD to YYYYMMDD. The "0000-00-00" placeholder
// and the empty string both map to "".
func formatDate(date string) (string, error) {
	if date == "" || date == "0000-00-00" {
		return "", nil
	}
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "", err
	}
	return t.Format("20060102"), nil
}

// formatMinorUnits renders a decimal amount as an integer count of minor
// units (cents). Unparsable input yields "0".
func formatMinorUnits(amount string) string {
	v, err := strconv.ParseFloat(amount, 64)
	if err != nil {
		return "0"
	}
	return strconv.FormatInt(int64(math.Round(v*100)), 10)
}

// hashTotal sums the invoice line ids with leading zeros stripped.
// Unparsable ids count as zero.
func hashTotal(lines []ubl.InvoiceLine) int {
	total := 0
	for _, line := range lines {
		id := strings.TrimLeft(line.ID, "0")
		if id == "" {
			continue
		}
		n, err := strconv.Atoi(id)
		if err != nil {
			continue
		}
		total += n
	}
	return total
}

// appendAddress emits the N3 street line and N4 city/region line for one
// party when any address component is present.
func appendAddress(segs []Segment, addr ubl.PostalAddress) []Segment {
	if addr.Street != "" {
		segs = append(segs, Segment{TagN3, addr.Street})
	}
	region, country := mapRegion(addr.City), mapCountry(addr.Country)
	if addr.City != "" || addr.Postal != "" || country != "" {
		segs = append(segs, Segment{TagN4, addr.City, region, addr.Postal, country})
	}
	return segs
}

// mapRegion resolves the N4 state/province code from the city name.
// Unrecognized cities map to the "XX" placeholder.
func mapRegion(city string) string {
	switch strings.ToLower(city) {
	case "north sydney":
		return "NS"
	case "port lincoln":
		return "SA"
	default:
		return "XX"
	}
}

// mapCountry widens the two-letter AU code to the three-letter AUS form.
func mapCountry(country string) string {
	if strings.ToUpper(country) == "AU" {
		return "AUS"
	}
	return country
}
