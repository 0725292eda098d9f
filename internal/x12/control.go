package x12

import (
	"strings"

	"github.com/tomide-ak/invoice-bridge/internal/ubl"
)

// ControlNumbers links the interchange, group and transaction envelopes of
// one generated document. All three values are derived once per conversion
// attempt and reused for every segment that carries a control number, so
// ISA13/IEA02, GS06/GE02 and ST02/SE02 stay mutually consistent.
type ControlNumbers struct {
	Interchange string // 9 digits
	Group       string // 6 digits
	Transaction string // 4 digits
}

// DeriveControlNumbers builds control numbers deterministically from the
// extracted invoice identifiers. It never fails: an absent source field
// yields an all-zero value of the correct width.
func DeriveControlNumbers(f ubl.Fields) ControlNumbers {
	return ControlNumbers{
		Interchange: controlValue(f.InvoiceID, 9),
		Group:       controlValue(f.OrderRef, 6),
		Transaction: controlValue(f.OriginatorRef, 4),
	}
}

// controlValue takes the first width characters of src and zero-pads on the
// left to exactly width.
func controlValue(src string, width int) string {
	if len(src) > width {
		src = src[:width]
	}
	return strings.Repeat("0", width-len(src)) + src
}
