package x12

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomide-ak/invoice-bridge/internal/ubl"
)

func fixedClockEncoder() *Encoder {
	e := NewEncoder(nil)
	e.now = func() time.Time {
		return time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)
	}
	return e
}

func sampleFields() ubl.Fields {
	return ubl.Fields{
		InvoiceID:     "INV001",
		IssueDate:     "2024-03-15",
		Currency:      "AUD",
		PayableAmount: "150.00",
		OrderRef:      "PO4711",
		OriginatorRef: "DOC9",
		Supplier: ubl.PartyInfo{
			Name:      "Acme Supplies",
			ID:        ubl.NormalizePartyID("AU123"),
			Qualifier: "ZZ",
		},
		SupplierAddress: ubl.PostalAddress{
			Street:  "1 Harbour St",
			City:    "North Sydney",
			Postal:  "2060",
			Country: "AU",
		},
		Customer: ubl.PartyInfo{
			Name:      "Beta Retail",
			ID:        ubl.NormalizePartyID("NZ456"),
			Qualifier: "ZZ",
		},
		Lines: []ubl.InvoiceLine{
			{ID: "001", Quantity: "2", PriceAmount: "75.00", ProductCode: "SKU-1"},
		},
	}
}

func encodeSample(t *testing.T, f ubl.Fields) []Segment {
	t.Helper()
	text, err := fixedClockEncoder().Encode(f, DeriveControlNumbers(f))
	require.NoError(t, err)
	return SplitSegments(text)
}

func TestEncodeISAHeader(t *testing.T) {
	segs := encodeSample(t, sampleFields())
	isa := findSegment(segs, TagISA)
	require.NotNil(t, isa)

	assert.Len(t, isa, 17, "tag plus 16 data elements")
	assert.Equal(t, ">", isa[16])
	assert.Len(t, isa[6], 15)
	assert.Len(t, isa[8], 15)
	assert.Equal(t, "AU123          ", isa[6])
	assert.Equal(t, "240315", isa[9])
	assert.Equal(t, "1430", isa[10])
	assert.Equal(t, "000INV001", isa[13])
}

func TestEncodeEnvelopeConsistency(t *testing.T) {
	segs := encodeSample(t, sampleFields())

	gs := findSegment(segs, TagGS)
	st := findSegment(segs, TagST)
	se := findSegment(segs, TagSE)
	ge := findSegment(segs, TagGE)
	iea := findSegment(segs, TagIEA)
	require.NotNil(t, gs)
	require.NotNil(t, st)
	require.NotNil(t, se)
	require.NotNil(t, ge)
	require.NotNil(t, iea)

	assert.Equal(t, "IN", gs[1])
	assert.Equal(t, "AU", gs[2])
	assert.Equal(t, "NZ", gs[3])
	assert.Equal(t, "20240315", gs[4])
	assert.Equal(t, "PO4711", gs[6], "first six characters of the order reference")
	assert.Equal(t, gs[6], ge[2])

	assert.Equal(t, "810", st[1])
	assert.Equal(t, "DOC9", st[2])
	assert.Equal(t, st[2], se[2])
	assert.Equal(t, findSegment(segs, TagISA)[13], iea[2])
}

func TestEncodeControlGroupWidth(t *testing.T) {
	f := sampleFields()
	cn := DeriveControlNumbers(f)
	assert.Equal(t, "PO4711", cn.Group)
	assert.Equal(t, "DOC9", cn.Transaction)
}

func TestEncodeSECount(t *testing.T) {
	segs := encodeSample(t, sampleFields())
	stIndex := -1
	seIndex := -1
	for i, s := range segs {
		switch s.Tag() {
		case TagST:
			stIndex = i
		case TagSE:
			seIndex = i
		}
	}
	require.GreaterOrEqual(t, stIndex, 0)
	require.Greater(t, seIndex, stIndex)

	se := segs[seIndex]
	assert.Equal(t, strconv.Itoa(seIndex-stIndex+1), se[1])
}

func TestEncodeLineSegments(t *testing.T) {
	f := sampleFields()
	f.Lines = append(f.Lines, ubl.InvoiceLine{ID: "0030", Quantity: "5", PriceAmount: "10.10", ProductCode: "SKU-2"})
	segs := encodeSample(t, f)

	it1s := findSegments(segs, TagIT1)
	require.Len(t, it1s, 2)
	assert.Equal(t, Segment{TagIT1, "1", "2", "EA", "7500", "CP", "VP", "SKU-1"}, it1s[0])
	assert.Equal(t, Segment{TagIT1, "2", "5", "EA", "1010", "CP", "VP", "SKU-2"}, it1s[1])

	ctt := findSegment(segs, TagCTT)
	require.NotNil(t, ctt)
	assert.Equal(t, "2", ctt[1])
	assert.Equal(t, "31", ctt[2], "1 + 30 with leading zeros stripped")

	tds := findSegment(segs, TagTDS)
	require.NotNil(t, tds)
	assert.Equal(t, "15000", tds[1])
}

func TestEncodeZeroLines(t *testing.T) {
	f := sampleFields()
	f.Lines = nil
	segs := encodeSample(t, f)

	assert.Nil(t, findSegment(segs, TagIT1))
	ctt := findSegment(segs, TagCTT)
	require.NotNil(t, ctt)
	assert.Equal(t, Segment{TagCTT, "0", "0"}, ctt)
}

func TestEncodeUnknownPartiesGetDefaults(t *testing.T) {
	f := sampleFields()
	f.Supplier = ubl.PartyInfo{Name: "UNKNOWN", ID: ubl.NormalizePartyID("UNKNOWN"), Qualifier: "ZZ"}
	f.Customer = ubl.PartyInfo{Name: "UNKNOWN", ID: ubl.NormalizePartyID("UNKNOWN"), Qualifier: "ZZ"}
	segs := encodeSample(t, f)

	isa := findSegment(segs, TagISA)
	require.NotNil(t, isa)
	assert.Equal(t, "SENDERID       ", isa[6])
	assert.Equal(t, "RECEIVERID     ", isa[8])

	n1s := findSegments(segs, TagN1)
	require.Len(t, n1s, 2)
	assert.Equal(t, "SENDERID", n1s[0][4])
	assert.Equal(t, "RECEIVERID", n1s[1][4])
}

func TestEncodePartyAndAddressSegments(t *testing.T) {
	segs := encodeSample(t, sampleFields())

	n1s := findSegments(segs, TagN1)
	require.Len(t, n1s, 2)
	assert.Equal(t, "SE", n1s[0][1])
	assert.Equal(t, "Acme Supplies", n1s[0][2])
	assert.Equal(t, "AU123", n1s[0][4])
	assert.Equal(t, "BY", n1s[1][1])

	n3 := findSegment(segs, TagN3)
	require.NotNil(t, n3)
	assert.Equal(t, "1 Harbour St", n3[1])

	n4 := findSegment(segs, TagN4)
	require.NotNil(t, n4)
	assert.Equal(t, Segment{TagN4, "North Sydney", "NS", "2060", "AUS"}, n4)
}

func TestEncodeOptionalSegments(t *testing.T) {
	f := sampleFields()
	f.Note = "Thanks for your business"
	f.ContractRef = "CT-88"
	f.PaymentTerms = "Pay immediately please"
	f.DueDate = "2024-04-14"
	f.HasDelivery = true
	f.SupplierContact = ubl.Contact{Name: "Dana", Telephone: "+61 2 5550 0000"}
	segs := encodeSample(t, f)

	assert.Equal(t, Segment{TagNTE, "GEN", "Thanks for your business"}, findSegment(segs, TagNTE))
	assert.Equal(t, Segment{TagCUR, "BY", "AUD"}, findSegment(segs, TagCUR))
	assert.Equal(t, Segment{TagREF, "CT", "CT-88"}, findSegment(segs, TagREF))
	assert.Equal(t, Segment{TagPER, "IC", "Dana", "TE", "+61 2 5550 0000"}, findSegment(segs, TagPER))
	assert.Equal(t, Segment{TagITD, "01", "1"}, findSegment(segs, TagITD))
	assert.Equal(t, Segment{TagDTM, "011", "20240414"}, findSegment(segs, TagDTM))
	assert.Equal(t, Segment{TagFOB, "CC"}, findSegment(segs, TagFOB))
}

func TestEncodeSkipsPlaceholderNote(t *testing.T) {
	f := sampleFields()
	f.Note = "."
	segs := encodeSample(t, f)
	assert.Nil(t, findSegment(segs, TagNTE))
}

func TestEncodeMissingIssueDate(t *testing.T) {
	f := sampleFields()
	f.IssueDate = ""
	segs := encodeSample(t, f)

	big := findSegment(segs, TagBIG)
	require.NotNil(t, big)
	assert.Equal(t, "", big[1])
	assert.Equal(t, "INV001", big[2])
}

func TestEncodePlaceholderIssueDate(t *testing.T) {
	f := sampleFields()
	f.IssueDate = "0000-00-00"
	segs := encodeSample(t, f)
	assert.Equal(t, "", findSegment(segs, TagBIG)[1])
}

func TestEncodeRejectsUnparsableDates(t *testing.T) {
	f := sampleFields()
	f.IssueDate = "15/03/2024"
	_, err := fixedClockEncoder().Encode(f, DeriveControlNumbers(f))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid issue date")

	f = sampleFields()
	f.DueDate = "not-a-date"
	_, err = fixedClockEncoder().Encode(f, DeriveControlNumbers(f))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid due date")
}

func TestFormatMinorUnits(t *testing.T) {
	assert.Equal(t, "15000", formatMinorUnits("150.00"))
	assert.Equal(t, "1010", formatMinorUnits("10.1"))
	assert.Equal(t, "0", formatMinorUnits("abc"))
	assert.Equal(t, "0", formatMinorUnits(""))
}

func TestHashTotalIgnoresUnparsableIDs(t *testing.T) {
	lines := []ubl.InvoiceLine{
		{ID: "001"}, {ID: "0030"}, {ID: "ABC"}, {ID: ""},
	}
	assert.Equal(t, 31, hashTotal(lines))
}
