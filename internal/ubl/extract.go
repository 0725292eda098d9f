package ubl

import (
	"strings"

	"github.com/beevik/etree"
)

// Element paths the converter consumes. Lookups are permissive: a missing
// element yields the sentinel default, never an error, and the downstream
// EDI format validation reports the resulting gaps.
const (
	pathInvoiceID      = "//cbc:ID"
	pathIssueDate      = "//cbc:IssueDate"
	pathDueDate        = "//cbc:DueDate"
	pathNote           = "//cbc:Note"
	pathCurrency       = "//cbc:DocumentCurrencyCode"
	pathPayableAmount  = "//cac:LegalMonetaryTotal/cbc:PayableAmount"
	pathOrderRef       = "//cac:OrderReference/cbc:ID"
	pathOriginatorRef  = "//cac:OriginatorDocumentReference/cbc:ID"
	pathContractRef    = "//cac:ContractDocumentReference/cbc:ID"
	pathPaymentTerms   = "//cac:PaymentTerms/cbc:Note"
	pathDelivery       = "//cac:Delivery"
	pathSupplierParty  = "//cac:AccountingSupplierParty/cac:Party"
	pathCustomerParty  = "//cac:AccountingCustomerParty/cac:Party"
	pathSupplierBranch = "//cac:AccountingSupplierParty"
	pathCustomerBranch = "//cac:AccountingCustomerParty"
	pathInvoiceLines   = "//cac:InvoiceLine"
)

// PartyInfo is a normalized supplier or buyer identity.
// ID is always exactly 15 characters after normalization.
type PartyInfo struct {
	Name      string
	ID        string
	Qualifier string
}

// PostalAddress holds the optional address fields of a party.
type PostalAddress struct {
	Street  string
	City    string
	Postal  string
	Country string
}

// Contact is the optional supplier contact used for the PER segment.
type Contact struct {
	Name      string
	Telephone string
}

// InvoiceLine holds the per-line fields consumed by IT1 encoding.
type InvoiceLine struct {
	ID          string
	Quantity    string
	PriceAmount string
	ProductCode string
}

// Fields is every value the encoder reads from a source document,
// extracted once with sentinel defaults for anything missing.
type Fields struct {
	InvoiceID       string
	IssueDate       string // YYYY-MM-DD as written, "" when absent
	DueDate         string
	Note            string
	Currency        string
	PayableAmount   string
	OrderRef        string
	OriginatorRef   string
	ContractRef     string
	PaymentTerms    string
	HasDelivery     bool
	Supplier        PartyInfo
	SupplierAddress PostalAddress
	SupplierContact Contact
	Customer        PartyInfo
	CustomerAddress PostalAddress
	Lines           []InvoiceLine
}

// qualifierByScheme maps UBL endpoint scheme ids to X12 interchange ID
// qualifiers. Unknown schemes fall back to "ZZ" (mutually defined).
var qualifierByScheme = map[string]string{
	"0002": "01",
	"0007": "14",
	"0009": "33",
	"0037": "94",
	"0060": "N1",
	"0088": "12",
	"0160": "98",
	"9930": "93",
	"0096": "24",
}

const unknownValue = "UNKNOWN"

// NormalizePartyID pads or truncates an identifier to exactly 15 characters.
func NormalizePartyID(id string) string {
	if len(id) >= 15 {
		return id[:15]
	}
	return id + strings.Repeat(" ", 15-len(id))
}

// ExtractFields pulls every converter input out of the document.
// It never fails; absent elements produce the documented defaults.
func ExtractFields(doc *Document) Fields {
	f := Fields{
		InvoiceID:     doc.text(pathInvoiceID),
		IssueDate:     doc.text(pathIssueDate),
		DueDate:       doc.text(pathDueDate),
		Note:          doc.text(pathNote),
		Currency:      doc.text(pathCurrency),
		PayableAmount: doc.text(pathPayableAmount),
		OrderRef:      doc.text(pathOrderRef),
		OriginatorRef: doc.text(pathOriginatorRef),
		ContractRef:   doc.text(pathContractRef),
		PaymentTerms:  doc.text(pathPaymentTerms),
		HasDelivery:   doc.find(pathDelivery) != nil,
	}
	f.Supplier = extractParty(doc.find(pathSupplierParty))
	f.SupplierAddress = extractPostalAddress(doc.find(pathSupplierParty))
	f.SupplierContact = extractContact(doc.find(pathSupplierBranch))
	f.Customer = extractParty(doc.find(pathCustomerParty))
	f.CustomerAddress = extractPostalAddress(doc.find(pathCustomerParty))

	for _, line := range doc.findAll(pathInvoiceLines) {
		f.Lines = append(f.Lines, InvoiceLine{
			ID:          elemText(line.FindElement("cbc:ID")),
			Quantity:    elemText(line.FindElement("cbc:InvoicedQuantity")),
			PriceAmount: elemText(line.FindElement(".//cac:Price/cbc:PriceAmount")),
			ProductCode: elemText(line.FindElement(".//cac:Item/cac:SellersItemIdentification/cbc:ID")),
		})
	}
	return f
}

func extractParty(party *etree.Element) PartyInfo {
	if party == nil {
		return PartyInfo{Name: unknownValue, ID: NormalizePartyID(unknownValue), Qualifier: "ZZ"}
	}
	info := PartyInfo{Name: unknownValue, ID: unknownValue, Qualifier: "ZZ"}
	if name := party.FindElement(".//cbc:Name"); name != nil && elemText(name) != "" {
		info.Name = elemText(name)
	}
	if endpoint := party.FindElement(".//cbc:EndpointID"); endpoint != nil {
		if scheme := endpoint.SelectAttrValue("schemeID", ""); scheme != "" {
			if q, ok := qualifierByScheme[scheme]; ok {
				info.Qualifier = q
			}
		}
		if id := elemText(endpoint); id != "" {
			info.ID = id
		}
	}
	info.ID = NormalizePartyID(info.ID)
	return info
}

func extractPostalAddress(party *etree.Element) PostalAddress {
	if party == nil {
		return PostalAddress{}
	}
	addr := party.FindElement("cac:PostalAddress")
	if addr == nil {
		return PostalAddress{}
	}
	return PostalAddress{
		Street:  elemText(addr.FindElement("cbc:StreetName")),
		City:    elemText(addr.FindElement("cbc:CityName")),
		Postal:  elemText(addr.FindElement("cbc:PostalZone")),
		Country: elemText(addr.FindElement("cac:Country/cbc:IdentificationCode")),
	}
}

func extractContact(branch *etree.Element) Contact {
	if branch == nil {
		return Contact{}
	}
	contact := branch.FindElement(".//cac:Contact")
	if contact == nil {
		return Contact{}
	}
	return Contact{
		Name:      elemText(contact.FindElement("cbc:Name")),
		Telephone: elemText(contact.FindElement("cbc:Telephone")),
	}
}
