package ubl

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// Document is a parsed UBL invoice. It wraps the XML tree and exposes
// namespace-prefixed path lookups; it is immutable once parsed. A corrected
// variant is a new Document, never an in-place mutation.
type Document struct {
	tree *etree.Document
	raw  []byte
}

// Parse reads raw XML bytes into a Document. It fails only on empty input or
// XML that is not well-formed; missing UBL elements are not an error here.
func Parse(raw []byte) (*Document, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, fmt.Errorf("XML file is empty")
	}
	tree := etree.NewDocument()
	if err := tree.ReadFromBytes(raw); err != nil {
		return nil, fmt.Errorf("XML parsing error: %w", err)
	}
	if tree.Root() == nil {
		return nil, fmt.Errorf("XML parsing error: no root element")
	}
	return &Document{tree: tree, raw: raw}, nil
}

// Raw returns the original bytes the document was parsed from.
func (d *Document) Raw() []byte {
	return d.raw
}

// find returns the first element matching path, or nil.
func (d *Document) find(path string) *etree.Element {
	return d.tree.Root().FindElement(path)
}

// findAll returns every element matching path in document order.
func (d *Document) findAll(path string) []*etree.Element {
	return d.tree.Root().FindElements(path)
}

// text returns the trimmed text of the first element matching path,
// or "" when the element is absent or empty.
func (d *Document) text(path string) string {
	return elemText(d.find(path))
}

func elemText(e *etree.Element) string {
	if e == nil {
		return ""
	}
	return strings.TrimSpace(e.Text())
}
