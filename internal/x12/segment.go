package x12

import "strings"

// Wire format constants for the X12 810 documents this package emits.
const (
	FieldDelimiter    = "*"
	SegmentTerminator = "~"

	TagISA = "ISA"
	TagGS  = "GS"
	TagST  = "ST"
	TagBIG = "BIG"
	TagNTE = "NTE"
	TagCUR = "CUR"
	TagREF = "REF"
	TagPER = "PER"
	TagN1  = "N1"
	TagN3  = "N3"
	TagN4  = "N4"
	TagITD = "ITD"
	TagDTM = "DTM"
	TagFOB = "FOB"
	TagIT1 = "IT1"
	TagTDS = "TDS"
	TagCTT = "CTT"
	TagSE  = "SE"
	TagGE  = "GE"
	TagIEA = "IEA"
)

// Segment is an ordered list of *-delimited fields; the first field is the
// segment tag and determines the constraints the format validator applies.
type Segment []string

// Tag returns the segment identifier (first field), or "" for an empty segment.
func (s Segment) Tag() string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

// String renders the segment in wire form, terminated by "~".
func (s Segment) String() string {
	return strings.Join(s, FieldDelimiter) + SegmentTerminator
}

// ParseSegment splits one wire-form segment (without terminator) into fields.
func ParseSegment(line string) Segment {
	return Segment(strings.Split(strings.TrimSpace(line), FieldDelimiter))
}

// SplitSegments breaks EDI text into segments on the terminator character,
// discarding blanks. Parse anomalies are the validator's concern, never an
// error here.
func SplitSegments(text string) []Segment {
	var segs []Segment
	for _, line := range strings.Split(text, SegmentTerminator) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		segs = append(segs, ParseSegment(line))
	}
	return segs
}
