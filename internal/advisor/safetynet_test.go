package advisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"xml fence", "```xml\n<Invoice/>\n```", "<Invoice/>"},
		{"edi fence", "```edi\nISA*00~\n```", "ISA*00~"},
		{"bare fence", "```\nBIG*20240101*X~\n```", "BIG*20240101*X~"},
		{"no fence", "  <Invoice/>  ", "<Invoice/>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripFences(tt.in))
		})
	}
}

func TestApplyEDISafetyNetPadsISAIDs(t *testing.T) {
	in := "ISA*00*          *00*          *ZZ*AU123*ZZ*NZ456*240315*1430*U*00401*000000001*0*P*>~"
	out := ApplyEDISafetyNet(in)
	assert.Contains(t, out, "*AU123          *")
	assert.Contains(t, out, "*NZ456          *")
}

func TestApplyEDISafetyNetTruncatesLongIDs(t *testing.T) {
	in := "ISA*00*          *00*          *ZZ*AVERYLONGSENDERIDENTIFIER*ZZ*RCVR*240315*1430*U*00401*000000001*0*P*>~"
	out := ApplyEDISafetyNet(in)
	assert.Contains(t, out, "*AVERYLONGSENDER*")
	assert.Contains(t, out, "*RCVR           *")
}

func TestApplyEDISafetyNetRewritesSupplierCode(t *testing.T) {
	in := "N1*SU*Acme Supplies*ZZ*AU123~\nN1*BY*Beta Retail*ZZ*NZ456~"
	out := ApplyEDISafetyNet(in)
	assert.Contains(t, out, "N1*SE*Acme Supplies")
	assert.NotContains(t, out, "N1*SU*")
	assert.Contains(t, out, "N1*BY*Beta Retail")
}

func TestApplyEDISafetyNetHandlesNewlineSeparatedSegments(t *testing.T) {
	in := "ISA*00*          *00*          *ZZ*AU123*ZZ*NZ456*240315*1430*U*00401*000000001*0*P*>~\nN1*SU*Acme*ZZ*AU123~"
	out := ApplyEDISafetyNet(in)
	assert.Contains(t, out, "*AU123          *")
	assert.Contains(t, out, "\nN1*SE*Acme")
}

func TestApplyEDISafetyNetLeavesOtherSegmentsAlone(t *testing.T) {
	in := "GS*IN*AU*NZ*20240315*1430*PO4711*X*004010~\nST*810*DOC9~"
	assert.Equal(t, in, ApplyEDISafetyNet(in))
}
