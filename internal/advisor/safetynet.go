package advisor

import "strings"

// StripFences removes markdown code fences a model sometimes wraps its
// output in, then trims surrounding whitespace.
func StripFences(s string) string {
	for _, marker := range []string{"```xml", "```edi", "```", "``"} {
		s = strings.ReplaceAll(s, marker, "")
	}
	return strings.TrimSpace(s)
}

// ApplyEDISafetyNet runs the deterministic post-oracle fixes: sender and
// receiver IDs in any ISA segment are force-padded or truncated to 15
// characters, and the incorrect N1*SU* seller code is rewritten to N1*SE*.
// Everything else, including whitespace between segments, passes through
// untouched.
func ApplyEDISafetyNet(edi string) string {
	chunks := strings.Split(edi, "~")
	for i, chunk := range chunks {
		body := strings.TrimLeft(chunk, " \t\r\n")
		prefix := chunk[:len(chunk)-len(body)]
		switch {
		case strings.HasPrefix(body, "ISA*"):
			parts := strings.Split(body, "*")
			if len(parts) > 6 {
				parts[6] = padTo15(parts[6])
			}
			if len(parts) > 8 {
				parts[8] = padTo15(parts[8])
			}
			chunks[i] = prefix + strings.Join(parts, "*")
		case strings.HasPrefix(body, "N1*SU*"):
			chunks[i] = prefix + strings.Replace(body, "N1*SU*", "N1*SE*", 1)
		}
	}
	return strings.Join(chunks, "~")
}

func padTo15(s string) string {
	if len(s) >= 15 {
		return s[:15]
	}
	return s + strings.Repeat(" ", 15-len(s))
}
