package pipeline

import "strings"

// Scheme selects the span-annotation convention used to turn token spans
// into per-token labels.
type Scheme int

const (
	// BIO assigns the first token of a span X_B and the rest X_I.
	BIO Scheme = iota
	// BILOU additionally distinguishes the last token of a multi-token
	// span (X_L) and single-token spans (X_U).
	BILOU
)

// DefaultOutsideLabel is used for tokens outside any annotated span
// unless the caller configures a different one.
const DefaultOutsideLabel = "OTHER"

// Span is a half-open range of token indices sharing one annotation
// class, as delivered by a pseudo-token-annotated running-text stream or
// a column-mode Label column.
type Span struct {
	Start, End int
	Class      string
}

// ApplyScheme expands spans into one label per token, under scheme, with
// every token not covered by a span set to outside.
func ApplyScheme(n int, spans []Span, scheme Scheme, outside string) []string {
	labels := make([]string, n)
	for i := range labels {
		labels[i] = outside
	}
	for _, sp := range spans {
		if sp.Start < 0 || sp.End > n || sp.Start >= sp.End {
			continue
		}
		length := sp.End - sp.Start
		for i := sp.Start; i < sp.End; i++ {
			switch {
			case scheme == BILOU && length == 1:
				labels[i] = sp.Class + "_U"
			case i == sp.Start:
				labels[i] = sp.Class + "_B"
			case scheme == BILOU && i == sp.End-1:
				labels[i] = sp.Class + "_L"
			default:
				labels[i] = sp.Class + "_I"
			}
		}
	}
	return labels
}

// ExtractSpans is ApplyScheme's inverse: it recovers the spans implied by
// a labeled sequence, tolerant of either scheme's suffixes appearing in
// the same sequence (a _U or _L token always closes the span it starts or
// continues).
func ExtractSpans(labels []string) []Span {
	var spans []Span
	var cur *Span

	closeCur := func() {
		if cur != nil {
			spans = append(spans, *cur)
			cur = nil
		}
	}

	for i, lab := range labels {
		class, tag, ok := splitTag(lab)
		if !ok {
			closeCur()
			continue
		}
		switch tag {
		case "U":
			closeCur()
			spans = append(spans, Span{Start: i, End: i + 1, Class: class})
		case "B":
			closeCur()
			cur = &Span{Start: i, End: i + 1, Class: class}
		case "I":
			if cur != nil && cur.Class == class {
				cur.End = i + 1
			} else {
				closeCur()
				cur = &Span{Start: i, End: i + 1, Class: class}
			}
		case "L":
			if cur != nil && cur.Class == class {
				cur.End = i + 1
			} else {
				closeCur()
				cur = &Span{Start: i, End: i + 1, Class: class}
			}
			closeCur()
		}
	}
	closeCur()
	return spans
}

// splitTag splits a label of the form "CLASS_B"/"CLASS_I"/"CLASS_L"/
// "CLASS_U" into its class and tag; ok is false for an outside label
// (anything without one of those four suffixes).
func splitTag(label string) (class, tag string, ok bool) {
	for _, suffix := range []string{"_B", "_I", "_L", "_U"} {
		if strings.HasSuffix(label, suffix) && len(label) > len(suffix) {
			return label[:len(label)-len(suffix)], suffix[1:], true
		}
	}
	return "", "", false
}
