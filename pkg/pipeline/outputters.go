package pipeline

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Outputter is the capability set an output format implements: begin a
// run, emit one sequence (optionally alongside its gold labels, for
// evaluation output), and end the run. Modeled as a small set of
// concrete variants rather than an inheritance hierarchy.
type Outputter interface {
	Begin() error
	End() error
	Emit(tokens, labels []string) error
	EmitWithGold(tokens, gold, predicted []string) error
	Reset() error
}

// ColumnOutputter writes one token per line as "token<TAB>label", with a
// blank line between sequences, mirroring the tab-separated column input
// format.
type ColumnOutputter struct {
	w *bufio.Writer
}

// NewColumnOutputter wraps w for column-mode output.
func NewColumnOutputter(w io.Writer) *ColumnOutputter {
	return &ColumnOutputter{w: bufio.NewWriter(w)}
}

func (o *ColumnOutputter) Begin() error { return nil }

func (o *ColumnOutputter) End() error { return o.w.Flush() }

func (o *ColumnOutputter) Reset() error { return nil }

func (o *ColumnOutputter) Emit(tokens, labels []string) error {
	for i, tok := range tokens {
		if _, err := fmt.Fprintf(o.w, "%s\t%s\n", tok, labels[i]); err != nil {
			return err
		}
	}
	_, err := o.w.WriteString("\n")
	return err
}

func (o *ColumnOutputter) EmitWithGold(tokens, gold, predicted []string) error {
	for i, tok := range tokens {
		if _, err := fmt.Fprintf(o.w, "%s\t%s\t%s\n", tok, gold[i], predicted[i]); err != nil {
			return err
		}
	}
	_, err := o.w.WriteString("\n")
	return err
}

// jsonSequence is the wire shape of one emitted sequence in JSON mode.
type jsonSequence struct {
	Tokens    []string `json:"tokens"`
	Labels    []string `json:"labels,omitempty"`
	Gold      []string `json:"gold,omitempty"`
	Predicted []string `json:"predicted,omitempty"`
}

// JSONOutputter streams one JSON object per sequence via
// encoding/json.Encoder, matching the teacher's own use of encoding/json
// for structured output (golem.go's console writer field formatting).
type JSONOutputter struct {
	enc *json.Encoder
}

// NewJSONOutputter wraps w for JSON-lines output.
func NewJSONOutputter(w io.Writer) *JSONOutputter {
	return &JSONOutputter{enc: json.NewEncoder(w)}
}

func (o *JSONOutputter) Begin() error { return nil }
func (o *JSONOutputter) End() error   { return nil }
func (o *JSONOutputter) Reset() error { return nil }

func (o *JSONOutputter) Emit(tokens, labels []string) error {
	return o.enc.Encode(jsonSequence{Tokens: tokens, Labels: labels})
}

func (o *JSONOutputter) EmitWithGold(tokens, gold, predicted []string) error {
	return o.enc.Encode(jsonSequence{Tokens: tokens, Gold: gold, Predicted: predicted})
}

// TextOutputter reconstructs the running-text annotation format,
// wrapping contiguous spans of a non-outside label in
// <ne class="X">...</ne>, the inverse of ParseAnnotatedTokens.
type TextOutputter struct {
	w       *bufio.Writer
	outside string
}

// NewTextOutputter wraps w for annotated running-text output. outside is
// stored but does not affect the output: any label without a
// _B/_I/_L/_U suffix is treated as outside a span (see ExtractSpans).
func NewTextOutputter(w io.Writer, outside string) *TextOutputter {
	return &TextOutputter{w: bufio.NewWriter(w), outside: outside}
}

func (o *TextOutputter) Begin() error { return nil }

func (o *TextOutputter) End() error { return o.w.Flush() }

func (o *TextOutputter) Reset() error { return nil }

func (o *TextOutputter) Emit(tokens, labels []string) error {
	return o.emit(tokens, labels)
}

func (o *TextOutputter) EmitWithGold(tokens, gold, predicted []string) error {
	return o.emit(tokens, predicted)
}

func (o *TextOutputter) emit(tokens, labels []string) error {
	spans := ExtractSpans(labels)
	byStart := make(map[int]string, len(spans))
	byEnd := make(map[int]bool, len(spans))
	for _, sp := range spans {
		byStart[sp.Start] = sp.Class
		byEnd[sp.End-1] = true
	}

	var out []string
	for i, tok := range tokens {
		if class, ok := byStart[i]; ok {
			out = append(out, fmt.Sprintf(`<ne class="%s">`, class))
		}
		out = append(out, tok)
		if byEnd[i] {
			out = append(out, "</ne>")
		}
	}
	_, err := fmt.Fprintln(o.w, strings.Join(out, " "))
	return err
}
