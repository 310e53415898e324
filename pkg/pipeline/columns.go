package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"lcrf/pkg/features"
	"lcrf/pkg/lcrferr"
)

// ColumnRecord is one token-mode input line, with columns resolved by
// name against a header mapping (spec.md's Token/Label/Tag/Position/
// Lemma column names).
type ColumnRecord struct {
	Token    string
	Label    string
	Tag      string
	Position string
	Lemma    string
}

// DefaultHeader is the column order used when callers don't supply one
// of their own: Token then Label.
var DefaultHeader = []string{"Token", "Label"}

// ReadColumnSequences parses a tab-separated column-mode stream into
// sequences of records, one sequence per blank-line-terminated block,
// resolving fields by position against header. A trailing \r is
// tolerated. Lines with fewer fields than header are skipped and
// counted, matching corpus.Read's tolerance for malformed lines.
func ReadColumnSequences(r io.Reader, header []string) (sequences [][]ColumnRecord, skipped int, err error) {
	colIndex := make(map[string]int, len(header))
	for i, name := range header {
		colIndex[name] = i
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var cur []ColumnRecord
	flush := func() {
		if len(cur) > 0 {
			sequences = append(sequences, cur)
			cur = nil
		}
	}

	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if line == "" {
			flush()
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < len(header) {
			skipped++
			continue
		}
		rec := ColumnRecord{}
		if i, ok := colIndex["Token"]; ok {
			rec.Token = fields[i]
		}
		if i, ok := colIndex["Label"]; ok {
			rec.Label = fields[i]
		}
		if i, ok := colIndex["Tag"]; ok {
			rec.Tag = fields[i]
		}
		if i, ok := colIndex["Position"]; ok {
			rec.Position = fields[i]
		}
		if i, ok := colIndex["Lemma"]; ok {
			rec.Lemma = fields[i]
		}
		cur = append(cur, rec)
	}
	if err := scanner.Err(); err != nil {
		return sequences, skipped, err
	}
	flush()
	return sequences, skipped, nil
}

// Annotate turns column-mode sequences into an attribute-bearing
// training file: each line becomes "token<TAB>label<TAB>attr1<TAB>...",
// matching the format corpus.Read expects, with attributes produced by
// extractor from the sequence's tokens and tags.
func Annotate(w io.Writer, extractor *features.Extractor, sequences [][]ColumnRecord) error {
	bw := bufio.NewWriter(w)
	for _, seq := range sequences {
		toks := make([]features.Token, len(seq))
		for i, rec := range seq {
			toks[i] = features.Token{Text: rec.Token, Tag: rec.Tag}
		}
		attrs := extractor.Extract(toks)
		for i, rec := range seq {
			if rec.Label == "" {
				return fmt.Errorf("%w: record for token %q has no label", lcrferr.ErrMalformedInput, rec.Token)
			}
			fields := append([]string{rec.Token, rec.Label}, attrs[i]...)
			if _, err := fmt.Fprintln(bw, strings.Join(fields, "\t")); err != nil {
				return err
			}
		}
		if _, err := bw.WriteString("\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}
