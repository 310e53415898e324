package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"lcrf/pkg/features"
	"lcrf/pkg/lcrferr"
	"lcrf/pkg/pipeline"
)

// AnnotateCommand wires features and pipeline into the "text/columns ->
// attribute-bearing training file" leg. Column mode reads an already
// token/label-per-line file directly; text mode reads a stream of
// externally-tokenized RawTokens (one "text<TAB>class<TAB>offset<TAB>
// length" line per token, blank line never required), applies the
// <ne class="X"> pseudo-token annotation and sentence-splitting rules,
// and expands the resulting spans into BIO/BILOU labels before handing
// off to the same column-mode attribute writer.
func AnnotateCommand() *cobra.Command {
	var inputFile string
	var outputFile string
	var mode string
	var scheme string
	var outsideLabel string

	cmd := &cobra.Command{
		Use:   "annotate -i inputFile -o outputFile [--mode columns|text] [--scheme bio|bilou]",
		Short: "Extract attributes from text or column input and write a training file",
		Args:  cobra.NoArgs,
	}
	ff := addFeatureFlags(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		opts, err := ff.resolve()
		if err != nil {
			return err
		}
		extractor := features.New(opts)

		in, err := openResource(inputFile)
		if err != nil {
			return err
		}
		defer in.Close()

		var sequences [][]pipeline.ColumnRecord
		switch mode {
		case "columns":
			var skipped int
			sequences, skipped, err = pipeline.ReadColumnSequences(in, pipeline.DefaultHeader)
			if err != nil {
				return fmt.Errorf("reading column input: %w", err)
			}
			if skipped > 0 {
				log.Warn().Int("skipped", skipped).Msg("skipped malformed input lines")
			}
		case "text":
			s, err := parseScheme(scheme)
			if err != nil {
				return err
			}
			sequences, err = readTextSequences(in, s, outsideLabel)
			if err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: unknown --mode %q: want columns or text", lcrferr.ErrMalformedInput, mode)
		}

		out, err := createResource(outputFile)
		if err != nil {
			return err
		}
		defer out.Close()

		if err := pipeline.Annotate(out, extractor, sequences); err != nil {
			return fmt.Errorf("writing training file: %w", err)
		}
		log.Info().Int("sequences", len(sequences)).Str("file", outputFile).Msg("training file written")
		return nil
	}

	cmd.Flags().StringVarP(&inputFile, "input", "i", "", "input file")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "attribute-bearing training file to write")
	cmd.Flags().StringVar(&mode, "mode", "columns", "input mode: columns or text")
	cmd.Flags().StringVar(&scheme, "scheme", "bio", "span annotation scheme for text mode: bio or bilou")
	cmd.Flags().StringVar(&outsideLabel, "outside-label", pipeline.DefaultOutsideLabel, "label assigned to tokens outside any annotated span")

	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func parseScheme(s string) (pipeline.Scheme, error) {
	switch strings.ToLower(s) {
	case "bio":
		return pipeline.BIO, nil
	case "bilou":
		return pipeline.BILOU, nil
	default:
		return 0, fmt.Errorf("%w: unknown --scheme %q: want bio or bilou", lcrferr.ErrMalformedInput, s)
	}
}

// readTextSequences reads one RawToken per line ("text\tclass\toffset\t
// length"), splits the stream into sentences, strips <ne> pseudo-tokens
// into spans, and expands those spans into per-token labels under
// scheme, yielding one ColumnRecord sequence per sentence.
func readTextSequences(r io.Reader, scheme pipeline.Scheme, outside string) ([][]pipeline.ColumnRecord, error) {
	tokens, err := parseRawTokens(r)
	if err != nil {
		return nil, err
	}

	var out [][]pipeline.ColumnRecord
	for _, sentence := range pipeline.SplitSentences(tokens) {
		real, spans, err := pipeline.ParseAnnotatedTokens(sentence)
		if err != nil {
			return nil, err
		}
		if len(real) == 0 {
			continue
		}
		labels := pipeline.ApplyScheme(len(real), spans, scheme, outside)
		recs := make([]pipeline.ColumnRecord, len(real))
		for i, tok := range real {
			recs[i] = pipeline.ColumnRecord{Token: tok.Text, Label: labels[i], Tag: tok.Class}
		}
		out = append(out, recs)
	}
	return out, nil
}

func parseRawTokens(r io.Reader) ([]pipeline.RawToken, error) {
	var tokens []pipeline.RawToken
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 4 {
			return nil, fmt.Errorf("%w: line %d: expected 4 tab-separated fields, got %d", lcrferr.ErrMalformedInput, lineNo, len(fields))
		}
		offset, err1 := strconv.Atoi(fields[2])
		length, err2 := strconv.Atoi(fields[3])
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("%w: line %d: invalid offset/length", lcrferr.ErrMalformedInput, lineNo)
		}
		tokens = append(tokens, pipeline.RawToken{Text: fields[0], Class: fields[1], Offset: offset, Length: length})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return tokens, nil
}
