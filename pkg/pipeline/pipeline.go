// Package pipeline wires the feature extractor, attribute translation,
// and decoder together into the end-to-end apply data flow, and
// implements the output formats, span-annotation schemes, and
// running-text segmentation those flows consume and produce. Training
// and model persistence are orchestrated directly by the CLI layer
// against the crf, corpus, and train packages; this package covers the
// read -> extract -> translate -> decode -> output leg (spec.md's
// Pipeline component).
package pipeline

import (
	"lcrf/pkg/crf"
	"lcrf/pkg/features"
)

// Apply runs model's decoder over one sequence of column-mode records,
// extracting attributes with extractor and emitting the predicted labels
// (and, if every record carries a gold label, gold alongside predicted)
// through out.
func Apply(model *crf.Model, decoder *crf.Decoder, extractor *features.Extractor, seq []ColumnRecord, out Outputter) error {
	toks := make([]features.Token, len(seq))
	tokenTexts := make([]string, len(seq))
	hasGold := true
	for i, rec := range seq {
		toks[i] = features.Token{Text: rec.Token, Tag: rec.Tag}
		tokenTexts[i] = rec.Token
		if rec.Label == "" {
			hasGold = false
		}
	}

	attrs := extractor.Extract(toks)
	input := Translate(model, attrs)
	predictedIDs, _ := decoder.BestSequence(input)
	predicted := LabelStrings(model, predictedIDs)

	if hasGold {
		gold := make([]string, len(seq))
		for i, rec := range seq {
			gold[i] = rec.Label
		}
		return out.EmitWithGold(tokenTexts, gold, predicted)
	}
	return out.Emit(tokenTexts, predicted)
}

// ApplyAll runs Apply over every sequence in sequences, wrapping the run
// in out's Begin/End.
func ApplyAll(model *crf.Model, decoder *crf.Decoder, extractor *features.Extractor, sequences [][]ColumnRecord, out Outputter) error {
	if err := out.Begin(); err != nil {
		return err
	}
	for _, seq := range sequences {
		if len(seq) == 0 {
			continue
		}
		if err := Apply(model, decoder, extractor, seq, out); err != nil {
			return err
		}
	}
	return out.End()
}
