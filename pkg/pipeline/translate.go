package pipeline

import (
	"lcrf/pkg/crf"
	"lcrf/pkg/stringmap"
)

// Translate maps per-token attribute strings through model's attribute
// vocabulary into the id-based form the decoder requires. An attribute
// absent from the model is dropped rather than erroring: an unknown
// symbol at decode time contributes no parameter, which is the correct
// behavior for open-vocabulary inference.
func Translate(model *crf.Model, attrsPerToken [][]string) []crf.TokenAttributes {
	out := make([]crf.TokenAttributes, len(attrsPerToken))
	for i, attrs := range attrsPerToken {
		ids := make([]crf.AttributeID, 0, len(attrs))
		for _, a := range attrs {
			id := model.Attributes().IDOf(a)
			if id == stringmap.NotFound {
				continue
			}
			ids = append(ids, crf.AttributeID(id))
		}
		out[i] = crf.TokenAttributes{Attributes: ids}
	}
	return out
}

// LabelStrings maps decoded label ids back to their string form via
// model's label vocabulary.
func LabelStrings(model *crf.Model, ids []crf.LabelID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = model.Labels().StringOf(uint32(id))
	}
	return out
}

// LabelIDs maps gold label strings through model's label vocabulary,
// falling back to the model's <BOS> id for a label the model has never
// seen (this only arises when scoring against a model trained on a
// different label set than the input was annotated with).
func LabelIDs(model *crf.Model, labels []string) []crf.LabelID {
	out := make([]crf.LabelID, len(labels))
	for i, l := range labels {
		id := model.Labels().IDOf(l)
		if id == stringmap.NotFound {
			out[i] = model.BOSLabelID()
			continue
		}
		out[i] = crf.LabelID(id)
	}
	return out
}
