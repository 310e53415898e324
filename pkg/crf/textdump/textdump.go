// Package textdump implements the human-readable dump/parse format for
// first-order CRF models: the same labeled `{ }`-block grammar the
// original CRFSuite-compatible dump used (FILEHEADER, LABELS,
// ATTRIBUTES, TRANSITIONS, STATE_FEATURES blocks). Higher-order models
// are out of scope for this format, matching the original, which only
// ever implements the text path for ORDER == 1.
package textdump

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"lcrf/pkg/crf"
	"lcrf/pkg/stringmap"
)

// Write renders m as the text dump format. m must be a first-order
// model; Write panics otherwise, since the format has no way to express
// higher-order state tuples.
func Write(w io.Writer, m *crf.Model) error {
	if m.Order() != 1 {
		panic("textdump: Write only supports first-order models")
	}
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "FILEHEADER = {\n")
	fmt.Fprintf(bw, "  model_type: crf_hmm\n")
	fmt.Fprintf(bw, "  model_order: %d\n", m.Order())
	fmt.Fprintf(bw, "  num_features: %d\n", m.FeaturesCount())
	fmt.Fprintf(bw, "  num_labels: %d\n", m.LabelsCount())
	fmt.Fprintf(bw, "  num_attrs: %d\n", m.AttributesCount())
	fmt.Fprintf(bw, "  num_transitions: %d\n", m.TransitionsCount())
	fmt.Fprintf(bw, "  num_params: %d\n", m.ParametersCount())
	fmt.Fprintf(bw, "}\n\n")

	fmt.Fprintf(bw, "LABELS = {\n")
	writeMapperBlock(bw, m.Labels())
	fmt.Fprintf(bw, "}\n\n")

	fmt.Fprintf(bw, "ATTRIBUTES = {\n")
	writeMapperBlock(bw, m.Attributes())
	fmt.Fprintf(bw, "}\n\n")

	fmt.Fprintf(bw, "TRANSITIONS = {\n")
	for to := 0; to < m.LabelsCount(); to++ {
		for _, tr := range m.IngoingTransitionsOf(crf.LabelID(to)) {
			fmt.Fprintf(bw, "  (1) %s --> %s: %v\n",
				m.Labels().StringOf(uint32(tr.Label)), m.Labels().StringOf(uint32(to)),
				m.WeightForParameter(tr.Param))
		}
	}
	fmt.Fprintf(bw, "}\n\n")

	fmt.Fprintf(bw, "STATE_FEATURES = {\n")
	for y := 0; y < m.LabelsCount(); y++ {
		for _, attr := range sortedAttrsForLabel(m, crf.LabelID(y)) {
			w := m.GetWeightForAttrAtLabel(attr, crf.LabelID(y))
			if w == 0 {
				continue
			}
			fmt.Fprintf(bw, "  (0) %s --> %s: %v\n",
				m.Attributes().StringOf(uint32(attr)), m.Labels().StringOf(uint32(y)), w)
		}
	}
	fmt.Fprintf(bw, "}\n\n")

	return bw.Flush()
}

func sortedAttrsForLabel(m *crf.Model, y crf.LabelID) []crf.AttributeID {
	var out []crf.AttributeID
	for a := 0; a < m.AttributesCount(); a++ {
		if idx := m.GetParamIndexForAttrAtLabel(crf.AttributeID(a), y); idx != crf.NoParameter {
			out = append(out, crf.AttributeID(a))
		}
	}
	return out
}

func writeMapperBlock(w io.Writer, mapper *stringmap.Mapper) {
	ids := make([]int, 0, mapper.Size())
	for i := 0; i < mapper.Size(); i++ {
		ids = append(ids, i)
	}
	sort.Ints(ids)
	for _, id := range ids {
		fmt.Fprintf(w, "  %d: %s\n", id, mapper.StringOf(uint32(id)))
	}
}

// Read parses a text dump back into a first-order model.
func Read(r io.Reader) (*crf.Model, error) {
	labels := stringmap.New()
	attrs := stringmap.New()

	const (
		qIntermediate = iota
		qHeader
		qLabels
		qAttributes
		qTransitions
		qStateFeatures
	)
	state := qIntermediate

	var numLabels, numAttrs int
	type transitionEntry struct {
		from, to string
		weight   float64
	}
	type featureEntry struct {
		attr, label string
		weight      float64
	}
	var transitionEntries []transitionEntry
	var featureEntries []featureEntry

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}

		if state == qIntermediate {
			switch line {
			case "FILEHEADER = {":
				state = qHeader
			case "LABELS = {":
				state = qLabels
			case "ATTRIBUTES = {":
				state = qAttributes
			case "TRANSITIONS = {":
				state = qTransitions
			case "STATE_FEATURES = {":
				state = qStateFeatures
			}
			continue
		}

		if line == "}" {
			state = qIntermediate
			continue
		}

		switch state {
		case qHeader:
			key, value, ok := splitHeaderLine(line)
			if !ok {
				continue
			}
			switch key {
			case "model_order":
				order, err := strconv.Atoi(value)
				if err != nil {
					return nil, fmt.Errorf("textdump: line %d: %w", lineNo, err)
				}
				if order != 1 {
					return nil, fmt.Errorf("textdump: line %d: unsupported model order %d", lineNo, order)
				}
			case "num_labels":
				numLabels, _ = strconv.Atoi(value)
			case "num_attrs":
				numAttrs, _ = strconv.Atoi(value)
			}

		case qLabels:
			id, label, err := splitIDEntry(line)
			if err != nil {
				return nil, fmt.Errorf("textdump: line %d: %w", lineNo, err)
			}
			labels.Add(label, id)

		case qAttributes:
			id, attr, err := splitIDEntry(line)
			if err != nil {
				return nil, fmt.Errorf("textdump: line %d: %w", lineNo, err)
			}
			attrs.Add(attr, id)

		case qTransitions:
			from, to, w, err := splitArrowEntry(line)
			if err != nil {
				return nil, fmt.Errorf("textdump: line %d: %w", lineNo, err)
			}
			transitionEntries = append(transitionEntries, transitionEntry{from, to, w})

		case qStateFeatures:
			attr, label, w, err := splitArrowEntry(line)
			if err != nil {
				return nil, fmt.Errorf("textdump: line %d: %w", lineNo, err)
			}
			featureEntries = append(featureEntries, featureEntry{attr, label, w})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	_ = numLabels
	_ = numAttrs

	m := crf.NewModel(1, labels, attrs)

	for _, te := range transitionEntries {
		fromID, ok1 := lookupOK(labels, te.from)
		toID, ok2 := lookupOK(labels, te.to)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("textdump: %w: transition references unknown label", crf.ErrUnknownSymbol)
		}
		idx, _ := m.AddFirstOrderTransition(fromID, toID)
		m.Parameters()[idx] = crf.Weight(te.weight)
	}

	for _, fe := range featureEntries {
		attrID, ok1 := lookupOK(attrs, fe.attr)
		labelID, ok2 := lookupOK(labels, fe.label)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("textdump: %w: feature references unknown symbol", crf.ErrUnknownSymbol)
		}
		idx := m.AddAttrForLabel(labelID, crf.AttributeID(attrID))
		m.Parameters()[idx] = crf.Weight(fe.weight)
	}

	m.Finalise()
	return m, nil
}

func lookupOK(m *stringmap.Mapper, s string) (crf.LabelID, bool) {
	id := m.IDOf(s)
	return crf.LabelID(id), id != stringmap.NotFound
}

func splitHeaderLine(line string) (key, value string, ok bool) {
	parts := strings.SplitN(strings.TrimSpace(line), ":", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
}

func splitIDEntry(line string) (uint32, string, error) {
	parts := strings.SplitN(strings.TrimSpace(line), ":", 2)
	if len(parts) != 2 {
		return 0, "", fmt.Errorf("malformed id entry %q", line)
	}
	id, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 32)
	if err != nil {
		return 0, "", err
	}
	return uint32(id), strings.TrimSpace(parts[1]), nil
}

// splitArrowEntry parses lines of the form:
//
//	(1) OTHER --> PER: 0.482204
//	(0) w[0]=Alice --> PER: 3.25
func splitArrowEntry(line string) (left, right string, weight float64, err error) {
	line = strings.TrimSpace(line)
	if idx := strings.Index(line, ")"); idx != -1 {
		line = strings.TrimSpace(line[idx+1:])
	}
	arrowIdx := strings.Index(line, "-->")
	if arrowIdx == -1 {
		return "", "", 0, fmt.Errorf("malformed arrow entry %q", line)
	}
	left = strings.TrimSpace(line[:arrowIdx])
	rest := strings.TrimSpace(line[arrowIdx+3:])
	colonIdx := strings.LastIndex(rest, ":")
	if colonIdx == -1 {
		return "", "", 0, fmt.Errorf("malformed arrow entry %q", line)
	}
	right = strings.TrimSpace(rest[:colonIdx])
	w, err := strconv.ParseFloat(strings.TrimSpace(rest[colonIdx+1:]), 64)
	if err != nil {
		return "", "", 0, err
	}
	return left, right, w, nil
}
