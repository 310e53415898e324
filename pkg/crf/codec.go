package crf

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"lcrf/pkg/stringmap"
)

// modelHeaderID is the fixed magic string at the start of every binary
// model file, matching the original format byte-for-byte (including the
// trailing NUL written by strlen(...)+1).
const modelHeaderID = "LCRF Binary Model File version 1.0\x00"

// Metadata summarizes a model's shape without requiring the full
// parameter vector to be loaded; ReadMetadata reads only this record.
type Metadata struct {
	Order                int
	NumLabels            int
	NumStates            int
	NumTransitions       int
	NumAttributes        int
	NumFeatures          int
	NumParameters        int
	NumNonNullParameters int
}

func (m *Model) metadata() Metadata {
	nonNull := 0
	for _, w := range m.parameters {
		if w != 0 {
			nonNull++
		}
	}
	return Metadata{
		Order:                m.order,
		NumLabels:            m.LabelsCount(),
		NumStates:            m.StatesCount(),
		NumTransitions:       m.TransitionsCount(),
		NumAttributes:        m.AttributesCount(),
		NumFeatures:          m.FeaturesCount(),
		NumParameters:        m.ParametersCount(),
		NumNonNullParameters: nonNull,
	}
}

// WriteTo serializes the model to the binary format documented for .crf
// model files: magic header, metadata record, a table of five section
// offsets, then the label mapper, (for order > 1) the state mapper, the
// attribute mapper, the transition table, the label-attribute table, and
// finally the non-zero-only compressed parameter vector.
func (m *Model) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var written int64

	n, err := bw.WriteString(modelHeaderID)
	written += int64(n)
	if err != nil {
		return written, err
	}

	md := m.metadata()
	for _, v := range []int{md.Order, md.NumLabels, md.NumStates, md.NumTransitions,
		md.NumAttributes, md.NumFeatures, md.NumParameters, md.NumNonNullParameters} {
		if err := binary.Write(bw, binary.LittleEndian, uint32(v)); err != nil {
			return written, err
		}
		written += 4
	}

	// The five offsets are written as placeholders and must be seekable
	// to patch in final values, so WriteTo requires an io.WriteSeeker
	// when offsets matter; writers that only need a forward stream (e.g.
	// network transmission) can ignore the offsets, which is why they
	// are zero when w is not seekable.
	seeker, seekable := w.(io.WriteSeeker)
	offsetTablePos := written
	var offsets [5]int64
	for range offsets {
		if err := binary.Write(bw, binary.LittleEndian, int64(0)); err != nil {
			return written, err
		}
		written += 8
	}

	offsets[0] = written
	nn, err := m.labels.WriteTo(bw)
	written += nn
	if err != nil {
		return written, err
	}

	if m.order > 1 {
		nn, err = writeStateMapper(bw, m.stateMapper)
		written += nn
		if err != nil {
			return written, err
		}
	}

	offsets[1] = written
	nn, err = m.attributes.WriteTo(bw)
	written += nn
	if err != nil {
		return written, err
	}

	offsets[2] = written
	// Emitted by StatesCount, not len(m.transitions): m.transitions only
	// grows as far as the highest-id state that is ever a transition
	// *source*, so a sequence-final sink state (always a destination,
	// never a source) leaves it short. ReadModel reads exactly
	// NumStates records, so WriteTo must write that many too, padding
	// unreached trailing states with a zero count.
	for s := 0; s < m.StatesCount(); s++ {
		var trans []LabelParam
		if s < len(m.transitions) {
			trans = m.transitions[s]
		}
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(trans))); err != nil {
			return written, err
		}
		written += 4
		for _, t := range trans {
			if err := binary.Write(bw, binary.LittleEndian, uint32(t.Label)); err != nil {
				return written, err
			}
			written += 4
			if err := binary.Write(bw, binary.LittleEndian, uint32(t.Param)); err != nil {
				return written, err
			}
			written += 4
		}
	}

	offsets[3] = written
	for _, la := range m.labelsAtAttributes {
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(la))); err != nil {
			return written, err
		}
		written += 4
		for _, lp := range la {
			if err := binary.Write(bw, binary.LittleEndian, uint32(lp.Label)); err != nil {
				return written, err
			}
			written += 4
			if err := binary.Write(bw, binary.LittleEndian, uint32(lp.Param)); err != nil {
				return written, err
			}
			written += 4
		}
	}

	offsets[4] = written
	var compressedCount uint32
	for _, w := range m.parameters {
		if w != 0 {
			compressedCount++
		}
	}
	if err := binary.Write(bw, binary.LittleEndian, compressedCount); err != nil {
		return written, err
	}
	written += 4
	for idx, w := range m.parameters {
		if w == 0 {
			continue
		}
		if err := binary.Write(bw, binary.LittleEndian, uint32(idx)); err != nil {
			return written, err
		}
		written += 4
		if err := binary.Write(bw, binary.LittleEndian, float64(w)); err != nil {
			return written, err
		}
		written += 8
	}

	if err := bw.Flush(); err != nil {
		return written, err
	}

	if seekable {
		if _, err := seeker.Seek(offsetTablePos, io.SeekStart); err != nil {
			return written, err
		}
		for _, off := range offsets {
			if err := binary.Write(seeker, binary.LittleEndian, off); err != nil {
				return written, err
			}
		}
		if _, err := seeker.Seek(0, io.SeekEnd); err != nil {
			return written, err
		}
	}

	return written, nil
}

// ReadModel reconstructs a model previously written by WriteTo.
func ReadModel(r io.Reader) (*Model, error) {
	br := bufio.NewReader(r)

	header := make([]byte, len(modelHeaderID))
	if _, err := io.ReadFull(br, header); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("crf: %w: truncated magic header", ErrIncompatibleModel)
		}
		return nil, fmt.Errorf("crf: reading header: %w", err)
	}
	if string(header) != modelHeaderID {
		return nil, fmt.Errorf("crf: %w: bad magic header", ErrIncompatibleModel)
	}

	md, err := readMetadataRecord(br)
	if err != nil {
		return nil, err
	}
	if err := validateMetadata(md); err != nil {
		return nil, err
	}

	var offsets [5]int64
	for i := range offsets {
		if err := binary.Read(br, binary.LittleEndian, &offsets[i]); err != nil {
			return nil, err
		}
	}

	labels := stringmap.New()
	if _, err := labels.ReadFrom(br); err != nil {
		return nil, fmt.Errorf("crf: reading labels: %w", err)
	}

	m := &Model{
		order:           md.Order,
		labels:          labels,
		transitionIndex: make(map[uint64]ParameterIndex),
	}

	if md.Order > 1 {
		sm, err := readStateMapper(br, md.Order)
		if err != nil {
			return nil, fmt.Errorf("crf: reading state mapper: %w", err)
		}
		m.stateMapper = sm
	}

	attrs := stringmap.New()
	if _, err := attrs.ReadFrom(br); err != nil {
		return nil, fmt.Errorf("crf: reading attributes: %w", err)
	}
	m.attributes = attrs

	m.transitions = make([][]LabelParam, md.NumStates)
	for to := 0; to < md.NumStates; to++ {
		var n uint32
		if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
			return nil, err
		}
		if n == 0 {
			continue
		}
		trans := make([]LabelParam, n)
		for i := range trans {
			var label, param uint32
			if err := binary.Read(br, binary.LittleEndian, &label); err != nil {
				return nil, err
			}
			if err := binary.Read(br, binary.LittleEndian, &param); err != nil {
				return nil, err
			}
			trans[i] = LabelParam{Label: LabelID(label), Param: ParameterIndex(param)}
			// Order 1 stores ingoing lists (the record index is the
			// destination); higher orders store outgoing lists (the
			// record index is the source), see Model.transitions.
			key := transitionKey(LabelID(label), LabelID(to))
			if md.Order > 1 {
				key = transitionKey(LabelID(to), LabelID(label))
			}
			m.transitionIndex[key] = ParameterIndex(param)
		}
		m.transitions[to] = trans
	}
	m.numTransitions = md.NumTransitions

	m.labelsAtAttributes = make([][]LabelParam, md.NumAttributes)
	m.labelAttributes = make([]map[AttributeID]ParameterIndex, md.NumLabels)
	for i := range m.labelAttributes {
		m.labelAttributes[i] = make(map[AttributeID]ParameterIndex)
	}
	for a := 0; a < md.NumAttributes; a++ {
		var n uint32
		if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
			return nil, err
		}
		if n == 0 {
			continue
		}
		la := make([]LabelParam, n)
		for i := range la {
			var label, param uint32
			if err := binary.Read(br, binary.LittleEndian, &label); err != nil {
				return nil, err
			}
			if err := binary.Read(br, binary.LittleEndian, &param); err != nil {
				return nil, err
			}
			la[i] = LabelParam{Label: LabelID(label), Param: ParameterIndex(param)}
			m.labelAttributes[label][AttributeID(a)] = ParameterIndex(param)
		}
		m.labelsAtAttributes[a] = la
	}

	var compressedCount uint32
	if err := binary.Read(br, binary.LittleEndian, &compressedCount); err != nil {
		return nil, err
	}
	if int(compressedCount) > md.NumParameters {
		return nil, fmt.Errorf("crf: %w: inconsistent model metadata", ErrIncompatibleModel)
	}
	m.parameters = make([]Weight, md.NumParameters)
	for i := uint32(0); i < compressedCount; i++ {
		var idx uint32
		var w float64
		if err := binary.Read(br, binary.LittleEndian, &idx); err != nil {
			return nil, err
		}
		if err := binary.Read(br, binary.LittleEndian, &w); err != nil {
			return nil, err
		}
		if int(idx) >= len(m.parameters) {
			return nil, fmt.Errorf("crf: %w: parameter index out of range", ErrIncompatibleModel)
		}
		m.parameters[idx] = Weight(w)
	}

	return m, nil
}

// ReadMetadata reads just the header and metadata record from a model
// file, without loading any of the vocabularies, transitions, or
// parameters. Used by the "inspect" CLI subcommand to report a model's
// shape without paying the cost of a full load.
func ReadMetadata(r io.Reader) (Metadata, error) {
	br := bufio.NewReader(r)
	header := make([]byte, len(modelHeaderID))
	if _, err := io.ReadFull(br, header); err != nil {
		return Metadata{}, fmt.Errorf("crf: reading header: %w", err)
	}
	if string(header) != modelHeaderID {
		return Metadata{}, fmt.Errorf("crf: %w: bad magic header", ErrIncompatibleModel)
	}
	return readMetadataRecord(br)
}

func readMetadataRecord(r io.Reader) (Metadata, error) {
	var vals [8]uint32
	for i := range vals {
		if err := binary.Read(r, binary.LittleEndian, &vals[i]); err != nil {
			return Metadata{}, err
		}
	}
	return Metadata{
		Order:                int(vals[0]),
		NumLabels:            int(vals[1]),
		NumStates:            int(vals[2]),
		NumTransitions:       int(vals[3]),
		NumAttributes:        int(vals[4]),
		NumFeatures:          int(vals[5]),
		NumParameters:        int(vals[6]),
		NumNonNullParameters: int(vals[7]),
	}, nil
}

// validateMetadata performs the same plausibility checks as the
// original's read_model_header: the parameter count must equal
// transitions plus features, attributes must be fewer than features, and
// transitions can't exceed states squared.
func validateMetadata(md Metadata) error {
	if md.NumParameters != md.NumTransitions+md.NumFeatures {
		return fmt.Errorf("crf: %w: num_parameters != num_transitions + num_features", ErrIncompatibleModel)
	}
	if md.NumAttributes >= md.NumFeatures && md.NumFeatures != 0 {
		return fmt.Errorf("crf: %w: num_attributes >= num_features", ErrIncompatibleModel)
	}
	if md.NumTransitions > md.NumStates*md.NumStates {
		return fmt.Errorf("crf: %w: num_transitions > num_states^2", ErrIncompatibleModel)
	}
	return nil
}

func writeStateMapper(w io.Writer, sm *StateMapper) (int64, error) {
	var written int64
	n := uint32(sm.NumStates())
	if err := binary.Write(w, binary.LittleEndian, n); err != nil {
		return written, err
	}
	written += 4
	for i := 0; i < int(n); i++ {
		s := sm.State(StateID(i))
		if err := binary.Write(w, binary.LittleEndian, uint32(s.Order())); err != nil {
			return written, err
		}
		written += 4
		if err := binary.Write(w, binary.LittleEndian, uint32(s.HistoryLength())); err != nil {
			return written, err
		}
		written += 4
		for j := 0; j < s.Order(); j++ {
			if err := binary.Write(w, binary.LittleEndian, uint32(s.Label(j))); err != nil {
				return written, err
			}
			written += 4
		}
	}
	return written, nil
}

func readStateMapper(r io.Reader, order int) (*StateMapper, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	sm := NewStateMapper(int(n))
	for i := uint32(0); i < n; i++ {
		var stateOrder, histLen uint32
		if err := binary.Read(r, binary.LittleEndian, &stateOrder); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &histLen); err != nil {
			return nil, err
		}
		if int(stateOrder) != order {
			return nil, fmt.Errorf("crf: %w: state tuple order mismatch", ErrIncompatibleModel)
		}
		labels := make([]LabelID, stateOrder)
		for j := range labels {
			var l uint32
			if err := binary.Read(r, binary.LittleEndian, &l); err != nil {
				return nil, err
			}
			labels[j] = LabelID(l)
		}
		s := HigherOrderState{labels: labels, histLen: int(histLen)}
		id := sm.Intern(s)
		if id != StateID(i) {
			return nil, fmt.Errorf("crf: %w: state id mismatch on load", ErrIncompatibleModel)
		}
	}
	return sm, nil
}
