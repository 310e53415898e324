package crf

import (
	"fmt"
	"sort"

	"golang.org/x/exp/slices"

	"lcrf/pkg/stringmap"
)

// Model holds the complete parameter representation of a linear-chain
// CRF of a fixed order: its label/attribute vocabularies, its
// transition adjacency, its label<->attribute feature table (stored
// both ways, see labelAttributes/labelsAtAttributes below), and the flat
// parameter vector all of these index into.
//
// For order 1, the transition adjacency is stored as *ingoing*
// transitions indexed by the destination label: transitions[to] holds
// (from, paramIndex) pairs. The first-order Viterbi recursion wants,
// for each destination label at position t, every source label's score
// at t-1, so ingoing adjacency is the natural shape.
//
// For order > 1, the adjacency is stored as *outgoing* transitions
// indexed by the source state: transitions[from] holds (to, paramIndex)
// pairs, where "to" is itself a StateID packed into the LabelID slot.
// The higher-order recursion instead enumerates, from each live
// previous state, its successor states, which this shape gives
// directly.
type Model struct {
	order int

	labels     *stringmap.Mapper
	attributes *stringmap.Mapper

	stateMapper *StateMapper // only populated when order > 1

	transitions     [][]LabelParam
	transitionIndex map[uint64]ParameterIndex
	numTransitions  int

	labelAttributes    []map[AttributeID]ParameterIndex
	labelsAtAttributes [][]LabelParam

	parameters []Weight
}

// transitionKey packs (y1, y2) into a single map key.
func transitionKey(y1, y2 LabelID) uint64 {
	return uint64(y1)<<32 | uint64(y2)
}

// NewModel creates an empty model of the given order over the supplied
// label and attribute vocabularies. Order must be >= 1.
func NewModel(order int, labels, attributes *stringmap.Mapper) *Model {
	if order < 1 {
		panic("crf: model order must be >= 1")
	}
	m := &Model{
		order:           order,
		labels:          labels,
		attributes:      attributes,
		transitions:     make([][]LabelParam, labels.Size()),
		transitionIndex: make(map[uint64]ParameterIndex),
		labelAttributes: make([]map[AttributeID]ParameterIndex, labels.Size()),
	}
	if order > 1 {
		m.stateMapper = NewStateMapper(labels.Size())
	}
	m.labelsAtAttributes = make([][]LabelParam, attributes.Size())
	m.parameters = make([]Weight, 0, labels.Size()*labels.Size()+int(float64(attributes.Size())*1.2))
	return m
}

// Order returns the model's history length.
func (m *Model) Order() int { return m.order }

// Labels returns the model's label vocabulary.
func (m *Model) Labels() *stringmap.Mapper { return m.labels }

// Attributes returns the model's attribute vocabulary.
func (m *Model) Attributes() *stringmap.Mapper { return m.attributes }

// BOSLabelID returns the reserved <BOS> label id.
func (m *Model) BOSLabelID() LabelID { return BOSLabel }

// StartState returns the trellis start state: state 0 for higher-order
// models (which must be the interned (<BOS>) state), or an all-bits-set
// sentinel for first-order models, which start decoding directly from
// label space.
func (m *Model) StartState() StateID {
	if m.order > 1 {
		return 0
	}
	return StateID(NoParameter) // sentinel, unused by first-order decoding
}

// LabelsCount returns the number of distinct labels.
func (m *Model) LabelsCount() int { return len(m.labelAttributes) }

// StatesCount returns the number of distinct trellis states: for order
// 1 this equals LabelsCount; for higher orders it is the number of
// distinct history tuples actually constructed.
func (m *Model) StatesCount() int {
	if m.order == 1 {
		return m.LabelsCount()
	}
	return m.stateMapper.NumStates()
}

// AttributesCount returns the number of distinct attributes.
func (m *Model) AttributesCount() int { return m.attributes.Size() }

// TransitionsCount returns the number of distinct transitions.
func (m *Model) TransitionsCount() int { return m.numTransitions }

// FeaturesCount returns the number of distinct (label, attribute) pairs
// that have been observed, i.e. the number of state-feature parameters.
func (m *Model) FeaturesCount() int {
	n := 0
	for _, la := range m.labelAttributes {
		n += len(la)
	}
	return n
}

// ParametersCount returns the size of the flat parameter vector.
func (m *Model) ParametersCount() int { return len(m.parameters) }

// WeightForParameter returns the weight stored at index p, or 0 if out
// of range.
func (m *Model) WeightForParameter(p ParameterIndex) Weight {
	if int(p) >= len(m.parameters) {
		return 0
	}
	return m.parameters[p]
}

// Parameters gives read access to the flat parameter vector, used by the
// trainer to snapshot/average weights.
func (m *Model) Parameters() []Weight { return m.parameters }

// SetParameters overwrites the parameter vector in place. Used by the
// trainer to install the final averaged weights once training completes.
func (m *Model) SetParameters(p []Weight) {
	if len(p) != len(m.parameters) {
		panic("crf: SetParameters given a vector of the wrong length")
	}
	copy(m.parameters, p)
}

// IngoingTransitionsOf returns the (from-label, paramIndex) pairs that
// terminate at destination label y. Meaningful for first-order models.
func (m *Model) IngoingTransitionsOf(y LabelID) []LabelParam {
	if int(y) >= len(m.transitions) {
		return nil
	}
	return m.transitions[y]
}

// OutgoingTransitionsOf returns the (to-state, paramIndex) pairs
// departing from state q (a StateID packed as LabelID). Meaningful for
// higher-order models.
func (m *Model) OutgoingTransitionsOf(q StateID) []LabelParam {
	if int(q) >= len(m.transitions) {
		return nil
	}
	return m.transitions[q]
}

// TransitionWeight returns the weight of the transition y1 -> y2, or 0
// if the pair was never observed.
func (m *Model) TransitionWeight(y1, y2 LabelID) Weight {
	if idx, ok := m.transitionIndex[transitionKey(y1, y2)]; ok {
		return m.WeightForParameter(idx)
	}
	return 0
}

// TransitionParamIndex returns the parameter index of transition y1 ->
// y2, or NoParameter if unobserved.
func (m *Model) TransitionParamIndex(y1, y2 LabelID) ParameterIndex {
	if idx, ok := m.transitionIndex[transitionKey(y1, y2)]; ok {
		return idx
	}
	return NoParameter
}

// AddFirstOrderTransition records a first-order transition from -> to,
// allocating a fresh parameter if this pair hasn't been seen before.
// Returns the parameter index and whether it was newly created.
func (m *Model) AddFirstOrderTransition(from, to LabelID) (ParameterIndex, bool) {
	if idx, ok := m.transitionIndex[transitionKey(from, to)]; ok {
		return idx, false
	}
	idx := ParameterIndex(len(m.parameters))
	m.parameters = append(m.parameters, 0)
	if int(to) >= len(m.transitions) {
		grown := make([][]LabelParam, to+1)
		copy(grown, m.transitions)
		m.transitions = grown
	}
	m.transitions[to] = append(m.transitions[to], LabelParam{Label: from, Param: idx})
	m.transitionIndex[transitionKey(from, to)] = idx
	m.numTransitions++
	return idx, true
}

// AddHigherOrderTransition records a transition between two history
// tuples, interning both ends via the model's state mapper (which
// guarantees the very first state interned, (<BOS>), receives id 0).
// Storage is outgoing: transitions[from_id] gets a (to_id, paramIndex)
// entry.
func (m *Model) AddHigherOrderTransition(from, to HigherOrderState) (ParameterIndex, bool) {
	if m.order == 1 {
		panic("crf: AddHigherOrderTransition called on a first-order model")
	}
	fromID := m.stateMapper.Intern(from)
	toID := m.stateMapper.Intern(to)
	key := transitionKey(LabelID(fromID), LabelID(toID))
	if idx, ok := m.transitionIndex[key]; ok {
		return idx, false
	}
	idx := ParameterIndex(len(m.parameters))
	m.parameters = append(m.parameters, 0)
	if int(fromID) >= len(m.transitions) {
		grown := make([][]LabelParam, fromID+1)
		copy(grown, m.transitions)
		m.transitions = grown
	}
	m.transitions[fromID] = append(m.transitions[fromID], LabelParam{Label: LabelID(toID), Param: idx})
	m.transitionIndex[key] = idx
	m.numTransitions++
	return idx, true
}

// GetWeightForAttrAtLabel returns the weight of the (attr, label)
// feature, or 0 if unobserved.
func (m *Model) GetWeightForAttrAtLabel(a AttributeID, y LabelID) Weight {
	if int(y) >= len(m.labelAttributes) {
		return 0
	}
	if idx, ok := m.labelAttributes[y][a]; ok {
		return m.WeightForParameter(idx)
	}
	return 0
}

// GetParamIndexForAttrAtLabel returns the parameter index of the (attr,
// label) feature, or NoParameter if unobserved.
func (m *Model) GetParamIndexForAttrAtLabel(a AttributeID, y LabelID) ParameterIndex {
	if int(y) >= len(m.labelAttributes) {
		return NoParameter
	}
	if idx, ok := m.labelAttributes[y][a]; ok {
		return idx
	}
	return NoParameter
}

// AddAttrForLabel associates attribute attr with label y, creating a new
// feature parameter if this pair is new. The two forward tables
// (label_attributes keyed by label, labels_at_attributes keyed by
// attribute and sorted by label) are kept synchronized, matching the
// invariant the original enforces by hand in add_attr_for_label.
func (m *Model) AddAttrForLabel(y LabelID, attr AttributeID) ParameterIndex {
	if int(y) >= len(m.labelAttributes) {
		grown := make([]map[AttributeID]ParameterIndex, y+1)
		copy(grown, m.labelAttributes)
		m.labelAttributes = grown
	}
	if m.labelAttributes[y] == nil {
		m.labelAttributes[y] = make(map[AttributeID]ParameterIndex)
	}
	if idx, ok := m.labelAttributes[y][attr]; ok {
		return idx
	}

	idx := ParameterIndex(len(m.parameters))

	if int(attr) >= len(m.labelsAtAttributes) {
		grown := make([][]LabelParam, attr+1)
		copy(grown, m.labelsAtAttributes)
		m.labelsAtAttributes = grown
	}
	la := m.labelsAtAttributes[attr]
	pos := sort.Search(len(la), func(i int) bool { return la[i].Label >= y })
	if pos < len(la) && la[pos].Label == y {
		// Unreachable under the maintained invariant that both tables are
		// always updated together below; kept as a consistency guard, not
		// a live path.
		m.labelAttributes[y][attr] = la[pos].Param
		return la[pos].Param
	}
	m.labelsAtAttributes[attr] = slices.Insert(la, pos, LabelParam{Label: y, Param: idx})
	m.labelAttributes[y][attr] = idx
	m.parameters = append(m.parameters, 0)
	return idx
}

// GetLabelsForAttribute returns the (label, paramIndex) pairs for which
// attribute attr has been observed, sorted by label id.
func (m *Model) GetLabelsForAttribute(attr AttributeID) []LabelParam {
	if int(attr) >= len(m.labelsAtAttributes) {
		return nil
	}
	return m.labelsAtAttributes[attr]
}

// GetCRFState returns the tuple registered under a higher-order state id.
func (m *Model) GetCRFState(q StateID) HigherOrderState {
	return m.stateMapper.State(q)
}

// GetCRFStateID returns the id registered for a tuple, interning it if
// not yet seen.
func (m *Model) GetCRFStateID(q HigherOrderState) StateID {
	return m.stateMapper.Intern(q)
}

// LookupCRFStateID returns the id registered for a tuple without
// interning it.
func (m *Model) LookupCRFStateID(q HigherOrderState) (StateID, bool) {
	return m.stateMapper.IDOf(q)
}

// Finalise sorts every transition list by neighbour id, so decoding
// visits transitions in a fixed order and ties resolve toward the lowest
// id, and trims excess capacity from the model's internal slices,
// mirroring the original's finalise().
func (m *Model) Finalise() {
	for _, trans := range m.transitions {
		sort.Slice(trans, func(i, j int) bool { return trans[i].Label < trans[j].Label })
	}
	trimmed := make([]Weight, len(m.parameters))
	copy(trimmed, m.parameters)
	m.parameters = trimmed
	for i, la := range m.labelsAtAttributes {
		if cap(la) != len(la) {
			trimmed := make([]LabelParam, len(la))
			copy(trimmed, la)
			m.labelsAtAttributes[i] = trimmed
		}
	}
}

func (m *Model) String() string {
	return fmt.Sprintf("crf.Model(order=%d, labels=%d, attrs=%d, params=%d)",
		m.order, m.LabelsCount(), m.AttributesCount(), m.ParametersCount())
}
