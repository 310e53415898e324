package crf

import "fmt"

// NoLabel marks an unset slot in a HigherOrderState's history array.
const NoLabel LabelID = ^LabelID(0)

// BOSLabel is the reserved label id for the start-of-sequence sentinel.
// Corpora and models must map the literal string "<BOS>" to this id.
const BOSLabel LabelID = 0

// HigherOrderState represents a state of an order-K CRF: a fixed-capacity
// tuple of the last K output labels, growing from a single label at the
// start of a sequence up to the model's configured order.
//
// Capacity is set once at construction and never changes; Wrap and
// IncreaseHistory both return new values rather than mutating in place,
// mirroring the original's copy-then-shift state transition functions.
type HigherOrderState struct {
	labels  []LabelID
	histLen int
}

// NewHigherOrderState creates a state of the given order with history
// length 1, holding label l in its rightmost slot. This is the initial
// state used at the start of decoding and training ((<BOS>) for order 1
// and above).
func NewHigherOrderState(order int, l LabelID) HigherOrderState {
	labels := make([]LabelID, order)
	for i := range labels {
		labels[i] = NoLabel
	}
	labels[order-1] = l
	return HigherOrderState{labels: labels, histLen: 1}
}

// Order returns the fixed capacity of the state tuple.
func (s HigherOrderState) Order() int { return len(s.labels) }

// HistoryLength returns the number of labels actually filled in.
func (s HigherOrderState) HistoryLength() int { return s.histLen }

// Label returns the i-th label in the tuple (0-indexed from the left);
// positions before the history start hold NoLabel.
func (s HigherOrderState) Label(i int) LabelID { return s.labels[i] }

// LabelID returns the most recent label, i.e. the state's own label.
func (s HigherOrderState) LabelID() LabelID { return s.labels[len(s.labels)-1] }

// IsBOSState reports whether the oldest filled slot holds the <BOS> label.
func (s HigherOrderState) IsBOSState() bool {
	return s.labels[len(s.labels)-s.histLen] == BOSLabel
}

// Wrap shifts the history left by one and appends r, keeping history
// length unchanged. Used once a state has reached full order: the oldest
// label is dropped to make room for the new one.
func (s HigherOrderState) Wrap(r LabelID) HigherOrderState {
	order := len(s.labels)
	n := HigherOrderState{labels: make([]LabelID, order), histLen: s.histLen}
	copy(n.labels, s.labels)
	start := order - s.histLen
	copy(n.labels[start:order-1], n.labels[start+1:order])
	n.labels[order-1] = r
	return n
}

// IncreaseHistory appends r to a state that has not yet reached full
// order, growing the history length by one.
func (s HigherOrderState) IncreaseHistory(r LabelID) HigherOrderState {
	if s.histLen >= len(s.labels) {
		panic("crf: IncreaseHistory called on a state already at full order")
	}
	order := len(s.labels)
	n := HigherOrderState{labels: make([]LabelID, order), histLen: s.histLen + 1}
	copy(n.labels, s.labels[1:])
	n.labels[order-1] = r
	return n
}

// ShortenHistory drops the oldest filled label, decreasing history length
// by one. Used to derive the lower-order ends of back-off transitions
// during initial model construction.
func (s HigherOrderState) ShortenHistory() HigherOrderState {
	if s.histLen == 0 {
		return s
	}
	order := len(s.labels)
	n := HigherOrderState{labels: append([]LabelID(nil), s.labels...), histLen: s.histLen - 1}
	n.labels[order-s.histLen] = NoLabel
	return n
}

// Equal reports whether two states have identical tuples (including
// unfilled slots), matching the original's memcmp-based equality.
func (s HigherOrderState) Equal(o HigherOrderState) bool {
	if len(s.labels) != len(o.labels) {
		return false
	}
	for i := range s.labels {
		if s.labels[i] != o.labels[i] {
			return false
		}
	}
	return true
}

// Hash returns a hash value consistent with Equal. StateMapper does not
// use it: Go maps can't key on slices directly, so StateMapper keys on a
// byte encoding of the full tuple (see key) instead.
func (s HigherOrderState) Hash() uint32 {
	h := uint32(0)
	for _, l := range s.labels {
		v := uint32(l)
		h ^= v + 0x9e3779b9 + (h << 6) + (h >> 2)
	}
	return h
}

func (s HigherOrderState) String() string {
	out := "("
	for i, l := range s.labels {
		if l == NoLabel {
			continue
		}
		out += fmt.Sprintf("%d", l)
		if i < len(s.labels)-1 {
			out += ","
		}
	}
	return out + ")"
}

// stateKey is a comparable representation of a HigherOrderState usable as
// a Go map key; StateMapper converts to/from it internally.
type stateKey string

func (s HigherOrderState) key() stateKey {
	buf := make([]byte, len(s.labels)*4)
	for i, l := range s.labels {
		buf[i*4] = byte(l)
		buf[i*4+1] = byte(l >> 8)
		buf[i*4+2] = byte(l >> 16)
		buf[i*4+3] = byte(l >> 24)
	}
	return stateKey(buf)
}

// StateMapper assigns dense StateIDs to HigherOrderState tuples, used by
// higher-order models to identify trellis nodes. For first-order models
// (order 1) a StateMapper is unnecessary: state IDs coincide with label
// IDs and the model never constructs one.
type StateMapper struct {
	states  []HigherOrderState
	idOf    map[stateKey]StateID
}

// NewStateMapper creates an empty mapper, optionally preallocating room
// for n states.
func NewStateMapper(n int) *StateMapper {
	return &StateMapper{
		states: make([]HigherOrderState, 0, n),
		idOf:   make(map[stateKey]StateID, n),
	}
}

// IDOf returns the id for q and true if already registered, or false
// otherwise.
func (m *StateMapper) IDOf(q HigherOrderState) (StateID, bool) {
	id, ok := m.idOf[q.key()]
	return id, ok
}

// Intern returns the id for q, registering it with a fresh id if this is
// the first time q has been seen. The first call ever made on a mapper
// should be for the (<BOS>) state, so it receives id 0 - callers that
// need this guarantee (model construction) must intern it first.
func (m *StateMapper) Intern(q HigherOrderState) StateID {
	k := q.key()
	if id, ok := m.idOf[k]; ok {
		return id
	}
	id := StateID(len(m.states))
	m.states = append(m.states, q)
	m.idOf[k] = id
	return id
}

// State returns the tuple registered under id.
func (m *StateMapper) State(id StateID) HigherOrderState {
	return m.states[id]
}

// NumStates returns the number of distinct states registered.
func (m *StateMapper) NumStates() int { return len(m.states) }
