// Package dawg implements a minimal acyclic word graph (a deterministic
// transducer) over sequences of string symbols, built by the incremental
// minimization algorithm from sorted input (Daciuk et al., 2000).
//
// It is used by the features package to look up multi-word patterns
// (gazetteer entries, left/right context clues) in constant time per
// token, rather than scanning a flat list.
package dawg

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/dgryski/go-farm"
)

// State identifies a node in the automaton. noState marks "no transition".
type State int32

const noState State = -1

// Entry is one (sequence, info) pair to be inserted into the automaton.
// Entries must be supplied to Build in sorted order (lexicographic over
// the symbol sequence, matching the ordering of Go's sort.Strings applied
// element-wise).
type Entry struct {
	Symbols []string
	Info    string
}

type transition struct {
	symbol string
	target State
}

// DAWG is a deterministic acyclic word graph with string-valued final
// info attached to accepting states. The zero value is not usable; use
// New or Build.
type DAWG struct {
	delta       [][]transition      // state -> sorted outgoing transitions
	finalInfos  map[State]map[string]struct{}
	register    map[uint64][]State // hash -> candidate states with that hash
	freeList    []State
}

// New returns an empty DAWG with just a start state.
func New() *DAWG {
	d := &DAWG{
		finalInfos: make(map[State]map[string]struct{}),
		register:   make(map[uint64][]State),
	}
	d.newState()
	return d
}

// Build constructs a minimized DAWG from entries, which must already be
// sorted by Symbols (element-wise lexicographic order).
func Build(entries []Entry) *DAWG {
	d := New()
	for i := 1; i < len(entries); i++ {
		if !lessOrEqual(entries[i-1].Symbols, entries[i].Symbols) {
			panic("dawg: Build requires entries sorted by Symbols")
		}
	}
	for _, e := range entries {
		state, pos := d.commonPrefix(e.Symbols)
		if d.hasChildren(state) {
			d.replaceOrRegister(state)
		}
		d.addSuffix(state, pos, e)
	}
	d.replaceOrRegister(d.StartState())
	return d
}

func lessOrEqual(a, b []string) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) <= len(b)
}

// StartState returns the automaton's start state.
func (d *DAWG) StartState() State { return 0 }

// Next returns the state reached from q by symbol a, or (noState, false).
func (d *DAWG) Next(q State, a string) (State, bool) {
	trans := d.delta[q]
	i := sort.Search(len(trans), func(i int) bool { return trans[i].symbol >= a })
	if i < len(trans) && trans[i].symbol == a {
		return trans[i].target, true
	}
	return noState, false
}

// IsFinal reports whether q is an accepting state.
func (d *DAWG) IsFinal(q State) bool {
	_, ok := d.finalInfos[q]
	return ok
}

// FinalInfos returns the set of info strings attached to final state q.
func (d *DAWG) FinalInfos(q State) []string {
	set := d.finalInfos[q]
	out := make([]string, 0, len(set))
	for info := range set {
		out = append(out, info)
	}
	sort.Strings(out)
	return out
}

// NumStates returns the number of allocated state slots, including
// slots freed during minimization and not reused since.
func (d *DAWG) NumStates() int {
	return len(d.delta)
}

// NumFinalStates returns the number of accepting states.
func (d *DAWG) NumFinalStates() int {
	return len(d.finalInfos)
}

// NumTransitions returns the total number of transitions in the automaton.
func (d *DAWG) NumTransitions() int {
	n := 0
	for _, trans := range d.delta {
		n += len(trans)
	}
	return n
}

// Match greedily follows symbols from the start state and records every
// prefix length at which a final state is reached, along with that
// state's final infos. It is the core operation used by the feature
// extractor's pattern lookup: the caller feeds successive tokens and
// receives all matching spans.
func (d *DAWG) Match(symbols []string) []MatchResult {
	var results []MatchResult
	q := d.StartState()
	for i, sym := range symbols {
		next, ok := d.Next(q, sym)
		if !ok {
			break
		}
		q = next
		if d.IsFinal(q) {
			results = append(results, MatchResult{
				Length: i + 1,
				Infos:  d.FinalInfos(q),
			})
		}
	}
	return results
}

// MatchResult describes a single accepted prefix found by Match.
type MatchResult struct {
	Length int
	Infos  []string
}

func (d *DAWG) hasChildren(q State) bool {
	return len(d.delta[q]) > 0
}

func (d *DAWG) commonPrefix(symbols []string) (State, int) {
	current := d.StartState()
	for i, sym := range symbols {
		next, ok := d.Next(current, sym)
		if !ok {
			return current, i
		}
		current = next
	}
	return current, len(symbols)
}

func (d *DAWG) addSuffix(start State, pos int, e Entry) {
	q := start
	for i := pos; i < len(e.Symbols); i++ {
		q = d.addTransition(q, e.Symbols[i])
	}
	d.makeFinal(q, e.Info)
}

func (d *DAWG) addTransition(q State, a string) State {
	r := d.newState()
	trans := d.delta[q]
	i := sort.Search(len(trans), func(i int) bool { return trans[i].symbol >= a })
	trans = append(trans, transition{})
	copy(trans[i+1:], trans[i:])
	trans[i] = transition{symbol: a, target: r}
	d.delta[q] = trans
	return r
}

func (d *DAWG) makeFinal(q State, info string) {
	set, ok := d.finalInfos[q]
	if !ok {
		set = make(map[string]struct{})
		d.finalInfos[q] = set
	}
	set[info] = struct{}{}
}

func (d *DAWG) lastChild(q State) State {
	trans := d.delta[q]
	if len(trans) == 0 {
		return noState
	}
	return trans[len(trans)-1].target
}

// replaceOrRegister implements the post-order replace-or-register step
// from Daciuk et al.: recurse into the lexicographically last child,
// then either fold p's last child into an equivalent already-registered
// state, or register it as new.
func (d *DAWG) replaceOrRegister(p State) {
	child := d.lastChild(p)
	if child == noState {
		return
	}
	if d.hasChildren(child) {
		d.replaceOrRegister(child)
	}
	if q, ok := d.equivalentInRegister(child); ok {
		d.replaceLastChild(p, q)
		d.deleteState(child)
	} else {
		d.register[d.stateHash(child)] = append(d.register[d.stateHash(child)], child)
	}
}

func (d *DAWG) replaceLastChild(p, q State) {
	trans := d.delta[p]
	if len(trans) > 0 {
		trans[len(trans)-1].target = q
	}
}

func (d *DAWG) equivalentInRegister(q State) (State, bool) {
	h := d.stateHash(q)
	for _, candidate := range d.register[h] {
		if candidate != q && d.statesEquivalent(candidate, q) {
			return candidate, true
		}
	}
	return noState, false
}

// stateHash mirrors the equivalence contract: states are equivalent iff
// their finality (and final-info set, if final) and outgoing transition
// maps agree, so the hash folds in exactly those two things.
func (d *DAWG) stateHash(q State) uint64 {
	h := uint64(0x9e3779b97f4a7c15)
	if infos, ok := d.finalInfos[q]; ok {
		sorted := make([]string, 0, len(infos))
		for info := range infos {
			sorted = append(sorted, info)
		}
		sort.Strings(sorted)
		for _, info := range sorted {
			h ^= farm.Hash64([]byte(info))
			h = h*1099511628211 + 1
		}
	}
	for _, t := range d.delta[q] {
		h ^= farm.Hash64([]byte(t.symbol))
		h = h*1099511628211 + uint64(t.target)
	}
	return h
}

func (d *DAWG) statesEquivalent(p, q State) bool {
	pInfos, pFinal := d.finalInfos[p]
	qInfos, qFinal := d.finalInfos[q]
	if pFinal != qFinal {
		return false
	}
	if pFinal && !sameStringSet(pInfos, qInfos) {
		return false
	}
	pt, qt := d.delta[p], d.delta[q]
	if len(pt) != len(qt) {
		return false
	}
	for i := range pt {
		if pt[i] != qt[i] {
			return false
		}
	}
	return true
}

func sameStringSet(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func (d *DAWG) newState() State {
	if n := len(d.freeList); n > 0 {
		s := d.freeList[n-1]
		d.freeList = d.freeList[:n-1]
		return s
	}
	d.delta = append(d.delta, nil)
	return State(len(d.delta) - 1)
}

func (d *DAWG) deleteState(q State) {
	d.delta[q] = nil
	delete(d.finalInfos, q)
	d.freeList = append(d.freeList, q)
}

// binaryMagic is the fixed header written at the start of a serialized DAWG.
const binaryMagic = "Binary wdawg file\x00"

// WriteTo serializes d following the layout documented for the on-disk
// pattern resource file: magic header, num_states, num_final_states, then
// per state a transition count and (symbol, target) pairs, then per final
// state its id, info count, and each info string.
func (d *DAWG) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var written int64

	n, err := bw.WriteString(binaryMagic)
	written += int64(n)
	if err != nil {
		return written, err
	}

	if err := binary.Write(bw, binary.LittleEndian, uint32(len(d.delta))); err != nil {
		return written, err
	}
	written += 4
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(d.finalInfos))); err != nil {
		return written, err
	}
	written += 4

	for _, trans := range d.delta {
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(trans))); err != nil {
			return written, err
		}
		written += 4
		for _, t := range trans {
			nn, err := writeLPString(bw, t.symbol)
			written += int64(nn)
			if err != nil {
				return written, err
			}
			if err := binary.Write(bw, binary.LittleEndian, int32(t.target)); err != nil {
				return written, err
			}
			written += 4
		}
	}

	states := make([]State, 0, len(d.finalInfos))
	for q := range d.finalInfos {
		states = append(states, q)
	}
	sort.Slice(states, func(i, j int) bool { return states[i] < states[j] })

	for _, q := range states {
		if err := binary.Write(bw, binary.LittleEndian, int32(q)); err != nil {
			return written, err
		}
		written += 4
		infos := d.FinalInfos(q)
		if err := binary.Write(bw, binary.LittleEndian, uint16(len(infos))); err != nil {
			return written, err
		}
		written += 2
		for _, info := range infos {
			nn, err := writeLPString(bw, info)
			written += int64(nn)
			if err != nil {
				return written, err
			}
		}
	}

	return written, bw.Flush()
}

// ReadFrom reconstructs a DAWG previously written by WriteTo.
func ReadFrom(r io.Reader) (*DAWG, int64, error) {
	br := bufio.NewReader(r)
	var read int64

	header := make([]byte, len(binaryMagic))
	n, err := io.ReadFull(br, header)
	read += int64(n)
	if err != nil {
		return nil, read, fmt.Errorf("dawg: reading header: %w", err)
	}
	if string(header) != binaryMagic {
		return nil, read, fmt.Errorf("dawg: bad magic header")
	}

	var numStates, numFinal uint32
	if err := binary.Read(br, binary.LittleEndian, &numStates); err != nil {
		return nil, read, err
	}
	read += 4
	if err := binary.Read(br, binary.LittleEndian, &numFinal); err != nil {
		return nil, read, err
	}
	read += 4

	d := &DAWG{
		delta:      make([][]transition, numStates),
		finalInfos: make(map[State]map[string]struct{}),
		register:   make(map[uint64][]State),
	}

	for q := uint32(0); q < numStates; q++ {
		var numTrans uint32
		if err := binary.Read(br, binary.LittleEndian, &numTrans); err != nil {
			return nil, read, err
		}
		read += 4
		trans := make([]transition, numTrans)
		for i := range trans {
			sym, nn, err := readLPString(br)
			read += nn
			if err != nil {
				return nil, read, err
			}
			var target int32
			if err := binary.Read(br, binary.LittleEndian, &target); err != nil {
				return nil, read, err
			}
			read += 4
			trans[i] = transition{symbol: sym, target: State(target)}
		}
		d.delta[q] = trans
	}

	for i := uint32(0); i < numFinal; i++ {
		var stateID int32
		if err := binary.Read(br, binary.LittleEndian, &stateID); err != nil {
			return nil, read, err
		}
		read += 4
		var numInfos uint16
		if err := binary.Read(br, binary.LittleEndian, &numInfos); err != nil {
			return nil, read, err
		}
		read += 2
		set := make(map[string]struct{}, numInfos)
		for k := uint16(0); k < numInfos; k++ {
			info, nn, err := readLPString(br)
			read += nn
			if err != nil {
				return nil, read, err
			}
			set[info] = struct{}{}
		}
		d.finalInfos[State(stateID)] = set
	}

	return d, read, nil
}

// writeLPString writes a length-prefixed (uint32 length, including the
// trailing NUL, matching the original's StringSerialiser convention)
// string.
func writeLPString(w io.Writer, s string) (int, error) {
	total := 0
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s)+1)); err != nil {
		return total, err
	}
	total += 4
	n, err := io.WriteString(w, s)
	total += n
	if err != nil {
		return total, err
	}
	if err := binary.Write(w, binary.LittleEndian, byte(0)); err != nil {
		return total, err
	}
	total++
	return total, nil
}

func readLPString(r io.Reader) (string, int64, error) {
	var total int64
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return "", total, err
	}
	total += 4
	buf := make([]byte, length)
	n, err := io.ReadFull(r, buf)
	total += int64(n)
	if err != nil {
		return "", total, err
	}
	if length == 0 {
		return "", total, nil
	}
	return string(buf[:length-1]), total, nil
}
