// Package stringmap implements a bidirectional string<->id mapper.
//
// A Mapper is append-only: once a string is added it keeps its id for the
// lifetime of the mapper. Ids are dense, starting at 0, assigned by the
// caller (the crf and corpus packages reserve id 0 for the <BOS> sentinel
// label before any other label is added).
package stringmap

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// NotFound is returned by IDOf when the string is unknown.
const NotFound uint32 = ^uint32(0)

// Mapper is a bidirectional mapping between strings and dense uint32 ids,
// generalizing the teacher's NameMap/ColumnMap pattern
// (pkg/model/metadata.go) into a single reusable, serializable type.
type Mapper struct {
	stringToID map[string]uint32
	idToString []string
}

// New creates an empty Mapper.
func New() *Mapper {
	return &Mapper{stringToID: make(map[string]uint32)}
}

// NewWithCapacity preallocates room for n entries.
func NewWithCapacity(n int) *Mapper {
	return &Mapper{
		stringToID: make(map[string]uint32, n),
		idToString: make([]string, 0, n),
	}
}

// Add assigns id to s. Returns true if s was not previously present.
// The caller is responsible for handing out dense, contiguous ids.
func (m *Mapper) Add(s string, id uint32) bool {
	if _, ok := m.stringToID[s]; ok {
		return false
	}
	m.stringToID[s] = id
	if int(id) >= len(m.idToString) {
		grown := make([]string, id+1)
		copy(grown, m.idToString)
		m.idToString = grown
	}
	m.idToString[id] = s
	return true
}

// AddNext assigns s the next free id (len(m)) and returns it. If s is
// already present its existing id is returned unchanged.
func (m *Mapper) AddNext(s string) uint32 {
	if id, ok := m.stringToID[s]; ok {
		return id
	}
	id := uint32(len(m.idToString))
	m.Add(s, id)
	return id
}

// IDOf returns the id of s, or NotFound.
func (m *Mapper) IDOf(s string) uint32 {
	if id, ok := m.stringToID[s]; ok {
		return id
	}
	return NotFound
}

// StringOf returns the string stored at id, or "" if out of range.
func (m *Mapper) StringOf(id uint32) string {
	if int(id) >= len(m.idToString) {
		return ""
	}
	return m.idToString[id]
}

// Size returns the number of distinct strings held.
func (m *Mapper) Size() int {
	return len(m.stringToID)
}

// totalBytes is the size of the NUL-terminated string blob, matching the
// wire format's "total_bytes" field.
func (m *Mapper) totalBytes() uint32 {
	var n uint32
	for _, s := range m.idToString {
		n += uint32(len(s)) + 1
	}
	return n
}

// WriteTo serializes the mapper as: count, total_bytes, packed
// NUL-terminated string blob, then count ids (id order == idToString
// order, i.e. sequential 0..count-1).
func (m *Mapper) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	count := uint32(len(m.idToString))
	total := m.totalBytes()

	var written int64
	if err := binary.Write(bw, binary.LittleEndian, count); err != nil {
		return written, err
	}
	written += 4
	if err := binary.Write(bw, binary.LittleEndian, total); err != nil {
		return written, err
	}
	written += 4

	for _, s := range m.idToString {
		n, err := bw.WriteString(s)
		written += int64(n)
		if err != nil {
			return written, err
		}
		if err := bw.WriteByte(0); err != nil {
			return written, err
		}
		written++
	}

	ids := make([]uint32, count)
	for i := range ids {
		ids[i] = uint32(i)
	}
	if err := binary.Write(bw, binary.LittleEndian, ids); err != nil {
		return written, err
	}
	written += int64(len(ids)) * 4

	return written, bw.Flush()
}

// ReadFrom reconstructs a mapper previously written by WriteTo.
func (m *Mapper) ReadFrom(r io.Reader) (int64, error) {
	br := bufio.NewReader(r)
	var count, total uint32
	var read int64

	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return read, err
	}
	read += 4
	if err := binary.Read(br, binary.LittleEndian, &total); err != nil {
		return read, err
	}
	read += 4

	blob := make([]byte, total)
	n, err := io.ReadFull(br, blob)
	read += int64(n)
	if err != nil {
		return read, fmt.Errorf("stringmap: reading string blob: %w", err)
	}

	ids := make([]uint32, count)
	if err := binary.Read(br, binary.LittleEndian, &ids); err != nil {
		return read, err
	}
	read += int64(count) * 4

	m.stringToID = make(map[string]uint32, count)
	m.idToString = nil

	pos := 0
	for i := uint32(0); i < count; i++ {
		end := pos
		for end < len(blob) && blob[end] != 0 {
			end++
		}
		s := string(blob[pos:end])
		m.Add(s, ids[i])
		pos = end + 1
	}

	return read, nil
}
