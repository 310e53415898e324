package corpus

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/golang/snappy"

	"lcrf/pkg/crf"
	"lcrf/pkg/stringmap"
)

// cachePayload is the gob-serializable snapshot of a Corpus's translated
// state. Unlike the model's binary format, this cache has no external
// wire-format contract to honor - it only needs to round-trip between
// runs of this tool - so it uses gob, the teacher's convenience codec of
// choice, rather than a hand-rolled binary layout.
type cachePayload struct {
	Pairs         []TranslatedPair
	MaxLen        int
	TokenCount    int
	FeatureCounts map[crf.AttributeID]int
	LabelStrings  []string
	AttrStrings   []string
}

// WriteCache serializes the corpus's translated pairs and vocabularies
// to w, snappy-compressed, so repeated training runs over the same
// corpus file can skip re-running feature extraction.
func (c *Corpus) WriteCache(w io.Writer) error {
	payload := cachePayload{
		Pairs:         c.pairs,
		MaxLen:        c.maxLen,
		TokenCount:    c.tokenCount,
		FeatureCounts: c.featureCounts,
		LabelStrings:  mapperStrings(c.labels),
		AttrStrings:   mapperStrings(c.attributes),
	}

	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(payload); err != nil {
		return fmt.Errorf("corpus: encoding cache: %w", err)
	}

	sw := snappy.NewBufferedWriter(w)
	if _, err := sw.Write(raw.Bytes()); err != nil {
		return fmt.Errorf("corpus: compressing cache: %w", err)
	}
	return sw.Close()
}

// ReadCache reconstructs a Corpus from a stream written by WriteCache.
func ReadCache(r io.Reader) (*Corpus, error) {
	sr := snappy.NewReader(r)
	var payload cachePayload
	if err := gob.NewDecoder(sr).Decode(&payload); err != nil {
		return nil, fmt.Errorf("corpus: decoding cache: %w", err)
	}

	c := New()
	c.pairs = payload.Pairs
	c.maxLen = payload.MaxLen
	c.tokenCount = payload.TokenCount
	c.featureCounts = payload.FeatureCounts
	for _, s := range payload.LabelStrings {
		c.labels.AddNext(s)
	}
	for _, s := range payload.AttrStrings {
		c.attributes.AddNext(s)
	}
	return c, nil
}

// mapperStrings dumps a Mapper's strings in id order. Mapper doesn't
// expose direct iteration, so the cache goes through StringOf by id
// instead of adding a new export just for this one caller.
func mapperStrings(m *stringmap.Mapper) []string {
	out := make([]string, 0, m.Size())
	for i := 0; i < m.Size(); i++ {
		out = append(out, m.StringOf(uint32(i)))
	}
	return out
}
