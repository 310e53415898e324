// Package features turns tokenized, optionally tagged text into the
// sparse per-position attribute strings a linear-chain CRF model
// consumes, including fast multi-word pattern lookup via a dawg.DAWG.
package features

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"lcrf/pkg/dawg"
)

// Token is one position of an input sequence: its surface text and,
// when tag data is available, a part-of-speech tag.
type Token struct {
	Text string
	Tag  string
}

// Options is the explicit, named configuration for which attribute
// categories an Extractor emits. Kept as named booleans and numeric
// limits rather than a bitmask at the public boundary, so callers never
// have to remember magic bit positions; Extractor packs these into an
// internal bitset only where that pays off (it doesn't need to here,
// since every category is a simple conditional).
type Options struct {
	Word           bool
	WordLowercased bool
	Shape          bool
	SoundPattern   bool
	TokenClass     bool

	HaveTags bool
	Tag      bool

	PrevWord1, PrevWord2 bool
	NextWord1, NextWord2 bool
	PrevTag1, PrevTag2   bool
	NextTag1, NextTag2   bool

	WordNgramWidths []int // widths >= 2, e.g. []int{2,3}
	TagNgramWidths  []int // widths in {2,3}
	InnerNgrams     bool

	WordTag bool

	MaxPrefixLen int
	MaxSuffixLen int

	TokenTypes bool
	Boundary   bool

	MaxCharNgramWidth int

	ContextWindow          int
	LeftContextContains    bool
	RightContextContains   bool

	Patterns          *dawg.DAWG
	LeftContextClues  *dawg.DAWG
	RightContextClues *dawg.DAWG

	Regexes map[string]*regexp.Regexp
}

// DefaultOptions returns the commonly-used feature set: current word,
// lowercase word, shape, immediate word/tag context, prefixes/suffixes
// up to length 4, token-type flags, bigram/trigram word and tag
// n-grams, word-tag pairs, boundary markers, and char n-grams up to
// width 4 -- everything that doesn't require an external resource file.
func DefaultOptions() Options {
	return Options{
		Word:              true,
		WordLowercased:    true,
		Shape:             true,
		TokenClass:        true,
		PrevWord1:         true,
		PrevWord2:         true,
		NextWord1:         true,
		NextWord2:         true,
		PrevTag1:          true,
		PrevTag2:          true,
		NextTag1:          true,
		NextTag2:          true,
		WordNgramWidths:   []int{2, 3},
		TagNgramWidths:    []int{2, 3},
		WordTag:           true,
		MaxPrefixLen:      4,
		MaxSuffixLen:      4,
		TokenTypes:        true,
		Boundary:          true,
		MaxCharNgramWidth: 4,
		ContextWindow:     8,
	}
}

// Extractor adds attribute strings to token sequences according to a
// fixed Options configuration.
type Extractor struct {
	opts Options
}

// New creates an Extractor for opts.
func New(opts Options) *Extractor {
	return &Extractor{opts: opts}
}

// Extract returns, for each position in tokens, the ordered list of
// attribute strings that position's feature categories produce. Order
// within a position is deterministic given fixed Options, which is
// required for reproducible training.
func (e *Extractor) Extract(tokens []Token) [][]string {
	attrs := make([][]string, len(tokens))
	for t := range tokens {
		attrs[t] = e.positionAttrs(tokens, t)
	}
	if e.opts.Patterns != nil {
		addDAWGPatternFeatures(tokens, e.opts.Patterns, attrs)
	}
	if e.opts.LeftContextClues != nil {
		addContextClueFeatures(tokens, e.opts.LeftContextClues, true, attrs)
	}
	if e.opts.RightContextClues != nil {
		addContextClueFeatures(tokens, e.opts.RightContextClues, false, attrs)
	}
	return attrs
}

func (e *Extractor) positionAttrs(x []Token, t int) []string {
	o := &e.opts
	var as []string
	add := func(feat, val string, unary bool) {
		if s, ok := addFeature(feat, val, unary); ok {
			as = append(as, s)
		}
	}

	if o.Word {
		add("W[0]", mask(x[t].Text), false)
	}
	if o.WordLowercased {
		add("lcW[0]", mask(strings.ToLower(x[t].Text)), false)
	}
	if o.Shape {
		add("Shape", shape(x[t].Text), false)
	}
	if o.TokenClass {
		add("TokClass", tokenClass(x[t].Text), false)
	}
	if o.SoundPattern {
		add("VC", soundPattern(x[t].Text), false)
	}
	if o.PrevWord1 && t > 0 {
		add("W[-1]", mask(x[t-1].Text), false)
	}
	if o.PrevWord2 && t > 1 {
		add("W[-2]", mask(x[t-2].Text), false)
	}
	if o.NextWord1 && t < len(x)-1 {
		add("W[1]", mask(x[t+1].Text), false)
	}
	if o.NextWord2 && t < len(x)-2 {
		add("W[2]", mask(x[t+2].Text), false)
	}

	if o.HaveTags {
		if o.Tag {
			add("POS[0]", x[t].Tag, false)
		}
		if o.PrevTag1 && t > 0 {
			add("POS[-1]", x[t-1].Tag, false)
		}
		if o.PrevTag2 && t > 1 {
			add("POS[-2]", x[t-2].Tag, false)
		}
		if o.NextTag1 && t < len(x)-1 {
			add("POS[1]", x[t+1].Tag, false)
		}
		if o.NextTag2 && t < len(x)-2 {
			add("POS[2]", x[t+2].Tag, false)
		}
	}

	for _, w := range o.WordNgramWidths {
		addWordNgram(x, t, w, dirLeft, o.InnerNgrams, add)
		if o.InnerNgrams {
			addWordNgram(x, t, w, dirCenter, o.InnerNgrams, add)
		}
		addWordNgram(x, t, w, dirRight, o.InnerNgrams, add)
	}

	if o.HaveTags {
		for _, w := range o.TagNgramWidths {
			addTagNgram(x, t, w, dirLeft, add)
			if w == 3 {
				addTagNgram(x, t, w, dirCenter, add)
			}
			addTagNgram(x, t, w, dirRight, add)
		}
	}

	if o.WordTag && o.HaveTags {
		add("W|POS", mask(x[t].Text)+"|"+x[t].Tag, false)
	}

	for l := 1; l <= o.MaxPrefixLen; l++ {
		if p := prefix(x[t].Text, l); p != "" {
			add("Pref", mask(p), false)
		}
	}
	for l := 1; l <= o.MaxSuffixLen; l++ {
		if s := suffix(x[t].Text, l); s != "" {
			add("Suff", mask(s), false)
		}
	}

	if o.TokenTypes {
		flags := tokenTypeFlags(x[t].Text)
		for _, name := range tokenTypeNames {
			if flags[name] {
				add(name, "", true)
			}
		}
	}

	if len(o.Regexes) > 0 {
		names := make([]string, 0, len(o.Regexes))
		for name := range o.Regexes {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if o.Regexes[name].MatchString(x[t].Text) {
				add("Regex", name, false)
			}
		}
	}

	if o.MaxCharNgramWidth > 0 && len([]rune(x[t].Text)) > 1 {
		addCharNgrams(x[t].Text, o.MaxCharNgramWidth, add)
	}

	if o.LeftContextContains {
		addContextContains(x, t, o.ContextWindow, true, add)
	}
	if o.RightContextContains {
		addContextContains(x, t, o.ContextWindow, false, add)
	}

	if o.Boundary {
		if t == 0 {
			add("<BOS>", "", true)
		}
		if t == len(x)-1 {
			add("<EOS>", "", true)
		}
	}

	return as
}

// addFeature mirrors the original's add_feature: a feature with a
// value is always emitted as "feat=val"; a unary (flag) feature with no
// value is emitted bare; a non-unary feature with no value is dropped.
func addFeature(feat, val string, unary bool) (string, bool) {
	if val != "" {
		return feat + "=" + val, true
	}
	if unary {
		return feat, true
	}
	return "", false
}

type ngramDir int

const (
	dirLeft ngramDir = iota
	dirCenter
	dirRight
)

func addWordNgram(x []Token, t, width int, dir ngramDir, inner bool, add func(string, string, bool)) {
	switch dir {
	case dirLeft:
		if t >= width-1 {
			add(ngramFeatName("W", t, t-width+1, width), makeWordNgram(x, t-width+1, t), false)
		}
	case dirRight:
		if t+width-1 < len(x) {
			add(ngramFeatName("W", t, t, width), makeWordNgram(x, t, t+width-1), false)
		}
	case dirCenter:
		if width > 2 && t-width+2 >= 0 && t+width-2 < len(x) {
			for start := t - width + 2; start < t; start++ {
				add(ngramFeatName("W", t, start, width), makeWordNgram(x, start, start+width-1), false)
			}
		}
	}
}

func makeWordNgram(x []Token, from, to int) string {
	parts := make([]string, 0, to-from+1)
	for k := from; k <= to; k++ {
		parts = append(parts, mask(x[k].Text))
	}
	return strings.Join(parts, "|")
}

func ngramFeatName(pref string, t, start, width int) string {
	from := start - t
	return fmt.Sprintf("%s[%d..%d]", pref, from, from+width-1)
}

func addTagNgram(x []Token, t, width int, dir ngramDir, add func(string, string, bool)) {
	feat := fmt.Sprintf("POS%dgrams", width)
	switch width {
	case 2:
		switch dir {
		case dirLeft:
			if t > 0 {
				add(feat, x[t-1].Tag+"|"+x[t].Tag, false)
			}
		case dirRight:
			if t < len(x)-1 {
				add(feat, x[t].Tag+"|"+x[t+1].Tag, false)
			}
		}
	case 3:
		switch dir {
		case dirLeft:
			if t > 1 {
				add(feat, x[t-2].Tag+"|"+x[t-1].Tag+"|"+x[t].Tag, false)
			}
		case dirCenter:
			if t > 0 && t < len(x)-1 {
				add(feat, x[t-1].Tag+"|"+x[t].Tag+"|"+x[t+1].Tag, false)
			}
		case dirRight:
			if t < len(x)-2 {
				add(feat, x[t].Tag+"|"+x[t+1].Tag+"|"+x[t+2].Tag, false)
			}
		}
	}
}

func prefix(w string, n int) string {
	r := []rune(w)
	if len(r) < n {
		return ""
	}
	return string(r[:n])
}

func suffix(w string, n int) string {
	r := []rune(w)
	if len(r) < n {
		return ""
	}
	return string(r[len(r)-n:])
}

// tokenTypeNames fixes the emission order of the 10-bit token-type set,
// so two runs over identical input assign attributes to the same
// parameter indices (§4.3).
var tokenTypeNames = []string{
	"AllUpper", "AllDigit", "AllSymbol",
	"AllUpperOrDigit", "AllUpperOrSymbol", "AllDigitOrSymbol",
	"AllUpperOrDigitOrSymbol", "InitUpper", "AllLetter", "AllAlnum",
}

func tokenTypeFlags(token string) map[string]bool {
	r := map[string]bool{
		"AllUpper": true, "AllDigit": true, "AllSymbol": true,
		"AllUpperOrDigit": true, "AllUpperOrSymbol": true, "AllDigitOrSymbol": true,
		"AllUpperOrDigitOrSymbol": true, "InitUpper": true, "AllLetter": true, "AllAlnum": true,
	}
	if token == "" {
		for k := range r {
			r[k] = false
		}
		return r
	}
	if !unicode.IsUpper([]rune(token)[0]) {
		r["InitUpper"] = false
	}
	for _, c := range token {
		switch {
		case unicode.IsUpper(c):
			r["AllDigit"] = false
			r["AllSymbol"] = false
			r["AllDigitOrSymbol"] = false
		case unicode.IsDigit(c) || c == ',' || c == '.':
			r["AllUpper"] = false
			r["AllSymbol"] = false
			r["AllUpperOrSymbol"] = false
			r["AllLetter"] = false
		case unicode.IsLower(c):
			r["AllUpper"] = false
			r["AllDigit"] = false
			r["AllSymbol"] = false
			r["AllUpperOrDigit"] = false
			r["AllUpperOrSymbol"] = false
			r["AllDigitOrSymbol"] = false
			r["AllUpperOrDigitOrSymbol"] = false
		default:
			r["AllUpper"] = false
			r["AllDigit"] = false
			r["AllUpperOrDigit"] = false
			r["AllLetter"] = false
			r["AllAlnum"] = false
		}
	}
	return r
}

func shape(tok string) string {
	var b strings.Builder
	for _, c := range tok {
		switch {
		case unicode.IsUpper(c):
			b.WriteByte('X')
		case unicode.IsLower(c):
			b.WriteByte('x')
		case unicode.IsDigit(c):
			b.WriteByte('9')
		case c == '-':
			b.WriteByte('-')
		case c == '.':
			b.WriteByte('.')
		default:
			b.WriteByte('#')
		}
	}
	return b.String()
}

func soundPattern(tok string) string {
	var b strings.Builder
	for _, c := range tok {
		switch {
		case unicode.IsLetter(c):
			if isVowel(c) {
				b.WriteByte('V')
			} else {
				b.WriteByte('C')
			}
		case unicode.IsDigit(c):
			b.WriteByte('9')
		case c == '-':
			b.WriteByte('-')
		case c == '.':
			b.WriteByte('.')
		default:
			b.WriteByte('#')
		}
	}
	return b.String()
}

func isVowel(c rune) bool {
	switch c {
	case 'a', 'e', 'i', 'o', 'u', 'A', 'E', 'I', 'O', 'U':
		return true
	}
	return false
}

func tokenClass(tok string) string {
	switch {
	case tok == "":
		return "EMPTY"
	case isAllDigits(tok):
		return "NUMBER"
	case isAllPunct(tok):
		return "PUNCT"
	default:
		return "WORD"
	}
}

func isAllDigits(s string) bool {
	for _, c := range s {
		if !unicode.IsDigit(c) {
			return false
		}
	}
	return true
}

func isAllPunct(s string) bool {
	for _, c := range s {
		if unicode.IsLetter(c) || unicode.IsDigit(c) {
			return false
		}
	}
	return true
}

// mask replaces colons, which would otherwise collide with the
// attribute/label wire syntax used by third-party text-dump consumers.
func mask(tok string) string {
	if !strings.Contains(tok, ":") {
		return tok
	}
	return strings.ReplaceAll(tok, ":", "__COLON__")
}

func addCharNgrams(tok string, maxWidth int, add func(string, string, bool)) {
	r := []rune(tok)
	for n := 2; n <= maxWidth && n <= len(r); n++ {
		for i := 0; i+n <= len(r); i++ {
			feat := fmt.Sprintf("CharNgram[%d..%d]", i, i+n-1)
			add(feat, mask(string(r[i:i+n])), false)
		}
	}
}

func addContextContains(x []Token, t, window int, left bool, add func(string, string, bool)) {
	if left {
		for n := 1; n <= window; n++ {
			if t-n < 0 {
				break
			}
			feat := fmt.Sprintf("InLC[%d..0]", -window)
			add(feat, mask(x[t-n].Text), false)
		}
		return
	}
	for n := 1; n <= window; n++ {
		if t+n >= len(x) {
			break
		}
		feat := fmt.Sprintf("InRC[0..%d]", window)
		add(feat, mask(x[t+n].Text), false)
	}
}

// addDAWGPatternFeatures emits, for every matched multi-token span
// [t..t1], a PatternClass[lo..hi]=info feature at every position k
// covered by the span, where lo = t-k and hi = t1-k.
func addDAWGPatternFeatures(x []Token, d *dawg.DAWG, attrs [][]string) {
	for t := 0; t < len(x); t++ {
		q := d.StartState()
		for t1 := t; t1 < len(x); t1++ {
			p, ok := d.Next(q, x[t1].Text)
			if !ok {
				break
			}
			if d.IsFinal(p) {
				for _, info := range d.FinalInfos(p) {
					for k := t; k <= t1; k++ {
						feat := fmt.Sprintf("PatternClass[%s..%s]", strconv.Itoa(t-k), strconv.Itoa(t1-k))
						if s, ok := addFeature(feat, info, false); ok {
							attrs[k] = append(attrs[k], s)
						}
					}
				}
			}
			q = p
		}
	}
}

// addContextClueFeatures matches a context-clue DAWG against the
// sequence and, for each match, attaches a feature to the single token
// immediately adjacent to the matched span: to the right for left
// context clues, to the left for right context clues.
func addContextClueFeatures(x []Token, d *dawg.DAWG, leftClues bool, attrs [][]string) {
	featName := "RC-Clue"
	if leftClues {
		featName = "LC-Clue"
	}
	for t := 0; t < len(x); t++ {
		q := d.StartState()
		for t1 := t; t1 < len(x); t1++ {
			p, ok := d.Next(q, x[t1].Text)
			if !ok {
				break
			}
			if d.IsFinal(p) {
				for _, info := range d.FinalInfos(p) {
					s, ok := addFeature(featName, info, false)
					if !ok {
						continue
					}
					if leftClues && t1 < len(x)-1 {
						attrs[t1+1] = append(attrs[t1+1], s)
					} else if !leftClues && t > 0 {
						attrs[t-1] = append(attrs[t-1], s)
					}
				}
			}
			q = p
		}
	}
}
