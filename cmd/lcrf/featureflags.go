package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lcrf/pkg/dawg"
	"lcrf/pkg/features"
)

// featureFlags binds command-line flags to a features.Options, starting
// from features.DefaultOptions() and layering DAWG resource files loaded
// from disk on top - the only piece of Options that can't be a plain
// scalar flag.
type featureFlags struct {
	opts features.Options

	patternsDAWG   string
	leftCluesDAWG  string
	rightCluesDAWG string
}

func addFeatureFlags(cmd *cobra.Command) *featureFlags {
	ff := &featureFlags{opts: features.DefaultOptions()}

	cmd.Flags().BoolVar(&ff.opts.Word, "feat-word", ff.opts.Word, "emit the current-token attribute")
	cmd.Flags().BoolVar(&ff.opts.WordLowercased, "feat-lower", ff.opts.WordLowercased, "emit the lowercased-token attribute")
	cmd.Flags().BoolVar(&ff.opts.Shape, "feat-shape", ff.opts.Shape, "emit shape and sound-pattern attributes")
	cmd.Flags().BoolVar(&ff.opts.TokenTypes, "feat-token-types", ff.opts.TokenTypes, "emit token-type bit-test attributes")
	cmd.Flags().BoolVar(&ff.opts.Boundary, "feat-boundary", ff.opts.Boundary, "emit <BOS>/<EOS> boundary attributes")
	cmd.Flags().BoolVar(&ff.opts.WordTag, "feat-word-tag", ff.opts.WordTag, "emit word-tag pair attributes (only when features.Options.HaveTags is set, which no flag does)")
	cmd.Flags().IntVar(&ff.opts.MaxPrefixLen, "feat-max-prefix", ff.opts.MaxPrefixLen, "maximum prefix length")
	cmd.Flags().IntVar(&ff.opts.MaxSuffixLen, "feat-max-suffix", ff.opts.MaxSuffixLen, "maximum suffix length")
	cmd.Flags().IntVar(&ff.opts.MaxCharNgramWidth, "feat-max-char-ngram", ff.opts.MaxCharNgramWidth, "maximum character n-gram width")
	cmd.Flags().IntVar(&ff.opts.ContextWindow, "feat-context-window", ff.opts.ContextWindow, "window width for InLC/InRC contains-in-window attributes")
	cmd.Flags().IntSliceVar(&ff.opts.WordNgramWidths, "feat-word-ngrams", ff.opts.WordNgramWidths, "token n-gram widths (>=2)")
	cmd.Flags().IntSliceVar(&ff.opts.TagNgramWidths, "feat-tag-ngrams", ff.opts.TagNgramWidths, "tag n-gram widths (2 or 3)")
	cmd.Flags().BoolVar(&ff.opts.InnerNgrams, "feat-inner-ngrams", ff.opts.InnerNgrams, "also emit overlapping inner n-grams, not just left/right anchored")
	cmd.Flags().BoolVar(&ff.opts.LeftContextContains, "feat-left-context-contains", ff.opts.LeftContextContains, "emit InLC[-N..0]=word attributes")
	cmd.Flags().BoolVar(&ff.opts.RightContextContains, "feat-right-context-contains", ff.opts.RightContextContains, "emit InRC[0..N]=word attributes")

	cmd.Flags().StringVar(&ff.patternsDAWG, "patterns-dawg", "", "path to a binary DAWG of multi-word patterns")
	cmd.Flags().StringVar(&ff.leftCluesDAWG, "left-clues-dawg", "", "path to a binary DAWG of left-context clue patterns")
	cmd.Flags().StringVar(&ff.rightCluesDAWG, "right-clues-dawg", "", "path to a binary DAWG of right-context clue patterns")

	return ff
}

// resolve loads any configured DAWG resource files and returns the
// finished Options, matching the "DAWG resource paths are loaded once
// at extractor construction" requirement.
func (ff *featureFlags) resolve() (features.Options, error) {
	var err error
	if ff.opts.Patterns, err = loadDAWG(ff.patternsDAWG); err != nil {
		return features.Options{}, err
	}
	if ff.opts.LeftContextClues, err = loadDAWG(ff.leftCluesDAWG); err != nil {
		return features.Options{}, err
	}
	if ff.opts.RightContextClues, err = loadDAWG(ff.rightCluesDAWG); err != nil {
		return features.Options{}, err
	}
	return ff.opts, nil
}

func loadDAWG(path string) (*dawg.DAWG, error) {
	if path == "" {
		return nil, nil
	}
	f, err := openResource(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	d, _, err := dawg.ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("reading DAWG %s: %w", path, err)
	}
	return d, nil
}
