// Package lcrferr defines the typed sentinel errors shared across the
// pipeline and the CLI, and the exit-code mapping the CLI uses to turn
// them into process exit statuses.
package lcrferr

import (
	"errors"

	"lcrf/pkg/crf"
)

var (
	// ErrMalformedInput marks a corpus or annotation input that could
	// not be parsed into the expected column/sequence shape.
	ErrMalformedInput = errors.New("malformed input")

	// ErrResource marks a failure to open, read, or write an external
	// resource: a model file, a DAWG resource file, a corpus file.
	ErrResource = errors.New("resource error")

	// ErrUnknownSymbol marks a lookup of a string with no corresponding
	// id in a model's vocabularies. ExitCodeFor maps it to the same
	// corpus/model-inconsistency code as a malformed-input error.
	ErrUnknownSymbol = errors.New("unknown symbol")
)

// Exit codes, fixed by spec.md §6: 0 success, 1 usage error, 2 I/O
// error, 3 corpus/model inconsistency. Resource failures (can't open a
// file) map to the I/O code; malformed input, an incompatible model
// file, and an unknown-symbol lookup that the caller treated as fatal
// all map to the corpus/model-inconsistency code.
const (
	ExitOK                       = 0
	ExitUsageError               = 1
	ExitResourceError            = 2
	ExitCorpusModelInconsistency = 3
)

// ExitCodeFor classifies err into one of the exit codes above by
// unwrapping it against the sentinel errors this package and the crf
// package define. An unclassified error is treated as a usage error.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitOK
	}
	switch {
	case errors.Is(err, ErrResource):
		return ExitResourceError
	case errors.Is(err, ErrMalformedInput),
		errors.Is(err, ErrUnknownSymbol),
		errors.Is(err, crf.ErrUnknownSymbol),
		errors.Is(err, crf.ErrIncompatibleModel):
		return ExitCorpusModelInconsistency
	default:
		return ExitUsageError
	}
}
