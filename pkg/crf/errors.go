package crf

import "errors"

// ErrIncompatibleModel is returned when a binary model file fails its
// header check, order check, or one of the plausibility tests against
// its own metadata record.
var ErrIncompatibleModel = errors.New("incompatible or corrupt model file")

// ErrUnknownSymbol is returned by strict attribute/label lookups when a
// string has no corresponding id in the model's vocabularies. Decoding
// itself never returns this: unknown attributes are silently dropped
// (they simply contribute no weight), matching the original's handling
// at decode time. It surfaces instead from APIs that require a known
// symbol, such as text-dump parsing.
var ErrUnknownSymbol = errors.New("unknown symbol")
