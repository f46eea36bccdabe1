package strategy

import "errors"

var (
	// ErrNoMatchingPosition is returned when neither venue holds a position
	// matching the configured identifiers. The cycle fails; the engine never
	// guesses.
	ErrNoMatchingPosition = errors.New("no matching position")

	// ErrAmbiguousPosition is returned when more than one AMM position matches
	// the configured token pair.
	ErrAmbiguousPosition = errors.New("ambiguous position match")

	// ErrMalformedData is returned when a venue-provided numeric string fails
	// to parse. Values are never coerced to zero.
	ErrMalformedData = errors.New("malformed venue data")
)
