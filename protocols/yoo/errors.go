package yoo

import "errors"

var (
	// ErrInvalidSignature is wrapped by every verification failure.
	ErrInvalidSignature = errors.New("yoo: invalid signature")

	// ErrOrderCheck reports a response whose kernel point does not have
	// full order: an odd round scalar, or a ψ(S) that collapses to the
	// identity during the tripling walk.
	ErrOrderCheck = errors.New("yoo: kernel order check failed")

	// ErrCommitmentMismatch reports a recomputed commitment that differs
	// from the one carried in the signature.
	ErrCommitmentMismatch = errors.New("yoo: commitment mismatch")

	// ErrMalformed reports a signature whose shape does not match the
	// parameter set.
	ErrMalformed = errors.New("yoo: malformed signature")
)
