package sidh

import "errors"

var (
	// ErrParams reports an unusable parameter set or a failed
	// deterministic derivation during parameter construction.
	ErrParams = errors.New("sidh: invalid parameters")

	// ErrInvalidPoint reports a point at infinity (or a vanishing
	// denominator) where a finite point is required.
	ErrInvalidPoint = errors.New("sidh: invalid point")

	// ErrDecomposition reports that the half-Pohlig–Hellman decomposition
	// of a response point failed: the point is not a generator of the
	// 3-power torsion it was claimed to generate.
	ErrDecomposition = errors.New("sidh: torsion decomposition failed")

	// ErrScalar reports a malformed scalar encoding.
	ErrScalar = errors.New("sidh: malformed scalar")
)
