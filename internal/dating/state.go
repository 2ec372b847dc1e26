package dating

// PairKey addresses an unordered pair of users. Lo is always the
// lexicographically smaller id.
type PairKey struct {
	Lo string
	Hi string
}

// NewPairKey orders a and b into a canonical key.
func NewPairKey(a, b string) PairKey {
	if b < a {
		a, b = b, a
	}
	return PairKey{Lo: a, Hi: b}
}

func (k PairKey) String() string {
	return k.Lo + ":" + k.Hi
}

// IsLo reports whether userID occupies the lo side of the pair.
func (k PairKey) IsLo(userID string) bool {
	return k.Lo == userID
}

// DeriveStatus computes the pair status from the latest decision of each side.
// Order of the arguments does not matter.
func DeriveStatus(a, b Decision) Status {
	switch {
	case a == DecisionBlock || b == DecisionBlock:
		return StatusBlocked
	case a == DecisionLike && b == DecisionLike:
		return StatusMatched
	case a == DecisionLike || b == DecisionLike:
		return StatusLiked
	case a == DecisionPass || b == DecisionPass:
		return StatusPass
	default:
		return StatusNew
	}
}
