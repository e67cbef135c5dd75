package models

// Verdict is the answer of a single resolution strategy.
//
// Unknown means the strategy could not decide and the chain must move on.
// NoMatch is a definitive negative and stops the chain just like Match.
type Verdict int8

const (
	Unknown Verdict = iota
	Match
	NoMatch
)

// VerdictOf converts a definitive boolean outcome into a Verdict.
func VerdictOf(match bool) Verdict {
	if match {
		return Match
	}
	return NoMatch
}

// Definitive reports whether the verdict ends the strategy chain.
func (v Verdict) Definitive() bool {
	return v == Match || v == NoMatch
}

// Bool returns the boolean outcome. The second value is false for Unknown.
func (v Verdict) Bool() (bool, bool) {
	switch v {
	case Match:
		return true, true
	case NoMatch:
		return false, true
	default:
		return false, false
	}
}

func (v Verdict) String() string {
	switch v {
	case Match:
		return "match"
	case NoMatch:
		return "no_match"
	default:
		return "unknown"
	}
}
