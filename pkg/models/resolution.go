package models

// Resolution explains how the chain reached its answer for one visitor.
//
// Match is the only field callers need for gating. The rest exists for
// logging, debugging (`geogate resolve`) and tests.
type Resolution struct {
	// Match is the final boolean verdict. It is false when nothing decided.
	Match bool

	// Source names the strategy that decided, "cache" for a cache hit, or
	// "default" when every strategy returned Unknown.
	Source string

	// Cached is true when the answer came from the resolution cache.
	Cached bool

	// CacheKey is the derived key the answer was read from or written to.
	CacheKey string

	// Attempts lists each strategy that ran, in order, with its verdict.
	Attempts []Attempt
}

// Attempt records the outcome of one strategy during a resolution.
type Attempt struct {
	Strategy string
	Verdict  Verdict

	// Err is the failure that was downgraded to Unknown, if any.
	Err error
}
