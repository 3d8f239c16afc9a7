package discovery

// Config is the validated configuration of one discovery run. It is
// constructed once at run start; there is no per-call overriding.
type Config struct {
	// NbOccurrence is the minimum support a rule (and every join pair and
	// chain on the way to it) must reach
	NbOccurrence int

	// MaxTable caps the number of distinct table occurrences in a chain
	MaxTable int

	// MaxVars caps the number of distinct variables after unification
	MaxVars int

	// DisjointSemantics requires distinct rows for distinct occurrences of
	// the same table when counting
	DisjointSemantics bool

	// DistinctCounts counts distinct join-column combinations instead of
	// raw tuple combinations
	DistinctCounts bool
}

// DefaultConfig returns the default run configuration
func DefaultConfig() Config {
	return Config{
		NbOccurrence: 3,
		MaxTable:     3,
		MaxVars:      6,
	}
}

// Validate checks every budget. Invalid values fail fast before any graph
// work starts.
func (c Config) Validate() error {
	if c.NbOccurrence < 1 {
		return &ConfigurationError{Param: "nb_occurrence", Value: c.NbOccurrence}
	}
	if c.MaxTable < 1 {
		return &ConfigurationError{Param: "max_table", Value: c.MaxTable}
	}
	if c.MaxVars < 1 {
		return &ConfigurationError{Param: "max_vars", Value: c.MaxVars}
	}
	return nil
}
