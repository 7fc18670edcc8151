package domain

// SourceRanking maps provider identifiers to trust ranks. A lower rank
// outranks a higher one when two providers assert values for the same day.
type SourceRanking struct {
	ranks       map[string]int
	defaultRank int
}

// defaultRanks is the stock trust order. Watch vendors with on-device step
// counters rank above phone aggregators, which rank above manual entry.
var defaultRanks = map[string]int{
	"garmin":       1,
	"coros":        2,
	"strava":       3,
	"apple_health": 4,
	"fitbit":       5,
	"manual":       6,
}

// DefaultSourceRanking returns the stock ranking. Unlisted providers rank
// alongside manual entry.
func DefaultSourceRanking() SourceRanking {
	return NewSourceRanking(defaultRanks, 6)
}

// NewSourceRanking builds a ranking from an explicit table. The table is
// copied; later mutation of the argument has no effect.
func NewSourceRanking(ranks map[string]int, defaultRank int) SourceRanking {
	copied := make(map[string]int, len(ranks))
	for source, rank := range ranks {
		copied[source] = rank
	}
	return SourceRanking{ranks: copied, defaultRank: defaultRank}
}

// WithOverrides returns a new ranking with the given entries added or
// replaced. Used to splice operator configuration over the defaults.
func (r SourceRanking) WithOverrides(overrides map[string]int) SourceRanking {
	merged := make(map[string]int, len(r.ranks)+len(overrides))
	for source, rank := range r.ranks {
		merged[source] = rank
	}
	for source, rank := range overrides {
		merged[source] = rank
	}
	return SourceRanking{ranks: merged, defaultRank: r.defaultRank}
}

// Rank returns the trust rank for a provider identifier.
func (r SourceRanking) Rank(source string) int {
	if rank, ok := r.ranks[source]; ok {
		return rank
	}
	return r.defaultRank
}

// Outranks reports whether provider a is strictly more trusted than b.
func (r SourceRanking) Outranks(a, b string) bool {
	return r.Rank(a) < r.Rank(b)
}
