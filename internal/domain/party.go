package domain

// PartyStats carries per-identity reputation counters: completed deals bump
// both parties on settlement, disputed deals bump both parties when a
// dispute is raised.
type PartyStats struct {
	Party          string
	CompletedDeals uint64
	DisputedDeals  uint64
}
