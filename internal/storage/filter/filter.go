package filter

// Filter is a probabilistic membership set. A false MightContain is
// authoritative; a true one requires a slow-path lookup.
type Filter interface {
	Add(key string)
	MightContain(key string) bool
}
