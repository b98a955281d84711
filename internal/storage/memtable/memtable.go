package memtable

// MemTable is the in-memory sorted write buffer. Values are opaque to
// it: a tombstone is stored and reported like any other value.
type MemTable interface {
	Insert(key, value string)        // overwrites any prior value
	Get(key string) (string, bool)   // stored value, possibly a tombstone
	Contains(key string) bool        // true even when mapped to a tombstone
	CapacityReached() bool           // entry count at or above the cap
	Clear()                          // drop all entries
	All() []KVPair                   // ascending key order
	Len() int                        // num of entries
}

type KVPair struct {
	Key   string
	Value string
}
