package ports

// KeyValue is the durable flat store backing per-identity records (bearer
// tokens, user-agent fingerprints). Implementations must survive concurrent
// writers on disjoint keys by atomically rewriting the whole store.
type KeyValue interface {
	Get(key string) (string, bool)
	Put(key, value string) error
}
