// Copyright 2025 Certen Protocol
//
// KV is the storage interface every persistence layer in this module is
// built on: the event log's stream index, the DNA book's balance/trust
// records, and the sybil guard's rate-limit windows all read and write
// through it. Grounded on the teacher's pkg/kvdb adapter, generalized from a
// bare Get/Set pair to include range iteration (needed to replay a stream
// from a revision) and deletion (needed for cool-off expiry).

package kvdb

// KV is a minimal ordered key-value store.
type KV interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error

	// Iterate calls fn for every key with the given prefix, in ascending
	// byte order, until fn returns stop=true or an error. Implementations
	// must tolerate fn mutating unrelated keys during iteration.
	Iterate(prefix []byte, fn func(key, value []byte) (stop bool, err error)) error
}
