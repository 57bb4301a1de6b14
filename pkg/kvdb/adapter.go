// Copyright 2025 Certen Protocol
//
// Adapter wrapping CometBFT's dbm.DB to implement kvdb.KV.

package kvdb

import (
	"fmt"

	dbm "github.com/cometbft/cometbft-db"
)

// Adapter wraps a CometBFT dbm.DB and exposes it as a KV.
type Adapter struct {
	db dbm.DB
}

// NewAdapter wraps db as a KV. Passing a nil db yields a no-op store that
// reads as empty and discards writes, useful for components run without
// persistence in tests.
func NewAdapter(db dbm.DB) *Adapter {
	return &Adapter{db: db}
}

func (a *Adapter) Get(key []byte) ([]byte, error) {
	if a.db == nil {
		return nil, nil
	}
	v, err := a.db.Get(key)
	if err != nil {
		return nil, fmt.Errorf("kvdb get: %w", err)
	}
	return v, nil
}

// Set writes durably via SetSync: every append to the event log or DNA book
// must survive a crash immediately after the call returns.
func (a *Adapter) Set(key, value []byte) error {
	if a.db == nil {
		return nil
	}
	if err := a.db.SetSync(key, value); err != nil {
		return fmt.Errorf("kvdb set: %w", err)
	}
	return nil
}

func (a *Adapter) Delete(key []byte) error {
	if a.db == nil {
		return nil
	}
	if err := a.db.DeleteSync(key); err != nil {
		return fmt.Errorf("kvdb delete: %w", err)
	}
	return nil
}

func (a *Adapter) Iterate(prefix []byte, fn func(key, value []byte) (bool, error)) error {
	if a.db == nil {
		return nil
	}
	start, end := prefixRange(prefix)
	it, err := a.db.Iterator(start, end)
	if err != nil {
		return fmt.Errorf("kvdb iterator: %w", err)
	}
	defer it.Close()

	for ; it.Valid(); it.Next() {
		stop, err := fn(it.Key(), it.Value())
		if err != nil {
			return err
		}
		if stop {
			break
		}
	}
	return it.Error()
}

// prefixRange returns the [start, end) byte range covering every key with
// the given prefix. An all-0xFF prefix has no finite successor, so end is
// nil and the scan runs to the end of the keyspace.
func prefixRange(prefix []byte) (start, end []byte) {
	start = prefix
	end = make([]byte, len(prefix))
	copy(end, prefix)

	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xFF {
			end[i]++
			return start, end[:i+1]
		}
	}
	return start, nil
}
