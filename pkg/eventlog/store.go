// Copyright 2025 Certen Protocol

package eventlog

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/certen/verified-ledger/pkg/kvdb"
	"github.com/certen/verified-ledger/pkg/ledgererr"
)

// Store is a KV-backed collection of independently revisioned streams.
// Within one stream, appends are strictly ordered by a per-stream mutex;
// different streams never contend with each other, per spec.md's
// "sharded by stream name" resource policy.
type Store struct {
	kv kvdb.KV

	mu      sync.Mutex // guards the locks map itself, not stream contents
	streams map[string]*streamState
}

type streamState struct {
	mu   sync.Mutex
	cond *sync.Cond
}

// New creates an event log over the given KV backend.
func New(kv kvdb.KV) *Store {
	return &Store{kv: kv, streams: make(map[string]*streamState)}
}

func (s *Store) stateFor(stream string) *streamState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.streams[stream]
	if !ok {
		st = &streamState{}
		st.cond = sync.NewCond(&st.mu)
		s.streams[stream] = st
	}
	return st
}

func (s *Store) readTailLocked(stream string) (uint64, error) {
	v, err := s.kv.Get(tailKey(stream))
	if err != nil {
		return 0, fmt.Errorf("eventlog: read tail for %s: %w", stream, err)
	}
	if len(v) != 8 {
		return 0, nil
	}
	return binary.BigEndian.Uint64(v), nil
}

func (s *Store) writeTailLocked(stream string, tail uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], tail)
	if err := s.kv.Set(tailKey(stream), buf[:]); err != nil {
		return fmt.Errorf("eventlog: write tail for %s: %w", stream, err)
	}
	return nil
}

func (s *Store) seqKey(stream string, revision uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], revision)
	return append(keyPrefix(stream), buf[:]...)
}

// Append writes an event to stream. If expectedRevision is non-nil and does
// not match the stream's current tail, the append is rejected with
// ledgererr.ErrConcurrencyConflict and nothing is written. If
// expectedRevision is nil, the append is unconditional.
func (s *Store) Append(stream, typeTag string, payload []byte, expectedRevision *uint64) (uint64, error) {
	st := s.stateFor(stream)
	st.mu.Lock()
	defer st.mu.Unlock()

	tail, err := s.readTailLocked(stream)
	if err != nil {
		return 0, err
	}

	if expectedRevision != nil && *expectedRevision != tail {
		return 0, ledgererr.ErrConcurrencyConflict.WithDetails(map[string]any{
			"stream":            stream,
			"expected_revision": *expectedRevision,
			"actual_revision":   tail,
		})
	}

	next := tail + 1
	ev := Event{Stream: stream, Revision: next, TypeTag: typeTag, Payload: payload, RecordedAt: time.Now().UTC()}

	if err := s.kv.Set(s.seqKey(stream, next), ev.encode()); err != nil {
		return 0, fmt.Errorf("eventlog: append to %s: %w", stream, err)
	}
	if err := s.writeTailLocked(stream, next); err != nil {
		return 0, err
	}

	st.cond.Broadcast()
	return next, nil
}

// Read returns up to max events from stream starting at fromRevision
// (inclusive), in revision order. A short or empty result means the stream
// has no more events past what is returned; it is not an error.
func (s *Store) Read(stream string, fromRevision uint64, max int) ([]Event, error) {
	if max <= 0 {
		return nil, nil
	}

	st := s.stateFor(stream)
	st.mu.Lock()
	tail, err := s.readTailLocked(stream)
	st.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var out []Event
	for rev := fromRevision; rev <= tail && len(out) < max; rev++ {
		if rev == 0 {
			continue
		}
		v, err := s.kv.Get(s.seqKey(stream, rev))
		if err != nil {
			return nil, fmt.Errorf("eventlog: read %s@%d: %w", stream, rev, err)
		}
		if v == nil {
			continue
		}
		ev, err := decodeEvent(stream, v)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

// Subscribe yields a channel of events from stream starting at fromRevision,
// including events appended after the call. The channel is closed when ctx
// is cancelled; the publisher side (Append) is never blocked by a slow or
// abandoned subscriber.
func (s *Store) Subscribe(ctx context.Context, stream string, fromRevision uint64) <-chan Event {
	out := make(chan Event, 64)
	st := s.stateFor(stream)

	// Wake the subscriber's cond.Wait if its context is cancelled while it
	// is parked with no new events to deliver; this goroutine exits as soon
	// as the subscription loop below returns.
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			st.mu.Lock()
			st.cond.Broadcast()
			st.mu.Unlock()
		case <-done:
		}
	}()

	go func() {
		defer close(out)
		defer close(done)
		cursor := fromRevision
		if cursor == 0 {
			cursor = 1
		}

		for {
			st.mu.Lock()
			tail, err := s.readTailLocked(stream)
			for err == nil && cursor > tail && ctx.Err() == nil {
				st.cond.Wait()
				tail, err = s.readTailLocked(stream)
			}
			st.mu.Unlock()
			if err != nil || ctx.Err() != nil {
				return
			}

			batch, err := s.Read(stream, cursor, int(tail-cursor+1))
			if err != nil {
				return
			}
			for _, ev := range batch {
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
			cursor = tail + 1
		}
	}()

	return out
}
