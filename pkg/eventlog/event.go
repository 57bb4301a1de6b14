// Copyright 2025 Certen Protocol
//
// Event Log (C3): typed append-only streams over pkg/kvdb. Grounded on the
// teacher's pkg/ledger/store.go KV-backed persistence idiom (load, mutate,
// SetSync) generalized from a single ledger table into named, independently
// revisioned streams.

package eventlog

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Event is one entry in a stream. Revision is 1-based and dense: the first
// event appended to a stream has Revision 1.
type Event struct {
	Stream     string
	Revision   uint64
	TypeTag    string
	Payload    []byte
	RecordedAt time.Time
}

// encode serializes an event to a stable, length-prefixed binary form. The
// stream name is not included since it is implied by the key it is stored
// under.
func (e Event) encode() []byte {
	typeTagBytes := []byte(e.TypeTag)
	buf := make([]byte, 0, 8+4+len(typeTagBytes)+4+len(e.Payload)+8)

	var scratch [8]byte
	binary.BigEndian.PutUint64(scratch[:], e.Revision)
	buf = append(buf, scratch[:]...)

	binary.BigEndian.PutUint32(scratch[:4], uint32(len(typeTagBytes)))
	buf = append(buf, scratch[:4]...)
	buf = append(buf, typeTagBytes...)

	binary.BigEndian.PutUint32(scratch[:4], uint32(len(e.Payload)))
	buf = append(buf, scratch[:4]...)
	buf = append(buf, e.Payload...)

	binary.BigEndian.PutUint64(scratch[:], uint64(e.RecordedAt.UnixNano()))
	buf = append(buf, scratch[:]...)

	return buf
}

func decodeEvent(stream string, b []byte) (Event, error) {
	if len(b) < 8+4 {
		return Event{}, fmt.Errorf("eventlog: truncated event record")
	}
	var e Event
	e.Stream = stream

	e.Revision = binary.BigEndian.Uint64(b[0:8])
	b = b[8:]

	tagLen := binary.BigEndian.Uint32(b[0:4])
	b = b[4:]
	if uint32(len(b)) < tagLen {
		return Event{}, fmt.Errorf("eventlog: truncated type tag")
	}
	e.TypeTag = string(b[:tagLen])
	b = b[tagLen:]

	if len(b) < 4 {
		return Event{}, fmt.Errorf("eventlog: truncated payload length")
	}
	payloadLen := binary.BigEndian.Uint32(b[0:4])
	b = b[4:]
	if uint32(len(b)) < payloadLen+8 {
		return Event{}, fmt.Errorf("eventlog: truncated payload")
	}
	e.Payload = append([]byte(nil), b[:payloadLen]...)
	b = b[payloadLen:]

	e.RecordedAt = time.Unix(0, int64(binary.BigEndian.Uint64(b[0:8])))
	return e, nil
}
