// Copyright 2025 Certen Protocol
//
// Domain event payloads used by the verification coordinator (C5). Encoding
// is a simple length-prefixed binary form — the spec leaves wire encoding to
// the implementer as long as it round-trips, and nothing in the example
// corpus hands us a schema-first serializer worth adopting for payloads this
// small and fixed-shape.

package eventlog

import (
	"encoding/binary"
	"fmt"
	"time"
)

const (
	TypeActionSubmitted      = "ActionSubmitted"
	TypeOracleVoteRecorded   = "OracleVoteRecorded"
	TypeVerificationComplete = "VerificationCompleted"
	TypeOutcomeFinalized     = "OutcomeFinalized"
)

type fieldWriter struct {
	buf []byte
}

func (w *fieldWriter) str(s string) {
	var l [4]byte
	binary.BigEndian.PutUint32(l[:], uint32(len(s)))
	w.buf = append(w.buf, l[:]...)
	w.buf = append(w.buf, s...)
}

func (w *fieldWriter) bytes(b []byte) {
	var l [4]byte
	binary.BigEndian.PutUint32(l[:], uint32(len(b)))
	w.buf = append(w.buf, l[:]...)
	w.buf = append(w.buf, b...)
}

func (w *fieldWriter) u64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *fieldWriter) i64(v int64) { w.u64(uint64(v)) }

func (w *fieldWriter) boolean(v bool) {
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

type fieldReader struct {
	buf []byte
	err error
}

func (r *fieldReader) str() string {
	if r.err != nil {
		return ""
	}
	if len(r.buf) < 4 {
		r.err = fmt.Errorf("eventlog: truncated string length")
		return ""
	}
	l := binary.BigEndian.Uint32(r.buf[:4])
	r.buf = r.buf[4:]
	if uint32(len(r.buf)) < l {
		r.err = fmt.Errorf("eventlog: truncated string body")
		return ""
	}
	s := string(r.buf[:l])
	r.buf = r.buf[l:]
	return s
}

func (r *fieldReader) bytes() []byte {
	if r.err != nil {
		return nil
	}
	if len(r.buf) < 4 {
		r.err = fmt.Errorf("eventlog: truncated bytes length")
		return nil
	}
	l := binary.BigEndian.Uint32(r.buf[:4])
	r.buf = r.buf[4:]
	if uint32(len(r.buf)) < l {
		r.err = fmt.Errorf("eventlog: truncated bytes body")
		return nil
	}
	b := append([]byte(nil), r.buf[:l]...)
	r.buf = r.buf[l:]
	return b
}

func (r *fieldReader) u64() uint64 {
	if r.err != nil {
		return 0
	}
	if len(r.buf) < 8 {
		r.err = fmt.Errorf("eventlog: truncated uint64")
		return 0
	}
	v := binary.BigEndian.Uint64(r.buf[:8])
	r.buf = r.buf[8:]
	return v
}

func (r *fieldReader) i64() int64 { return int64(r.u64()) }

func (r *fieldReader) boolean() bool {
	if r.err != nil {
		return false
	}
	if len(r.buf) < 1 {
		r.err = fmt.Errorf("eventlog: truncated bool")
		return false
	}
	v := r.buf[0] != 0
	r.buf = r.buf[1:]
	return v
}

// ActionSubmittedPayload mirrors the ActionSubmitted event of spec.md 4.3.
type ActionSubmittedPayload struct {
	RequestID     string
	ActorID       string
	ClientID      string
	ActionType    string
	InputHash     [32]byte
	OutputHash    [32]byte
	ComputeAmount string // decimal string, preserved verbatim
	SubmittedAt   time.Time
}

func (p ActionSubmittedPayload) Encode() []byte {
	w := &fieldWriter{}
	w.str(p.RequestID)
	w.str(p.ActorID)
	w.str(p.ClientID)
	w.str(p.ActionType)
	w.bytes(p.InputHash[:])
	w.bytes(p.OutputHash[:])
	w.str(p.ComputeAmount)
	w.i64(p.SubmittedAt.UnixNano())
	return w.buf
}

func DecodeActionSubmitted(b []byte) (ActionSubmittedPayload, error) {
	r := &fieldReader{buf: b}
	var p ActionSubmittedPayload
	p.RequestID = r.str()
	p.ActorID = r.str()
	p.ClientID = r.str()
	p.ActionType = r.str()
	copy(p.InputHash[:], r.bytes())
	copy(p.OutputHash[:], r.bytes())
	p.ComputeAmount = r.str()
	p.SubmittedAt = time.Unix(0, r.i64()).UTC()
	if r.err != nil {
		return ActionSubmittedPayload{}, r.err
	}
	return p, nil
}

// OracleVoteRecordedPayload mirrors OracleVoteRecorded.
type OracleVoteRecordedPayload struct {
	RequestID string
	OracleID  string
	Approve   bool
	Reason    string // empty when not provided
	At        time.Time
}

func (p OracleVoteRecordedPayload) Encode() []byte {
	w := &fieldWriter{}
	w.str(p.RequestID)
	w.str(p.OracleID)
	w.boolean(p.Approve)
	w.str(p.Reason)
	w.i64(p.At.UnixNano())
	return w.buf
}

func DecodeOracleVoteRecorded(b []byte) (OracleVoteRecordedPayload, error) {
	r := &fieldReader{buf: b}
	var p OracleVoteRecordedPayload
	p.RequestID = r.str()
	p.OracleID = r.str()
	p.Approve = r.boolean()
	p.Reason = r.str()
	p.At = time.Unix(0, r.i64()).UTC()
	if r.err != nil {
		return OracleVoteRecordedPayload{}, r.err
	}
	return p, nil
}

// VerificationCompletedPayload mirrors VerificationCompleted.
type VerificationCompletedPayload struct {
	RequestID     string
	Passed        bool
	QuorumReached bool
	LatencyMs     uint64
	AggregatedSig []byte // empty when the request did not reach quorum
}

func (p VerificationCompletedPayload) Encode() []byte {
	w := &fieldWriter{}
	w.str(p.RequestID)
	w.boolean(p.Passed)
	w.boolean(p.QuorumReached)
	w.u64(p.LatencyMs)
	w.bytes(p.AggregatedSig)
	return w.buf
}

func DecodeVerificationCompleted(b []byte) (VerificationCompletedPayload, error) {
	r := &fieldReader{buf: b}
	var p VerificationCompletedPayload
	p.RequestID = r.str()
	p.Passed = r.boolean()
	p.QuorumReached = r.boolean()
	p.LatencyMs = r.u64()
	p.AggregatedSig = r.bytes()
	if r.err != nil {
		return VerificationCompletedPayload{}, r.err
	}
	return p, nil
}

// OutcomeFinalizedPayload carries the fully assembled outcome record.
// Encoding here is the record's own canonical encoding, kept opaque to the
// event log — pkg/verification owns OutcomeRecord.Encode/Decode.
type OutcomeFinalizedPayload struct {
	RequestID string
	Record    []byte
}

func (p OutcomeFinalizedPayload) Encode() []byte {
	w := &fieldWriter{}
	w.str(p.RequestID)
	w.bytes(p.Record)
	return w.buf
}

func DecodeOutcomeFinalized(b []byte) (OutcomeFinalizedPayload, error) {
	r := &fieldReader{buf: b}
	var p OutcomeFinalizedPayload
	p.RequestID = r.str()
	p.Record = r.bytes()
	if r.err != nil {
		return OutcomeFinalizedPayload{}, r.err
	}
	return p, nil
}
