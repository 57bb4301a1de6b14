// Copyright 2025 Certen Protocol
//
// Minimal length-prefixed binary writer for OutcomeRecord's internal-only
// serialization, mirroring eventlog's fieldWriter shape.

package verification

import "encoding/binary"

type recordWriter struct {
	buf []byte
}

func (w *recordWriter) str(s string) {
	var l [4]byte
	binary.BigEndian.PutUint32(l[:], uint32(len(s)))
	w.buf = append(w.buf, l[:]...)
	w.buf = append(w.buf, s...)
}

func (w *recordWriter) bytes(b []byte) {
	var l [4]byte
	binary.BigEndian.PutUint32(l[:], uint32(len(b)))
	w.buf = append(w.buf, l[:]...)
	w.buf = append(w.buf, b...)
}

func (w *recordWriter) u64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *recordWriter) i64(v int64) { w.u64(uint64(v)) }

func (w *recordWriter) boolean(v bool) {
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}
