// Copyright 2025 Certen Protocol
//
// HTTP-based consensus.Transport. The example pack carries no peer-to-peer
// or RPC library (no grpc, no libp2p), so this follows the teacher's own
// answer to inter-process communication: plain net/http with JSON bodies
// and an http.ServeMux, the same idiom as pkg/server's handler set
// (writeJSONError, json.NewDecoder/Encoder), generalized from validator-to-
// validator attestation requests to consensus message delivery.

package nettransport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/certen/verified-ledger/pkg/consensus"
	"github.com/certen/verified-ledger/pkg/logging"
)

// Dispatcher is the subset of *consensus.Engine the transport delivers
// inbound messages to.
type Dispatcher interface {
	HandleProposal(*consensus.Proposal) error
	HandleVote(*consensus.Vote) error
	HandleViewChange(*consensus.ViewChangeMsg) error
	HandleNewView(*consensus.NewViewMsg) error
	HandleQC(*consensus.QC) error
}

// HTTP implements consensus.Transport by POSTing JSON-encoded messages to
// peer validators' /consensus/message endpoints.
type HTTP struct {
	selfID     string
	addrByID   map[string]string // validator ID -> base URL, e.g. http://10.0.0.2:7070
	client     *http.Client
	dispatcher Dispatcher
	log        slogLogger
}

type slogLogger = interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// New builds an HTTP transport. dispatcher receives every inbound message;
// it is normally set to the local *consensus.Engine after both are
// constructed, since the engine and transport reference each other.
func New(selfID string, addrByID map[string]string, dispatcher Dispatcher) *HTTP {
	return &HTTP{
		selfID:     selfID,
		addrByID:   addrByID,
		client:     &http.Client{Timeout: 2 * time.Second},
		dispatcher: dispatcher,
		log:        logging.Component("nettransport"),
	}
}

// Broadcast sends msg to every known validator other than from.
func (t *HTTP) Broadcast(from string, msg consensus.Message) error {
	var firstErr error
	for id := range t.addrByID {
		if id == from {
			continue
		}
		if err := t.Send(from, id, msg); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Send delivers msg to validator "to" over HTTP. Errors are logged and
// returned but never block the caller's consensus state machine progress;
// HotStuff-2's view-change path tolerates dropped messages.
func (t *HTTP) Send(from, to string, msg consensus.Message) error {
	addr, ok := t.addrByID[to]
	if !ok {
		return fmt.Errorf("nettransport: unknown validator %q", to)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("nettransport: marshal message: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, addr+"/consensus/message", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("nettransport: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Validator-ID", from)

	resp, err := t.client.Do(req)
	if err != nil {
		t.log.Warn("send failed", "to", to, "error", err)
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("nettransport: %s responded %d", to, resp.StatusCode)
	}
	return nil
}

// SetDispatcher wires the local engine in after both transport and engine
// have been constructed, since consensus.New requires a Transport and the
// transport requires an Engine to dispatch inbound messages to.
func (t *HTTP) SetDispatcher(d Dispatcher) {
	t.dispatcher = d
}

// Handler returns the mux handler peers POST consensus messages to.
func (t *HTTP) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/consensus/message", t.handleMessage)
	return mux
}

func (t *HTTP) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var msg consensus.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, "invalid message body", http.StatusBadRequest)
		return
	}

	if err := t.dispatch(msg); err != nil {
		t.log.Error("dispatch failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (t *HTTP) dispatch(msg consensus.Message) error {
	if t.dispatcher == nil {
		return fmt.Errorf("nettransport: no dispatcher wired")
	}
	switch {
	case msg.Proposal != nil:
		return t.dispatcher.HandleProposal(msg.Proposal)
	case msg.Vote != nil:
		return t.dispatcher.HandleVote(msg.Vote)
	case msg.ViewChange != nil:
		return t.dispatcher.HandleViewChange(msg.ViewChange)
	case msg.NewView != nil:
		return t.dispatcher.HandleNewView(msg.NewView)
	case msg.QC != nil:
		return t.dispatcher.HandleQC(msg.QC.QC)
	default:
		return fmt.Errorf("nettransport: empty message")
	}
}
