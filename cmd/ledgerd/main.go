// Copyright 2025 Certen Protocol
//
// ledgerd is the verified action ledger's validator process: it wires the
// consensus engine, verification coordinator, oracle session manager, rate
// guard, and DNA book into one running node, exposes an HTTP API and a
// Prometheus /metrics endpoint, and shuts down gracefully on SIGINT/SIGTERM.
// Structure follows the teacher's main.go (flag parsing, phased
// initialization with fatal-vs-degraded handling, signal-driven shutdown),
// generalized from CometBFT ABCI wiring to the HotStuff-2 engine built here.

package main

import (
	"context"
	"crypto/ed25519"
	"crypto/tls"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	dbm "github.com/cometbft/cometbft-db"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/certen/verified-ledger/pkg/audit"
	"github.com/certen/verified-ledger/pkg/config"
	"github.com/certen/verified-ledger/pkg/consensus"
	"github.com/certen/verified-ledger/pkg/dna"
	"github.com/certen/verified-ledger/pkg/eventlog"
	"github.com/certen/verified-ledger/pkg/kvdb"
	"github.com/certen/verified-ledger/pkg/ledgererr"
	"github.com/certen/verified-ledger/pkg/logging"
	"github.com/certen/verified-ledger/pkg/merkleacc"
	"github.com/certen/verified-ledger/pkg/metrics"
	"github.com/certen/verified-ledger/pkg/nettransport"
	"github.com/certen/verified-ledger/pkg/oracle"
	"github.com/certen/verified-ledger/pkg/rateguard"
	"github.com/certen/verified-ledger/pkg/threshold"
	"github.com/certen/verified-ledger/pkg/verification"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to an optional YAML config file")
		ownID      = flag.String("own-id", "", "Validator ID (overrides OWN_ID env var)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *ownID != "" {
		cfg.OwnID = *ownID
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logging.Init(cfg.LogLevel)
	log := logging.Component("ledgerd")
	log.Info("starting ledgerd", "own_id", cfg.OwnID, "listen_addr", cfg.ListenAddr)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	kv, closeKV, err := openKV(cfg)
	if err != nil {
		log.Error("database unavailable, continuing without durable persistence", "error", err)
		kv, closeKV = kvdb.NewAdapter(nil), func() error { return nil }
	}

	events := eventlog.New(kv)
	tree := merkleacc.New()
	dnaBook := dna.New(nil)
	guard := rateguard.New(nil)
	dnaBook.SetSpawnGuard(guard)

	validatorIDs := cfg.Validators
	if len(validatorIDs) == 0 {
		validatorIDs = []string{cfg.OwnID}
	}
	participantIDs := make([]threshold.ParticipantID, len(validatorIDs))
	for i := range validatorIDs {
		participantIDs[i] = threshold.ParticipantID(i + 1)
	}
	shares, pub, err := threshold.TrustedDealerKeygen(cfg.Threshold, participantIDs)
	if err != nil {
		log.Error("threshold keygen failed", "error", err)
		os.Exit(1)
	}
	_ = shares // per-validator oracle shares are distributed out of band in production; the trusted dealer here seeds a single-process deployment

	oracles := oracle.NewManager()
	for i, id := range validatorIDs {
		oracles.Join(id, participantIDs[i])
	}
	m.OracleJoinedTotal.Set(float64(len(oracles.JoinedSnapshot())))
	for _, id := range validatorIDs {
		guard.Register(id, rateguard.Tier2Phone)
	}

	ownPub, ownPriv, err := ed25519.GenerateKey(nil)
	if err != nil {
		log.Error("ed25519 keygen failed", "error", err)
		os.Exit(1)
	}
	pubKeys := map[string]ed25519.PublicKey{cfg.OwnID: ownPub}
	signer := consensus.NewEd25519Signer(ownPriv, pubKeys)

	var coordinator *verification.Coordinator
	engineCfg := consensus.Config{
		ID:          cfg.OwnID,
		Validators:  validatorIDs,
		Threshold:   cfg.Threshold,
		MaxBlockTxs: cfg.MaxBlockTxs,
		ViewTimeout: cfg.ViewTimeout,
	}
	onCommit := func(block *consensus.Block, qc *consensus.QC) {
		m.ConsensusBlocksCommitted.Inc()
		if coordinator != nil {
			coordinator.OnBlockCommitted(block, qc)
		}
	}

	peerScheme := "http://"
	var serverTLSConfig *tls.Config
	if cfg.TLSCertFile != "" {
		tlsCfg, err := nettransport.LoadTLSConfig(nettransport.MTLSConfig{
			CertFile:     cfg.TLSCertFile,
			KeyFile:      cfg.TLSKeyFile,
			ClientCAFile: cfg.TLSClientCAFile,
			RootCAFile:   cfg.TLSRootCAFile,
		})
		if err != nil {
			log.Error("mTLS config invalid, falling back to plain HTTP transport", "error", err)
		} else {
			serverTLSConfig = tlsCfg
			peerScheme = "https://"
		}
	}

	transport := nettransport.New(cfg.OwnID, map[string]string{cfg.OwnID: peerScheme + cfg.ListenAddr}, nil)
	if serverTLSConfig != nil {
		transport.WithMTLS(serverTLSConfig)
	}
	engine := consensus.New(engineCfg, consensus.RealClock{}, transport, signer, onCommit)
	transport.SetDispatcher(engine)

	verifCfg := &verification.Config{
		Threshold:           cfg.Threshold,
		Participants:        cfg.Participants,
		VerificationTimeout: cfg.VerificationTimeout,
	}
	coordinator = verification.New(verifCfg, engine.SubmitRequest, oracles, tree, events, pub, nil)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", handleHealth(engine))
	mux.HandleFunc("/submit", handleSubmit(coordinator, guard, m))
	mux.HandleFunc("/status/", handleStatus(coordinator))
	mux.HandleFunc("/dna/account/", handleDNAAccount(dnaBook))
	mux.Handle("/consensus/message", transport.Handler())

	srv := &http.Server{
		Addr:      cfg.ListenAddr,
		Handler:   mux,
		TLSConfig: serverTLSConfig,
	}

	go func() {
		log.Info("http server listening", "addr", cfg.ListenAddr, "tls", serverTLSConfig != nil)
		var err error
		if serverTLSConfig != nil {
			err = srv.ListenAndServeTLS("", "") // certificates come from TLSConfig
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Error("http server exited", "error", err)
		}
	}()

	engine.Start()
	log.Info("consensus engine started", "view", engine.View())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutdown signal received, draining")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown error", "error", err)
	}
	if err := closeKV(); err != nil {
		log.Error("database close error", "error", err)
	}
	log.Info("ledgerd stopped")
}

// openKV picks the durable backend: a Postgres kvdb.KV when EventStoreConn
// names a DSN, falling back to the embedded GoLevelDB under DataDir, and
// finally an in-memory no-op store if neither is configured.
func openKV(cfg *config.Config) (kvdb.KV, func() error, error) {
	if cfg.EventStoreConn != "" {
		pg, err := kvdb.NewPostgres(cfg.EventStoreConn)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres event store: %w", err)
		}
		return pg, pg.Close, nil
	}

	if cfg.DataDir == "" {
		return kvdb.NewAdapter(nil), func() error { return nil }, nil
	}
	db, err := dbm.NewGoLevelDB("ledgerd", cfg.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open goleveldb at %s: %w", cfg.DataDir, err)
	}
	return kvdb.NewAdapter(db), db.Close, nil
}

func handleHealth(engine *consensus.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":           "ok",
			"view":             engine.View(),
			"committed_height": engine.CommittedHeight(),
		})
	}
}

type submitRequest struct {
	ActorID       string `json:"actor_id"`
	ClientID      string `json:"client_id"`
	ActionType    string `json:"action_type"`
	ComputeAmount string `json:"compute_amount"`
	Synchronous   bool   `json:"synchronous"`
}

func handleSubmit(coordinator *verification.Coordinator, guard *rateguard.Guard, m *metrics.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method != http.MethodPost {
			writeJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.ActorID == "" || req.ActionType == "" {
			writeJSONError(w, "actor_id and action_type are required", http.StatusBadRequest)
			return
		}

		verdict := guard.Check(req.ActorID, time.Now())
		m.RateGuardVerdicts.WithLabelValues(string(verdict)).Inc()
		if verdict != rateguard.VerdictOk {
			audit.Record(audit.Event{
				Severity: audit.SeverityWarning,
				Category: audit.CategoryAuthorization,
				Actor:    req.ActorID,
				Action:   "submit:" + req.ActionType,
				Outcome:  "denied",
				Reason:   string(verdict),
			})
			writeJSONError(w, fmt.Sprintf("rate guard verdict: %s", verdict), http.StatusTooManyRequests)
			return
		}

		fp := verification.RequestFingerprint{
			ActorID:       req.ActorID,
			ClientID:      req.ClientID,
			ActionType:    req.ActionType,
			ComputeAmount: req.ComputeAmount,
		}
		status, err := coordinator.Submit(fp, req.Synchronous, 5*time.Second)
		if err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Synchronous {
			m.VerificationOutcomes.WithLabelValues(string(status.State)).Inc()
			m.VerificationQuorumLatency.Observe(float64(status.ElapsedMs) / 1000)
		}
		json.NewEncoder(w).Encode(status)
	}
}

func handleStatus(coordinator *verification.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		requestID := r.URL.Path[len("/status/"):]
		if requestID == "" {
			writeJSONError(w, "request id required", http.StatusBadRequest)
			return
		}
		status, err := coordinator.Status(requestID)
		if err != nil {
			var ledgerErr *ledgererr.Error
			if errors.As(err, &ledgerErr) && ledgerErr.Kind == ledgererr.KindInput {
				writeJSONError(w, err.Error(), http.StatusNotFound)
				return
			}
			writeJSONError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(status)
	}
}

func handleDNAAccount(book *dna.Book) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		id := r.URL.Path[len("/dna/account/"):]
		if id == "" {
			writeJSONError(w, "account id required", http.StatusBadRequest)
			return
		}
		account, ok := book.Account(id)
		if !ok {
			writeJSONError(w, "not found", http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(account)
	}
}

func writeJSONError(w http.ResponseWriter, message string, status int) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
