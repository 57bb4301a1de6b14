// Copyright 2025 Certen Protocol
//
// Sybil / Rate Guard (C7): per-identity tiered rate limits, stake gates, and
// behavioral flags. New component — no teacher equivalent exists, so this
// follows the teacher's general defensive-config idiom of a tunables struct
// plus a Default*() constructor (see pkg/verification/unified_verifier.go,
// pkg/attestation/strategy/ed25519_strategy.go) and its sync.RWMutex-guarded
// map-of-state shape (see pkg/attestation/service.go).

package rateguard

import (
	"sync"
	"time"
)

// Tier is an actor's verification level, gating both rate limits and spawn
// eligibility.
type Tier int

const (
	Tier0Unverified Tier = iota
	Tier1Email
	Tier2Phone
	Tier3KYC
)

// Verdict is the outcome of a Check or CheckSpawn call.
type Verdict string

const (
	VerdictOk               Verdict = "ok"
	VerdictRateLimit        Verdict = "rate_limit"
	VerdictCoolOff          Verdict = "cool_off"
	VerdictTierTooLow       Verdict = "tier_too_low"
	VerdictInsufficientStake Verdict = "insufficient_stake"
	VerdictClusterFull      Verdict = "cluster_full"
)

// Config bundles the guard's tunables, with the teacher's *Config +
// Default*Config() shape.
type Config struct {
	// HourlyLimit is the generic-operation sliding-window cap per tier.
	HourlyLimit [4]int
	// DailySpawnLimit is the spawn-operation sliding-window cap per tier.
	DailySpawnLimit [4]int
	// MinSpawnStake is the minimum stake a parent must hold to spawn a child.
	MinSpawnStake float64
	// MaxClusterSize caps how many descendants one root actor may have.
	MaxClusterSize int
	// BehavioralFlagRate is the action-per-second threshold above which an
	// actor is auto-flagged.
	BehavioralFlagRate float64
	// CoolOff is how long a flagged actor is blocked from Check/CheckSpawn.
	CoolOff time.Duration
}

// DefaultConfig matches spec.md 4.7's stated defaults.
func DefaultConfig() *Config {
	return &Config{
		HourlyLimit:        [4]int{10, 100, 1000, 10000},
		DailySpawnLimit:    [4]int{0, 1, 10, 100},
		MinSpawnStake:      1.0,
		MaxClusterSize:     1000,
		BehavioralFlagRate: 5.0,
		CoolOff:            15 * time.Minute,
	}
}

type actorState struct {
	mu sync.Mutex

	tier Tier

	genericWindow []time.Time
	spawnWindow   []time.Time

	flaggedUntil time.Time
	flagReason   string
}

// Guard is the Sybil/Rate Guard (C7).
type Guard struct {
	cfg *Config

	mu      sync.RWMutex
	actors  map[string]*actorState
	cluster map[string]int // root actor id -> descendant count
}

// New creates a rate guard. cfg may be nil to use DefaultConfig.
func New(cfg *Config) *Guard {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Guard{cfg: cfg, actors: make(map[string]*actorState), cluster: make(map[string]int)}
}

// Register records actor's tier, creating its state on first use.
func (g *Guard) Register(actor string, tier Tier) {
	st := g.stateFor(actor)
	st.mu.Lock()
	st.tier = tier
	st.mu.Unlock()
}

func (g *Guard) stateFor(actor string) *actorState {
	g.mu.RLock()
	st, ok := g.actors[actor]
	g.mu.RUnlock()
	if ok {
		return st
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if st, ok := g.actors[actor]; ok {
		return st
	}
	st = &actorState{}
	g.actors[actor] = st
	return st
}

// Check enforces the per-tier hourly operation limit and any active
// cool-off, recording op as having occurred when it passes.
func (g *Guard) Check(actor string, now time.Time) Verdict {
	st := g.stateFor(actor)
	st.mu.Lock()
	defer st.mu.Unlock()

	if now.Before(st.flaggedUntil) {
		return VerdictCoolOff
	}

	st.genericWindow = slideWindow(st.genericWindow, now, time.Hour)
	limit := g.cfg.HourlyLimit[st.tier]
	if len(st.genericWindow) >= limit {
		return VerdictRateLimit
	}
	st.genericWindow = append(st.genericWindow, now)

	if rate := recentRate(st.genericWindow, now, time.Second); rate > g.cfg.BehavioralFlagRate {
		st.flaggedUntil = now.Add(g.cfg.CoolOff)
		st.flagReason = "behavioral_rate_exceeded"
		return VerdictCoolOff
	}

	return VerdictOk
}

// CheckSpawn enforces tier, daily spawn-rate, stake, and cluster-size gates
// for a parent attempting to spawn a child. A tier whose spawn allowance is
// zero is rejected as tier-too-low before the rate limiter ever sees it,
// distinct from exhausting a nonzero allowance.
func (g *Guard) CheckSpawn(parent string, parentStake float64, now time.Time) Verdict {
	st := g.stateFor(parent)
	st.mu.Lock()
	defer st.mu.Unlock()

	if now.Before(st.flaggedUntil) {
		return VerdictCoolOff
	}

	limit := g.cfg.DailySpawnLimit[st.tier]
	if limit == 0 {
		return VerdictTierTooLow
	}

	st.spawnWindow = slideWindow(st.spawnWindow, now, 24*time.Hour)
	if len(st.spawnWindow) >= limit {
		return VerdictRateLimit
	}

	if parentStake < g.cfg.MinSpawnStake {
		return VerdictInsufficientStake
	}

	g.mu.RLock()
	size := g.cluster[parent]
	g.mu.RUnlock()
	if size >= g.cfg.MaxClusterSize {
		return VerdictClusterFull
	}

	st.spawnWindow = append(st.spawnWindow, now)
	g.mu.Lock()
	g.cluster[parent]++
	g.mu.Unlock()

	return VerdictOk
}

// Flag starts a cool-off window for actor with the given reason,
// observable by subsequent Check/CheckSpawn calls.
func (g *Guard) Flag(actor, reason string, now time.Time) {
	st := g.stateFor(actor)
	st.mu.Lock()
	st.flaggedUntil = now.Add(g.cfg.CoolOff)
	st.flagReason = reason
	st.mu.Unlock()
}

// FlagReason reports why actor is currently in cool-off, if it is.
func (g *Guard) FlagReason(actor string, now time.Time) (string, bool) {
	st := g.stateFor(actor)
	st.mu.Lock()
	defer st.mu.Unlock()
	if now.Before(st.flaggedUntil) {
		return st.flagReason, true
	}
	return "", false
}

// slideWindow drops entries older than window relative to now.
func slideWindow(entries []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	i := 0
	for i < len(entries) && entries[i].Before(cutoff) {
		i++
	}
	if i == 0 {
		return entries
	}
	return append([]time.Time(nil), entries[i:]...)
}

// recentRate returns the count of entries within window of now, divided by
// window (in seconds) — used to detect a burst rate independent of the
// longer-lived hourly window.
func recentRate(entries []time.Time, now time.Time, window time.Duration) float64 {
	cutoff := now.Add(-window)
	count := 0
	for i := len(entries) - 1; i >= 0 && entries[i].After(cutoff); i-- {
		count++
	}
	return float64(count) / window.Seconds()
}
