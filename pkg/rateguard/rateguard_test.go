package rateguard

import (
	"testing"
	"time"
)

func TestCheckEnforcesHourlyLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HourlyLimit[Tier0Unverified] = 2
	cfg.BehavioralFlagRate = 1000 // disable the burst detector for this test
	g := New(cfg)
	g.Register("actor-1", Tier0Unverified)

	now := time.Unix(1_700_000_000, 0)
	if v := g.Check("actor-1", now); v != VerdictOk {
		t.Fatalf("1st check: want Ok, got %s", v)
	}
	if v := g.Check("actor-1", now.Add(time.Second)); v != VerdictOk {
		t.Fatalf("2nd check: want Ok, got %s", v)
	}
	if v := g.Check("actor-1", now.Add(2*time.Second)); v != VerdictRateLimit {
		t.Fatalf("3rd check: want RateLimit, got %s", v)
	}
}

func TestCheckWindowSlidesOut(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HourlyLimit[Tier0Unverified] = 1
	cfg.BehavioralFlagRate = 1000
	g := New(cfg)
	g.Register("actor-1", Tier0Unverified)

	now := time.Unix(1_700_000_000, 0)
	if v := g.Check("actor-1", now); v != VerdictOk {
		t.Fatalf("want Ok, got %s", v)
	}
	if v := g.Check("actor-1", now.Add(time.Minute)); v != VerdictRateLimit {
		t.Fatalf("want RateLimit within the hour, got %s", v)
	}
	if v := g.Check("actor-1", now.Add(61*time.Minute)); v != VerdictOk {
		t.Fatalf("want Ok after the window slides out, got %s", v)
	}
}

func TestCheckFlagsBehavioralBurst(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HourlyLimit[Tier0Unverified] = 1000
	cfg.BehavioralFlagRate = 5
	g := New(cfg)
	g.Register("actor-1", Tier0Unverified)

	now := time.Unix(1_700_000_000, 0)
	var last Verdict
	for i := 0; i < 10; i++ {
		last = g.Check("actor-1", now.Add(time.Duration(i)*10*time.Millisecond))
	}
	if last != VerdictCoolOff {
		t.Fatalf("expected a burst of 10 actions in 100ms to trigger cool-off, got %s", last)
	}
}

func TestCheckSpawnEnforcesStakeAndTierAndCluster(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinSpawnStake = 10
	cfg.DailySpawnLimit[Tier1Email] = 5
	cfg.MaxClusterSize = 1
	g := New(cfg)
	g.Register("parent", Tier1Email)

	now := time.Unix(1_700_000_000, 0)
	if v := g.CheckSpawn("parent", 5, now); v != VerdictInsufficientStake {
		t.Fatalf("want InsufficientStake, got %s", v)
	}
	if v := g.CheckSpawn("parent", 10, now); v != VerdictOk {
		t.Fatalf("want Ok, got %s", v)
	}
	if v := g.CheckSpawn("parent", 10, now.Add(time.Minute)); v != VerdictClusterFull {
		t.Fatalf("want ClusterFull after MaxClusterSize is reached, got %s", v)
	}
}

func TestCheckSpawnRejectsTierWithZeroSpawnAllowance(t *testing.T) {
	g := New(nil) // DefaultConfig gives Tier0 a zero spawn allowance
	g.Register("parent", Tier0Unverified)

	now := time.Unix(1_700_000_000, 0)
	if v := g.CheckSpawn("parent", 1_000_000, now); v != VerdictTierTooLow {
		t.Fatalf("want TierTooLow for a zero-allowance tier regardless of stake, got %s", v)
	}
}

func TestFlagStartsCoolOff(t *testing.T) {
	g := New(nil)
	g.Register("actor-1", Tier2Phone)
	now := time.Unix(1_700_000_000, 0)

	g.Flag("actor-1", "manual_review", now)
	if v := g.Check("actor-1", now.Add(time.Second)); v != VerdictCoolOff {
		t.Fatalf("want CoolOff immediately after Flag, got %s", v)
	}
	reason, flagged := g.FlagReason("actor-1", now.Add(time.Second))
	if !flagged || reason != "manual_review" {
		t.Fatalf("expected flag reason manual_review, got %q (flagged=%v)", reason, flagged)
	}

	after := now.Add(g.cfg.CoolOff + time.Second)
	if v := g.Check("actor-1", after); v != VerdictOk {
		t.Fatalf("want Ok after the cool-off window elapses, got %s", v)
	}
}
