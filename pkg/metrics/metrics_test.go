package metrics

import "testing"

func TestNewRegistersAllInstrumentsWithoutPanic(t *testing.T) {
	m := NewUnregistered()
	if m.ConsensusViewChanges == nil || m.VerificationOutcomes == nil || m.DNAClaimsDenied == nil {
		t.Fatal("expected all instruments to be initialized")
	}

	m.ConsensusViewChanges.Inc()
	m.VerificationOutcomes.WithLabelValues("quorum").Inc()
	m.DNAClaimsDenied.WithLabelValues("retry_budget_exhausted").Inc()
}
