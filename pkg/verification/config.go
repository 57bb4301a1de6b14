// Copyright 2025 Certen Protocol
//
// Config follows the teacher's *Config + Default*Config() shape (see
// pkg/verification/unified_verifier.go's UnifiedVerifierConfig).

package verification

import "time"

// Config bundles the coordinator's fixed parameters.
type Config struct {
	Threshold           int           `json:"threshold"`
	Participants        int           `json:"participants"`
	VerificationTimeout time.Duration `json:"verification_timeout"`
}

// DefaultConfig matches spec.md 5/6's defaults: T=3, N=5, 2000ms timeout.
func DefaultConfig() *Config {
	return &Config{
		Threshold:           3,
		Participants:        5,
		VerificationTimeout: 2000 * time.Millisecond,
	}
}
