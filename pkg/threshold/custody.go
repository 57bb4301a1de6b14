// Copyright 2025 Certen Protocol
//
// Key custody abstraction for FROST key shares, grounded on the original
// implementation's security/hsm.rs: HsmConfig.provider selects among
// Pkcs11/AwsCloudHsm/GoogleCloudHsm/AzureKeyVault/VaultTransit/Software, and
// HsmClient.sign is the single operation every caller needs regardless of
// provider. No cloud HSM SDK is present anywhere in the example pack, so this
// module ships the Software provider only — hsm.rs's own development/testing
// fallback — behind the same KeyCustody seam a real HSM-backed implementation
// would slot into later without touching FROST signing call sites.
package threshold

import (
	"fmt"

	"filippo.io/edwards25519"
)

// CustodyProvider mirrors hsm.rs's HsmProvider discriminant. Only
// CustodySoftware has a Go implementation; the rest are named so
// configuration and logging can describe an intended deployment target even
// before a provider client exists.
type CustodyProvider int

const (
	CustodySoftware CustodyProvider = iota
	CustodyPKCS11
	CustodyAWSCloudHSM
	CustodyGoogleCloudHSM
	CustodyAzureKeyVault
	CustodyVaultTransit
)

func (p CustodyProvider) String() string {
	switch p {
	case CustodyPKCS11:
		return "pkcs11"
	case CustodyAWSCloudHSM:
		return "aws_cloudhsm"
	case CustodyGoogleCloudHSM:
		return "google_cloud_hsm"
	case CustodyAzureKeyVault:
		return "azure_key_vault"
	case CustodyVaultTransit:
		return "vault_transit"
	default:
		return "software"
	}
}

// KeyCustody signs round-2 FROST shares on behalf of a participant without
// the caller needing to know whether the secret share lives in process
// memory or behind a remote HSM API.
type KeyCustody interface {
	Provider() CustodyProvider
	// Sign produces this participant's round-2 signature share the same way
	// Round2Sign does, but through whatever custody backend holds the secret.
	Sign(nonce *SigningNonce, msg []byte, commitments []*SigningCommitment) (*edwards25519.Scalar, error)
}

// SoftwareCustody keeps a participant's KeyShare in process memory, matching
// hsm.rs's Software provider (key_store_path/encryption_key in the original;
// here the share simply lives on the struct, since this module has no disk
// key store of its own to encrypt).
type SoftwareCustody struct {
	share *KeyShare
}

// NewSoftwareCustody wraps share for signing through the KeyCustody seam.
func NewSoftwareCustody(share *KeyShare) *SoftwareCustody {
	return &SoftwareCustody{share: share}
}

func (c *SoftwareCustody) Provider() CustodyProvider { return CustodySoftware }

func (c *SoftwareCustody) Sign(nonce *SigningNonce, msg []byte, commitments []*SigningCommitment) (*edwards25519.Scalar, error) {
	z, err := Round2Sign(c.share, nonce, msg, commitments)
	if err != nil {
		return nil, fmt.Errorf("threshold: software custody sign: %w", err)
	}
	return z, nil
}

// UnsupportedCustodyError is returned by a provider constructor for a backend
// hsm.rs names but this module does not implement, so callers get a named
// error instead of a silently-substituted software key store.
type UnsupportedCustodyError struct {
	Provider CustodyProvider
}

func (e *UnsupportedCustodyError) Error() string {
	return fmt.Sprintf("threshold: custody provider %s has no Go implementation in this deployment", e.Provider)
}

// NewCustody selects a KeyCustody by provider. Only CustodySoftware is wired;
// every other provider returns UnsupportedCustodyError until a real client
// for that backend is added.
func NewCustody(provider CustodyProvider, share *KeyShare) (KeyCustody, error) {
	if provider == CustodySoftware {
		return NewSoftwareCustody(share), nil
	}
	return nil, &UnsupportedCustodyError{Provider: provider}
}
