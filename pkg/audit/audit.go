// Copyright 2025 Certen Protocol
//
// Security audit trail, grounded on the original implementation's
// security/audit.rs AuditEvent/AuditSeverity/AuditCategory shape. Where that
// code keeps an in-process ring buffer behind a RwLock and emits through
// tracing, this logs every event as a structured record through the
// process-wide pkg/logging logger (log/slog) the teacher's own services use
// for everything else — a second sink would just be another place for audit
// and application logs to drift apart.
package audit

import (
	"log/slog"

	"github.com/certen/verified-ledger/pkg/logging"
)

// Severity mirrors audit.rs's AuditSeverity: Info, Warning, Error, Critical.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "WARN"
	case SeverityError:
		return "ERROR"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "INFO"
	}
}

// Category mirrors audit.rs's AuditCategory.
type Category int

const (
	CategoryAuthentication Category = iota
	CategoryAuthorization
	CategoryResourceAccess
	CategoryDataModification
	CategoryConfiguration
	CategorySecurityPolicy
	CategoryKeyManagement
	CategoryNetwork
	CategorySystem
)

func (c Category) String() string {
	switch c {
	case CategoryAuthentication:
		return "AUTHN"
	case CategoryAuthorization:
		return "AUTHZ"
	case CategoryResourceAccess:
		return "ACCESS"
	case CategoryDataModification:
		return "DATA"
	case CategoryConfiguration:
		return "CONFIG"
	case CategorySecurityPolicy:
		return "POLICY"
	case CategoryKeyManagement:
		return "KEY"
	case CategoryNetwork:
		return "NETWORK"
	default:
		return "SYSTEM"
	}
}

// Event is one audit record. Timestamp is left to the caller (via
// pkg/logging's slog.Handler, which stamps it) rather than captured here, the
// same deliberate choice pkg/merkleacc and the rest of this module make to
// keep non-test code clock-injectable.
type Event struct {
	Severity Severity
	Category Category
	Actor    string // who/what performed the action
	Action   string // what was attempted, e.g. "spawn", "submit", "grant"
	Outcome  string // "allowed", "denied", "error"
	Reason   string // denial/error detail, empty on a clean allow
}

var log = logging.Component("audit")

// Record emits one audit event. Severity maps to the slog level the teacher's
// handlers already filter and index on, so a Critical audit event survives
// whatever level the operator configured for ordinary application logs.
func Record(e Event) {
	attrs := []any{
		slog.String("category", e.Category.String()),
		slog.String("actor", e.Actor),
		slog.String("action", e.Action),
		slog.String("outcome", e.Outcome),
	}
	if e.Reason != "" {
		attrs = append(attrs, slog.String("reason", e.Reason))
	}

	switch e.Severity {
	case SeverityCritical, SeverityError:
		log.Error("audit", attrs...)
	case SeverityWarning:
		log.Warn("audit", attrs...)
	default:
		log.Info("audit", attrs...)
	}
}
