package audit

import "testing"

func TestSeverityStringMatchesAuditRsDisplay(t *testing.T) {
	cases := map[Severity]string{
		SeverityInfo:     "INFO",
		SeverityWarning:  "WARN",
		SeverityError:    "ERROR",
		SeverityCritical: "CRITICAL",
	}
	for sev, want := range cases {
		if got := sev.String(); got != want {
			t.Fatalf("Severity(%d).String() = %q, want %q", sev, got, want)
		}
	}
}

func TestCategoryStringMatchesAuditRsDisplay(t *testing.T) {
	cases := map[Category]string{
		CategoryAuthentication:   "AUTHN",
		CategoryAuthorization:    "AUTHZ",
		CategoryResourceAccess:   "ACCESS",
		CategoryDataModification: "DATA",
		CategoryConfiguration:    "CONFIG",
		CategorySecurityPolicy:   "POLICY",
		CategoryKeyManagement:    "KEY",
		CategoryNetwork:          "NETWORK",
		CategorySystem:           "SYSTEM",
	}
	for cat, want := range cases {
		if got := cat.String(); got != want {
			t.Fatalf("Category(%d).String() = %q, want %q", cat, got, want)
		}
	}
}

func TestRecordDoesNotPanicAcrossSeverities(t *testing.T) {
	for _, sev := range []Severity{SeverityInfo, SeverityWarning, SeverityError, SeverityCritical} {
		Record(Event{
			Severity: sev,
			Category: CategoryAuthorization,
			Actor:    "actor-1",
			Action:   "test",
			Outcome:  "allowed",
		})
	}
}
