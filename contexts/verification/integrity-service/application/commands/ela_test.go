package commands

import (
	"testing"

	"satin/contexts/verification/integrity-service/domain/entities"
)

func TestErrorLevelWarningPerVerdict(t *testing.T) {
	warning, ok := errorLevelWarning(48.2, entities.ELASuspicious)
	if !ok {
		t.Fatal("suspicious verdict should carry a warning")
	}
	if warning.Code != entities.WarningSuspiciousEdit {
		t.Fatalf("code = %q, want %q", warning.Code, entities.WarningSuspiciousEdit)
	}
	if warning.Amount != 0.30 {
		t.Fatalf("amount = %v, want 0.30", warning.Amount)
	}

	warning, ok = errorLevelWarning(21.7, entities.ELAPossiblyEdited)
	if !ok {
		t.Fatal("possibly-edited verdict should carry a warning")
	}
	if warning.Code != entities.WarningPossiblyEdited {
		t.Fatalf("code = %q, want %q", warning.Code, entities.WarningPossiblyEdited)
	}
	if warning.Amount != 0.10 {
		t.Fatalf("amount = %v, want 0.10", warning.Amount)
	}

	for _, verdict := range []entities.ELAVerdict{entities.ELAAuthentic, entities.ELAUnknown} {
		if _, ok := errorLevelWarning(3.1, verdict); ok {
			t.Fatalf("verdict %q should carry no warning", verdict)
		}
	}
}

func TestErrorLevelWarningAccumulates(t *testing.T) {
	finding := entities.Finding{Penalty: 0.15}
	warning, ok := errorLevelWarning(40, entities.ELASuspicious)
	if !ok {
		t.Fatal("expected a warning")
	}
	finding.Penalty += warning.Amount
	finding.Warnings = append(finding.Warnings, warning)

	if diff := finding.Penalty - 0.45; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("penalty = %v, want 0.45", finding.Penalty)
	}
	if len(finding.Warnings) != 1 || finding.Warnings[0].Code != entities.WarningSuspiciousEdit {
		t.Fatalf("warnings = %+v, want a single suspicious-edit record", finding.Warnings)
	}
}
