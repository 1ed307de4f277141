package bootstrap

import (
	"context"
	"testing"

	reputationports "satin/contexts/community/reputation-service/ports"
	reviewports "satin/contexts/community/review-service/ports"
	impactports "satin/contexts/verification/impact-oracle/ports"
	integrityports "satin/contexts/verification/integrity-service/ports"
)

// Each context declares its own clock/generator port; the composition
// root must satisfy all of them. A signature drift in any port shows up
// here as a compile failure.
var (
	_ impactports.Clock     = systemClock{}
	_ integrityports.Clock  = systemClock{}
	_ reviewports.Clock     = systemClock{}
	_ reputationports.Clock = systemClock{}

	_ impactports.IDGenerator    = uuidGenerator{}
	_ reviewports.IDGenerator    = uuidGenerator{}
	_ integrityports.IDGenerator = ctxUUIDGenerator{}
)

func TestGeneratorsMintDistinctIDs(t *testing.T) {
	plain := uuidGenerator{}
	if plain.NewID() == plain.NewID() {
		t.Fatal("uuidGenerator returned the same id twice")
	}

	withCtx := ctxUUIDGenerator{}
	first, err := withCtx.NewID(context.Background())
	if err != nil {
		t.Fatalf("NewID: %v", err)
	}
	second, err := withCtx.NewID(context.Background())
	if err != nil {
		t.Fatalf("NewID: %v", err)
	}
	if first == "" || first == second {
		t.Fatalf("ids not distinct: %q vs %q", first, second)
	}
}

func TestSystemClockIsUTC(t *testing.T) {
	if loc := (systemClock{}).Now().Location(); loc != nil && loc.String() != "UTC" {
		t.Fatalf("clock location = %v, want UTC", loc)
	}
}
