package commands_test

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	impactoracle "satin/contexts/verification/impact-oracle"
	"satin/contexts/verification/impact-oracle/adapters/memory"
	"satin/contexts/verification/impact-oracle/application/commands"
	"satin/contexts/verification/impact-oracle/domain/entities"
	domainerrors "satin/contexts/verification/impact-oracle/domain/errors"
	"satin/contexts/verification/impact-oracle/ports"
	integrityservice "satin/contexts/verification/integrity-service"
	integrityentities "satin/contexts/verification/integrity-service/domain/entities"
	plausibilityservice "satin/contexts/verification/plausibility-service"
	"satin/internal/evm"
)

const (
	testPrivateKey   = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	testVolunteer    = "0x2c7536e3605d9c16a7a3d7b1898e529396a65c23"
	testEvidenceHash = "a3f2c8d91e4b7f6a5c0d8e2b1f9a4c7d6e5b8a3f2c1d0e9b8a7f6c5d4e3b2a1f"
)

type reviewStub struct {
	cases []ports.OpenReviewCase
}

func (r *reviewStub) OpenCase(_ context.Context, open ports.OpenReviewCase) error {
	r.cases = append(r.cases, open)
	return nil
}

type testOracle struct {
	module    *impactoracle.Module
	integrity integrityservice.Module
	store     *memory.Store
	review    *reviewStub
	signer    *evm.Signer
}

func newTestOracle(t *testing.T) *testOracle {
	t.Helper()
	signer, err := evm.NewSigner(testPrivateKey)
	if err != nil {
		t.Fatalf("build signer: %v", err)
	}

	integrity := integrityservice.NewInMemoryModule(nil)
	plausibility := plausibilityservice.NewInMemoryModule(nil)
	store := memory.NewStore()
	store.NowFunc = func() time.Time {
		return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	}
	review := &reviewStub{}

	module := impactoracle.NewModule(impactoracle.Dependencies{
		Integrity:    &integrity.Screen,
		Plausibility: plausibility.Validate,
		Deduction:    plausibility.Deduce,
		Store:        store,
		Review:       review,
		Signer:       signer,
		Clock:        store,
		IDs:          store,
	})
	return &testOracle{module: module, integrity: integrity, store: store, review: review, signer: signer}
}

func foodSubmission(evidenceHash string) entities.Submission {
	return entities.Submission{
		VolunteerAddress: testVolunteer,
		EvidenceSHA256:   evidenceHash,
		IPFSMediaCID:     "QmEvidenceCID",
		Description:      "distribusi makanan dan sembako untuk warga kampung",
		GPS:              entities.GPSCoordinate{Latitude: 52.52, Longitude: 13.405},
		CaptureSource:    string(integrityentities.SourceLiveCapture),
	}
}

func TestEvaluateHonestSubmissionVerified(t *testing.T) {
	oracle := newTestOracle(t)
	eval, err := oracle.module.Evaluate.Evaluate(context.Background(), commands.EvaluateCommand{
		Submission: foodSubmission(testEvidenceHash),
		Input: entities.DeclaredParameters{
			ActionType:   entities.ActionFoodDistribution,
			Urgency:      entities.UrgencyHigh,
			EffortHours:  8,
			PeopleHelped: 150,
		},
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if eval.Status != entities.StatusVerified {
		t.Fatalf("status = %s, want VERIFIED (%s)", eval.Status, eval.RejectionReason)
	}
	if eval.TotalPenalty != 0 {
		t.Fatalf("penalty = %v, want 0", eval.TotalPenalty)
	}
	if eval.ReviewOpened || len(oracle.review.cases) != 0 {
		t.Fatal("clean submission routed to review")
	}

	att := eval.Attestation
	if att == nil {
		t.Fatal("verified evaluation carries no attestation")
	}
	if att.ImpactScore != 100 || att.ImpactScoreScaled != 10000 {
		t.Fatalf("score = %v scaled %d, want 100 / 10000", att.ImpactScore, att.ImpactScoreScaled)
	}
	if att.TokenReward != 50 {
		t.Fatalf("reward = %v, want 50", att.TokenReward)
	}
	if att.TokenRewardWei.String() != "50000000000000000000" {
		t.Fatalf("reward wei = %s, want 50e18", att.TokenRewardWei)
	}
	if att.BeneficiaryAddress != testVolunteer {
		t.Fatalf("beneficiary = %s, want volunteer fallback", att.BeneficiaryAddress)
	}
	if len(att.Nonce) != 32 || strings.Contains(att.Nonce, "-") {
		t.Fatalf("nonce %q is not a dashless uuid", att.Nonce)
	}
	if !att.ExpiresAt.Equal(att.IssuedAt.Add(time.Hour)) {
		t.Fatalf("expiry %v not one hour after issue %v", att.ExpiresAt, att.IssuedAt)
	}

	stored, err := oracle.store.GetEvaluation(context.Background(), eval.EventID)
	if err != nil {
		t.Fatalf("get evaluation: %v", err)
	}
	if stored.Status != entities.StatusVerified {
		t.Fatalf("stored status = %s", stored.Status)
	}
}

func TestEvaluateSignatureRecoversToOracle(t *testing.T) {
	oracle := newTestOracle(t)
	eval, err := oracle.module.Evaluate.Evaluate(context.Background(), commands.EvaluateCommand{
		Submission: foodSubmission(testEvidenceHash),
		Input: entities.DeclaredParameters{
			ActionType:   entities.ActionFoodDistribution,
			Urgency:      entities.UrgencyHigh,
			EffortHours:  8,
			PeopleHelped: 150,
		},
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	att := eval.Attestation

	eventID, err := parsePacked(att.EventID)
	if err != nil {
		t.Fatalf("pack event id: %v", err)
	}
	volunteer, _ := evm.ParseAddress(att.VolunteerAddress)
	beneficiary, _ := evm.ParseAddress(att.BeneficiaryAddress)
	proofHash, _ := evm.ParseHash32(att.ZKProofHash)
	eventHash, _ := evm.ParseHash32(att.EventHash)

	digest, err := evm.AttestationTuple{
		EventID:     eventID,
		Volunteer:   volunteer,
		Beneficiary: beneficiary,
		ScoreScaled: big.NewInt(att.ImpactScoreScaled),
		RewardWei:   att.TokenRewardWei,
		ProofHash:   proofHash,
		EventHash:   eventHash,
		Nonce:       att.Nonce,
		ExpiresAt:   big.NewInt(att.ExpiresAt.Unix()),
	}.SigningHash()
	if err != nil {
		t.Fatalf("rebuild signing hash: %v", err)
	}

	r, _ := evm.ParseHash32(att.Signature.R)
	s, _ := evm.ParseHash32(att.Signature.S)
	recovered, err := evm.RecoverAddress(digest, evm.Signature{V: att.Signature.V, R: r, S: s})
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if recovered != oracle.signer.Address() {
		t.Fatalf("recovered %x, want oracle %x", recovered, oracle.signer.Address())
	}
}

func parsePacked(eventID string) ([32]byte, error) {
	hex := strings.ReplaceAll(eventID, "-", "")
	return evm.ParseHash32(strings.Repeat("0", 64-len(hex)) + hex)
}

func TestEvaluateHardBlockOpensExclusiveReview(t *testing.T) {
	oracle := newTestOracle(t)
	sub := foodSubmission(testEvidenceHash)
	sub.Description = "nenek menyebrang jalan saat banjir besar di kampung"

	eval, err := oracle.module.Evaluate.Evaluate(context.Background(), commands.EvaluateCommand{
		Submission: sub,
		Input: entities.DeclaredParameters{
			ActionType:   entities.ActionDisasterRelief,
			Urgency:      entities.UrgencyCritical,
			EffortHours:  1,
			PeopleHelped: 5000,
		},
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if eval.Status != entities.StatusRejected {
		t.Fatalf("status = %s, want REJECTED", eval.Status)
	}
	if eval.Attestation != nil {
		t.Fatal("rejected evaluation carries an attestation")
	}
	if !eval.ReviewOpened || len(oracle.review.cases) != 1 {
		t.Fatal("hard block did not open a review case")
	}
	if !oracle.review.cases[0].ExclusiveAudit {
		t.Fatal("hard-block review case is not exclusive-audit")
	}
}

func TestEvaluatePenaltyGateVerifiedWithZeroReward(t *testing.T) {
	oracle := newTestOracle(t)
	sub := foodSubmission(testEvidenceHash)
	sub.Description = "bagi nasi dan sembako untuk warga desa setiap pagi"

	// 0.30 (critical without context) + 0.1375 (effort overshoot) + 0.17
	// (people overshoot) caps at the 0.60 reward gate without a hard block.
	eval, err := oracle.module.Evaluate.Evaluate(context.Background(), commands.EvaluateCommand{
		Submission: sub,
		Input: entities.DeclaredParameters{
			ActionType:   entities.ActionFoodDistribution,
			Urgency:      entities.UrgencyCritical,
			EffortHours:  20,
			PeopleHelped: 1200,
		},
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if eval.Status != entities.StatusVerified {
		t.Fatalf("status = %s, want VERIFIED (%s)", eval.Status, eval.RejectionReason)
	}
	if eval.TotalPenalty != 0.60 {
		t.Fatalf("penalty = %v, want capped 0.60", eval.TotalPenalty)
	}
	if eval.TheoreticalReward != 0 {
		t.Fatalf("reward = %v, want 0 at the penalty gate", eval.TheoreticalReward)
	}
	if eval.Attestation == nil || eval.Attestation.TokenReward != 0 {
		t.Fatal("gated attestation must stand with zero reward")
	}
	if !eval.ReviewOpened || len(oracle.review.cases) != 1 {
		t.Fatal("gated evaluation did not open a review case")
	}
	if oracle.review.cases[0].ExclusiveAudit {
		t.Fatal("penalty-gate review case must not be exclusive-audit")
	}
}

func TestEvaluateInvalidGPSRejected(t *testing.T) {
	oracle := newTestOracle(t)
	sub := foodSubmission(testEvidenceHash)
	sub.GPS = entities.GPSCoordinate{Latitude: 95, Longitude: 13}

	eval, err := oracle.module.Evaluate.Evaluate(context.Background(), commands.EvaluateCommand{
		Submission: sub,
		Input: entities.DeclaredParameters{
			ActionType:   entities.ActionFoodDistribution,
			Urgency:      entities.UrgencyHigh,
			EffortHours:  8,
			PeopleHelped: 150,
		},
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if eval.Status != entities.StatusRejected {
		t.Fatalf("status = %s, want REJECTED", eval.Status)
	}
	if !strings.Contains(eval.RejectionReason, "gps") {
		t.Fatalf("reason %q does not mention gps", eval.RejectionReason)
	}
	if !eval.ReviewOpened {
		t.Fatal("gps rejection did not open review")
	}
}

func TestEvaluateDuplicateEvidenceBlocked(t *testing.T) {
	oracle := newTestOracle(t)
	cmd := commands.EvaluateCommand{
		Submission: foodSubmission(testEvidenceHash),
		Input: entities.DeclaredParameters{
			ActionType:   entities.ActionFoodDistribution,
			Urgency:      entities.UrgencyHigh,
			EffortHours:  8,
			PeopleHelped: 150,
		},
	}
	if _, err := oracle.module.Evaluate.Evaluate(context.Background(), cmd); err != nil {
		t.Fatalf("first evaluate: %v", err)
	}
	_, err := oracle.module.Evaluate.Evaluate(context.Background(), cmd)
	if !errors.Is(err, domainerrors.ErrDuplicateEvidence) {
		t.Fatalf("err = %v, want ErrDuplicateEvidence", err)
	}
}

func TestEvaluateBannedAgentBlocked(t *testing.T) {
	oracle := newTestOracle(t)
	bannedAt := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	oracle.integrity.Store.SetAbuseState(integrityentities.AbuseState{
		AgentAddress: testVolunteer,
		Banned:       true,
		BannedAt:     &bannedAt,
	})

	_, err := oracle.module.Evaluate.Evaluate(context.Background(), commands.EvaluateCommand{
		Submission: foodSubmission(testEvidenceHash),
		Input: entities.DeclaredParameters{
			ActionType:   entities.ActionFoodDistribution,
			Urgency:      entities.UrgencyHigh,
			EffortHours:  8,
			PeopleHelped: 150,
		},
	})
	if !errors.Is(err, domainerrors.ErrAgentBanned) {
		t.Fatalf("err = %v, want ErrAgentBanned", err)
	}
}

func TestEvaluateInvalidAddressRejected(t *testing.T) {
	oracle := newTestOracle(t)
	sub := foodSubmission(testEvidenceHash)
	sub.VolunteerAddress = "0x1234"

	_, err := oracle.module.Evaluate.Evaluate(context.Background(), commands.EvaluateCommand{
		Submission: sub,
		Input:      entities.DeclaredParameters{ActionType: entities.ActionFoodDistribution},
	})
	if !errors.Is(err, domainerrors.ErrInvalidSubmission) {
		t.Fatalf("err = %v, want ErrInvalidSubmission", err)
	}
}

func TestEvaluateNilInputShapeFails(t *testing.T) {
	oracle := newTestOracle(t)
	_, err := oracle.module.Evaluate.Evaluate(context.Background(), commands.EvaluateCommand{
		Submission: foodSubmission(testEvidenceHash),
	})
	if !errors.Is(err, domainerrors.ErrUnhandledInputShape) {
		t.Fatalf("err = %v, want ErrUnhandledInputShape", err)
	}
}

func TestEvaluateDeducedWithoutModelRejectsConservatively(t *testing.T) {
	oracle := newTestOracle(t)
	eval, err := oracle.module.Evaluate.Evaluate(context.Background(), commands.EvaluateCommand{
		Submission: foodSubmission(testEvidenceHash),
		Input:      entities.DeduceFromEvidence{},
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if eval.Status != entities.StatusRejected {
		t.Fatalf("status = %s, want REJECTED without a deduction backend", eval.Status)
	}
	if eval.AIConfidence > 0.2 {
		t.Fatalf("confidence = %v, want fallback ceiling 0.2", eval.AIConfidence)
	}
	found := false
	for _, code := range eval.WarningCodes {
		if code == "deduction_unavailable" {
			found = true
		}
	}
	if !found {
		t.Fatalf("warnings %v missing deduction_unavailable", eval.WarningCodes)
	}
}

func TestEvaluateZKProofMismatchRejected(t *testing.T) {
	oracle := newTestOracle(t)
	sub := foodSubmission(testEvidenceHash)
	sub.ZKP = &entities.ZKProofBundle{
		ProofHash:     strings.Repeat("ab", 32),
		PublicSignals: []string{"0x1234"},
	}

	eval, err := oracle.module.Evaluate.Evaluate(context.Background(), commands.EvaluateCommand{
		Submission: sub,
		Input: entities.DeclaredParameters{
			ActionType:   entities.ActionFoodDistribution,
			Urgency:      entities.UrgencyHigh,
			EffortHours:  8,
			PeopleHelped: 150,
		},
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if eval.Status != entities.StatusRejected {
		t.Fatalf("status = %s, want REJECTED", eval.Status)
	}
	if !strings.Contains(eval.RejectionReason, "zk proof") {
		t.Fatalf("reason %q does not mention zk proof", eval.RejectionReason)
	}
}
