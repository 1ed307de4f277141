package commands

import (
	"math/big"
	"strings"
	"time"

	"satin/contexts/verification/impact-oracle/domain/entities"
	"satin/contexts/verification/impact-oracle/domain/services"
	"satin/internal/evm"
)

// attestationInput carries everything the signing chain consumes. Score
// and reward are final values; no policy runs past this point.
type attestationInput struct {
	EventID            string
	VolunteerAddress   string
	BeneficiaryAddress string
	ActionType         entities.ActionType
	IPFSMediaCID       string
	ActionTimestampUTC string
	Latitude           float64
	Longitude          float64
	Score              float64
	Confidence         float64
	Reward             float64
	Nonce              string
	IssuedAt           time.Time
	ExpiresAt          time.Time
}

// signAttestation derives the event hash, packs the contract tuple, and
// signs it. Any malformed field aborts; a wrong signature is worse than
// no signature.
func signAttestation(signer *evm.Signer, in attestationInput) (*entities.Attestation, error) {
	beneficiary := in.BeneficiaryAddress
	if beneficiary == "" || strings.EqualFold(beneficiary, zeroAddress) {
		beneficiary = in.VolunteerAddress
	}

	actionTimestamp := in.ActionTimestampUTC
	if actionTimestamp == "" {
		actionTimestamp = in.IssuedAt.UTC().Format(time.RFC3339)
	}

	beneficiaryZKP := services.BeneficiaryZKPHash(beneficiary)
	eventHash := services.EventHash(services.EventHashInput{
		EventID:            in.EventID,
		VolunteerAddress:   in.VolunteerAddress,
		BeneficiaryZKPHash: beneficiaryZKP,
		ActionType:         string(in.ActionType),
		ImpactScore:        in.Score,
		IPFSMediaCID:       in.IPFSMediaCID,
		ActionTimestampUTC: actionTimestamp,
		Latitude:           in.Latitude,
		Longitude:          in.Longitude,
	})

	scaled := services.ScaleScore(in.Score)
	rewardWei, _ := new(big.Float).Mul(new(big.Float).SetFloat64(in.Reward), weiPerToken).Int(nil)
	zkProofHash := services.ZKProofHash(beneficiaryZKP, in.EventID)

	eventIDBytes, err := services.EventIDBytes32(in.EventID)
	if err != nil {
		return nil, err
	}
	volunteerAddr, err := evm.ParseAddress(in.VolunteerAddress)
	if err != nil {
		return nil, err
	}
	beneficiaryAddr, err := evm.ParseAddress(beneficiary)
	if err != nil {
		return nil, err
	}
	eventHashBytes, err := evm.ParseHash32(eventHash)
	if err != nil {
		return nil, err
	}

	signingHash, err := evm.AttestationTuple{
		EventID:     eventIDBytes,
		Volunteer:   volunteerAddr,
		Beneficiary: beneficiaryAddr,
		ScoreScaled: big.NewInt(scaled),
		RewardWei:   rewardWei,
		ProofHash:   zkProofHash,
		EventHash:   eventHashBytes,
		Nonce:       in.Nonce,
		ExpiresAt:   big.NewInt(in.ExpiresAt.Unix()),
	}.SigningHash()
	if err != nil {
		return nil, err
	}

	sig, err := signer.SignHash(signingHash)
	if err != nil {
		return nil, err
	}

	return &entities.Attestation{
		EventID:            in.EventID,
		VolunteerAddress:   in.VolunteerAddress,
		BeneficiaryAddress: beneficiary,
		ActionType:         in.ActionType,
		Status:             entities.StatusVerified,
		ImpactScore:        in.Score,
		ImpactScoreScaled:  scaled,
		TokenReward:        in.Reward,
		TokenRewardWei:     rewardWei,
		AIConfidence:       in.Confidence,
		ScoreBreakdown:     services.Breakdown(in.ActionType),
		EventHash:          eventHash,
		ZKProofHash:        evm.HexHash32(zkProofHash),
		Nonce:              in.Nonce,
		IssuedAt:           in.IssuedAt,
		ExpiresAt:          in.ExpiresAt,
		Signature: entities.Signature{
			V: sig.V,
			R: evm.HexHash32(sig.R),
			S: evm.HexHash32(sig.S),
		},
	}, nil
}
