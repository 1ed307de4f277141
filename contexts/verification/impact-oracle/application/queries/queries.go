package queries

import (
	"context"
	"log/slog"

	"satin/contexts/verification/impact-oracle/domain/entities"
	"satin/contexts/verification/impact-oracle/domain/services"
	"satin/contexts/verification/impact-oracle/ports"
	"satin/internal/evm"
)

const defaultFeedLimit = 50

// OracleInfo is the oracle's public identity card.
type OracleInfo struct {
	OracleAddress     string
	Protocol          string
	Version           string
	SupportedActions  []entities.ActionType
	ScoreWeights      map[string]float64
	MaxTokenReward    float64
	MinScoreThreshold float64
	SigningAlgorithm  string
	ZKProofScheme     string
}

// OracleQueries answers read-side requests over the attestation store.
type OracleQueries struct {
	Store  ports.AttestationStore
	Signer *evm.Signer
	Logger *slog.Logger
}

func (q *OracleQueries) Info(_ context.Context) OracleInfo {
	address := ""
	if q.Signer != nil {
		address = evm.HexAddress(q.Signer.Address())
	}
	return OracleInfo{
		OracleAddress:    address,
		Protocol:         "SATIN v" + services.Version,
		Version:          services.Version,
		SupportedActions: entities.ActionTypes,
		ScoreWeights: map[string]float64{
			"urgency":      0.35,
			"difficulty":   0.25,
			"reach":        0.20,
			"authenticity": 0.20,
		},
		MaxTokenReward:    services.MaxTokenReward,
		MinScoreThreshold: services.MinScoreThreshold,
		SigningAlgorithm:  "ECDSA secp256k1",
		ZKProofScheme:     "pedersen_commitment_v1",
	}
}

// Evaluation returns one evaluation by event id.
func (q *OracleQueries) Evaluation(ctx context.Context, eventID string) (entities.Evaluation, error) {
	return q.Store.GetEvaluation(ctx, eventID)
}

// Feed lists the most recent evaluations, newest first.
func (q *OracleQueries) Feed(ctx context.Context, limit int) ([]entities.Evaluation, error) {
	if limit <= 0 {
		limit = defaultFeedLimit
	}
	return q.Store.ListRecent(ctx, limit)
}
