package bootstrap

import (
	"context"
	"errors"

	reputationapp "satin/contexts/community/reputation-service/application"
	reputationerrors "satin/contexts/community/reputation-service/domain/errors"
	reviewcommands "satin/contexts/community/review-service/application/commands"
	reviewentities "satin/contexts/community/review-service/domain/entities"
	reviewports "satin/contexts/community/review-service/ports"
	impactcommands "satin/contexts/verification/impact-oracle/application/commands"
	impactentities "satin/contexts/verification/impact-oracle/domain/entities"
	impactports "satin/contexts/verification/impact-oracle/ports"
	integritycommands "satin/contexts/verification/integrity-service/application/commands"
)

// Cross-context glue lives here so the contexts themselves never import
// each other. Each bridge adapts one module's use case onto a port its
// neighbor defines.

// reviewOpener routes failed evaluations into community review.
type reviewOpener struct {
	open *reviewcommands.OpenCaseUseCase
}

var _ impactports.ReviewOpener = (*reviewOpener)(nil)

func (o *reviewOpener) OpenCase(ctx context.Context, open impactports.OpenReviewCase) error {
	_, err := o.open.Open(ctx, reviewcommands.OpenCaseCommand{
		EventID:           open.EventID,
		SubmitterAddress:  open.SubmitterAddress,
		ActionType:        open.ActionType,
		Description:       open.Description,
		RejectionReason:   open.RejectionReason,
		ImpactScore:       open.ImpactScore,
		AIConfidence:      open.AIConfidence,
		TheoreticalReward: open.TheoreticalReward,
		ExclusiveAudit:    open.ExclusiveAudit,
	})
	return err
}

// minimumMinter signs the approved-case fallback attestation through the
// oracle's own signing pipeline.
type minimumMinter struct {
	attest *impactcommands.AttestMinimumUseCase
}

var _ reviewports.AttestationMinter = (*minimumMinter)(nil)

func (m *minimumMinter) MintMinimum(ctx context.Context, c reviewentities.ReviewCase) error {
	_, err := m.attest.AttestMinimum(ctx, impactcommands.AttestMinimumCommand{
		EventID:          c.EventID,
		VolunteerAddress: c.SubmitterAddress,
		ActionType:       impactentities.ActionType(c.ActionType),
	})
	return err
}

// abuseBridge feeds vote outcomes into per-address misconduct tracking.
type abuseBridge struct {
	abuse integritycommands.AbuseUseCase
}

var _ reviewports.AbuseReporter = (*abuseBridge)(nil)

func (b *abuseBridge) RecordRejection(ctx context.Context, submitterAddress string) error {
	_, err := b.abuse.RecordRejection(ctx, submitterAddress)
	return err
}

func (b *abuseBridge) ClearCounters(ctx context.Context, submitterAddress string) error {
	return b.abuse.ClearCounters(ctx, submitterAddress)
}

// reputationLookup backs the phase-1 voting gate with the in-process
// reputation service. An unknown voter reads as zero, not an error, so
// newcomers are refused rather than degraded.
type reputationLookup struct {
	service reputationapp.Service
}

var _ reviewports.ReputationLookup = (*reputationLookup)(nil)

func (l *reputationLookup) Score(ctx context.Context, voterAddress string) (float64, error) {
	record, err := l.service.GetReputation(ctx, voterAddress)
	if errors.Is(err, reputationerrors.ErrReputationNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return record.Score, nil
}
