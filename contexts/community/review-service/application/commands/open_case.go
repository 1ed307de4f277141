package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"satin/contexts/community/review-service/application"
	"satin/contexts/community/review-service/domain/entities"
	domainerrors "satin/contexts/community/review-service/domain/errors"
	"satin/contexts/community/review-service/ports"
)

// OpenCaseCommand carries the failed evaluation's context so voters can
// judge it without re-running the pipeline.
type OpenCaseCommand struct {
	EventID          string
	SubmitterAddress string
	ActionType       string
	Description      string
	RejectionReason  string

	ImpactScore       float64
	AIConfidence      float64
	TheoreticalReward float64
	ExclusiveAudit    bool
}

// OpenCaseUseCase admits one case per event. Re-opening an already-open
// event is idempotent and returns the existing case.
type OpenCaseUseCase struct {
	Cases  ports.CaseStore
	Clock  ports.Clock
	IDs    ports.IDGenerator
	Logger *slog.Logger
}

func (uc *OpenCaseUseCase) Open(ctx context.Context, cmd OpenCaseCommand) (entities.ReviewCase, error) {
	logger := application.ResolveLogger(uc.Logger)

	eventID := strings.TrimSpace(cmd.EventID)
	submitter := strings.ToLower(strings.TrimSpace(cmd.SubmitterAddress))
	if eventID == "" || submitter == "" {
		return entities.ReviewCase{}, domainerrors.ErrInvalidCaseInput
	}

	if existing, err := uc.Cases.GetByEvent(ctx, eventID); err == nil {
		return existing, nil
	} else if !errors.Is(err, domainerrors.ErrCaseNotFound) {
		return entities.ReviewCase{}, err
	}

	c := entities.ReviewCase{
		CaseID:            uc.IDs.NewID(),
		EventID:           eventID,
		SubmitterAddress:  submitter,
		ActionType:        cmd.ActionType,
		Description:       cmd.Description,
		RejectionReason:   cmd.RejectionReason,
		ImpactScore:       cmd.ImpactScore,
		AIConfidence:      cmd.AIConfidence,
		TheoreticalReward: cmd.TheoreticalReward,
		ExclusiveAudit:    cmd.ExclusiveAudit,
		OpenedAt:          uc.Clock.Now(),
		Votes:             make(map[string]entities.Vote),
	}
	if err := uc.Cases.Create(ctx, c); err != nil {
		if errors.Is(err, domainerrors.ErrCaseExists) {
			return uc.Cases.GetByEvent(ctx, eventID)
		}
		return entities.ReviewCase{}, err
	}

	logger.Info("review case opened",
		slog.String("event", "review_case_opened"),
		slog.String("module", "community/review-service"),
		slog.String("layer", "application"),
		slog.String("case_id", c.CaseID),
		slog.String("event_id", eventID),
		slog.Bool("exclusive_audit", cmd.ExclusiveAudit))
	return c, nil
}
