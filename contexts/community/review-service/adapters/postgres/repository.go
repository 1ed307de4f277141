package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"satin/contexts/community/review-service/domain/entities"
	domainerrors "satin/contexts/community/review-service/domain/errors"
	"satin/contexts/community/review-service/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{db: db, logger: logger}
}

var _ ports.CaseStore = (*Repository)(nil)

func (r *Repository) Create(ctx context.Context, c entities.ReviewCase) error {
	row := caseModelFromEntity(c)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrCaseExists
		}
		return r.logError("review_repo_create_failed", err, "case_id", c.CaseID)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, caseID string) (entities.ReviewCase, error) {
	return r.load(ctx, r.db.WithContext(ctx), "case_id = ?", strings.TrimSpace(caseID))
}

func (r *Repository) GetByEvent(ctx context.Context, eventID string) (entities.ReviewCase, error) {
	return r.load(ctx, r.db.WithContext(ctx), "event_id = ?", strings.TrimSpace(eventID))
}

// Mutate locks the case row for the duration of fn, so concurrent votes
// serialize and exactly one observes the quorum transition.
func (r *Repository) Mutate(ctx context.Context, caseID string, fn func(*entities.ReviewCase) error) (entities.ReviewCase, error) {
	var out entities.ReviewCase
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row caseModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("case_id = ?", strings.TrimSpace(caseID)).
			First(&row).
			Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrCaseNotFound
			}
			return err
		}

		var voteRows []voteModel
		if err := tx.Where("case_id = ?", row.CaseID).Find(&voteRows).Error; err != nil {
			return err
		}

		working := row.toEntity(voteRows)
		before := make(map[string]bool, len(working.Votes))
		for voter := range working.Votes {
			before[voter] = true
		}

		if err := fn(&working); err != nil {
			return err
		}

		updated := caseModelFromEntity(working)
		if err := tx.Model(&caseModel{}).
			Where("case_id = ?", row.CaseID).
			Updates(map[string]any{
				"outcome":   updated.Outcome,
				"closed_at": updated.ClosedAt,
			}).Error; err != nil {
			return err
		}
		for voter, vote := range working.Votes {
			if before[voter] {
				continue
			}
			if err := tx.Create(&voteModel{
				CaseID:       row.CaseID,
				VoterAddress: voter,
				Approve:      vote.Approve,
				Reputation:   vote.Reputation,
				Degraded:     vote.Degraded,
				CastAt:       vote.CastAt,
			}).Error; err != nil {
				return err
			}
		}
		out = working
		return nil
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrCaseNotFound) ||
			errors.Is(err, domainerrors.ErrCaseClosed) ||
			errors.Is(err, domainerrors.ErrSelfVote) ||
			errors.Is(err, domainerrors.ErrDuplicateVote) ||
			errors.Is(err, domainerrors.ErrVoterNotEligible) {
			return entities.ReviewCase{}, err
		}
		return entities.ReviewCase{}, r.logError("review_repo_mutate_failed", err, "case_id", caseID)
	}
	return out, nil
}

func (r *Repository) ListOpen(ctx context.Context) ([]entities.ReviewCase, error) {
	var rows []caseModel
	err := r.db.WithContext(ctx).
		Where("outcome = ''").
		Order("opened_at ASC").
		Find(&rows).
		Error
	if err != nil {
		return nil, r.logError("review_repo_list_open_failed", err)
	}
	return r.hydrate(ctx, rows)
}

func (r *Repository) ListRecent(ctx context.Context, limit int) ([]entities.ReviewCase, error) {
	var rows []caseModel
	err := r.db.WithContext(ctx).
		Order("opened_at DESC").
		Limit(limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, r.logError("review_repo_list_recent_failed", err)
	}
	return r.hydrate(ctx, rows)
}

func (r *Repository) load(ctx context.Context, db *gorm.DB, query string, arg any) (entities.ReviewCase, error) {
	var row caseModel
	if err := db.Where(query, arg).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.ReviewCase{}, domainerrors.ErrCaseNotFound
		}
		return entities.ReviewCase{}, r.logError("review_repo_get_failed", err)
	}
	var voteRows []voteModel
	if err := r.db.WithContext(ctx).Where("case_id = ?", row.CaseID).Find(&voteRows).Error; err != nil {
		return entities.ReviewCase{}, r.logError("review_repo_votes_failed", err, "case_id", row.CaseID)
	}
	return row.toEntity(voteRows), nil
}

func (r *Repository) hydrate(ctx context.Context, rows []caseModel) ([]entities.ReviewCase, error) {
	out := make([]entities.ReviewCase, 0, len(rows))
	for _, row := range rows {
		var voteRows []voteModel
		if err := r.db.WithContext(ctx).Where("case_id = ?", row.CaseID).Find(&voteRows).Error; err != nil {
			return nil, r.logError("review_repo_votes_failed", err, "case_id", row.CaseID)
		}
		out = append(out, row.toEntity(voteRows))
	}
	return out, nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+7)
	fields = append(fields,
		"event", event,
		"module", "community/review-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("review repository operation failed", fields...)
	return err
}

type caseModel struct {
	CaseID           string `gorm:"column:case_id;primaryKey"`
	EventID          string `gorm:"column:event_id;uniqueIndex"`
	SubmitterAddress string `gorm:"column:submitter_address;index"`
	ActionType       string `gorm:"column:action_type"`
	Description      string `gorm:"column:description"`
	RejectionReason  string `gorm:"column:rejection_reason"`

	ImpactScore       float64 `gorm:"column:impact_score"`
	AIConfidence      float64 `gorm:"column:ai_confidence"`
	TheoreticalReward float64 `gorm:"column:theoretical_reward"`
	ExclusiveAudit    bool    `gorm:"column:exclusive_audit"`

	OpenedAt time.Time  `gorm:"column:opened_at;index"`
	ClosedAt *time.Time `gorm:"column:closed_at"`
	Outcome  string     `gorm:"column:outcome"`
}

func (caseModel) TableName() string {
	return "review_cases"
}

type voteModel struct {
	ID           uint      `gorm:"column:id;primaryKey;autoIncrement"`
	CaseID       string    `gorm:"column:case_id;uniqueIndex:idx_case_voter"`
	VoterAddress string    `gorm:"column:voter_address;uniqueIndex:idx_case_voter"`
	Approve      bool      `gorm:"column:approve"`
	Reputation   float64   `gorm:"column:reputation"`
	Degraded     bool      `gorm:"column:degraded"`
	CastAt       time.Time `gorm:"column:cast_at"`
}

func (voteModel) TableName() string {
	return "review_votes"
}

// Models lists the tables this adapter owns, for migration at startup.
func Models() []any {
	return []any{&caseModel{}, &voteModel{}}
}

func caseModelFromEntity(c entities.ReviewCase) caseModel {
	return caseModel{
		CaseID:            strings.TrimSpace(c.CaseID),
		EventID:           strings.TrimSpace(c.EventID),
		SubmitterAddress:  strings.ToLower(strings.TrimSpace(c.SubmitterAddress)),
		ActionType:        c.ActionType,
		Description:       c.Description,
		RejectionReason:   c.RejectionReason,
		ImpactScore:       c.ImpactScore,
		AIConfidence:      c.AIConfidence,
		TheoreticalReward: c.TheoreticalReward,
		ExclusiveAudit:    c.ExclusiveAudit,
		OpenedAt:          c.OpenedAt,
		ClosedAt:          c.ClosedAt,
		Outcome:           string(c.Outcome),
	}
}

func (m caseModel) toEntity(voteRows []voteModel) entities.ReviewCase {
	votes := make(map[string]entities.Vote, len(voteRows))
	for _, v := range voteRows {
		votes[v.VoterAddress] = entities.Vote{
			VoterAddress: v.VoterAddress,
			Approve:      v.Approve,
			Reputation:   v.Reputation,
			Degraded:     v.Degraded,
			CastAt:       v.CastAt,
		}
	}
	return entities.ReviewCase{
		CaseID:            m.CaseID,
		EventID:           m.EventID,
		SubmitterAddress:  m.SubmitterAddress,
		ActionType:        m.ActionType,
		Description:       m.Description,
		RejectionReason:   m.RejectionReason,
		ImpactScore:       m.ImpactScore,
		AIConfidence:      m.AIConfidence,
		TheoreticalReward: m.TheoreticalReward,
		ExclusiveAudit:    m.ExclusiveAudit,
		OpenedAt:          m.OpenedAt,
		ClosedAt:          m.ClosedAt,
		Outcome:           entities.Outcome(m.Outcome),
		Votes:             votes,
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
