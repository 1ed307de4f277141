package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"satin/contexts/verification/impact-oracle/domain/entities"
	domainerrors "satin/contexts/verification/impact-oracle/domain/errors"
	"satin/contexts/verification/impact-oracle/domain/services"
	"satin/contexts/verification/impact-oracle/ports"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type outboxModel struct {
	ID          string     `gorm:"column:id;primaryKey"`
	EventType   string     `gorm:"column:event_type;not null"`
	EntityID    string     `gorm:"column:entity_id;index"`
	Payload     string     `gorm:"column:payload;type:jsonb"`
	Status      string     `gorm:"column:status;index;not null"`
	RetryCount  int        `gorm:"column:retry_count;not null"`
	PublishedAt *time.Time `gorm:"column:published_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime;index"`
}

func (outboxModel) TableName() string {
	return "impact_outbox"
}

// Models lists the tables this adapter owns, for migration at startup.
func Models() []any {
	return []any{&evaluationModel{}, &outboxModel{}}
}

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

var (
	_ ports.AttestationStore = (*Repository)(nil)
	_ ports.Outbox           = (*Repository)(nil)
)

// SaveEvaluation upserts on event id so a replayed evaluation overwrites
// its previous row instead of duplicating it. The integration event row
// lands in the outbox inside the same transaction.
func (r *Repository) SaveEvaluation(ctx context.Context, eval entities.Evaluation) error {
	row := evaluationModelFromEntity(eval)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			UpdateAll: true,
		}).Create(&row).Error; err != nil {
			return err
		}
		eventType, payload, ok := services.OutboxEventFor(eval)
		if !ok {
			return nil
		}
		return tx.Create(&outboxModel{
			ID:        uuid.NewString(),
			EventType: eventType,
			EntityID:  row.EventID,
			Payload:   string(payload),
			Status:    outboxStatusPending,
		}).Error
	})
	if err != nil {
		return r.logError("oracle_repo_save_failed", err, "event_id", row.EventID)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	var rows []outboxModel
	err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, r.logError("oracle_outbox_list_failed", err)
	}
	out := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		out = append(out, ports.OutboxMessage{
			ID:         row.ID,
			EventType:  row.EventType,
			EntityID:   row.EntityID,
			Payload:    []byte(row.Payload),
			RetryCount: row.RetryCount,
		})
	}
	return out, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, id string, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&outboxModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": outboxStatusPublished, "published_at": at}).
		Error
	if err != nil {
		return r.logError("oracle_outbox_mark_failed", err, "outbox_id", id)
	}
	return nil
}

func (r *Repository) MarkOutboxFailed(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Model(&outboxModel{}).
		Where("id = ?", id).
		Update("retry_count", gorm.Expr("retry_count + 1")).
		Error
	if err != nil {
		return r.logError("oracle_outbox_mark_failed", err, "outbox_id", id)
	}
	return nil
}

func (r *Repository) GetEvaluation(ctx context.Context, eventID string) (entities.Evaluation, error) {
	var row evaluationModel
	err := r.db.WithContext(ctx).
		Where("event_id = ?", strings.TrimSpace(eventID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Evaluation{}, domainerrors.ErrEvaluationNotFound
		}
		return entities.Evaluation{}, r.logError("oracle_repo_get_failed", err, "event_id", eventID)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListRecent(ctx context.Context, limit int) ([]entities.Evaluation, error) {
	var rows []evaluationModel
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, r.logError("oracle_repo_list_failed", err)
	}
	out := make([]entities.Evaluation, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out, nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+7)
	fields = append(fields,
		"event", event,
		"module", "verification/impact-oracle",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("oracle repository operation failed", fields...)
	return err
}

type evaluationModel struct {
	EventID           string    `gorm:"column:event_id;primaryKey"`
	Status            string    `gorm:"column:status;index"`
	RejectionReason   string    `gorm:"column:rejection_reason"`
	ImpactScore       float64   `gorm:"column:impact_score"`
	AIConfidence      float64   `gorm:"column:ai_confidence"`
	TotalPenalty      float64   `gorm:"column:total_penalty"`
	TheoreticalReward float64   `gorm:"column:theoretical_reward"`
	WarningCodes      string    `gorm:"column:warning_codes"`
	ReviewOpened      bool      `gorm:"column:review_opened"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime;index"`

	Attested            bool       `gorm:"column:attested"`
	VolunteerAddress    string     `gorm:"column:volunteer_address;index"`
	BeneficiaryAddress  string     `gorm:"column:beneficiary_address"`
	ActionType          string     `gorm:"column:action_type"`
	ScoreScaled         int64      `gorm:"column:impact_score_scaled"`
	TokenReward         float64    `gorm:"column:token_reward"`
	TokenRewardWei      string     `gorm:"column:token_reward_wei"`
	BreakdownUrgency    float64    `gorm:"column:breakdown_urgency"`
	BreakdownDifficulty float64    `gorm:"column:breakdown_difficulty"`
	BreakdownReach      float64    `gorm:"column:breakdown_reach"`
	BreakdownAuth       float64    `gorm:"column:breakdown_authenticity"`
	EventHash           string     `gorm:"column:event_hash"`
	ZKProofHash         string     `gorm:"column:zk_proof_hash"`
	Nonce               string     `gorm:"column:nonce"`
	IssuedAt            *time.Time `gorm:"column:issued_at"`
	ExpiresAt           *time.Time `gorm:"column:expires_at"`
	SignatureV          uint8      `gorm:"column:signature_v"`
	SignatureR          string     `gorm:"column:signature_r"`
	SignatureS          string     `gorm:"column:signature_s"`
}

func (evaluationModel) TableName() string {
	return "impact_evaluations"
}

func evaluationModelFromEntity(eval entities.Evaluation) evaluationModel {
	row := evaluationModel{
		EventID:           strings.TrimSpace(eval.EventID),
		Status:            string(eval.Status),
		RejectionReason:   eval.RejectionReason,
		ImpactScore:       eval.ImpactScore,
		AIConfidence:      eval.AIConfidence,
		TotalPenalty:      eval.TotalPenalty,
		TheoreticalReward: eval.TheoreticalReward,
		WarningCodes:      strings.Join(eval.WarningCodes, ","),
		ReviewOpened:      eval.ReviewOpened,
	}
	att := eval.Attestation
	if att == nil {
		return row
	}
	row.Attested = true
	row.VolunteerAddress = strings.ToLower(att.VolunteerAddress)
	row.BeneficiaryAddress = strings.ToLower(att.BeneficiaryAddress)
	row.ActionType = string(att.ActionType)
	row.ScoreScaled = att.ImpactScoreScaled
	row.TokenReward = att.TokenReward
	if att.TokenRewardWei != nil {
		row.TokenRewardWei = att.TokenRewardWei.String()
	}
	row.BreakdownUrgency = att.ScoreBreakdown.Urgency
	row.BreakdownDifficulty = att.ScoreBreakdown.Difficulty
	row.BreakdownReach = att.ScoreBreakdown.Reach
	row.BreakdownAuth = att.ScoreBreakdown.Authenticity
	row.EventHash = att.EventHash
	row.ZKProofHash = att.ZKProofHash
	row.Nonce = att.Nonce
	issuedAt := att.IssuedAt
	expiresAt := att.ExpiresAt
	row.IssuedAt = &issuedAt
	row.ExpiresAt = &expiresAt
	row.SignatureV = att.Signature.V
	row.SignatureR = att.Signature.R
	row.SignatureS = att.Signature.S
	return row
}

func (m evaluationModel) toEntity() entities.Evaluation {
	eval := entities.Evaluation{
		EventID:           m.EventID,
		Status:            entities.VerificationStatus(m.Status),
		RejectionReason:   m.RejectionReason,
		ImpactScore:       m.ImpactScore,
		AIConfidence:      m.AIConfidence,
		TotalPenalty:      m.TotalPenalty,
		TheoreticalReward: m.TheoreticalReward,
		ReviewOpened:      m.ReviewOpened,
	}
	if m.WarningCodes != "" {
		eval.WarningCodes = strings.Split(m.WarningCodes, ",")
	}
	if !m.Attested {
		return eval
	}
	att := &entities.Attestation{
		EventID:            m.EventID,
		VolunteerAddress:   m.VolunteerAddress,
		BeneficiaryAddress: m.BeneficiaryAddress,
		ActionType:         entities.ActionType(m.ActionType),
		Status:             entities.VerificationStatus(m.Status),
		ImpactScore:        m.ImpactScore,
		ImpactScoreScaled:  m.ScoreScaled,
		TokenReward:        m.TokenReward,
		AIConfidence:       m.AIConfidence,
		ScoreBreakdown: entities.ScoreBreakdown{
			Urgency:      m.BreakdownUrgency,
			Difficulty:   m.BreakdownDifficulty,
			Reach:        m.BreakdownReach,
			Authenticity: m.BreakdownAuth,
		},
		EventHash:   m.EventHash,
		ZKProofHash: m.ZKProofHash,
		Nonce:       m.Nonce,
		Signature: entities.Signature{
			V: m.SignatureV,
			R: m.SignatureR,
			S: m.SignatureS,
		},
	}
	if wei, ok := new(big.Int).SetString(m.TokenRewardWei, 10); ok {
		att.TokenRewardWei = wei
	}
	if m.IssuedAt != nil {
		att.IssuedAt = *m.IssuedAt
	}
	if m.ExpiresAt != nil {
		att.ExpiresAt = *m.ExpiresAt
	}
	eval.Attestation = att
	return eval
}
