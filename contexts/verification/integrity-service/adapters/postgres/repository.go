package postgresadapter

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"satin/contexts/verification/integrity-service/domain/entities"
	"satin/contexts/verification/integrity-service/ports"

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

// Reserve inserts the content hash, relying on the primary key to refuse a
// second owner. The insert and the ownership read happen in one statement
// round-trip each; the unique constraint is what makes the check atomic.
func (r *Repository) Reserve(ctx context.Context, contentHash string, agentAddress string, eventID string, now time.Time) (ports.ReserveResult, error) {
	row := contentReservationModel{
		ContentHash:  strings.ToLower(strings.TrimSpace(contentHash)),
		AgentAddress: strings.ToLower(strings.TrimSpace(agentAddress)),
		EventID:      strings.TrimSpace(eventID),
		ReservedAt:   now,
	}
	err := r.db.WithContext(ctx).Create(&row).Error
	if err == nil {
		return ports.ReserveResult{Reserved: true}, nil
	}
	if !isUniqueViolation(err) {
		return ports.ReserveResult{}, r.logError("integrity_repo_reserve_failed", err,
			"content_hash", row.ContentHash)
	}

	var existing contentReservationModel
	lookupErr := r.db.WithContext(ctx).
		Where("content_hash = ?", row.ContentHash).
		First(&existing).
		Error
	if lookupErr != nil {
		return ports.ReserveResult{}, r.logError("integrity_repo_reserve_lookup_failed", lookupErr,
			"content_hash", row.ContentHash)
	}
	return ports.ReserveResult{Reserved: false, ExistingAgent: existing.AgentAddress}, nil
}

func (r *Repository) Append(ctx context.Context, agentAddress string, at time.Time) error {
	row := submissionLogModel{
		AgentAddress: strings.ToLower(strings.TrimSpace(agentAddress)),
		SubmittedAt:  at,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return r.logError("integrity_repo_append_failed", err, "agent_address", row.AgentAddress)
	}
	return nil
}

func (r *Repository) CountSince(ctx context.Context, agentAddress string, since time.Time) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&submissionLogModel{}).
		Where("agent_address = ? AND submitted_at >= ?", strings.ToLower(strings.TrimSpace(agentAddress)), since).
		Count(&count).
		Error
	if err != nil {
		return 0, r.logError("integrity_repo_count_failed", err, "agent_address", agentAddress)
	}
	return int(count), nil
}

func (r *Repository) OldestSince(ctx context.Context, agentAddress string, since time.Time) (time.Time, bool, error) {
	var row submissionLogModel
	err := r.db.WithContext(ctx).
		Where("agent_address = ? AND submitted_at >= ?", strings.ToLower(strings.TrimSpace(agentAddress)), since).
		Order("submitted_at ASC").
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, r.logError("integrity_repo_oldest_failed", err, "agent_address", agentAddress)
	}
	return row.SubmittedAt, true, nil
}

func (r *Repository) PruneBefore(ctx context.Context, cutoff time.Time) error {
	if err := r.db.WithContext(ctx).
		Where("submitted_at < ?", cutoff).
		Delete(&submissionLogModel{}).
		Error; err != nil {
		return r.logError("integrity_repo_prune_submissions_failed", err)
	}
	if err := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&fingerprintModel{}).
		Error; err != nil {
		return r.logError("integrity_repo_prune_fingerprints_failed", err)
	}
	return nil
}

func (r *Repository) Save(ctx context.Context, fp entities.Fingerprint) error {
	row := fingerprintModelFromEntity(fp)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return r.logError("integrity_repo_save_fingerprint_failed", err,
			"fingerprint_id", row.ID)
	}
	return nil
}

func (r *Repository) ListSince(ctx context.Context, since time.Time) ([]entities.Fingerprint, error) {
	var rows []fingerprintModel
	err := r.db.WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at ASC").
		Find(&rows).
		Error
	if err != nil {
		return nil, r.logError("integrity_repo_list_fingerprints_failed", err)
	}
	out := make([]entities.Fingerprint, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out, nil
}

func (r *Repository) Get(ctx context.Context, agentAddress string) (entities.AbuseState, bool, error) {
	var row abuseStateModel
	err := r.db.WithContext(ctx).
		Where("agent_address = ?", strings.ToLower(strings.TrimSpace(agentAddress))).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.AbuseState{}, false, nil
		}
		return entities.AbuseState{}, false, r.logError("integrity_repo_get_abuse_failed", err,
			"agent_address", agentAddress)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) RecordRejection(ctx context.Context, agentAddress string, banThreshold int, now time.Time) (entities.AbuseState, error) {
	key := strings.ToLower(strings.TrimSpace(agentAddress))
	var out entities.AbuseState
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row abuseStateModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("agent_address = ?", key).
			First(&row).
			Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			row = abuseStateModel{AgentAddress: key}
			err = nil
		}
		if err != nil {
			return err
		}
		row.RejectionStreak++
		row.UpdatedAt = now
		if banThreshold > 0 && row.RejectionStreak >= banThreshold && !row.Banned {
			row.Banned = true
			bannedAt := now
			row.BannedAt = &bannedAt
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "agent_address"}},
			DoUpdates: clause.Assignments(map[string]any{
				"rejection_streak":   row.RejectionStreak,
				"manipulation_count": row.ManipulationCount,
				"banned":             row.Banned,
				"banned_at":          row.BannedAt,
				"updated_at":         row.UpdatedAt,
			}),
		}).Create(&row).Error; err != nil {
			return err
		}
		out = row.toEntity()
		return nil
	})
	if err != nil {
		return entities.AbuseState{}, r.logError("integrity_repo_record_rejection_failed", err,
			"agent_address", key)
	}
	return out, nil
}

func (r *Repository) RecordManipulation(ctx context.Context, agentAddress string, now time.Time) (entities.AbuseState, error) {
	key := strings.ToLower(strings.TrimSpace(agentAddress))
	var out entities.AbuseState
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row abuseStateModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("agent_address = ?", key).
			First(&row).
			Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			row = abuseStateModel{AgentAddress: key}
			err = nil
		}
		if err != nil {
			return err
		}
		row.ManipulationCount++
		row.UpdatedAt = now
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "agent_address"}},
			DoUpdates: clause.Assignments(map[string]any{
				"rejection_streak":   row.RejectionStreak,
				"manipulation_count": row.ManipulationCount,
				"banned":             row.Banned,
				"banned_at":          row.BannedAt,
				"updated_at":         row.UpdatedAt,
			}),
		}).Create(&row).Error; err != nil {
			return err
		}
		out = row.toEntity()
		return nil
	})
	if err != nil {
		return entities.AbuseState{}, r.logError("integrity_repo_record_manipulation_failed", err,
			"agent_address", key)
	}
	return out, nil
}

func (r *Repository) Clear(ctx context.Context, agentAddress string, now time.Time) error {
	key := strings.ToLower(strings.TrimSpace(agentAddress))
	err := r.db.WithContext(ctx).
		Model(&abuseStateModel{}).
		Where("agent_address = ?", key).
		Updates(map[string]any{
			"rejection_streak":   0,
			"manipulation_count": 0,
			"banned":             false,
			"banned_at":          nil,
			"updated_at":         now,
		}).
		Error
	if err != nil {
		return r.logError("integrity_repo_clear_abuse_failed", err, "agent_address", key)
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+7)
	fields = append(fields,
		"event", event,
		"module", "verification/integrity-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("integrity repository operation failed", fields...)
	return err
}

type contentReservationModel struct {
	ContentHash  string    `gorm:"column:content_hash;primaryKey"`
	AgentAddress string    `gorm:"column:agent_address"`
	EventID      string    `gorm:"column:event_id"`
	ReservedAt   time.Time `gorm:"column:reserved_at"`
}

func (contentReservationModel) TableName() string {
	return "content_reservations"
}

type submissionLogModel struct {
	ID           uint      `gorm:"column:id;primaryKey;autoIncrement"`
	AgentAddress string    `gorm:"column:agent_address;index"`
	SubmittedAt  time.Time `gorm:"column:submitted_at;index"`
}

func (submissionLogModel) TableName() string {
	return "submission_log"
}

type fingerprintModel struct {
	ID           string    `gorm:"column:id;primaryKey"`
	AgentAddress string    `gorm:"column:agent_address;index"`
	EventID      string    `gorm:"column:event_id"`
	Hash         string    `gorm:"column:hash"`
	Bits         int       `gorm:"column:bits"`
	CreatedAt    time.Time `gorm:"column:created_at;index"`
}

func (fingerprintModel) TableName() string {
	return "image_fingerprints"
}

func fingerprintModelFromEntity(fp entities.Fingerprint) fingerprintModel {
	return fingerprintModel{
		ID:           strings.TrimSpace(fp.FingerprintID),
		AgentAddress: strings.ToLower(strings.TrimSpace(fp.AgentAddress)),
		EventID:      strings.TrimSpace(fp.EventID),
		Hash:         encodeFingerprint(fp.Hash),
		Bits:         fp.Bits,
		CreatedAt:    fp.CreatedAt,
	}
}

func (m fingerprintModel) toEntity() entities.Fingerprint {
	return entities.Fingerprint{
		FingerprintID: m.ID,
		AgentAddress:  m.AgentAddress,
		EventID:       m.EventID,
		Hash:          decodeFingerprint(m.Hash),
		Bits:          m.Bits,
		CreatedAt:     m.CreatedAt,
	}
}

func encodeFingerprint(words []uint64) string {
	buf := make([]byte, 8*len(words))
	for i, w := range words {
		binary.BigEndian.PutUint64(buf[i*8:], w)
	}
	return hex.EncodeToString(buf)
}

func decodeFingerprint(s string) []uint64 {
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw)%8 != 0 {
		return nil
	}
	words := make([]uint64, len(raw)/8)
	for i := range words {
		words[i] = binary.BigEndian.Uint64(raw[i*8:])
	}
	return words
}

type abuseStateModel struct {
	AgentAddress      string     `gorm:"column:agent_address;primaryKey"`
	RejectionStreak   int        `gorm:"column:rejection_streak"`
	ManipulationCount int        `gorm:"column:manipulation_count"`
	Banned            bool       `gorm:"column:banned"`
	BannedAt          *time.Time `gorm:"column:banned_at"`
	UpdatedAt         time.Time  `gorm:"column:updated_at"`
}

func (abuseStateModel) TableName() string {
	return "abuse_states"
}

// Models lists the tables this adapter owns, for migration at startup.
func Models() []any {
	return []any{
		&contentReservationModel{},
		&submissionLogModel{},
		&fingerprintModel{},
		&abuseStateModel{},
	}
}

func (m abuseStateModel) toEntity() entities.AbuseState {
	return entities.AbuseState{
		AgentAddress:      m.AgentAddress,
		RejectionStreak:   m.RejectionStreak,
		ManipulationCount: m.ManipulationCount,
		Banned:            m.Banned,
		BannedAt:          m.BannedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.ContentReserve = (*Repository)(nil)
var _ ports.SubmissionLog = (*Repository)(nil)
var _ ports.FingerprintStore = (*Repository)(nil)
var _ ports.AbuseStateStore = (*Repository)(nil)
