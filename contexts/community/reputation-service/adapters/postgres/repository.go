package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainerrors "satin/contexts/community/reputation-service/domain/errors"
	"satin/contexts/community/reputation-service/ports"
)

// Repository is the gorm-backed reputation repository.
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

var _ ports.Repository = (*Repository)(nil)

type reputationModel struct {
	Address         string    `gorm:"column:address;primaryKey"`
	Score           float64   `gorm:"column:score;not null"`
	VerifiedActions int       `gorm:"column:verified_actions;not null"`
	RejectedActions int       `gorm:"column:rejected_actions;not null"`
	LastVerifiedAt  time.Time `gorm:"column:last_verified_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at;not null"`
}

func (reputationModel) TableName() string {
	return "reputation_scores"
}

// Models lists the tables this adapter owns, for migration at startup.
func Models() []any {
	return []any{&reputationModel{}}
}

func (r *Repository) GetReputation(ctx context.Context, address string) (ports.VolunteerReputation, error) {
	var model reputationModel
	err := r.db.WithContext(ctx).First(&model, "address = ?", address).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ports.VolunteerReputation{}, domainerrors.ErrReputationNotFound
	}
	if err != nil {
		r.logError("reputation_load_failed", err, slog.String("volunteer_address", address))
		return ports.VolunteerReputation{}, err
	}
	return toReputation(model), nil
}

func (r *Repository) GetLeaderboard(ctx context.Context, filter ports.LeaderboardFilter) (ports.Leaderboard, error) {
	var board ports.Leaderboard

	var total int64
	if err := r.db.WithContext(ctx).Model(&reputationModel{}).Count(&total).Error; err != nil {
		r.logError("reputation_leaderboard_failed", err)
		return ports.Leaderboard{}, err
	}
	board.TotalVolunteers = int(total)

	query := r.db.WithContext(ctx).Model(&reputationModel{}).
		Order("score DESC, address ASC").
		Offset(filter.Offset)
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Tier != "" {
		query = tierScope(query, filter.Tier)
	}

	var models []reputationModel
	if err := query.Find(&models).Error; err != nil {
		r.logError("reputation_leaderboard_failed", err)
		return ports.Leaderboard{}, err
	}

	for i, model := range models {
		record := toReputation(model)
		board.Entries = append(board.Entries, ports.LeaderboardEntry{
			Rank:            filter.Offset + i + 1,
			Address:         record.Address,
			Tier:            record.Tier,
			Score:           record.Score,
			VerifiedActions: record.VerifiedActions,
		})
	}

	if filter.ViewerAddress != "" {
		rank, err := r.viewerRank(ctx, filter.ViewerAddress)
		if err != nil {
			return ports.Leaderboard{}, err
		}
		board.YourRank = rank
	}
	return board, nil
}

func (r *Repository) ApplyVerification(ctx context.Context, address string, points float64, at time.Time) (ports.VolunteerReputation, error) {
	return r.mutate(ctx, address, at, func(model *reputationModel) {
		model.Score += points
		model.VerifiedActions++
		model.LastVerifiedAt = at
	})
}

func (r *Repository) ApplyRejection(ctx context.Context, address string, at time.Time) (ports.VolunteerReputation, error) {
	return r.mutate(ctx, address, at, func(model *reputationModel) {
		model.RejectedActions++
	})
}

func (r *Repository) mutate(ctx context.Context, address string, at time.Time, apply func(*reputationModel)) (ports.VolunteerReputation, error) {
	var result ports.VolunteerReputation
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model reputationModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&model, "address = ?", address).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			model = reputationModel{Address: address}
		} else if err != nil {
			return err
		}

		apply(&model)
		model.UpdatedAt = at

		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "address"}},
			UpdateAll: true,
		}).Create(&model).Error; err != nil {
			return err
		}
		result = toReputation(model)
		return nil
	})
	if err != nil {
		r.logError("reputation_mutation_failed", err, slog.String("volunteer_address", address))
		return ports.VolunteerReputation{}, err
	}
	return result, nil
}

func (r *Repository) viewerRank(ctx context.Context, address string) (int, error) {
	var viewer reputationModel
	err := r.db.WithContext(ctx).First(&viewer, "address = ?", address).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		r.logError("reputation_rank_failed", err, slog.String("volunteer_address", address))
		return 0, err
	}

	var ahead int64
	err = r.db.WithContext(ctx).Model(&reputationModel{}).
		Where("score > ? OR (score = ? AND address < ?)", viewer.Score, viewer.Score, viewer.Address).
		Count(&ahead).Error
	if err != nil {
		r.logError("reputation_rank_failed", err, slog.String("volunteer_address", address))
		return 0, err
	}
	return int(ahead) + 1, nil
}

func tierScope(query *gorm.DB, tier ports.Tier) *gorm.DB {
	switch tier {
	case ports.TierBronze:
		return query.Where("score < ?", ports.SilverFloor)
	case ports.TierSilver:
		return query.Where("score >= ? AND score < ?", ports.SilverFloor, ports.GoldFloor)
	case ports.TierGold:
		return query.Where("score >= ? AND score < ?", ports.GoldFloor, ports.PlatinumFloor)
	default:
		return query.Where("score >= ?", ports.PlatinumFloor)
	}
}

func toReputation(model reputationModel) ports.VolunteerReputation {
	record := ports.VolunteerReputation{
		Address:         model.Address,
		Score:           model.Score,
		Tier:            ports.TierForScore(model.Score),
		VerifiedActions: model.VerifiedActions,
		RejectedActions: model.RejectedActions,
		LastVerifiedAt:  model.LastVerifiedAt,
		UpdatedAt:       model.UpdatedAt,
	}
	next := ports.NextTierFloor(record.Tier)
	record.TierProgress = ports.TierProgress{
		CurrentPoints:  record.Score,
		NextTierPoints: next,
	}
	if next > 0 {
		record.TierProgress.PointsToNext = next - record.Score
	}
	return record
}

func (r *Repository) logError(event string, err error, attrs ...any) {
	args := append([]any{
		"event", event,
		"module", "community/reputation-service",
		"layer", "adapters",
		"error", err.Error(),
	}, attrs...)
	r.logger.Error("reputation repository operation failed", args...)
}
