package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/destined/internal/db"
)

// ProfileMatchRepository stores scored candidates per (user, target).
type ProfileMatchRepository struct {
	db *gorm.DB
}

func NewProfileMatchRepository(database *gorm.DB) *ProfileMatchRepository {
	return &ProfileMatchRepository{db: database}
}

// WithTx returns a copy bound to tx.
func (r *ProfileMatchRepository) WithTx(tx *gorm.DB) *ProfileMatchRepository {
	return &ProfileMatchRepository{db: tx}
}

// UpsertMany writes rows keyed by (user_id, target_user_id), overwriting
// score, shared interests and created_at of existing pairs.
func (r *ProfileMatchRepository) UpsertMany(ctx context.Context, rows []db.ProfileMatch) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "target_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"match_score", "shared_interests", "created_at"}),
		}).
		CreateInBatches(&rows, 100).Error
}

// ForUser returns the stored matches of userID, best first.
func (r *ProfileMatchRepository) ForUser(ctx context.Context, userID uint64) ([]db.ProfileMatch, error) {
	var rows []db.ProfileMatch
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("match_score DESC, target_user_id").
		Find(&rows).Error
	return rows, err
}
