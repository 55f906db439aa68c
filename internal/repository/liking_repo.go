package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/destined/internal/db"
	"github.com/oggyb/destined/internal/utils/pagination"
)

// LikingRepository stores an actor's action on a target.
//
// The same fact has two physical projections: the standalone Liking
// record and the actor's LikingEntry log. Both are only ever written
// through SaveLike / DeleteLike so they cannot drift apart.
type LikingRepository struct {
	db *gorm.DB
}

// NewLikingRepository creates a new repository bound to the given DB connection.
func NewLikingRepository(database *gorm.DB) *LikingRepository {
	return &LikingRepository{db: database}
}

// WithTx returns a copy bound to tx.
func (r *LikingRepository) WithTx(tx *gorm.DB) *LikingRepository {
	return &LikingRepository{db: tx}
}

// Find returns the actor→target record, or nil if there is none.
func (r *LikingRepository) Find(ctx context.Context, actorID, targetID uint64) (*db.Liking, error) {
	var l db.Liking
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND target_user_id = ?", actorID, targetID).
		Take(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// FindEntry returns the actor's log entry for target, or nil.
func (r *LikingRepository) FindEntry(ctx context.Context, actorID, targetID uint64) (*db.LikingEntry, error) {
	var e db.LikingEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND target_user_id = ?", actorID, targetID).
		Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// SaveLike upserts actor→target as LIKE in both projections.
//
// Behavior:
//   - The Liking record gets action=LIKE and the given target stats snapshot.
//     When mutual, target is added to its matches.
//   - The actor's LikingEntry gets action=LIKE and a fresh created_at.
//     When mutual, target is added to its matches.
//   - When mutual, actor is mirrored into the matches of the target's own
//     projections for actor (target→actor), if they exist.
//
// Must run inside the caller's transaction.
func (r *LikingRepository) SaveLike(
	ctx context.Context,
	actorID, targetID uint64,
	snapshot LikeStats,
	mutual bool,
) (*db.Liking, db.LikingEntry, error) {
	now := r.db.NowFunc()

	existing, err := r.Find(ctx, actorID, targetID)
	if err != nil {
		return nil, db.LikingEntry{}, err
	}
	rec := db.Liking{
		UserID:           actorID,
		TargetUserID:     targetID,
		Action:           db.ActionLike,
		Matches:          db.IDSet{},
		TargetTotalLikes: snapshot.TotalLikes,
		TargetLikedBy:    db.IDSet(snapshot.LikedByUsers),
	}
	if existing != nil {
		rec.Matches = existing.Matches
		rec.CreatedAt = existing.CreatedAt
	}
	if mutual {
		rec.Matches = rec.Matches.Add(targetID)
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "target_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"action", "matches", "target_total_likes", "target_liked_by", "updated_at"}),
		}).
		Create(&rec).Error; err != nil {
		return nil, db.LikingEntry{}, err
	}

	entry, err := r.FindEntry(ctx, actorID, targetID)
	if err != nil {
		return nil, db.LikingEntry{}, err
	}
	if entry == nil {
		entry = &db.LikingEntry{UserID: actorID, TargetUserID: targetID, Matches: db.IDSet{}}
	}
	entry.Action = db.ActionLike
	entry.CreatedAt = now
	if mutual {
		entry.Matches = entry.Matches.Add(targetID)
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "target_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"action", "matches", "created_at"}),
		}).
		Create(entry).Error; err != nil {
		return nil, db.LikingEntry{}, err
	}

	if mutual {
		if err := r.updateReverseMatches(ctx, targetID, actorID, func(s db.IDSet) db.IDSet { return s.Add(actorID) }); err != nil {
			return nil, db.LikingEntry{}, err
		}
	}

	return &rec, *entry, nil
}

// DeleteLike removes actor→target from both projections and prunes actor
// from the matches of target→actor. Deleting an absent record is a no-op.
//
// Must run inside the caller's transaction.
func (r *LikingRepository) DeleteLike(ctx context.Context, actorID, targetID uint64) error {
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND target_user_id = ?", actorID, targetID).
		Delete(&db.LikingEntry{}).Error; err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND target_user_id = ?", actorID, targetID).
		Delete(&db.Liking{}).Error; err != nil {
		return err
	}
	return r.updateReverseMatches(ctx, targetID, actorID, func(s db.IDSet) db.IDSet { return s.Remove(actorID) })
}

// updateReverseMatches rewrites the matches set of owner→other in both projections.
func (r *LikingRepository) updateReverseMatches(ctx context.Context, ownerID, otherID uint64, fn func(db.IDSet) db.IDSet) error {
	entry, err := r.FindEntry(ctx, ownerID, otherID)
	if err != nil {
		return err
	}
	if entry != nil {
		entry.Matches = fn(entry.Matches)
		if err := r.db.WithContext(ctx).
			Model(entry).
			Select("matches").
			Updates(entry).Error; err != nil {
			return err
		}
	}

	rec, err := r.Find(ctx, ownerID, otherID)
	if err != nil {
		return err
	}
	if rec != nil {
		rec.Matches = fn(rec.Matches)
		if err := r.db.WithContext(ctx).
			Model(rec).
			Select("matches").
			Updates(rec).Error; err != nil {
			return err
		}
	}
	return nil
}

// List returns one keyset page of all Liking records ordered by
// (user_id, target_user_id). Pass the zero cursor for the first page.
func (r *LikingRepository) List(ctx context.Context, after pagination.Cursor, limit int) ([]db.Liking, error) {
	q := r.db.WithContext(ctx).Order("user_id, target_user_id").Limit(limit)
	if !after.IsZero() {
		q = q.Where("user_id > ? OR (user_id = ? AND target_user_id > ?)", after.ActorID, after.ActorID, after.TargetID)
	}
	var likings []db.Liking
	err := q.Find(&likings).Error
	return likings, err
}

// Likers returns users currently liking target.
//
// Behavior:
//   - Only records where target_user_id = X and action = LIKE are returned.
//   - Ordered by updated_at DESC, user_id DESC.
//   - Supports cursor-based pagination via paginationToken.
//
// Example:
//
//	repo.Likers(ctx, 42, nil, 20) // first 20 people who liked user 42
func (r *LikingRepository) Likers(
	ctx context.Context,
	targetID uint64,
	paginationToken *string,
	limit int,
) ([]db.Liking, *string, error) {
	var likings []db.Liking

	// decode cursor if provided
	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Where("target_user_id = ? AND action = ?", targetID, db.ActionLike).
		Order("updated_at DESC, user_id DESC").
		Limit(limit + 1)

	// apply cursor
	if cursor.ActorID > 0 && cursor.UpdatedUnix > 0 {
		ts := time.UnixMilli(cursor.UpdatedUnix).UTC()
		query = query.Where(
			"(updated_at < ? OR (updated_at = ? AND user_id < ?))",
			ts, ts, cursor.ActorID,
		)
	}

	if err := query.Find(&likings).Error; err != nil {
		return nil, nil, err
	}

	// pagination: build next cursor if needed
	var nextToken *string
	if len(likings) > limit {
		last := likings[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			ActorID:     last.UserID,
			UpdatedUnix: last.UpdatedAt.UnixMilli(),
		})
		nextToken = &token
		likings = likings[:limit]
	}

	return likings, nextToken, nil
}

// CountLikers returns how many users currently like target.
// Used in conjunction with Redis cache (DB is fallback).
func (r *LikingRepository) CountLikers(ctx context.Context, targetID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Liking{}).
		Where("target_user_id = ? AND action = ?", targetID, db.ActionLike).
		Count(&count).Error
	return count, err
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
