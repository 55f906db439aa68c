package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/destined/internal/db"
)

// UserRepository owns the user row and its relation sets
// (likers, matches, friends, interests).
//
// Set writes are single-row inserts/deletes so writers touching
// different relations of the same user never overwrite each other.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new repository bound to the given DB connection.
func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// WithTx returns a copy bound to tx.
func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{db: tx}
}

// LikeStats is the denormalized like counter with its source set.
type LikeStats struct {
	TotalLikes   int64
	LikedByUsers []uint64
}

// FindByID returns gorm.ErrRecordNotFound when the user does not exist.
func (r *UserRepository) FindByID(ctx context.Context, id uint64) (*db.User, error) {
	var u db.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// FindMany returns the users that exist among ids, ordered by id.
func (r *UserRepository) FindMany(ctx context.Context, ids []uint64) ([]db.User, error) {
	var users []db.User
	if len(ids) == 0 {
		return users, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&users).Error
	return users, err
}

// LockUsers loads the given users with row locks, always in ascending id
// order so two transactions locking the same pair cannot deadlock.
// Users that do not exist are simply absent from the result.
//
// SQLite has no row locks; it serializes writers on its own.
func (r *UserRepository) LockUsers(ctx context.Context, ids ...uint64) ([]db.User, error) {
	q := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id")
	if r.db.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var users []db.User
	err := q.Find(&users).Error
	return users, err
}

// Profiles resolves public profiles for ids, ordered by id.
func (r *UserRepository) Profiles(ctx context.Context, ids []uint64) ([]db.Profile, error) {
	users, err := r.FindMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]db.Profile, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out, nil
}

// --- likers ---

// AddLiker adds liker to the user's likedByUsers set.
// Returns true only when the member was not already present.
func (r *UserRepository) AddLiker(ctx context.Context, userID, likerID uint64) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&db.UserLiker{UserID: userID, LikerID: likerID})
	return res.RowsAffected == 1, res.Error
}

// RemoveLiker removes liker from the set. Returns true if a row was removed.
func (r *UserRepository) RemoveLiker(ctx context.Context, userID, likerID uint64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND liker_id = ?", userID, likerID).
		Delete(&db.UserLiker{})
	return res.RowsAffected == 1, res.Error
}

// AdjustLikes moves total_likes_received by delta, never below zero.
func (r *UserRepository) AdjustLikes(ctx context.Context, userID uint64, delta int64) error {
	return r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", userID).
		UpdateColumn("total_likes_received", gorm.Expr(
			"CASE WHEN total_likes_received + ? < 0 THEN 0 ELSE total_likes_received + ? END", delta, delta,
		)).Error
}

func (r *UserRepository) LikerIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	return r.pluck(ctx, &db.UserLiker{}, "liker_id", userID)
}

// LikeStats reads the counter and the liker set of one user.
func (r *UserRepository) LikeStats(ctx context.Context, userID uint64) (LikeStats, error) {
	stats, err := r.LikeStatsMany(ctx, []uint64{userID})
	if err != nil {
		return LikeStats{}, err
	}
	return stats[userID], nil
}

// LikeStatsMany batches LikeStats for several users.
func (r *UserRepository) LikeStatsMany(ctx context.Context, ids []uint64) (map[uint64]LikeStats, error) {
	out := make(map[uint64]LikeStats, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var counters []struct {
		ID                 uint64
		TotalLikesReceived int64
	}
	if err := r.db.WithContext(ctx).Model(&db.User{}).
		Select("id, total_likes_received").
		Where("id IN ?", ids).
		Scan(&counters).Error; err != nil {
		return nil, err
	}
	for _, c := range counters {
		out[c.ID] = LikeStats{TotalLikes: c.TotalLikesReceived, LikedByUsers: []uint64{}}
	}

	var likers []db.UserLiker
	if err := r.db.WithContext(ctx).
		Where("user_id IN ?", ids).
		Order("user_id, created_at, liker_id").
		Find(&likers).Error; err != nil {
		return nil, err
	}
	for _, l := range likers {
		s := out[l.UserID]
		s.LikedByUsers = append(s.LikedByUsers, l.LikerID)
		out[l.UserID] = s
	}
	return out, nil
}

// --- matches ---

// AddMatch records the match in both directions. Idempotent.
func (r *UserRepository) AddMatch(ctx context.Context, a, b uint64) error {
	rows := []db.UserMatch{{UserID: a, MatchID: b}, {UserID: b, MatchID: a}}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

// RemoveMatch drops the match in both directions. Idempotent.
func (r *UserRepository) RemoveMatch(ctx context.Context, a, b uint64) error {
	return r.db.WithContext(ctx).
		Where("(user_id = ? AND match_id = ?) OR (user_id = ? AND match_id = ?)", a, b, b, a).
		Delete(&db.UserMatch{}).Error
}

func (r *UserRepository) MatchIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	return r.pluck(ctx, &db.UserMatch{}, "match_id", userID)
}

// --- friends ---

// AreFriends reports whether either direction of the friendship exists.
func (r *UserRepository) AreFriends(ctx context.Context, a, b uint64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&db.UserFriend{}).
		Where("(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)", a, b, b, a).
		Count(&n).Error
	return n > 0, err
}

// AddFriends records the friendship in both directions. Idempotent.
func (r *UserRepository) AddFriends(ctx context.Context, a, b uint64) error {
	rows := []db.UserFriend{{UserID: a, FriendID: b}, {UserID: b, FriendID: a}}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

// Friends returns the user's friends ordered by name.
func (r *UserRepository) Friends(ctx context.Context, userID uint64) ([]db.User, error) {
	var users []db.User
	err := r.db.WithContext(ctx).
		Joins("JOIN user_friends uf ON uf.friend_id = users.id").
		Where("uf.user_id = ?", userID).
		Order("users.name, users.id").
		Find(&users).Error
	return users, err
}

// --- interests & profile matches ---

func (r *UserRepository) Interests(ctx context.Context, userID uint64) ([]db.UserInterest, error) {
	var interests []db.UserInterest
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&interests).Error
	return interests, err
}

// ScanCandidates returns the next page of VERIFIED users other than
// excludeID that have at least one interest, keyed by id > afterID.
// Interests are preloaded.
func (r *UserRepository) ScanCandidates(ctx context.Context, excludeID, afterID uint64, limit int) ([]db.User, error) {
	var users []db.User
	err := r.db.WithContext(ctx).
		Preload("Interests", func(tx *gorm.DB) *gorm.DB { return tx.Order("id") }).
		Where("id <> ? AND id > ? AND is_active = ?", excludeID, afterID, db.StatusVerified).
		Where("EXISTS (SELECT 1 FROM user_interests ui WHERE ui.user_id = users.id)").
		Order("id").
		Limit(limit).
		Find(&users).Error
	return users, err
}

// ReplaceProfileMatches overwrites the cached profile match list.
func (r *UserRepository) ReplaceProfileMatches(ctx context.Context, userID uint64, entries []db.ProfileMatchEntry) error {
	if entries == nil {
		entries = []db.ProfileMatchEntry{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode profile matches: %w", err)
	}
	return r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", userID).
		UpdateColumn("profile_matches", string(raw)).Error
}

func (r *UserRepository) pluck(ctx context.Context, model any, column string, userID uint64) ([]uint64, error) {
	ids := []uint64{}
	err := r.db.WithContext(ctx).Model(model).
		Where("user_id = ?", userID).
		Order("created_at, " + column).
		Pluck(column, &ids).Error
	return ids, err
}
