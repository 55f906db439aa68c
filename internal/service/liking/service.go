package liking

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/destined/internal/app"
	"github.com/oggyb/destined/internal/db"
	svcErr "github.com/oggyb/destined/internal/errors"
	"github.com/oggyb/destined/internal/repository"
	"github.com/oggyb/destined/internal/service"
	"github.com/oggyb/destined/internal/utils/pagination"
)

const (
	likedYouPageSize = 20
	listBatchSize    = 500
)

// Service applies like/dislike actions and serves like statistics.
// It is the only writer of likings, liking entries, likers, matches and
// the like counter.
type Service struct {
	appCtx  *app.AppContext
	users   *repository.UserRepository
	likings *repository.LikingRepository
}

// NewService creates the liking service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:  appCtx,
		users:   repository.NewUserRepository(appCtx.DB),
		likings: repository.NewLikingRepository(appCtx.DB),
	}
}

// IsMutual reports whether a→b and b→a are both LIKE.
// Match membership is always derived from this, never stored as a flag.
func IsMutual(ab, ba *db.Liking) bool {
	return ab != nil && ba != nil && ab.Action == db.ActionLike && ba.Action == db.ActionLike
}

// LikeStats is the target's current like counter with resolved liker profiles.
type LikeStats struct {
	TotalLikes   int64        `json:"totalLikes"`
	LikedByUsers []db.Profile `json:"likedByUsers"`
}

// Entry is one item of a user's outgoing action log.
type Entry struct {
	TargetUserID uint64    `json:"targetUserId"`
	Action       string    `json:"action"`
	Matches      []uint64  `json:"matches"`
	CreatedAt    time.Time `json:"createdAt"`
}

// RecordStats is the target stats block of a Liking record.
type RecordStats struct {
	TotalLikes   int64    `json:"totalLikes"`
	LikedByUsers []uint64 `json:"likedByUsers"`
}

// Record is the public shape of a standalone Liking record.
type Record struct {
	UserID          uint64      `json:"user"`
	TargetUserID    uint64      `json:"targetUserId"`
	Action          string      `json:"action"`
	Matches         []uint64    `json:"matches"`
	TargetUserStats RecordStats `json:"targetUserStats"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

type CurrentUser struct {
	ID      uint64   `json:"id"`
	Matches []uint64 `json:"matches"`
	Liking  *Entry   `json:"liking,omitempty"`
}

type TargetUser struct {
	ID        uint64    `json:"id"`
	Matches   []uint64  `json:"matches,omitempty"`
	LikeStats LikeStats `json:"likeStats"`
}

type LikeResult struct {
	IsMatch      bool        `json:"isMatch"`
	CurrentUser  CurrentUser `json:"currentUser"`
	TargetUser   TargetUser  `json:"targetUser"`
	LikingRecord Record      `json:"likingRecord"`
}

type DislikeResult struct {
	CurrentUser CurrentUser `json:"currentUser"`
	TargetUser  TargetUser  `json:"targetUser"`
}

// Liker is one entry of the liked-you list.
type Liker struct {
	User    db.Profile `json:"user"`
	LikedAt time.Time  `json:"likedAt"`
}

type LikedYouPage struct {
	Likers              []Liker `json:"likers"`
	NextPaginationToken *string `json:"nextPaginationToken,omitempty"`
}

// LikeUser records actorID → targetID as LIKE.
//
// Behavior:
//   - Validates ids, then the caller (must be actor or SUPERADMIN), then
//     rejects self-likes, all before any state is read.
//   - In one transaction: locks both users, adds actor to the target's
//     likers and bumps the counter only if the like is new, reconciles
//     the match edges from IsMutual, and writes both liking projections.
//   - After commit: refreshes the cached like count of the target.
//
// Calling it twice leaves the same state as calling it once.
func (s *Service) LikeUser(ctx context.Context, actorRaw, targetRaw string) (*LikeResult, error) {
	s.appCtx.Logger.Debug("LikeUser called", "actor", actorRaw, "target", targetRaw)

	actorID, targetID, err := s.checkPair(ctx, actorRaw, targetRaw)
	if err != nil {
		s.appCtx.Metrics.ObserveLiking("like", err, false)
		return nil, err
	}

	var (
		mutual bool
		rec    *db.Liking
		entry  db.LikingEntry
	)
	err = s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.users.WithTx(tx)
		likings := s.likings.WithTx(tx)

		if err := lockPair(ctx, users, actorID, targetID); err != nil {
			return err
		}

		reciprocal, err := likings.Find(ctx, targetID, actorID)
		if err != nil {
			return err
		}
		existing, err := likings.Find(ctx, actorID, targetID)
		if err != nil {
			return err
		}
		isNewLike := existing == nil || existing.Action != db.ActionLike

		// snapshot is taken before this like is counted
		snapshot, err := users.LikeStats(ctx, targetID)
		if err != nil {
			return err
		}

		if isNewLike {
			added, err := users.AddLiker(ctx, targetID, actorID)
			if err != nil {
				return err
			}
			if added {
				if err := users.AdjustLikes(ctx, targetID, 1); err != nil {
					return err
				}
			}
		}

		mutual = IsMutual(&db.Liking{Action: db.ActionLike}, reciprocal)
		if mutual {
			err = users.AddMatch(ctx, actorID, targetID)
		} else {
			err = users.RemoveMatch(ctx, actorID, targetID)
		}
		if err != nil {
			return err
		}

		rec, entry, err = likings.SaveLike(ctx, actorID, targetID, snapshot, mutual)
		return err
	})
	if err != nil {
		err = s.fail("LikeUser", err)
		s.appCtx.Metrics.ObserveLiking("like", err, false)
		return nil, err
	}

	res := &LikeResult{
		IsMatch:      mutual,
		CurrentUser:  CurrentUser{ID: actorID, Liking: toEntry(entry)},
		TargetUser:   TargetUser{ID: targetID},
		LikingRecord: toRecord(*rec, RecordStats{TotalLikes: rec.TargetTotalLikes, LikedByUsers: ids(rec.TargetLikedBy)}),
	}
	if err := s.fillAfterCommit(ctx, &res.CurrentUser, &res.TargetUser, true); err != nil {
		return nil, s.fail("LikeUser", err)
	}

	s.appCtx.Metrics.ObserveLiking("like", nil, mutual)
	s.appCtx.Logger.Info("user liked", "actor", actorID, "target", targetID, "match", mutual)
	return res, nil
}

// DislikeUser withdraws actorID's action on targetID.
//
// Behavior:
//   - Same validation, authorization and self-reference rules as LikeUser.
//   - If the previous action was LIKE, actor leaves the target's likers
//     and the counter drops (never below zero).
//   - Any match between the two is removed.
//   - Both liking projections are deleted; no tombstone is kept.
func (s *Service) DislikeUser(ctx context.Context, actorRaw, targetRaw string) (*DislikeResult, error) {
	s.appCtx.Logger.Debug("DislikeUser called", "actor", actorRaw, "target", targetRaw)

	actorID, targetID, err := s.checkPair(ctx, actorRaw, targetRaw)
	if err != nil {
		s.appCtx.Metrics.ObserveLiking("dislike", err, false)
		return nil, err
	}

	err = s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.users.WithTx(tx)
		likings := s.likings.WithTx(tx)

		if err := lockPair(ctx, users, actorID, targetID); err != nil {
			return err
		}

		existing, err := likings.Find(ctx, actorID, targetID)
		if err != nil {
			return err
		}
		if existing != nil && existing.Action == db.ActionLike {
			removed, err := users.RemoveLiker(ctx, targetID, actorID)
			if err != nil {
				return err
			}
			if removed {
				if err := users.AdjustLikes(ctx, targetID, -1); err != nil {
					return err
				}
			}
		}

		if err := users.RemoveMatch(ctx, actorID, targetID); err != nil {
			return err
		}
		return likings.DeleteLike(ctx, actorID, targetID)
	})
	if err != nil {
		err = s.fail("DislikeUser", err)
		s.appCtx.Metrics.ObserveLiking("dislike", err, false)
		return nil, err
	}

	res := &DislikeResult{
		CurrentUser: CurrentUser{ID: actorID},
		TargetUser:  TargetUser{ID: targetID},
	}
	if err := s.fillAfterCommit(ctx, &res.CurrentUser, &res.TargetUser, false); err != nil {
		return nil, s.fail("DislikeUser", err)
	}

	s.appCtx.Metrics.ObserveLiking("dislike", nil, false)
	s.appCtx.Logger.Info("user disliked", "actor", actorID, "target", targetID)
	return res, nil
}

// AllLikings returns every Liking record with targetUserStats replaced by
// the target's current counter and likers. Records are streamed from the
// database in pages.
func (s *Service) AllLikings(ctx context.Context) ([]Record, error) {
	if _, err := service.Caller(ctx); err != nil {
		return nil, err
	}

	out := []Record{}
	var cursor pagination.Cursor
	for {
		page, err := s.likings.List(ctx, cursor, listBatchSize)
		if err != nil {
			return nil, s.fail("AllLikings", err)
		}
		if len(page) == 0 {
			return out, nil
		}

		targets := make([]uint64, 0, len(page))
		for _, l := range page {
			targets = append(targets, l.TargetUserID)
		}
		stats, err := s.users.LikeStatsMany(ctx, targets)
		if err != nil {
			return nil, s.fail("AllLikings", err)
		}

		for _, l := range page {
			cur, ok := stats[l.TargetUserID]
			if !ok {
				// target deleted since; keep the snapshot
				cur = repository.LikeStats{TotalLikes: l.TargetTotalLikes, LikedByUsers: ids(l.TargetLikedBy)}
			}
			out = append(out, toRecord(l, RecordStats{TotalLikes: cur.TotalLikes, LikedByUsers: cur.LikedByUsers}))
		}

		last := page[len(page)-1]
		cursor = pagination.Cursor{ActorID: last.UserID, TargetID: last.TargetUserID}
		if len(page) < listBatchSize {
			return out, nil
		}
	}
}

// ListLikedYou returns the users currently liking userID, newest first.
//
// Behavior:
//   - Caller must be userID or SUPERADMIN.
//   - Supports cursor-based pagination with paginationToken.
func (s *Service) ListLikedYou(ctx context.Context, userRaw string, paginationToken *string) (*LikedYouPage, error) {
	userID, err := service.ParseUserID(userRaw)
	if err != nil {
		return nil, err
	}
	if err := service.Authorize(ctx, userID, "Unauthorized to view these likes"); err != nil {
		return nil, err
	}

	likings, nextToken, err := s.likings.Likers(ctx, userID, paginationToken, likedYouPageSize)
	if errors.Is(err, pagination.ErrInvalidToken) {
		return nil, svcErr.InvalidArgument(err.Error())
	}
	if err != nil {
		return nil, s.fail("ListLikedYou", err)
	}

	actorIDs := make([]uint64, 0, len(likings))
	for _, l := range likings {
		actorIDs = append(actorIDs, l.UserID)
	}
	profiles, err := s.users.Profiles(ctx, actorIDs)
	if err != nil {
		return nil, s.fail("ListLikedYou", err)
	}
	byID := make(map[uint64]db.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	page := &LikedYouPage{Likers: []Liker{}, NextPaginationToken: nextToken}
	for _, l := range likings {
		p, ok := byID[l.UserID]
		if !ok {
			continue
		}
		page.Likers = append(page.Likers, Liker{User: p, LikedAt: l.UpdatedAt})
	}
	return page, nil
}

// CountLikedYou returns how many users currently like userID.
// Cache-first strategy:
//  1. Attempts to read from Redis (likes:count:userID), refreshing its TTL.
//  2. On cache miss or Redis failure, falls back to the user's counter.
//  3. On DB fetch, updates Redis with a 1h TTL.
func (s *Service) CountLikedYou(ctx context.Context, userRaw string) (int64, error) {
	userID, err := service.ParseUserID(userRaw)
	if err != nil {
		return 0, err
	}
	if err := service.Authorize(ctx, userID, "Unauthorized to view these likes"); err != nil {
		return 0, err
	}

	if s.appCtx.RedisCache != nil {
		n, ok, err := s.appCtx.RedisCache.GetLikeCount(ctx, userID)
		if err != nil {
			s.appCtx.Logger.Warn("like count cache read failed", "user", userID, "err", err)
		} else if ok {
			return n, nil
		}
	}

	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, svcErr.NotFound("User not found")
	}
	if err != nil {
		return 0, s.fail("CountLikedYou", err)
	}

	s.cacheLikeCount(ctx, userID, user.TotalLikesReceived)
	return user.TotalLikesReceived, nil
}

// checkPair runs the validation, authorization and self-reference checks.
func (s *Service) checkPair(ctx context.Context, actorRaw, targetRaw string) (uint64, uint64, error) {
	actorID, err := service.ParseUserID(actorRaw)
	if err != nil {
		return 0, 0, err
	}
	targetID, err := service.ParseUserID(targetRaw)
	if err != nil {
		return 0, 0, err
	}
	if err := service.Authorize(ctx, actorID, "Unauthorized to act for this user"); err != nil {
		return 0, 0, err
	}
	if actorID == targetID {
		return 0, 0, svcErr.AlreadyExists("Cannot interact with yourself")
	}
	return actorID, targetID, nil
}

func lockPair(ctx context.Context, users *repository.UserRepository, actorID, targetID uint64) error {
	locked, err := users.LockUsers(ctx, actorID, targetID)
	if err != nil {
		return err
	}
	if len(locked) != 2 {
		return svcErr.NotFound("User not found")
	}
	return nil
}

// fillAfterCommit resolves match lists and the target's current stats.
func (s *Service) fillAfterCommit(ctx context.Context, cur *CurrentUser, target *TargetUser, withTargetMatches bool) error {
	var err error
	if cur.Matches, err = s.users.MatchIDs(ctx, cur.ID); err != nil {
		return err
	}
	if withTargetMatches {
		if target.Matches, err = s.users.MatchIDs(ctx, target.ID); err != nil {
			return err
		}
	}

	stats, err := s.users.LikeStats(ctx, target.ID)
	if err != nil {
		return err
	}
	profiles, err := s.users.Profiles(ctx, stats.LikedByUsers)
	if err != nil {
		return err
	}
	target.LikeStats = LikeStats{TotalLikes: stats.TotalLikes, LikedByUsers: profiles}

	s.cacheLikeCount(ctx, target.ID, stats.TotalLikes)
	return nil
}

func (s *Service) cacheLikeCount(ctx context.Context, userID uint64, n int64) {
	if s.appCtx.RedisCache == nil {
		return
	}
	if err := s.appCtx.RedisCache.UpdateLikeCount(ctx, userID, n); err != nil {
		s.appCtx.Logger.Warn("like count cache write failed", "user", userID, "err", err)
	}
}

// fail maps err to a service error and logs storage failures with their cause.
func (s *Service) fail(op string, err error) error {
	mapped := svcErr.Map(err)
	if svcErr.Is(mapped, svcErr.KindPersistence) {
		s.appCtx.Logger.Error(op+" failed", "err", err)
	}
	return mapped
}

func toEntry(e db.LikingEntry) *Entry {
	return &Entry{
		TargetUserID: e.TargetUserID,
		Action:       e.Action,
		Matches:      ids(e.Matches),
		CreatedAt:    e.CreatedAt,
	}
}

func toRecord(l db.Liking, stats RecordStats) Record {
	return Record{
		UserID:          l.UserID,
		TargetUserID:    l.TargetUserID,
		Action:          l.Action,
		Matches:         ids(l.Matches),
		TargetUserStats: stats,
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
	}
}

func ids(s db.IDSet) []uint64 {
	if s == nil {
		return []uint64{}
	}
	return []uint64(s)
}
