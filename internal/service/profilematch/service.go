package profilematch

import (
	"context"
	"errors"
	"sort"

	"gorm.io/gorm"

	"github.com/oggyb/destined/internal/app"
	"github.com/oggyb/destined/internal/db"
	svcErr "github.com/oggyb/destined/internal/errors"
	"github.com/oggyb/destined/internal/repository"
	"github.com/oggyb/destined/internal/service"
)

// Service recomputes a user's profile matches on demand.
// It is the only writer of profile_matches and users.profile_matches.
type Service struct {
	appCtx  *app.AppContext
	users   *repository.UserRepository
	matches *repository.ProfileMatchRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:  appCtx,
		users:   repository.NewUserRepository(appCtx.DB),
		matches: repository.NewProfileMatchRepository(appCtx.DB),
	}
}

// Match is one scored candidate as returned to the caller.
type Match struct {
	db.Profile
	MatchScore      float64       `json:"matchScore"`
	SharedInterests []db.Interest `json:"sharedInterests"`
	IsPerfectMatch  bool          `json:"isPerfectMatch"`
}

// Result carries the matches and whether the user had any interests at all.
type Result struct {
	HasInterests bool
	Matches      []Match
}

// ComputeMatches scores every other verified user with interests against
// userID and persists the result.
//
// Behavior:
//   - Caller must be userID or SUPERADMIN. Unknown users are NOT_FOUND.
//   - No interests: empty result, nothing written.
//   - Candidates are streamed in keyset pages of Match.ScanBatchSize.
//   - Candidates without shared interests are dropped. The rest are sorted
//     by score descending, ties by id.
//   - Standalone rows are upserted and the user's cached list is replaced
//     in a single transaction.
func (s *Service) ComputeMatches(ctx context.Context, userRaw string) (*Result, error) {
	res, err := s.compute(ctx, userRaw)
	n := 0
	if res != nil {
		n = len(res.Matches)
	}
	s.appCtx.Metrics.ObserveProfileMatch(n, err)
	return res, err
}

func (s *Service) compute(ctx context.Context, userRaw string) (*Result, error) {
	userID, err := service.ParseUserID(userRaw)
	if err != nil {
		return nil, err
	}
	if err := service.Authorize(ctx, userID, "Unauthorized to view these matches"); err != nil {
		return nil, err
	}

	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, svcErr.NotFound("User not found")
		}
		return nil, s.fail(err)
	}

	own, err := s.users.Interests(ctx, userID)
	if err != nil {
		return nil, s.fail(err)
	}
	if len(own) == 0 {
		return &Result{Matches: []Match{}}, nil
	}
	mine := pairs(own)

	batch := s.appCtx.Config.Match.ScanBatchSize
	if batch <= 0 {
		batch = 200
	}

	matches := []Match{}
	var after uint64
	for {
		page, err := s.users.ScanCandidates(ctx, userID, after, batch)
		if err != nil {
			return nil, s.fail(err)
		}
		for _, u := range page {
			sc := ScoreInterests(mine, pairs(u.Interests))
			if len(sc.Shared) == 0 {
				continue
			}
			matches = append(matches, Match{
				Profile:         u.Public(),
				MatchScore:      sc.Value,
				SharedInterests: sc.Shared,
				IsPerfectMatch:  sc.Perfect,
			})
		}
		if len(page) < batch {
			break
		}
		after = page[len(page)-1].ID
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].MatchScore != matches[j].MatchScore {
			return matches[i].MatchScore > matches[j].MatchScore
		}
		return matches[i].ID < matches[j].ID
	})

	now := s.appCtx.DB.NowFunc()
	rows := make([]db.ProfileMatch, 0, len(matches))
	entries := make([]db.ProfileMatchEntry, 0, len(matches))
	for _, m := range matches {
		rows = append(rows, db.ProfileMatch{
			UserID:          userID,
			TargetUserID:    m.ID,
			MatchScore:      m.MatchScore,
			SharedInterests: m.SharedInterests,
			CreatedAt:       now,
		})
		entries = append(entries, db.ProfileMatchEntry{
			UserID:          m.ID,
			MatchScore:      m.MatchScore,
			SharedInterests: m.SharedInterests,
			CreatedAt:       now,
		})
	}

	err = s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.matches.WithTx(tx).UpsertMany(ctx, rows); err != nil {
			return err
		}
		return s.users.WithTx(tx).ReplaceProfileMatches(ctx, userID, entries)
	})
	if err != nil {
		return nil, s.fail(err)
	}

	s.appCtx.Logger.Info("profile matches computed", "user", userID, "matches", len(matches))
	return &Result{HasInterests: true, Matches: matches}, nil
}

func (s *Service) fail(err error) error {
	s.appCtx.Logger.Error("ComputeMatches failed", "err", err)
	return svcErr.Internal("Error processing matches", err)
}
