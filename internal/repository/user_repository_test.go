package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/destined/internal/db"
	"github.com/oggyb/destined/internal/repository"
	"github.com/oggyb/destined/internal/testutil"
)

func TestLikerSetDrivesCounter(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.NewTestDB(t)
	repo := repository.NewUserRepository(gdb)
	target := testutil.CreateUser(t, gdb, "Target")

	added, err := repo.AddLiker(ctx, target.ID, 10)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = repo.AddLiker(ctx, target.ID, 10)
	require.NoError(t, err)
	assert.False(t, added, "second insert of the same member is a no-op")

	removed, err := repo.RemoveLiker(ctx, target.ID, 11)
	require.NoError(t, err)
	assert.False(t, removed)

	ids, err := repo.LikerIDs(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint64{10}, ids)
}

func TestAdjustLikes_FloorsAtZero(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.NewTestDB(t)
	repo := repository.NewUserRepository(gdb)
	u := testutil.CreateUser(t, gdb, "Zero")

	require.NoError(t, repo.AdjustLikes(ctx, u.ID, 2))
	require.NoError(t, repo.AdjustLikes(ctx, u.ID, -5))

	assert.Equal(t, int64(0), testutil.Reload(t, gdb, u.ID).TotalLikesReceived)
}

func TestMatchesAreSymmetric(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewUserRepository(testutil.NewTestDB(t))

	require.NoError(t, repo.AddMatch(ctx, 1, 2))
	require.NoError(t, repo.AddMatch(ctx, 2, 1))

	a, err := repo.MatchIDs(ctx, 1)
	require.NoError(t, err)
	b, err := repo.MatchIDs(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, a)
	assert.Equal(t, []uint64{1}, b)

	require.NoError(t, repo.RemoveMatch(ctx, 2, 1))
	a, err = repo.MatchIDs(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, a)
}

func TestFriendsSortedByName(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.NewTestDB(t)
	repo := repository.NewUserRepository(gdb)

	me := testutil.CreateUser(t, gdb, "Me")
	zed := testutil.CreateUser(t, gdb, "Zed")
	amy := testutil.CreateUser(t, gdb, "Amy")

	require.NoError(t, repo.AddFriends(ctx, me.ID, zed.ID))
	require.NoError(t, repo.AddFriends(ctx, me.ID, amy.ID))
	require.NoError(t, repo.AddFriends(ctx, amy.ID, me.ID))

	friends, err := repo.Friends(ctx, me.ID)
	require.NoError(t, err)
	require.Len(t, friends, 2)
	assert.Equal(t, "Amy", friends[0].Name)
	assert.Equal(t, "Zed", friends[1].Name)

	ok, err := repo.AreFriends(ctx, zed.ID, me.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestScanCandidates(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.NewTestDB(t)
	repo := repository.NewUserRepository(gdb)

	me := testutil.CreateUser(t, gdb, "Me", "Music", "Rock")
	a := testutil.CreateUser(t, gdb, "A", "Music", "Rock")
	testutil.CreateUser(t, gdb, "NoInterests")
	pending := testutil.CreateUser(t, gdb, "Pending", "Music", "Rock")
	require.NoError(t, gdb.Model(&db.User{}).Where("id = ?", pending.ID).Update("is_active", db.StatusPending).Error)
	b := testutil.CreateUser(t, gdb, "B", "Travel", "Asia", "Music", "Jazz")

	page, err := repo.ScanCandidates(ctx, me.ID, 0, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, a.ID, page[0].ID)
	require.Len(t, page[0].Interests, 1)

	page, err = repo.ScanCandidates(ctx, me.ID, a.ID, 10)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, b.ID, page[0].ID)
	assert.Len(t, page[0].Interests, 2)
}

func TestReplaceProfileMatches(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.NewTestDB(t)
	repo := repository.NewUserRepository(gdb)
	u := testutil.CreateUser(t, gdb, "U")

	entries := []db.ProfileMatchEntry{{UserID: 9, MatchScore: 50, SharedInterests: []db.Interest{{Interest: "Music", SelectedOption: "Rock"}}}}
	require.NoError(t, repo.ReplaceProfileMatches(ctx, u.ID, entries))
	require.NoError(t, repo.ReplaceProfileMatches(ctx, u.ID, entries[:0]))

	assert.Empty(t, testutil.Reload(t, gdb, u.ID).ProfileMatches)

	require.NoError(t, repo.ReplaceProfileMatches(ctx, u.ID, entries))
	got := testutil.Reload(t, gdb, u.ID).ProfileMatches
	require.Len(t, got, 1)
	assert.Equal(t, uint64(9), got[0].UserID)
}

func TestLockUsers_MissingAreAbsent(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.NewTestDB(t)
	repo := repository.NewUserRepository(gdb)
	u := testutil.CreateUser(t, gdb, "Only")

	users, err := repo.LockUsers(ctx, u.ID, 999)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, u.ID, users[0].ID)
}
