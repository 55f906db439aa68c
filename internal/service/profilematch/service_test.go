package profilematch_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/destined/internal/auth"
	"github.com/oggyb/destined/internal/db"
	svcErr "github.com/oggyb/destined/internal/errors"
	"github.com/oggyb/destined/internal/repository"
	"github.com/oggyb/destined/internal/service/profilematch"
	"github.com/oggyb/destined/internal/testutil"
)

func as(id uint64) context.Context {
	return auth.WithIdentity(context.Background(), auth.Identity{UserID: id, Role: auth.RoleUser})
}

func str(id uint64) string { return strconv.FormatUint(id, 10) }

func TestComputeMatches(t *testing.T) {
	appCtx := testutil.NewTestApp(t)
	svc := profilematch.NewService(appCtx)

	alice := testutil.CreateUser(t, appCtx.DB, "Alice", "Music", "Rock")
	bob := testutil.CreateUser(t, appCtx.DB, "Bob", "Music", "Rock", "Travel", "Asia")
	testutil.CreateUser(t, appCtx.DB, "Carol", "Sport", "Tennis")
	dave := testutil.CreateUser(t, appCtx.DB, "Dave", "Music", "Rock")
	erin := testutil.CreateUser(t, appCtx.DB, "Erin", "Music", "Rock")
	require.NoError(t, appCtx.DB.Model(&db.User{}).Where("id = ?", erin.ID).Update("is_active", db.StatusPending).Error)
	testutil.CreateUser(t, appCtx.DB, "Frank")

	res, err := svc.ComputeMatches(as(alice.ID), str(alice.ID))
	require.NoError(t, err)
	assert.True(t, res.HasInterests)

	// carol shares nothing, erin is not verified, frank has no interests
	require.Len(t, res.Matches, 2)
	assert.Equal(t, dave.ID, res.Matches[0].ID)
	assert.InDelta(t, 100.0, res.Matches[0].MatchScore, 0.01)
	assert.True(t, res.Matches[0].IsPerfectMatch)
	assert.Equal(t, bob.ID, res.Matches[1].ID)
	assert.InDelta(t, 66.67, res.Matches[1].MatchScore, 0.01)
	assert.False(t, res.Matches[1].IsPerfectMatch)
	assert.Equal(t, []db.Interest{{Interest: "Music", SelectedOption: "Rock"}}, res.Matches[1].SharedInterests)

	rows, err := repository.NewProfileMatchRepository(appCtx.DB).ForUser(context.Background(), alice.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, dave.ID, rows[0].TargetUserID)
	assert.Equal(t, bob.ID, rows[1].TargetUserID)

	cached := testutil.Reload(t, appCtx.DB, alice.ID).ProfileMatches
	require.Len(t, cached, 2)
	assert.Equal(t, dave.ID, cached[0].UserID)
}

func TestComputeMatches_RecomputeReplaces(t *testing.T) {
	appCtx := testutil.NewTestApp(t)
	svc := profilematch.NewService(appCtx)

	alice := testutil.CreateUser(t, appCtx.DB, "Alice", "Music", "Rock")
	bob := testutil.CreateUser(t, appCtx.DB, "Bob", "Music", "Rock")

	_, err := svc.ComputeMatches(as(alice.ID), str(alice.ID))
	require.NoError(t, err)

	require.NoError(t, appCtx.DB.Where("user_id = ?", bob.ID).Delete(&db.UserInterest{}).Error)
	testutil.CreateUser(t, appCtx.DB, "Carol", "Music", "Rock", "Pets", "Dogs")

	res, err := svc.ComputeMatches(as(alice.ID), str(alice.ID))
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)

	cached := testutil.Reload(t, appCtx.DB, alice.ID).ProfileMatches
	require.Len(t, cached, 1)
	assert.Equal(t, res.Matches[0].ID, cached[0].UserID)

	var n int64
	require.NoError(t, appCtx.DB.Model(&db.ProfileMatch{}).Where("user_id = ?", alice.ID).Count(&n).Error)
	assert.Equal(t, int64(2), n, "standalone rows are upserted, never pruned")
}

func TestComputeMatches_NoInterests(t *testing.T) {
	appCtx := testutil.NewTestApp(t)
	svc := profilematch.NewService(appCtx)

	alice := testutil.CreateUser(t, appCtx.DB, "Alice")
	testutil.CreateUser(t, appCtx.DB, "Bob", "Music", "Rock")

	res, err := svc.ComputeMatches(as(alice.ID), str(alice.ID))
	require.NoError(t, err)
	assert.False(t, res.HasInterests)
	assert.Empty(t, res.Matches)

	var n int64
	require.NoError(t, appCtx.DB.Model(&db.ProfileMatch{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestComputeMatches_Rejections(t *testing.T) {
	appCtx := testutil.NewTestApp(t)
	svc := profilematch.NewService(appCtx)
	alice := testutil.CreateUser(t, appCtx.DB, "Alice", "Music", "Rock")

	_, err := svc.ComputeMatches(as(alice.ID), "x")
	assert.Equal(t, svcErr.KindValidation, svcErr.KindOf(err))

	_, err = svc.ComputeMatches(as(alice.ID+1), str(alice.ID))
	assert.Equal(t, svcErr.KindAuthorization, svcErr.KindOf(err))

	admin := auth.WithIdentity(context.Background(), auth.Identity{UserID: 1000, Role: auth.RoleSuperAdmin})
	_, err = svc.ComputeMatches(admin, "999")
	assert.Equal(t, svcErr.KindNotFound, svcErr.KindOf(err))
}
