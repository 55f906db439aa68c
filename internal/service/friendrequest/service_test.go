package friendrequest_test

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/destined/internal/app"
	"github.com/oggyb/destined/internal/auth"
	"github.com/oggyb/destined/internal/db"
	svcErr "github.com/oggyb/destined/internal/errors"
	"github.com/oggyb/destined/internal/realtime"
	"github.com/oggyb/destined/internal/service/friendrequest"
	"github.com/oggyb/destined/internal/testutil"
)

type push struct {
	UserID  uint64
	Event   string
	Payload realtime.Payload
}

type recorder struct {
	mu     sync.Mutex
	pushes []push
}

func (r *recorder) Emit(userID uint64, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushes = append(r.pushes, push{UserID: userID, Event: event, Payload: payload.(realtime.Payload)})
}

func (r *recorder) last(t *testing.T) push {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.pushes)
	return r.pushes[len(r.pushes)-1]
}

func setup(t *testing.T) (*app.AppContext, *friendrequest.Service, *recorder, db.User, db.User) {
	t.Helper()
	appCtx := testutil.NewTestApp(t)
	rec := &recorder{}
	a := testutil.CreateUser(t, appCtx.DB, "Alice")
	b := testutil.CreateUser(t, appCtx.DB, "Bob")
	return appCtx, friendrequest.NewService(appCtx, rec), rec, a, b
}

func as(u db.User) context.Context {
	return auth.WithIdentity(context.Background(), auth.Identity{UserID: u.ID, Role: auth.RoleUser})
}

func id(u db.User) string { return strconv.FormatUint(u.ID, 10) }

func TestFriendRequest_Lifecycle(t *testing.T) {
	appCtx, svc, rec, a, b := setup(t)

	sent, err := svc.Send(as(a), id(a), id(b))
	require.NoError(t, err)
	assert.Equal(t, db.RequestPending, sent.Status)
	assert.Equal(t, a.ID, sent.Sender.ID)
	assert.Equal(t, b.ID, sent.Receiver.ID)

	p := rec.last(t)
	assert.Equal(t, b.ID, p.UserID)
	assert.Equal(t, friendrequest.EventReceived, p.Event)
	assert.Equal(t, "You have received a new friend request", p.Payload.Message)

	pending, err := svc.ListPending(as(b), id(b))
	require.NoError(t, err)
	require.Len(t, pending.Incoming, 1)
	assert.Equal(t, sent.RequestID, pending.Incoming[0].RequestID)
	assert.Equal(t, a.ID, pending.Incoming[0].Sender.ID)
	assert.Empty(t, pending.Outgoing)

	acc, err := svc.Accept(as(b), sent.RequestID.String(), id(a), id(b))
	require.NoError(t, err)
	assert.Equal(t, a.ID, acc.Friendship.User1.ID)
	assert.Equal(t, b.ID, acc.Friendship.User2.ID)

	p = rec.last(t)
	assert.Equal(t, a.ID, p.UserID)
	assert.Equal(t, friendrequest.EventAccepted, p.Event)

	assert.Equal(t, []uint64{b.ID}, testutil.IDs(t, appCtx.DB, "user_friends", "user_id", "friend_id", a.ID))
	assert.Equal(t, []uint64{a.ID}, testutil.IDs(t, appCtx.DB, "user_friends", "user_id", "friend_id", b.ID))

	var stored db.FriendRequest
	require.NoError(t, appCtx.DB.Where("id = ?", sent.RequestID).Take(&stored).Error)
	assert.Equal(t, db.RequestAccepted, stored.Status)

	friends, err := svc.ListFriends(as(a), id(a))
	require.NoError(t, err)
	assert.Equal(t, 1, friends.Count)
	assert.Equal(t, b.ID, friends.Friends[0].ID)

	// either direction is now blocked
	_, err = svc.Send(as(a), id(a), id(b))
	assert.Equal(t, "You are already friends with this user", svcErr.PublicMessage(err))
	_, err = svc.Send(as(b), id(b), id(a))
	assert.Equal(t, "You are already friends with this user", svcErr.PublicMessage(err))

	_, err = svc.Accept(as(b), sent.RequestID.String(), id(a), id(b))
	assert.Equal(t, "Request has already been accepted", svcErr.PublicMessage(err))
}

func TestFriendRequest_RejectThenResend(t *testing.T) {
	appCtx, svc, rec, a, b := setup(t)

	sent, err := svc.Send(as(a), id(a), id(b))
	require.NoError(t, err)

	_, err = svc.Reject(as(b), sent.RequestID.String(), id(a), id(b))
	require.NoError(t, err)

	p := rec.last(t)
	assert.Equal(t, a.ID, p.UserID)
	assert.Equal(t, friendrequest.EventRejected, p.Event)

	var n int64
	require.NoError(t, appCtx.DB.Model(&db.FriendRequest{}).Count(&n).Error)
	assert.Zero(t, n)
	assert.Empty(t, testutil.IDs(t, appCtx.DB, "user_friends", "user_id", "friend_id", a.ID))

	_, err = svc.Reject(as(b), sent.RequestID.String(), id(a), id(b))
	assert.Equal(t, "Pending friend request not found", svcErr.PublicMessage(err))

	again, err := svc.Send(as(a), id(a), id(b))
	require.NoError(t, err)
	assert.NotEqual(t, sent.RequestID, again.RequestID)
}

func TestFriendRequest_OnePendingPerPair(t *testing.T) {
	_, svc, _, a, b := setup(t)

	_, err := svc.Send(as(a), id(a), id(b))
	require.NoError(t, err)

	_, err = svc.Send(as(a), id(a), id(b))
	assert.Equal(t, "Friend request already pending", svcErr.PublicMessage(err))

	_, err = svc.Send(as(b), id(b), id(a))
	assert.Equal(t, "Friend request already pending", svcErr.PublicMessage(err))
	assert.Equal(t, svcErr.KindConflict, svcErr.KindOf(err))
}

func TestFriendRequest_AcceptRejectRace(t *testing.T) {
	for i := range 5 {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			raceOnce(t)
		})
	}
}

// raceOnce fires accept and reject at the same PENDING request.
func raceOnce(t *testing.T) {
	appCtx, svc, _, a, b := setup(t)
	sent, err := svc.Send(as(a), id(a), id(b))
	require.NoError(t, err)

	var (
		wg                sync.WaitGroup
		acceptErr, rejErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, acceptErr = svc.Accept(as(b), sent.RequestID.String(), id(a), id(b))
	}()
	go func() {
		defer wg.Done()
		_, rejErr = svc.Reject(as(b), sent.RequestID.String(), id(a), id(b))
	}()
	wg.Wait()

	require.True(t, (acceptErr == nil) != (rejErr == nil), "exactly one must win: accept=%v reject=%v", acceptErr, rejErr)

	friends := testutil.IDs(t, appCtx.DB, "user_friends", "user_id", "friend_id", a.ID)
	if acceptErr == nil {
		assert.Equal(t, []uint64{b.ID}, friends)
	} else {
		assert.Empty(t, friends)
	}
}

func TestFriendRequest_Authorization(t *testing.T) {
	_, svc, _, a, b := setup(t)
	admin := auth.WithIdentity(context.Background(), auth.Identity{UserID: 999, Role: auth.RoleSuperAdmin})

	_, err := svc.Send(as(b), id(a), id(b))
	assert.Equal(t, "Unauthorized to send this request", svcErr.PublicMessage(err))
	_, err = svc.Send(admin, id(a), id(b))
	assert.Equal(t, svcErr.KindAuthorization, svcErr.KindOf(err))

	sent, err := svc.Send(as(a), id(a), id(b))
	require.NoError(t, err)

	// only the receiver answers
	_, err = svc.Accept(as(a), sent.RequestID.String(), id(a), id(b))
	assert.Equal(t, "Unauthorized to accept this request", svcErr.PublicMessage(err))
	_, err = svc.Reject(as(a), sent.RequestID.String(), id(a), id(b))
	assert.Equal(t, "Unauthorized to reject this request", svcErr.PublicMessage(err))

	_, err = svc.ListPending(as(a), id(b))
	assert.Equal(t, "Unauthorized to view these requests", svcErr.PublicMessage(err))
	_, err = svc.ListFriends(as(a), id(b))
	assert.Equal(t, "Unauthorized to view this friends list", svcErr.PublicMessage(err))
}

func TestFriendRequest_Validation(t *testing.T) {
	_, svc, _, a, b := setup(t)

	_, err := svc.Send(as(a), "abc", id(b))
	assert.Equal(t, "Invalid user ID provided", svcErr.PublicMessage(err))

	_, err = svc.Send(as(a), id(a), id(a))
	assert.Equal(t, svcErr.KindConflict, svcErr.KindOf(err))

	_, err = svc.Send(as(a), id(a), "4242")
	assert.Equal(t, "One or both users not found", svcErr.PublicMessage(err))

	_, err = svc.Accept(as(b), "not-a-uuid", id(a), id(b))
	assert.Equal(t, "Invalid ID provided", svcErr.PublicMessage(err))

	_, err = svc.Accept(as(b), "6f1c2a8e-8c4b-4d55-a0a4-2b1f63d2c0aa", id(a), id(b))
	assert.Equal(t, "Friend request not found", svcErr.PublicMessage(err))

	_, err = svc.ListPending(as(a), "")
	assert.Equal(t, "No user ID provided", svcErr.PublicMessage(err))
}

func TestFriendRequest_AcceptChecksParties(t *testing.T) {
	appCtx, svc, _, a, b := setup(t)
	c := testutil.CreateUser(t, appCtx.DB, "Carol")

	sent, err := svc.Send(as(a), id(a), id(b))
	require.NoError(t, err)

	// c claims a request addressed to b
	_, err = svc.Accept(as(c), sent.RequestID.String(), id(a), id(c))
	assert.Equal(t, "Friend request not found", svcErr.PublicMessage(err))

	var stored db.FriendRequest
	require.NoError(t, appCtx.DB.Where("id = ?", sent.RequestID).Take(&stored).Error)
	assert.Equal(t, db.RequestPending, stored.Status)
}
