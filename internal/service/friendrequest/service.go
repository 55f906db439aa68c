// Package friendrequest implements the friend request state machine:
// PENDING requests are either accepted (kept as ACCEPTED history) or
// rejected (deleted).
package friendrequest

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oggyb/destined/internal/app"
	"github.com/oggyb/destined/internal/db"
	svcErr "github.com/oggyb/destined/internal/errors"
	"github.com/oggyb/destined/internal/realtime"
	"github.com/oggyb/destined/internal/repository"
	"github.com/oggyb/destined/internal/service"
)

// Server push events.
const (
	EventReceived = "receiveFriendRequest"
	EventAccepted = "friendRequestAccepted"
	EventRejected = "friendRequestRejected"
)

// Notifier delivers a push to every live connection of a user.
type Notifier interface {
	Emit(userID uint64, event string, payload any)
}

type Service struct {
	appCtx   *app.AppContext
	users    *repository.UserRepository
	requests *repository.FriendRequestRepository
	notifier Notifier
}

func NewService(appCtx *app.AppContext, notifier Notifier) *Service {
	return &Service{
		appCtx:   appCtx,
		users:    repository.NewUserRepository(appCtx.DB),
		requests: repository.NewFriendRequestRepository(appCtx.DB),
		notifier: notifier,
	}
}

type SentRequest struct {
	RequestID uuid.UUID  `json:"requestId"`
	Sender    db.Profile `json:"sender"`
	Receiver  db.Profile `json:"receiver"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
}

type Friendship struct {
	User1         db.Profile `json:"user1"`
	User2         db.Profile `json:"user2"`
	EstablishedAt time.Time  `json:"establishedAt"`
}

type Acceptance struct {
	RequestID  uuid.UUID  `json:"requestId"`
	Friendship Friendship `json:"friendship"`
}

type Rejection struct {
	RequestID uuid.UUID `json:"requestId"`
}

type IncomingRequest struct {
	RequestID uuid.UUID  `json:"requestId"`
	Sender    db.Profile `json:"sender"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
}

type OutgoingRequest struct {
	RequestID uuid.UUID  `json:"requestId"`
	Receiver  db.Profile `json:"receiver"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
}

type PendingLists struct {
	Incoming []IncomingRequest `json:"incoming"`
	Outgoing []OutgoingRequest `json:"outgoing"`
}

type FriendsList struct {
	UserID      uint64       `json:"userId"`
	Friends     []db.Profile `json:"friends"`
	Count       int          `json:"count"`
	LastUpdated time.Time    `json:"lastUpdated"`
}

// Send creates a PENDING request from sender to receiver and pushes
// receiveFriendRequest to the receiver's room.
//
// At most one request exists per unordered pair. An existing PENDING one
// blocks a new send in either direction; an ACCEPTED one means the two
// are already friends.
func (s *Service) Send(ctx context.Context, senderRaw, receiverRaw string) (*SentRequest, error) {
	const failed = "Failed to send friend request"

	senderID, err := parseID(senderRaw, "Invalid user ID provided")
	if err != nil {
		return nil, err
	}
	receiverID, err := parseID(receiverRaw, "Invalid user ID provided")
	if err != nil {
		return nil, err
	}
	if err := requireCaller(ctx, senderID, "Unauthorized to send this request"); err != nil {
		return nil, err
	}
	if senderID == receiverID {
		return nil, svcErr.AlreadyExists("Cannot send a friend request to yourself")
	}

	var (
		req     *db.FriendRequest
		parties map[uint64]db.Profile
	)
	err = s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.users.WithTx(tx)
		requests := s.requests.WithTx(tx)

		var err error
		if parties, err = profilesOf(ctx, users, senderID, receiverID); err != nil {
			return err
		}

		existing, err := requests.FindBetween(ctx, senderID, receiverID)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.Status == db.RequestPending {
				return svcErr.AlreadyExists("Friend request already pending")
			}
			return svcErr.AlreadyExists("You are already friends with this user")
		}
		friends, err := users.AreFriends(ctx, senderID, receiverID)
		if err != nil {
			return err
		}
		if friends {
			return svcErr.AlreadyExists("You are already friends with this user")
		}

		req, err = requests.Create(ctx, senderID, receiverID)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return svcErr.AlreadyExists("Friend request already pending")
		}
		return err
	})
	if err != nil {
		return nil, s.fail("Send", failed, err)
	}

	s.notifier.Emit(receiverID, EventReceived, realtime.Payload{
		Success: true,
		Message: "You have received a new friend request",
		Data: map[string]any{
			"requestId": req.ID,
			"sender":    parties[senderID],
			"createdAt": req.CreatedAt,
		},
	})
	s.appCtx.Logger.Info("friend request sent", "request", req.ID, "sender", senderID, "receiver", receiverID)

	return &SentRequest{
		RequestID: req.ID,
		Sender:    parties[senderID],
		Receiver:  parties[receiverID],
		Status:    req.Status,
		CreatedAt: req.CreatedAt,
	}, nil
}

// Accept moves a PENDING request to ACCEPTED, records the friendship in
// both directions and pushes friendRequestAccepted to the sender.
//
// The status change is a conditional update, so of an accept and a
// reject racing on the same request exactly one succeeds.
func (s *Service) Accept(ctx context.Context, requestRaw, senderRaw, receiverRaw string) (*Acceptance, error) {
	const failed = "Failed to accept friend request"

	requestID, senderID, receiverID, err := parseDecision(requestRaw, senderRaw, receiverRaw)
	if err != nil {
		return nil, err
	}
	if err := requireCaller(ctx, receiverID, "Unauthorized to accept this request"); err != nil {
		return nil, err
	}

	var parties map[uint64]db.Profile
	err = s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.users.WithTx(tx)
		requests := s.requests.WithTx(tx)

		req, err := requests.FindByID(ctx, requestID, true)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return svcErr.NotFound("Friend request not found")
		}
		if err != nil {
			return err
		}
		if req.SenderID != senderID || req.ReceiverID != receiverID {
			return svcErr.NotFound("Friend request not found")
		}
		if req.Status != db.RequestPending {
			return svcErr.AlreadyExists("Request has already been " + strings.ToLower(req.Status))
		}

		ok, err := requests.MarkAccepted(ctx, requestID)
		if err != nil {
			return err
		}
		if !ok {
			return svcErr.NotFound("Friend request not found")
		}

		if _, err := users.LockUsers(ctx, senderID, receiverID); err != nil {
			return err
		}
		if parties, err = profilesOf(ctx, users, senderID, receiverID); err != nil {
			return err
		}
		return users.AddFriends(ctx, senderID, receiverID)
	})
	if err != nil {
		return nil, s.fail("Accept", failed, err)
	}

	s.notifier.Emit(senderID, EventAccepted, realtime.Payload{
		Success: true,
		Message: "Your friend request has been accepted",
		Data: map[string]any{
			"requestId": requestID,
			"friend":    parties[receiverID],
		},
	})
	s.appCtx.Logger.Info("friend request accepted", "request", requestID, "sender", senderID, "receiver", receiverID)

	return &Acceptance{
		RequestID: requestID,
		Friendship: Friendship{
			User1:         parties[senderID],
			User2:         parties[receiverID],
			EstablishedAt: s.appCtx.DB.NowFunc(),
		},
	}, nil
}

// Reject deletes a PENDING request and pushes friendRequestRejected to
// the sender. Nothing is kept, so the pair may send again later.
func (s *Service) Reject(ctx context.Context, requestRaw, senderRaw, receiverRaw string) (*Rejection, error) {
	const failed = "Failed to reject friend request"

	requestID, senderID, receiverID, err := parseDecision(requestRaw, senderRaw, receiverRaw)
	if err != nil {
		return nil, err
	}
	if err := requireCaller(ctx, receiverID, "Unauthorized to reject this request"); err != nil {
		return nil, err
	}

	deleted, err := s.requests.DeletePending(ctx, requestID, senderID, receiverID)
	if err != nil {
		return nil, s.fail("Reject", failed, err)
	}
	if !deleted {
		return nil, svcErr.NotFound("Pending friend request not found")
	}

	s.notifier.Emit(senderID, EventRejected, realtime.Payload{
		Success: true,
		Message: "Your friend request has been rejected",
		Data:    map[string]any{"requestId": requestID},
	})
	s.appCtx.Logger.Info("friend request rejected", "request", requestID, "sender", senderID, "receiver", receiverID)

	return &Rejection{RequestID: requestID}, nil
}

// ListPending returns the user's PENDING requests in both directions,
// newest first.
func (s *Service) ListPending(ctx context.Context, userRaw string) (*PendingLists, error) {
	const failed = "Failed to retrieve pending requests"

	userID, err := parseUser(userRaw)
	if err != nil {
		return nil, err
	}
	if err := requireCaller(ctx, userID, "Unauthorized to view these requests"); err != nil {
		return nil, err
	}

	incoming, err := s.requests.Incoming(ctx, userID)
	if err != nil {
		return nil, s.fail("ListPending", failed, err)
	}
	outgoing, err := s.requests.Outgoing(ctx, userID)
	if err != nil {
		return nil, s.fail("ListPending", failed, err)
	}

	ids := make([]uint64, 0, len(incoming)+len(outgoing))
	for _, r := range incoming {
		ids = append(ids, r.SenderID)
	}
	for _, r := range outgoing {
		ids = append(ids, r.ReceiverID)
	}
	profiles, err := s.users.Profiles(ctx, ids)
	if err != nil {
		return nil, s.fail("ListPending", failed, err)
	}
	byID := make(map[uint64]db.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	out := &PendingLists{Incoming: []IncomingRequest{}, Outgoing: []OutgoingRequest{}}
	for _, r := range incoming {
		out.Incoming = append(out.Incoming, IncomingRequest{
			RequestID: r.ID, Sender: byID[r.SenderID], Status: r.Status, CreatedAt: r.CreatedAt,
		})
	}
	for _, r := range outgoing {
		out.Outgoing = append(out.Outgoing, OutgoingRequest{
			RequestID: r.ID, Receiver: byID[r.ReceiverID], Status: r.Status, CreatedAt: r.CreatedAt,
		})
	}
	return out, nil
}

// ListFriends returns the user's friends ordered by name.
func (s *Service) ListFriends(ctx context.Context, userRaw string) (*FriendsList, error) {
	const failed = "Failed to retrieve friends list"

	userID, err := parseUser(userRaw)
	if err != nil {
		return nil, err
	}
	if err := requireCaller(ctx, userID, "Unauthorized to view this friends list"); err != nil {
		return nil, err
	}

	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, svcErr.NotFound("User not found")
		}
		return nil, s.fail("ListFriends", failed, err)
	}

	friends, err := s.users.Friends(ctx, userID)
	if err != nil {
		return nil, s.fail("ListFriends", failed, err)
	}
	out := &FriendsList{
		UserID:      userID,
		Friends:     make([]db.Profile, 0, len(friends)),
		Count:       len(friends),
		LastUpdated: s.appCtx.DB.NowFunc(),
	}
	for _, f := range friends {
		out.Friends = append(out.Friends, f.Public())
	}
	return out, nil
}

// fail passes service errors through and turns anything else into the
// operation's generic message. The cause is only logged.
func (s *Service) fail(op, msg string, err error) error {
	var svc *svcErr.Error
	if errors.As(err, &svc) {
		return svc
	}
	s.appCtx.Logger.Error(op+" failed", "err", err)
	return svcErr.Internal(msg, err)
}

func profilesOf(ctx context.Context, users *repository.UserRepository, a, b uint64) (map[uint64]db.Profile, error) {
	found, err := users.Profiles(ctx, []uint64{a, b})
	if err != nil {
		return nil, err
	}
	if len(found) != 2 {
		return nil, svcErr.NotFound("One or both users not found")
	}
	return map[uint64]db.Profile{found[0].ID: found[0], found[1].ID: found[1]}, nil
}

// requireCaller allows only the user itself. Friend requests cannot be
// sent or answered on someone else's behalf.
func requireCaller(ctx context.Context, userID uint64, msg string) error {
	id, err := service.Caller(ctx)
	if err != nil {
		return err
	}
	if id.UserID != userID {
		return svcErr.Unauthorized(msg)
	}
	return nil
}

func parseID(raw, msg string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, svcErr.InvalidArgument(msg)
	}
	return id, nil
}

func parseUser(raw string) (uint64, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, svcErr.InvalidArgument("No user ID provided")
	}
	return parseID(raw, "Invalid user ID provided")
}

func parseDecision(requestRaw, senderRaw, receiverRaw string) (uuid.UUID, uint64, uint64, error) {
	const msg = "Invalid ID provided"
	requestID, err := uuid.Parse(strings.TrimSpace(requestRaw))
	if err != nil {
		return uuid.Nil, 0, 0, svcErr.InvalidArgument(msg)
	}
	senderID, err := parseID(senderRaw, msg)
	if err != nil {
		return uuid.Nil, 0, 0, err
	}
	receiverID, err := parseID(receiverRaw, msg)
	if err != nil {
		return uuid.Nil, 0, 0, err
	}
	return requestID, senderID, receiverID, nil
}

var _ Notifier = (*realtime.Registry)(nil)
