package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/destined/internal/db"
)

// FriendRequestRepository is the only writer of friend_requests.
type FriendRequestRepository struct {
	db *gorm.DB
}

func NewFriendRequestRepository(database *gorm.DB) *FriendRequestRepository {
	return &FriendRequestRepository{db: database}
}

// WithTx returns a copy bound to tx.
func (r *FriendRequestRepository) WithTx(tx *gorm.DB) *FriendRequestRepository {
	return &FriendRequestRepository{db: tx}
}

// PairKey identifies the unordered pair {a, b}.
func PairKey(a, b uint64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// FindBetween returns the request between a and b in either direction, or nil.
func (r *FriendRequestRepository) FindBetween(ctx context.Context, a, b uint64) (*db.FriendRequest, error) {
	var req db.FriendRequest
	err := r.db.WithContext(ctx).Where("pair_key = ?", PairKey(a, b)).Take(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// Create inserts a PENDING request from sender to receiver.
// A concurrent request for the same pair fails with gorm.ErrDuplicatedKey.
func (r *FriendRequestRepository) Create(ctx context.Context, senderID, receiverID uint64) (*db.FriendRequest, error) {
	req := &db.FriendRequest{
		ID:         uuid.New(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		PairKey:    PairKey(senderID, receiverID),
		Status:     db.RequestPending,
	}
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		return nil, err
	}
	return req, nil
}

// FindByID loads a request, locking the row when called inside a
// transaction on a database with row locks.
func (r *FriendRequestRepository) FindByID(ctx context.Context, id uuid.UUID, forUpdate bool) (*db.FriendRequest, error) {
	q := r.db.WithContext(ctx).Where("id = ?", id)
	if forUpdate && r.db.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var req db.FriendRequest
	if err := q.Take(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// MarkAccepted moves a PENDING request to ACCEPTED.
// Returns false when the row is no longer PENDING (or gone).
func (r *FriendRequestRepository) MarkAccepted(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db.FriendRequest{}).
		Where("id = ? AND status = ?", id, db.RequestPending).
		Updates(map[string]any{"status": db.RequestAccepted, "updated_at": r.db.NowFunc()})
	return res.RowsAffected == 1, res.Error
}

// DeletePending deletes the request only while it is still PENDING and
// belongs to the given parties. This single conditional statement is what
// makes reject safe against a concurrent accept.
func (r *FriendRequestRepository) DeletePending(ctx context.Context, id uuid.UUID, senderID, receiverID uint64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND status = ? AND sender_id = ? AND receiver_id = ?", id, db.RequestPending, senderID, receiverID).
		Delete(&db.FriendRequest{})
	return res.RowsAffected == 1, res.Error
}

// Incoming lists PENDING requests received by userID, newest first.
func (r *FriendRequestRepository) Incoming(ctx context.Context, userID uint64) ([]db.FriendRequest, error) {
	return r.pending(ctx, "receiver_id", userID)
}

// Outgoing lists PENDING requests sent by userID, newest first.
func (r *FriendRequestRepository) Outgoing(ctx context.Context, userID uint64) ([]db.FriendRequest, error) {
	return r.pending(ctx, "sender_id", userID)
}

func (r *FriendRequestRepository) pending(ctx context.Context, column string, userID uint64) ([]db.FriendRequest, error) {
	var reqs []db.FriendRequest
	err := r.db.WithContext(ctx).
		Where(column+" = ? AND status = ?", userID, db.RequestPending).
		Order("created_at DESC, id").
		Find(&reqs).Error
	return reqs, err
}
