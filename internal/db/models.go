package db

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Account states. Only VERIFIED users are considered by profile matching.
const (
	StatusPending     = "PENDING"
	StatusVerified    = "VERIFIED"
	StatusNotVerified = "NOT_VERIFIED"
)

// Liking actions.
const (
	ActionLike    = "LIKE"
	ActionDislike = "DISLIKE"
)

// Friend request states. A rejected request is deleted, so REJECTED is never stored.
const (
	RequestPending  = "PENDING"
	RequestAccepted = "ACCEPTED"
	RequestRejected = "REJECTED"
)

// User table.
//
// The relation sets (likers, matches, friends) live in their own tables
// so concurrent writers only ever insert or delete single member rows
// and never rewrite the user row.
type User struct {
	ID                 uint64 `gorm:"primaryKey;autoIncrement"`
	Name               string `gorm:"size:128;not null;index"`
	Email              string `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash       string `gorm:"size:255;not null"`
	Phone              string `gorm:"size:32;not null"`
	Bio                string `gorm:"size:500"`
	City               string `gorm:"size:20"`
	Gender             string `gorm:"size:16;not null;default:MALE"`
	Age                int
	ProfilePicture     string `gorm:"size:512"`
	IsVerified         bool   `gorm:"default:false"`
	IsActive           string `gorm:"size:16;not null;default:PENDING;index"`
	IsOnline           bool   `gorm:"default:false"`
	TotalLikesReceived int64  `gorm:"not null;default:0"`
	// ProfileMatches is the cached result of the last profile match run.
	// Replaced wholesale on every recompute.
	ProfileMatches []ProfileMatchEntry `gorm:"serializer:json;type:text"`
	Interests      []UserInterest      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	LastActiveAt   time.Time
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

// UserInterest is one {interest, selectedOption} answer of a user.
type UserInterest struct {
	ID             uint64 `gorm:"primaryKey;autoIncrement"`
	UserID         uint64 `gorm:"not null;index:idx_interest_user"`
	Interest       string `gorm:"size:64;not null;index:idx_interest_pair,priority:1"`
	SelectedOption string `gorm:"size:64;not null;index:idx_interest_pair,priority:2"`
}

// Interest is the comparable value of a UserInterest.
type Interest struct {
	Interest       string `json:"interest"`
	SelectedOption string `json:"selectedOption"`
}

func (i UserInterest) Pair() Interest {
	return Interest{Interest: i.Interest, SelectedOption: i.SelectedOption}
}

// ProfileMatchEntry is the projection stored in User.ProfileMatches.
type ProfileMatchEntry struct {
	UserID          uint64     `json:"userId"`
	MatchScore      float64    `json:"matchScore"`
	SharedInterests []Interest `json:"sharedInterests"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// UserLiker is a member of the target's likedByUsers set.
// Composite PK: (UserID, LikerID).
type UserLiker struct {
	UserID    uint64    `gorm:"primaryKey"`
	LikerID   uint64    `gorm:"primaryKey;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// UserMatch is one directed edge of the symmetric matches relation.
// Composite PK: (UserID, MatchID).
type UserMatch struct {
	UserID    uint64    `gorm:"primaryKey"`
	MatchID   uint64    `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// UserFriend is one directed edge of the friends relation.
// Composite PK: (UserID, FriendID).
type UserFriend struct {
	UserID    uint64    `gorm:"primaryKey"`
	FriendID  uint64    `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// LikingEntry is the user's own outgoing action log, one row per target.
// It is the per-user projection of Liking and is only written through
// LikingRepository together with the standalone record.
type LikingEntry struct {
	UserID       uint64    `gorm:"primaryKey"`
	TargetUserID uint64    `gorm:"primaryKey"`
	Action       string    `gorm:"size:8;not null"`
	Matches      IDSet     `gorm:"serializer:json;type:text"`
	CreatedAt    time.Time `gorm:"not null"`
}

// Liking represents an actor's action on a target.
//
// Composite PK: (UserID, TargetUserID)
//   - Ensures a single row per pair (overwrite guarantee).
//
// Indexes:
//   - idx_target_action_updated(target_user_id, action, updated_at DESC)
//     Optimizes the "who liked me" list with pagination.
//
// TargetTotalLikes and TargetLikedBy are a snapshot of the target's
// like stats taken when the action was applied.
type Liking struct {
	UserID           uint64    `gorm:"primaryKey"`
	TargetUserID     uint64    `gorm:"primaryKey;index:idx_target_action_updated,priority:1"`
	Action           string    `gorm:"size:8;not null;index:idx_target_action_updated,priority:2"`
	Matches          IDSet     `gorm:"serializer:json;type:text"`
	TargetTotalLikes int64     `gorm:"not null;default:0"`
	TargetLikedBy    IDSet     `gorm:"serializer:json;type:text"`
	CreatedAt        time.Time `gorm:"autoCreateTime"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime;index:idx_target_action_updated,priority:3,sort:desc"`
}

// FriendRequest between two users.
//
// PairKey is "<min>:<max>" of the two ids. Its unique index keeps at most
// one row per unordered pair, in either direction.
type FriendRequest struct {
	ID         uuid.UUID `gorm:"type:char(36);primaryKey"`
	SenderID   uint64    `gorm:"not null;index:idx_sender_status,priority:1"`
	ReceiverID uint64    `gorm:"not null;index:idx_receiver_status,priority:1"`
	PairKey    string    `gorm:"size:48;not null;uniqueIndex"`
	Status     string    `gorm:"size:16;not null;index:idx_sender_status,priority:2;index:idx_receiver_status,priority:2"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

// ProfileMatch is a scored candidate. Composite PK: (UserID, TargetUserID).
type ProfileMatch struct {
	UserID          uint64     `gorm:"primaryKey"`
	TargetUserID    uint64     `gorm:"primaryKey"`
	MatchScore      float64    `gorm:"not null"`
	SharedInterests []Interest `gorm:"serializer:json;type:text"`
	CreatedAt       time.Time  `gorm:"not null"`
}

// IDSet is a small ordered set of user ids stored as a JSON array.
type IDSet []uint64

func (s IDSet) Has(id uint64) bool {
	return slices.Contains(s, id)
}

// Add returns the set with id appended if absent.
func (s IDSet) Add(id uint64) IDSet {
	if s.Has(id) {
		return s
	}
	return append(s, id)
}

// Remove returns the set without id.
func (s IDSet) Remove(id uint64) IDSet {
	out := make(IDSet, 0, len(s))
	for _, v := range s {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// Profile is the public view of a user returned to other users.
type Profile struct {
	ID             uint64    `json:"id"`
	Name           string    `json:"name"`
	Bio            string    `json:"bio,omitempty"`
	City           string    `json:"city,omitempty"`
	Gender         string    `json:"gender"`
	Age            int       `json:"age,omitempty"`
	ProfilePicture string    `json:"profilePicture,omitempty"`
	IsOnline       bool      `json:"isOnline"`
	LastActiveAt   time.Time `json:"lastActive"`
}

func (u User) Public() Profile {
	return Profile{
		ID:             u.ID,
		Name:           u.Name,
		Bio:            u.Bio,
		City:           u.City,
		Gender:         u.Gender,
		Age:            u.Age,
		ProfilePicture: u.ProfilePicture,
		IsOnline:       u.IsOnline,
		LastActiveAt:   u.LastActiveAt,
	}
}

// Models lists every table for AutoMigrate.
func Models() []any {
	return []any{
		&User{}, &UserInterest{}, &UserLiker{}, &UserMatch{}, &UserFriend{},
		&LikingEntry{}, &Liking{}, &FriendRequest{}, &ProfileMatch{},
	}
}
