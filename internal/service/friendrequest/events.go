package friendrequest

import (
	"context"
	"encoding/json"

	svcErr "github.com/oggyb/destined/internal/errors"
	"github.com/oggyb/destined/internal/realtime"
	"github.com/oggyb/destined/internal/service"
)

// Inbound socket events and their reply events.
const (
	EventSend        = "sendFriendRequest"
	EventAccept      = "acceptFriendRequest"
	EventReject      = "rejectFriendRequest"
	EventGetPending  = "getPendingFriendRequests"
	EventGetFriends  = "getFriendsList"
	EventSuccess     = "success"
	EventPendingList = "pendingFriendRequestList"
	EventFriendsList = "friendsList"
)

type sendData struct {
	SenderID   service.FlexID `json:"senderId"`
	ReceiverID service.FlexID `json:"receiverId"`
}

type decisionData struct {
	RequestID  service.FlexID `json:"requestId"`
	SenderID   service.FlexID `json:"senderId"`
	ReceiverID service.FlexID `json:"receiverId"`
}

type userData struct {
	UserID service.FlexID `json:"userId"`
}

// Register binds the friend request events to the socket handler.
func (s *Service) Register(h *realtime.Handler) {
	h.On(EventSend, s.observe(EventSend, s.onSend))
	h.On(EventAccept, s.observe(EventAccept, s.onAccept))
	h.On(EventReject, s.observe(EventReject, s.onReject))
	h.On(EventGetPending, s.observe(EventGetPending, s.onGetPending))
	h.On(EventGetFriends, s.observe(EventGetFriends, s.onGetFriends))
}

func (s *Service) observe(event string, fn realtime.EventFunc) realtime.EventFunc {
	return func(ctx context.Context, data json.RawMessage) (realtime.Result, error) {
		res, err := fn(ctx, data)
		s.appCtx.Metrics.ObserveFriendEvent(event, err)
		return res, err
	}
}

func (s *Service) onSend(ctx context.Context, data json.RawMessage) (realtime.Result, error) {
	var in sendData
	if err := decode(data, &in); err != nil {
		return realtime.Result{}, err
	}
	sent, err := s.Send(ctx, in.SenderID.String(), in.ReceiverID.String())
	if err != nil {
		return realtime.Result{}, err
	}
	return realtime.Result{Event: EventSuccess, Message: "Friend request sent successfully", Data: sent}, nil
}

func (s *Service) onAccept(ctx context.Context, data json.RawMessage) (realtime.Result, error) {
	var in decisionData
	if err := decode(data, &in); err != nil {
		return realtime.Result{}, err
	}
	acc, err := s.Accept(ctx, in.RequestID.String(), in.SenderID.String(), in.ReceiverID.String())
	if err != nil {
		return realtime.Result{}, err
	}
	return realtime.Result{Event: EventSuccess, Message: "Friend request accepted successfully", Data: acc}, nil
}

func (s *Service) onReject(ctx context.Context, data json.RawMessage) (realtime.Result, error) {
	var in decisionData
	if err := decode(data, &in); err != nil {
		return realtime.Result{}, err
	}
	rej, err := s.Reject(ctx, in.RequestID.String(), in.SenderID.String(), in.ReceiverID.String())
	if err != nil {
		return realtime.Result{}, err
	}
	return realtime.Result{Event: EventSuccess, Message: "Friend request rejected successfully", Data: rej}, nil
}

func (s *Service) onGetPending(ctx context.Context, data json.RawMessage) (realtime.Result, error) {
	var in userData
	if err := decode(data, &in); err != nil {
		return realtime.Result{}, err
	}
	lists, err := s.ListPending(ctx, in.UserID.String())
	if err != nil {
		return realtime.Result{}, err
	}
	return realtime.Result{Event: EventPendingList, Message: "Pending friend requests retrieved successfully", Data: lists}, nil
}

func (s *Service) onGetFriends(ctx context.Context, data json.RawMessage) (realtime.Result, error) {
	var in userData
	if err := decode(data, &in); err != nil {
		return realtime.Result{}, err
	}
	list, err := s.ListFriends(ctx, in.UserID.String())
	if err != nil {
		return realtime.Result{}, err
	}
	return realtime.Result{Event: EventFriendsList, Message: "Friends list retrieved successfully", Data: list}, nil
}

func decode(data json.RawMessage, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return svcErr.InvalidArgument("Invalid message format")
	}
	return nil
}
