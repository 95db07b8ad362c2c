package hub

import (
	"context"
	"errors"

	"parley/internal/event"
	"parley/internal/model"
	"parley/internal/presence"
	"parley/internal/protocol"
	"parley/internal/repo"

	"go.uber.org/zap"
)

// Broadcaster fans an event out to every live connection of a user.
type Broadcaster interface {
	Publish(ctx context.Context, userID string, ev event.ChatEvent)
}

// ReplyFunc sends an event back to the single calling connection.
type ReplyFunc func(ev event.ChatEvent)

// Engine validates inbound frames and routes them to the command handlers.
// It talks to the transport only through ReplyFunc and Broadcaster, so it
// can be exercised without any websocket machinery.
type Engine struct {
	validator   *protocol.Validator
	responder   *event.Responder
	users       repo.UserRepository
	rooms       repo.RoomRepository
	messages    repo.MessageRepository
	presence    presence.Tracker
	broadcaster Broadcaster
	logger      *zap.Logger
}

func NewEngine(
	validator *protocol.Validator,
	responder *event.Responder,
	users repo.UserRepository,
	rooms repo.RoomRepository,
	messages repo.MessageRepository,
	tracker presence.Tracker,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		validator: validator,
		responder: responder,
		users:     users,
		rooms:     rooms,
		messages:  messages,
		presence:  tracker,
		logger:    logger,
	}
}

// SetBroadcaster wires the fan-out transport. Must be called before Handle.
func (e *Engine) SetBroadcaster(b Broadcaster) {
	e.broadcaster = b
}

// Handle processes one inbound frame. Each frame is independent; failures
// are answered on the caller's connection and never end the session.
func (e *Engine) Handle(ctx context.Context, me *model.User, reply ReplyFunc, frame map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("command handler panicked",
				zap.String("user_id", me.UserID), zap.Any("panic", r))
		}
	}()

	msg, ok := e.validator.Validate(frame)
	if !ok {
		reply(e.responder.ProtocolError(event.ErrNotValid))
		return
	}

	switch msg.Command.ID {
	case event.CommandStartConversation:
		e.handleStartConversation(ctx, me, reply, msg.Params)
	case event.CommandSendMessage:
		e.handleSendMessage(ctx, me, reply, msg.Params)
	case event.CommandMessageReceived:
		e.handleAcknowledge(ctx, me, reply, msg.Params, model.StatusReceived)
	case event.CommandMessageRead:
		e.handleAcknowledge(ctx, me, reply, msg.Params, model.StatusRead)
	default:
		// schema declares a command the engine does not implement
		e.logger.Warn("unhandled command", zap.String("command", msg.Command.ID))
		reply(e.responder.ProtocolError(event.ErrNotValid))
	}
}

// handleStartConversation resolves or creates the unique room for the
// requested participant set and announces it to everyone involved.
func (e *Engine) handleStartConversation(ctx context.Context, me *model.User, reply ReplyFunc, params map[string]any) {
	uids := stringValues(params["uids"])

	users, err := e.users.GetUsersByIDs(ctx, uids)
	if err != nil {
		e.logger.Error("user lookup failed", zap.Error(err))
		reply(e.responder.ProtocolError(event.ErrNotValid))
		return
	}

	// Zero resolvable users is reported, but the conversation still opens
	// with whoever remains (possibly just the caller).
	if len(users) == 0 {
		reply(e.responder.ProtocolError(event.ErrUserNotFound))
	}

	room, err := e.rooms.Resolve(ctx, appendCaller(users, me))
	if err != nil {
		e.logger.Error("room resolution failed", zap.Error(err))
		reply(e.responder.ProtocolError(event.ErrNotValid))
		return
	}

	descriptor := e.responder.ConversationReady(room.ID.Hex(), room.Participants())

	for _, user := range users {
		if user.UserID == me.UserID {
			continue
		}
		if !e.presence.IsOnline(ctx, user.UserID) {
			continue
		}
		e.broadcaster.Publish(ctx, user.UserID, descriptor)
	}
	reply(descriptor)
}

// handleSendMessage persists one message row per recipient and pushes a
// new-message event to each online recipient, then echoes to the sender.
func (e *Engine) handleSendMessage(ctx context.Context, me *model.User, reply ReplyFunc, params map[string]any) {
	roomID, _ := params["room_id"].(string)
	content, _ := params["message_data"].(string)

	isMember, err := e.rooms.IsMember(ctx, roomID, me.UserID)
	if err != nil {
		e.logger.Error("membership check failed",
			zap.String("room_id", roomID), zap.Error(err))
		reply(e.responder.ProtocolError(event.ErrNotValid))
		return
	}
	if !isMember {
		reply(e.responder.ProtocolError(event.ErrNotAllowed))
		return
	}

	room, err := e.rooms.GetRoom(ctx, roomID)
	if err != nil {
		e.logger.Error("room fetch failed",
			zap.String("room_id", roomID), zap.Error(err))
		reply(e.responder.ProtocolError(event.ErrNotValid))
		return
	}

	var echo *event.ChatEvent
	for _, member := range room.Members {
		if member.UserID == me.UserID {
			continue
		}

		stored, err := e.messages.InsertMessage(ctx, &model.Message{
			SenderID:    me.UserID,
			RecipientID: member.UserID,
			Content:     content,
			Context:     model.MessageContext{Room: roomID},
		})
		if err != nil {
			e.logger.Error("message persist failed",
				zap.String("room_id", roomID),
				zap.String("recipient", member.UserID),
				zap.Error(err))
			reply(e.responder.ProtocolError(event.ErrNotValid))
			return
		}

		ev := e.responder.NewMessage(stored)
		if e.presence.IsOnline(ctx, member.UserID) {
			e.broadcaster.Publish(ctx, member.UserID, ev)
		}
		echo = &ev
	}

	// Echo the last persisted row to every connection of the sender.
	if echo != nil {
		e.broadcaster.Publish(ctx, me.UserID, *echo)
	}
}

// handleAcknowledge advances a message's delivery status and notifies the
// sender side. C2 and C3 share the shape and differ only in the target
// status and notification kind.
func (e *Engine) handleAcknowledge(ctx context.Context, me *model.User, reply ReplyFunc, params map[string]any, status int) {
	messageID, _ := params["message_id"].(string)

	msg, err := e.messages.GetMessage(ctx, messageID)
	if err != nil {
		if !errors.Is(err, repo.ErrMessageNotFound) {
			e.logger.Error("message fetch failed",
				zap.String("message_id", messageID), zap.Error(err))
		}
		reply(e.responder.ProtocolError(event.ErrNotValid))
		return
	}

	if me.UserID != msg.SenderID && me.UserID != msg.RecipientID {
		reply(e.responder.ProtocolError(event.ErrNotAllowed))
		return
	}

	// The transition is applied before anyone hears about it: a rejected or
	// failed update must not leave the sender with a phantom acknowledgement.
	if err := e.messages.UpdateStatus(ctx, messageID, status); err != nil {
		e.logger.Warn("status update failed",
			zap.String("message_id", messageID),
			zap.String("status", model.StatusDisplay(status)),
			zap.Error(err))
		reply(e.responder.ProtocolError(event.ErrNotValid))
		return
	}

	var ev event.ChatEvent
	switch status {
	case model.StatusReceived:
		ev = e.responder.MessageDelivered(msg.Context.Room, msg.RecipientID, msg.ID.Hex())
	case model.StatusRead:
		ev = e.responder.MessageRead(msg.Context.Room, msg.RecipientID, msg.ID.Hex())
	}
	if e.presence.IsOnline(ctx, msg.SenderID) {
		e.broadcaster.Publish(ctx, msg.SenderID, ev)
	}
}

// stringValues extracts the string elements of a decoded JSON array.
func stringValues(raw any) []string {
	values, ok := raw.([]any)
	if !ok {
		return nil
	}

	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// appendCaller adds the calling user to the participant set unless already
// present.
func appendCaller(users []model.User, me *model.User) []model.User {
	for _, u := range users {
		if u.UserID == me.UserID {
			return users
		}
	}
	return append(users, *me)
}
