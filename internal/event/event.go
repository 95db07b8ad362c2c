package event

import (
	"parley/internal/model"
	"parley/internal/protocol"
)

// EventTypeChat tags every frame of the messaging protocol.
const EventTypeChat = "chat_message"

// Command ids understood by the engine. The set is closed; the dispatcher
// switches exhaustively over it.
const (
	CommandStartConversation = "C0"
	CommandSendMessage       = "C1"
	CommandMessageReceived   = "C2"
	CommandMessageRead       = "C3"
)

// Notification ids emitted by the engine, resolved against the loaded
// protocol schema for their display names.
const (
	NotifyNewMessage        = "N0"
	NotifyMessageDelivered  = "N1"
	NotifyMessageRead       = "N2"
	NotifyConversationReady = "N4"
	NotifyInitialInfo       = "N5"
)

// Protocol error codes, wire-visible.
const (
	ErrNotValid     = "not_valid"
	ErrUserNotFound = "user_not_found"
	ErrNotAllowed   = "not_allowed"
)

var errorMessages = map[string]string{
	ErrNotValid:     "Message could not pass validation",
	ErrUserNotFound: "User not found",
	ErrNotAllowed:   "Action not allowed",
}

// ChatEvent is the outbound wire envelope. Fields outside Type are filled
// per notification kind and omitted otherwise.
type ChatEvent struct {
	Type          string                  `json:"type"`
	ID            string                  `json:"id,omitempty"`
	Name          string                  `json:"name,omitempty"`
	Error         string                  `json:"error,omitempty"`
	RoomID        string                  `json:"room_id,omitempty"`
	Participants  []model.ParticipantInfo `json:"participants,omitempty"`
	RoomMemberID  string                  `json:"room_member_id,omitempty"`
	MessageID     string                  `json:"message_id,omitempty"`
	MessageData   *model.Message          `json:"message_data,omitempty"`
	MessageStatus string                  `json:"message_status,omitempty"`
	Rooms         []RoomSummary           `json:"rooms,omitempty"`
}

// RoomSummary is one entry of the initial-info projection.
type RoomSummary struct {
	RoomID       string                  `json:"room_id"`
	LastMessage  *model.Message          `json:"last_message"`
	Participants []model.ParticipantInfo `json:"participants"`
}

// Responder builds outbound events with ids and names resolved from the
// protocol schema. Constructed once and shared; it holds no mutable state.
type Responder struct {
	schema *protocol.Schema
}

func NewResponder(schema *protocol.Schema) *Responder {
	return &Responder{schema: schema}
}

func (r *Responder) base(notifyID string) ChatEvent {
	out := ChatEvent{Type: EventTypeChat, ID: notifyID}
	if ntf, ok := r.schema.Notification(notifyID); ok {
		out.Name = ntf.Name
	}
	return out
}

// ConversationReady describes a resolved room to its participants.
func (r *Responder) ConversationReady(roomID string, participants []model.ParticipantInfo) ChatEvent {
	out := r.base(NotifyConversationReady)
	out.RoomID = roomID
	out.Participants = participants
	return out
}

// NewMessage describes a freshly persisted message.
func (r *Responder) NewMessage(msg *model.Message) ChatEvent {
	out := r.base(NotifyNewMessage)
	out.RoomID = msg.Context.Room
	out.MessageData = msg
	out.MessageID = msg.ID.Hex()
	out.MessageStatus = model.StatusDisplay(msg.Status)
	return out
}

// MessageDelivered notifies the sender side of a delivery acknowledgement.
func (r *Responder) MessageDelivered(roomID, roomMemberID, messageID string) ChatEvent {
	out := r.base(NotifyMessageDelivered)
	out.RoomID = roomID
	out.RoomMemberID = roomMemberID
	out.MessageID = messageID
	return out
}

// MessageRead notifies the sender side of a read acknowledgement.
func (r *Responder) MessageRead(roomID, roomMemberID, messageID string) ChatEvent {
	out := r.base(NotifyMessageRead)
	out.RoomID = roomID
	out.RoomMemberID = roomMemberID
	out.MessageID = messageID
	return out
}

// InitialInfo wraps the per-room conversation list.
func (r *Responder) InitialInfo(rooms []RoomSummary) ChatEvent {
	out := r.base(NotifyInitialInfo)
	if rooms == nil {
		rooms = []RoomSummary{}
	}
	out.Rooms = rooms
	return out
}

// ProtocolError converts an error code into its uniform wire event. Error
// events carry no notification id, only the error text.
func (r *Responder) ProtocolError(code string) ChatEvent {
	return ChatEvent{Type: EventTypeChat, Error: errorMessages[code]}
}
