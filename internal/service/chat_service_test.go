package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"parley/internal/db"
	"parley/internal/event"
	"parley/internal/model"
	"parley/internal/protocol"
	"parley/internal/repo"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type stubRoomRepo struct {
	rooms   map[string]*model.Room
	members map[string]map[string]bool
}

func (s *stubRoomRepo) Resolve(ctx context.Context, participants []model.User) (*model.Room, error) {
	return nil, errors.New("not used")
}

func (s *stubRoomRepo) GetRoom(ctx context.Context, roomID string) (*model.Room, error) {
	if room, ok := s.rooms[roomID]; ok {
		return room, nil
	}
	return nil, repo.ErrRoomNotFound
}

func (s *stubRoomRepo) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	return s.members[roomID][userID], nil
}

type stubMessageRepo struct {
	heads []model.Message
	pages map[string]*db.PaginatedResult[model.Message]
}

func (s *stubMessageRepo) InsertMessage(ctx context.Context, msg *model.Message) (*model.Message, error) {
	return nil, errors.New("not used")
}

func (s *stubMessageRepo) GetMessage(ctx context.Context, messageID string) (*model.Message, error) {
	return nil, repo.ErrMessageNotFound
}

func (s *stubMessageRepo) UpdateStatus(ctx context.Context, messageID string, status int) error {
	return errors.New("not used")
}

func (s *stubMessageRepo) GetRoomMessages(ctx context.Context, roomID string, page int64) (*db.PaginatedResult[model.Message], error) {
	if result, ok := s.pages[roomID]; ok {
		return result, nil
	}
	return &db.PaginatedResult[model.Message]{}, nil
}

func (s *stubMessageRepo) GetConversationHeads(ctx context.Context, userID string) ([]model.Message, error) {
	return s.heads, nil
}

func serviceSchema() *protocol.Schema {
	return &protocol.Schema{
		Notifications: []protocol.Notification{
			{ID: "N5", Name: "initial_info"},
		},
	}
}

func headMessage(roomID string) model.Message {
	return model.Message{
		ID:        primitive.NewObjectID(),
		SenderID:  "u1",
		Content:   "latest in " + roomID,
		Context:   model.MessageContext{Room: roomID},
		Status:    model.StatusSent,
		CreatedOn: time.Now(),
	}
}

func TestGetInitialInfo(t *testing.T) {
	room := &model.Room{
		ID:     primitive.NewObjectID(),
		Active: true,
		Members: []model.RoomMember{
			{MemberID: "m1", UserID: "u1", FirstName: "Ada"},
			{MemberID: "m2", UserID: "u2", FirstName: "Bob"},
		},
	}
	rooms := &stubRoomRepo{
		rooms: map[string]*model.Room{room.ID.Hex(): room},
	}
	// A roomless head never surfaces; an unreadable room loses only its entry.
	messages := &stubMessageRepo{heads: []model.Message{
		headMessage(room.ID.Hex()),
		headMessage(""),
		headMessage("dangling"),
	}}

	svc := NewChatService(rooms, messages, event.NewResponder(serviceSchema()), zap.NewNop())

	ev, err := svc.GetInitialInfo(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetInitialInfo() error = %v", err)
	}

	if ev.ID != event.NotifyInitialInfo || ev.Name != "initial_info" {
		t.Errorf("unexpected envelope: id=%q name=%q", ev.ID, ev.Name)
	}
	if len(ev.Rooms) != 1 {
		t.Fatalf("expected 1 room summary, got %d", len(ev.Rooms))
	}

	summary := ev.Rooms[0]
	if summary.RoomID != room.ID.Hex() {
		t.Errorf("summary room id = %q, want %q", summary.RoomID, room.ID.Hex())
	}
	if summary.LastMessage == nil || summary.LastMessage.Content != "latest in "+room.ID.Hex() {
		t.Errorf("unexpected last message: %+v", summary.LastMessage)
	}
	if len(summary.Participants) != 2 {
		t.Errorf("expected 2 participants, got %d", len(summary.Participants))
	}
}

func TestGetInitialInfoEmpty(t *testing.T) {
	svc := NewChatService(
		&stubRoomRepo{},
		&stubMessageRepo{},
		event.NewResponder(serviceSchema()),
		zap.NewNop(),
	)

	ev, err := svc.GetInitialInfo(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetInitialInfo() error = %v", err)
	}
	if ev.Rooms == nil || len(ev.Rooms) != 0 {
		t.Errorf("expected empty room list, got %+v", ev.Rooms)
	}
}

func TestGetRoomMessagesRequiresMembership(t *testing.T) {
	rooms := &stubRoomRepo{
		members: map[string]map[string]bool{
			"r1": {"u1": true},
		},
	}
	messages := &stubMessageRepo{
		pages: map[string]*db.PaginatedResult[model.Message]{
			"r1": {Data: []model.Message{headMessage("r1")}, Total: 1, Page: 1},
		},
	}

	svc := NewChatService(rooms, messages, event.NewResponder(serviceSchema()), zap.NewNop())
	ctx := context.Background()

	result, err := svc.GetRoomMessages(ctx, "u1", "r1", 1)
	if err != nil {
		t.Fatalf("GetRoomMessages() error = %v", err)
	}
	if len(result.Data) != 1 {
		t.Errorf("expected 1 message, got %d", len(result.Data))
	}

	if _, err := svc.GetRoomMessages(ctx, "u2", "r1", 1); !errors.Is(err, ErrNotAllowed) {
		t.Errorf("non-member error = %v, want ErrNotAllowed", err)
	}
}
