package service

import (
	"context"
	"errors"

	"parley/internal/db"
	"parley/internal/event"
	"parley/internal/model"
	"parley/internal/repo"

	"go.uber.org/zap"
)

var ErrNotAllowed = errors.New("user is not a member of the room")

// ChatService serves the read-side projections: the initial conversation
// list a client fetches on reconnect, and paginated room history.
type ChatService interface {
	GetInitialInfo(ctx context.Context, userID string) (event.ChatEvent, error)
	GetRoomMessages(ctx context.Context, userID, roomID string, page int64) (*db.PaginatedResult[model.Message], error)
}

type chatService struct {
	rooms     repo.RoomRepository
	messages  repo.MessageRepository
	responder *event.Responder
	logger    *zap.Logger
}

func NewChatService(rooms repo.RoomRepository, messages repo.MessageRepository, responder *event.Responder, logger *zap.Logger) ChatService {
	return &chatService{
		rooms:     rooms,
		messages:  messages,
		responder: responder,
		logger:    logger,
	}
}

// GetInitialInfo returns, per distinct room the user participates in, the
// latest message plus the participant roster.
func (s *chatService) GetInitialInfo(ctx context.Context, userID string) (event.ChatEvent, error) {
	heads, err := s.messages.GetConversationHeads(ctx, userID)
	if err != nil {
		return event.ChatEvent{}, err
	}

	heads = Filter(heads, func(m model.Message) bool {
		return m.Context.Room != ""
	})

	summaries := make([]event.RoomSummary, 0, len(heads))
	for i := range heads {
		head := heads[i]
		room, err := s.rooms.GetRoom(ctx, head.Context.Room)
		if err != nil {
			// A dangling room reference only loses one list entry.
			s.logger.Warn("skipping conversation with unreadable room",
				zap.String("room_id", head.Context.Room), zap.Error(err))
			continue
		}

		summaries = append(summaries, event.RoomSummary{
			RoomID:       head.Context.Room,
			LastMessage:  &head,
			Participants: room.Participants(),
		})
	}

	return s.responder.InitialInfo(summaries), nil
}

// GetRoomMessages returns one page of a room's history, members only.
func (s *chatService) GetRoomMessages(ctx context.Context, userID, roomID string, page int64) (*db.PaginatedResult[model.Message], error) {
	isMember, err := s.rooms.IsMember(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, ErrNotAllowed
	}

	return s.messages.GetRoomMessages(ctx, roomID, page)
}
