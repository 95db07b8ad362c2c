package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"parley/internal/db"
	"parley/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var (
	ErrInvalidMessage    = errors.New("invalid message: message cannot be nil")
	ErrMessageNotFound   = errors.New("message not found")
	ErrInvalidTransition = errors.New("status transition not allowed")
)

// MessageRepository persists messages and advances their delivery status.
type MessageRepository interface {
	// InsertMessage persists a new message with status SENT and links it to
	// the most recent message of the same room.
	InsertMessage(ctx context.Context, msg *model.Message) (*model.Message, error)
	GetMessage(ctx context.Context, messageID string) (*model.Message, error)
	// UpdateStatus advances a message's delivery status. When strict order
	// is enabled only forward single-step transitions are applied.
	UpdateStatus(ctx context.Context, messageID string, status int) error
	GetRoomMessages(ctx context.Context, roomID string, page int64) (*db.PaginatedResult[model.Message], error)
	// GetConversationHeads returns the latest message of every distinct room
	// the user participates in as sender or recipient.
	GetConversationHeads(ctx context.Context, userID string) ([]model.Message, error)
}

type messageRepository struct {
	con         *mongo.Database
	mongoRepo   *db.Repository[model.Message]
	logger      *zap.Logger
	strictOrder bool
}

func NewMessageRepository(con *mongo.Database, repo *db.Repository[model.Message], strictOrder bool, logger *zap.Logger) MessageRepository {
	return &messageRepository{
		con:         con,
		mongoRepo:   repo,
		logger:      logger,
		strictOrder: strictOrder,
	}
}

func (m *messageRepository) InsertMessage(ctx context.Context, msg *model.Message) (*model.Message, error) {
	if msg == nil {
		return nil, ErrInvalidMessage
	}
	if msg.Context.Room == "" {
		return nil, ErrInvalidRoomID
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	msg.ID = primitive.NewObjectID()
	msg.Status = model.StatusSent
	msg.Direction = model.DirectionIncoming
	msg.Protocol = model.ProtocolWS
	msg.CreatedOn = time.Now().UTC()
	msg.Previous = m.lastMessageID(ctx, msg.Context.Room)

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			if err := waitForRetry(ctx, attempt); err != nil {
				return nil, err
			}
		}

		_, err := m.mongoRepo.Create(ctx, *msg)
		if err == nil {
			m.logger.Info("message inserted",
				zap.String("message_id", msg.ID.Hex()),
				zap.String("room_id", msg.Context.Room),
				zap.Int("attempt", attempt+1),
			)
			return msg, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			break
		}

		m.logger.Warn("insert attempt failed, retrying",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", maxRetries),
		)
	}

	m.logger.Error("failed to insert message after all retries",
		zap.Error(lastErr),
		zap.String("room_id", msg.Context.Room),
	)
	return nil, fmt.Errorf("insert message failed: %w", lastErr)
}

// lastMessageID returns the id of the newest message in the room, forming
// the per-room history chain. Missing history is not an error.
func (m *messageRepository) lastMessageID(ctx context.Context, roomID string) *primitive.ObjectID {
	last, err := m.mongoRepo.FindLatest(ctx, db.NewFilter().Eq("context.room", roomID).Build(), "created_on")
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			m.logger.Warn("failed to fetch previous message",
				zap.String("room_id", roomID), zap.Error(err))
		}
		return nil
	}
	return &last.ID
}

func (m *messageRepository) GetMessage(ctx context.Context, messageID string) (*model.Message, error) {
	if messageID == "" {
		return nil, ErrMessageNotFound
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	msg, err := m.mongoRepo.FindByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) || errors.Is(err, primitive.ErrInvalidHex) {
			return nil, ErrMessageNotFound
		}
		m.logger.Error("failed to fetch message",
			zap.String("message_id", messageID), zap.Error(err))
		return nil, fmt.Errorf("failed to fetch message: %w", err)
	}

	return msg, nil
}

func (m *messageRepository) UpdateStatus(ctx context.Context, messageID string, status int) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	if m.strictOrder {
		current, err := m.GetMessage(ctx, messageID)
		if err != nil {
			return err
		}
		if err := checkTransition(current.Status, status); err != nil {
			m.logger.Debug("out-of-order status transition rejected",
				zap.String("message_id", messageID),
				zap.String("from", model.StatusDisplay(current.Status)),
				zap.String("to", model.StatusDisplay(status)),
			)
			return err
		}
	}

	result, err := m.mongoRepo.UpdateByID(ctx, messageID, bson.M{"status": status})
	if err != nil {
		m.logger.Error("failed to update message status",
			zap.String("message_id", messageID), zap.Error(err))
		return fmt.Errorf("update message status failed: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrMessageNotFound
	}

	m.logger.Debug("message status updated",
		zap.String("message_id", messageID),
		zap.String("status", model.StatusDisplay(status)),
	)
	return nil
}

// checkTransition enforces the strict ordering policy: only the single
// forward step from the current status is allowed.
func checkTransition(current, next int) error {
	if next != current+1 {
		return ErrInvalidTransition
	}
	return nil
}

func (m *messageRepository) GetRoomMessages(ctx context.Context, roomID string, page int64) (*db.PaginatedResult[model.Message], error) {
	if roomID == "" {
		return nil, ErrInvalidRoomID
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().Eq("context.room", roomID).Build()

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			if err := waitForRetry(ctx, attempt); err != nil {
				return nil, err
			}
			m.logger.Warn("retrying room messages query",
				zap.String("room_id", roomID),
				zap.Int("attempt", attempt+1),
			)
		}

		result, err := m.mongoRepo.FindWithPagination(ctx, filter, db.PaginationParams{
			Page:     page,
			PageSize: 15,
			SortBy:   "created_on",
			SortDesc: false,
		})
		if err == nil {
			return result, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			break
		}
	}

	m.logger.Error("failed to fetch room messages",
		zap.Error(lastErr), zap.String("room_id", roomID))
	return nil, fmt.Errorf("fetch room messages failed: %w", lastErr)
}

func (m *messageRepository) GetConversationHeads(ctx context.Context, userID string) ([]model.Message, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"$or":          bson.A{bson.M{"sender_id": userID}, bson.M{"recipient_id": userID}},
			"context.room": bson.M{"$exists": true, "$ne": ""},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "created_on", Value: -1}}}},
		{{Key: "$group", Value: bson.M{
			"_id":  "$context.room",
			"head": bson.M{"$first": "$$ROOT"},
		}}},
		{{Key: "$replaceRoot", Value: bson.M{"newRoot": "$head"}}},
		{{Key: "$sort", Value: bson.D{{Key: "created_on", Value: -1}}}},
	}

	heads, err := m.mongoRepo.Aggregate(ctx, pipeline)
	if err != nil {
		m.logger.Error("failed to aggregate conversation heads",
			zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("conversation heads query failed: %w", err)
	}

	return heads, nil
}
