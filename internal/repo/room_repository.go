package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"parley/internal/db"
	"parley/internal/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var (
	ErrInvalidRoomID  = errors.New("invalid room ID: cannot be empty")
	ErrNoParticipants = errors.New("cannot resolve a room for an empty participant set")
	ErrRoomNotFound   = errors.New("room not found")
)

// RoomRepository resolves and reads fixed-membership conversation rooms.
type RoomRepository interface {
	// Resolve returns the unique room whose membership exactly equals the
	// given participant set, creating it when no such room exists.
	Resolve(ctx context.Context, participants []model.User) (*model.Room, error)
	GetRoom(ctx context.Context, roomID string) (*model.Room, error)
	IsMember(ctx context.Context, roomID, userID string) (bool, error)
}

type roomRepository struct {
	con       *mongo.Database
	mongoRepo *db.Repository[model.Room]
	logger    *zap.Logger
}

// NewRoomRepository builds the repository and installs the unique member_key
// index that makes resolve-or-create atomic under concurrent first contact.
func NewRoomRepository(ctx context.Context, con *mongo.Database, repo *db.Repository[model.Room], logger *zap.Logger) (RoomRepository, error) {
	if err := repo.EnsureUniqueIndex(ctx, "member_key"); err != nil {
		return nil, fmt.Errorf("failed to ensure room member_key index: %w", err)
	}

	return &roomRepository{
		con:       con,
		mongoRepo: repo,
		logger:    logger,
	}, nil
}

func (r *roomRepository) Resolve(ctx context.Context, participants []model.User) (*model.Room, error) {
	if len(participants) == 0 {
		return nil, ErrNoParticipants
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	userIDs := make([]string, 0, len(participants))
	for _, user := range participants {
		userIDs = append(userIDs, user.UserID)
	}

	room, err := r.findExisting(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	if room != nil {
		r.logger.Debug("room reused",
			zap.String("room_id", room.ID.Hex()),
			zap.Int("participants", len(room.Members)),
		)
		return room, nil
	}

	return r.create(ctx, participants, userIDs)
}

// findExisting walks each participant's memberships and intersects their
// room-id sets. A participant without any membership on record means no
// match is possible. A candidate from the intersection only counts when its
// membership equals the requested set exactly.
func (r *roomRepository) findExisting(ctx context.Context, userIDs []string) (*model.Room, error) {
	candidates := make(map[string]*model.Room)
	var roomIDSets []map[string]struct{}

	for _, uid := range userIDs {
		rooms, err := r.mongoRepo.FindAll(ctx, db.NewFilter().Eq("members.user_id", uid).Build())
		if err != nil {
			r.logger.Error("failed to query memberships", zap.String("user_id", uid), zap.Error(err))
			return nil, fmt.Errorf("failed to get memberships: %w", err)
		}
		if len(rooms) == 0 {
			return nil, nil
		}

		ids := make(map[string]struct{}, len(rooms))
		for i := range rooms {
			hex := rooms[i].ID.Hex()
			ids[hex] = struct{}{}
			candidates[hex] = &rooms[i]
		}
		roomIDSets = append(roomIDSets, ids)
	}

	for hex := range intersect(roomIDSets) {
		if membersEqual(candidates[hex], userIDs) {
			return candidates[hex], nil
		}
	}
	return nil, nil
}

func (r *roomRepository) create(ctx context.Context, participants []model.User, userIDs []string) (*model.Room, error) {
	members := make([]model.RoomMember, 0, len(participants))
	for _, user := range participants {
		members = append(members, model.RoomMember{
			MemberID:  uuid.New().String(),
			UserID:    user.UserID,
			FirstName: user.FirstName,
			LastName:  user.LastName,
		})
	}

	room := model.Room{
		Active:    true,
		MemberKey: model.MemberKey(userIDs),
		Members:   members,
		CreatedAt: time.Now().UTC(),
	}

	result, err := r.mongoRepo.Create(ctx, room)
	if err != nil {
		// Lost the race to a concurrent resolve for the same set; the
		// unique index guarantees the winner is the one room.
		if mongo.IsDuplicateKeyError(err) {
			r.logger.Debug("room creation raced, fetching winner",
				zap.String("member_key", room.MemberKey))
			return r.mongoRepo.FindOne(ctx, db.NewFilter().Eq("member_key", room.MemberKey).Build())
		}
		r.logger.Error("failed to create room", zap.Error(err))
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		r.logger.Info("room created",
			zap.String("room_id", oid.Hex()),
			zap.Int("participants", len(members)),
		)
	}

	return r.mongoRepo.FindOne(ctx, db.NewFilter().Eq("member_key", room.MemberKey).Build())
}

func (r *roomRepository) GetRoom(ctx context.Context, roomID string) (*model.Room, error) {
	if roomID == "" {
		return nil, ErrInvalidRoomID
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	room, err := r.mongoRepo.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrRoomNotFound
		}
		r.logger.Error("failed to fetch room", zap.String("room_id", roomID), zap.Error(err))
		return nil, fmt.Errorf("failed to fetch room: %w", err)
	}

	return room, nil
}

func (r *roomRepository) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	if roomID == "" {
		return false, ErrInvalidRoomID
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().
		ObjectID("_id", roomID).
		Eq("members.user_id", userID).
		Build()

	return r.mongoRepo.Exists(ctx, filter)
}

// intersect returns the ids present in every set.
func intersect(sets []map[string]struct{}) map[string]struct{} {
	if len(sets) == 0 {
		return nil
	}

	out := make(map[string]struct{})
	for id := range sets[0] {
		inAll := true
		for _, other := range sets[1:] {
			if _, ok := other[id]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			out[id] = struct{}{}
		}
	}
	return out
}

// membersEqual reports whether the room's membership equals the requested
// participant set: no extra members, none missing.
func membersEqual(room *model.Room, userIDs []string) bool {
	if room == nil {
		return false
	}

	wanted := make(map[string]struct{}, len(userIDs))
	for _, uid := range userIDs {
		wanted[uid] = struct{}{}
	}

	if len(room.Members) != len(wanted) {
		return false
	}
	for _, member := range room.Members {
		if _, ok := wanted[member.UserID]; !ok {
			return false
		}
	}
	return true
}
