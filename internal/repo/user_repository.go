package repo

import (
	"context"
	"errors"
	"fmt"

	"parley/internal/db"
	"parley/internal/model"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository reads users owned by the external identity system.
type UserRepository interface {
	GetUsersByIDs(ctx context.Context, userIDs []string) ([]model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

type userRepository struct {
	con       *mongo.Database
	mongoRepo *db.Repository[model.User]
	logger    *zap.Logger
}

func NewUserRepository(con *mongo.Database, repo *db.Repository[model.User], logger *zap.Logger) UserRepository {
	return &userRepository{
		con:       con,
		mongoRepo: repo,
		logger:    logger,
	}
}

// GetUsersByIDs returns every user matching the given ids. Unknown ids are
// silently absent from the result; the caller decides what an empty result
// means.
func (r *userRepository) GetUsersByIDs(ctx context.Context, userIDs []string) ([]model.User, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().In("user_id", userIDs).Build()

	users, err := r.mongoRepo.FindAll(ctx, filter)
	if err != nil {
		r.logger.Error("failed to query users", zap.Error(err))
		return nil, fmt.Errorf("failed to get users: %w", err)
	}

	r.logger.Debug("users retrieved",
		zap.Int("requested", len(userIDs)),
		zap.Int("found", len(users)),
	)
	return users, nil
}

// GetUserByEmail resolves the user behind a connection credential.
func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	user, err := r.mongoRepo.FindOne(ctx, db.NewFilter().Eq("email", email).Build())
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		r.logger.Error("failed to fetch user", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	return user, nil
}
