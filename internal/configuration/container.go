package configuration

import (
	"context"
	"fmt"
	"log"
	"time"

	"parley/internal/auth"
	"parley/internal/db"
	"parley/internal/event"
	"parley/internal/handler"
	"parley/internal/hub"
	"parley/internal/model"
	"parley/internal/presence"
	"parley/internal/protocol"
	"parley/internal/repo"
	"parley/internal/service"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Container struct {
	ChatHandler    handler.ChatHandler
	MonitorHandler handler.MonitorHandler
	Authenticator  *auth.Authenticator
	Hub            *hub.Hub
	Config         Config
	Logger         *zap.Logger

	// private - for cleanup
	mongoClient *mongo.Database
	presence    *presence.Counter
}

func BuildContainer(configPath string) (*Container, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	con, err := db.OpenConnection(config.ChatDatabase.Uri, config.ChatDatabase.Database)
	if err != nil {
		return nil, err
	}

	logger, _ := zap.NewProduction()

	schema, err := protocol.LoadSchema(config.Protocol.SchemaPath)
	if err != nil {
		return nil, err
	}
	validator := protocol.NewValidator(schema, logger)
	responder := event.NewResponder(schema)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	counter, err := presence.NewCounter(ctx, config.Redis.Url,
		time.Duration(config.Redis.KeyExpireSeconds)*time.Second, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect presence store: %w", err)
	}

	userRepo := repo.NewUserRepository(con,
		db.NewRepository[model.User](con, config.ChatDatabase.UsersCollection), logger)
	roomRepo, err := repo.NewRoomRepository(ctx, con,
		db.NewRepository[model.Room](con, config.ChatDatabase.RoomsCollection), logger)
	if err != nil {
		return nil, err
	}
	messageRepo := repo.NewMessageRepository(con,
		db.NewRepository[model.Message](con, config.ChatDatabase.MessagesCollection),
		config.Protocol.StrictStatusOrder, logger)

	engine := hub.NewEngine(validator, responder, userRepo, roomRepo, messageRepo, counter, logger)
	chatHub := hub.NewHub(engine, counter)

	authenticator := auth.NewAuthenticator(config.Auth.Secret, userRepo, logger)
	chatService := service.NewChatService(roomRepo, messageRepo, responder, logger)
	chatHandler := handler.NewChatHandler(chatService, authenticator)
	monitorHandler := handler.NewMonitorHandler(hub.NewMonitorService(chatHub))

	return &Container{
		ChatHandler:    chatHandler,
		MonitorHandler: monitorHandler,
		Authenticator:  authenticator,
		Hub:            chatHub,
		Config:         *config,
		Logger:         logger,
		mongoClient:    con,
		presence:       counter,
	}, nil
}

// Close gracefully shuts down all connections
func (c *Container) Close() error {
	// Stop the hub first (closes all WebSocket connections)
	if c.Hub != nil {
		c.Hub.Stop()
	}

	// Sync logger
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}

	if c.presence != nil {
		_ = c.presence.Close()
	}

	// Close MongoDB connection pool
	if c.mongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.mongoClient.Client().Disconnect(ctx); err != nil {
			return fmt.Errorf("failed to close MongoDB connection: %w", err)
		}
	}

	return nil
}
