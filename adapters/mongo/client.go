package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/echolearn/server/domain/repositories"
)

const (
	DefaultURI      = "mongodb://localhost:27017"
	DefaultDatabase = "echolearn"

	sessionsCollection = "learning_sessions"
	quizzesCollection  = "quizzes"
	progressCollection = "user_progress"
)

// Client wraps the MongoDB client and database
type Client struct {
	*mongo.Client
	Database *mongo.Database
	logger   *zap.Logger
}

// NewClient creates a new MongoDB client connection
func NewClient(ctx context.Context, uri, dbName string, logger *zap.Logger) (*Client, error) {
	if uri == "" {
		uri = DefaultURI
	}
	if dbName == "" {
		dbName = DefaultDatabase
	}

	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(10).
		SetMinPoolSize(1).
		SetMaxConnIdleTime(30 * time.Minute).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(10 * time.Second)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("Successfully connected to MongoDB", zap.String("database", dbName))

	return &Client{
		Client:   client,
		Database: client.Database(dbName),
		logger:   logger,
	}, nil
}

// EnsureIndexes creates the lookup indexes used by the repositories
func (c *Client) EnsureIndexes(ctx context.Context) error {
	bySession := mongo.IndexModel{Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "created_at", Value: 1}}}

	if _, err := c.Database.Collection(quizzesCollection).Indexes().CreateOne(ctx, bySession); err != nil {
		return fmt.Errorf("failed to create quiz index: %w", err)
	}
	if _, err := c.Database.Collection(progressCollection).Indexes().CreateOne(ctx, bySession); err != nil {
		return fmt.Errorf("failed to create progress index: %w", err)
	}
	if _, err := c.Database.Collection(sessionsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}},
	}); err != nil {
		return fmt.Errorf("failed to create session index: %w", err)
	}
	return nil
}

// Store returns the repositories backed by this client
func (c *Client) Store() repositories.Store {
	return repositories.Store{
		Sessions: NewSessionRepository(c.Database),
		Quizzes:  NewQuizRepository(c.Database),
		Progress: NewProgressRepository(c.Database),
		Close:    c.Close,
	}
}

// Close closes the MongoDB connection
func (c *Client) Close(ctx context.Context) error {
	if err := c.Client.Disconnect(ctx); err != nil {
		c.logger.Error("Failed to disconnect from MongoDB", zap.Error(err))
		return err
	}
	c.logger.Info("Disconnected from MongoDB")
	return nil
}
