// Package mongo implements the session repository on MongoDB for
// deployments that keep their operational data there.
package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/minervalabs/minerva/internal/config"
	"github.com/minervalabs/minerva/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const sessionCollection = "user_sessions"

// sessionDoc is the stored shape: the token and expiry are real fields so
// lookups can filter server-side, the rest of the session travels as one
// JSON payload so the attribute-map codec stays identical across backends.
type sessionDoc struct {
	Token     string    `bson:"_id"`
	ExpiresAt time.Time `bson:"expires_at"`
	Payload   string    `bson:"payload"`
}

// SessionRepository implements domain.SessionRepository on MongoDB
type SessionRepository struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewSessionRepository connects to MongoDB and returns a session repository
func NewSessionRepository(ctx context.Context, cfg config.MongoConfig) (*SessionRepository, error) {
	clientOpts := options.Client().ApplyURI(cfg.URI)
	if cfg.ConnectTimeout > 0 {
		clientOpts.SetConnectTimeout(cfg.ConnectTimeout)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping: %w", err)
	}

	return &SessionRepository{
		client: client,
		coll:   client.Database(cfg.Database).Collection(sessionCollection),
	}, nil
}

// Save inserts or overwrites the session document by token
func (r *SessionRepository) Save(ctx context.Context, session *domain.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	doc := sessionDoc{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		Payload:   string(payload),
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := r.coll.ReplaceOne(ctx, bson.M{"_id": session.Token}, doc, opts); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// FindByToken returns the session for the token if it has not expired
func (r *SessionRepository) FindByToken(ctx context.Context, token string) (*domain.Session, error) {
	filter := bson.M{
		"_id":        token,
		"expires_at": bson.M{"$gt": time.Now()},
	}

	var doc sessionDoc
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(doc.Payload), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// Ping verifies the backend is reachable
func (r *SessionRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

// Close disconnects from MongoDB
func (r *SessionRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
