// internal/bootstrap/schema.go
package bootstrap

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// EnsureSchema creates the indexes the features rely on. It is idempotent;
// Mongo treats re-creating an identical index as a no-op. In lazy connect
// mode this is skipped at startup since there is no connection yet.
func EnsureSchema(ctx context.Context, deps *DBDeps, logger *zap.Logger) error {
	db := deps.Database

	specs := []struct {
		collection string
		models     []mongo.IndexModel
	}{
		{
			collection: "users",
			models: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "email", Value: 1}},
					Options: options.Index().SetUnique(true),
				},
				{Keys: bson.D{{Key: "role", Value: 1}}},
			},
		},
		{
			collection: "jobs",
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "active", Value: 1}, {Key: "created_at", Value: -1}}},
				{Keys: bson.D{{Key: "posted_by", Value: 1}}},
				{Keys: bson.D{{Key: "type", Value: 1}}},
			},
		},
		{
			collection: "referrals",
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
				{Keys: bson.D{{Key: "job_id", Value: 1}}},
				{Keys: bson.D{{Key: "referrer_id", Value: 1}}},
				{Keys: bson.D{{Key: "claimed_by", Value: 1}}},
			},
		},
		{
			collection: "messages",
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "to_id", Value: 1}, {Key: "created_at", Value: -1}}},
				{Keys: bson.D{{Key: "from_id", Value: 1}, {Key: "to_id", Value: 1}, {Key: "created_at", Value: 1}}},
			},
		},
		{
			collection: "uploads",
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}}},
			},
		},
	}

	for _, spec := range specs {
		names, err := db.Collection(spec.collection).Indexes().CreateMany(ctx, spec.models)
		if err != nil {
			return fmt.Errorf("create indexes on %s: %w", spec.collection, err)
		}
		logger.Debug("indexes ensured",
			zap.String("collection", spec.collection),
			zap.Strings("indexes", names))
	}
	return nil
}
