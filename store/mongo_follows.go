package store

import (
	"context"
	"time"

	"github.com/moxuan/socialbackend/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type MongoFollowStore struct {
	col *mongo.Collection
}

func NewMongoFollowStore(col *mongo.Collection) *MongoFollowStore {
	return &MongoFollowStore{col: col}
}

func (s *MongoFollowStore) Insert(ctx context.Context, edge *models.Follow) error {
	if edge.ID.IsZero() {
		edge.ID = bson.NewObjectID()
	}
	edge.CreatedAt = time.Now().UTC()

	if _, err := s.col.InsertOne(ctx, edge); err != nil {
		if IsDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *MongoFollowStore) Delete(ctx context.Context, follower, following bson.ObjectID) (bool, error) {
	res, err := s.col.DeleteOne(ctx, bson.M{"follower": follower, "following": following})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (s *MongoFollowStore) ListByFollower(ctx context.Context, follower bson.ObjectID, skip, limit int64) ([]models.Follow, error) {
	return s.list(ctx, bson.M{"follower": follower}, skip, limit)
}

func (s *MongoFollowStore) ListByFollowing(ctx context.Context, following bson.ObjectID, skip, limit int64) ([]models.Follow, error) {
	return s.list(ctx, bson.M{"following": following}, skip, limit)
}

func (s *MongoFollowStore) list(ctx context.Context, filter bson.M, skip, limit int64) ([]models.Follow, error) {
	opts := options.Find().
		SetSkip(skip).
		SetLimit(limit).
		SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	edges := make([]models.Follow, 0)
	if err := cursor.All(ctx, &edges); err != nil {
		return nil, err
	}
	return edges, nil
}

func (s *MongoFollowStore) CountByFollower(ctx context.Context, follower bson.ObjectID) (int64, error) {
	return s.col.CountDocuments(ctx, bson.M{"follower": follower})
}

func (s *MongoFollowStore) CountByFollowing(ctx context.Context, following bson.ObjectID) (int64, error) {
	return s.col.CountDocuments(ctx, bson.M{"following": following})
}

func (s *MongoFollowStore) Exists(ctx context.Context, follower, following bson.ObjectID) (bool, error) {
	count, err := s.col.CountDocuments(ctx, bson.M{"follower": follower, "following": following})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *MongoFollowStore) FollowingIDSet(ctx context.Context, follower bson.ObjectID) (map[string]struct{}, error) {
	opts := options.Find().SetProjection(bson.M{"following": 1, "_id": 0})
	cursor, err := s.col.Find(ctx, bson.M{"follower": follower}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	set := make(map[string]struct{})
	for cursor.Next(ctx) {
		var edge models.Follow
		if err := cursor.Decode(&edge); err != nil {
			return nil, err
		}
		set[edge.Following.Hex()] = struct{}{}
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return set, nil
}

var _ FollowStore = (*MongoFollowStore)(nil)
