package store

import (
	"context"
	"errors"
	"time"

	"github.com/moxuan/socialbackend/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type MongoArticleStore struct {
	col *mongo.Collection
}

func NewMongoArticleStore(col *mongo.Collection) *MongoArticleStore {
	return &MongoArticleStore{col: col}
}

func (s *MongoArticleStore) Insert(ctx context.Context, article *models.Article) error {
	if article.ID.IsZero() {
		article.ID = bson.NewObjectID()
	}
	now := time.Now().UTC()
	article.CreatedAt = now
	article.UpdatedAt = now

	_, err := s.col.InsertOne(ctx, article)
	return err
}

func (s *MongoArticleStore) FindByID(ctx context.Context, id bson.ObjectID) (*models.Article, error) {
	var article models.Article
	if err := s.col.FindOne(ctx, bson.M{"_id": id, "isDeleted": false}).Decode(&article); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &article, nil
}

func (s *MongoArticleStore) List(ctx context.Context, skip, limit int64) ([]models.Article, int64, error) {
	return s.listFiltered(ctx, bson.M{"isDeleted": false}, skip, limit)
}

func (s *MongoArticleStore) ListByAuthor(ctx context.Context, author bson.ObjectID, skip, limit int64) ([]models.Article, int64, error) {
	return s.listFiltered(ctx, bson.M{"userId": author, "isDeleted": false}, skip, limit)
}

func (s *MongoArticleStore) listFiltered(ctx context.Context, filter bson.M, skip, limit int64) ([]models.Article, int64, error) {
	total, err := s.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSkip(skip).
		SetLimit(limit).
		SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	articles := make([]models.Article, 0)
	if err := cursor.All(ctx, &articles); err != nil {
		return nil, 0, err
	}
	return articles, total, nil
}

func (s *MongoArticleStore) SoftDelete(ctx context.Context, id bson.ObjectID) error {
	res, err := s.col.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"isDeleted": true,
			"updatedAt": time.Now().UTC(),
		},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

var _ ArticleStore = (*MongoArticleStore)(nil)
