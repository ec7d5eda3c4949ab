package share

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{col: db.Collection("sharedlinks")}
}

func (r *MongoRepository) Create(ctx context.Context, l *Link) error {
	_, err := r.col.InsertOne(ctx, l)
	return err
}

func (r *MongoRepository) GetByToken(ctx context.Context, token string) (*Link, error) {
	var l Link
	err := r.col.FindOne(ctx, bson.M{"token": token}).Decode(&l)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	l.CreatedAt, l.ExpiresAt = l.CreatedAt.UTC(), l.ExpiresAt.UTC()
	return &l, nil
}
