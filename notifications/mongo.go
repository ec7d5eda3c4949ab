package notifications

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"medivault-backend/conn"
)

type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{col: db.Collection("notifications")}
}

func (r *MongoRepository) Create(ctx context.Context, n *Notification) error {
	_, err := r.col.InsertOne(ctx, n)
	return err
}

func (r *MongoRepository) ListByOwner(ctx context.Context, owner string) ([]Notification, error) {
	cur, err := r.col.Find(ctx, bson.M{"owner": owner}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	list := make([]Notification, 0)
	if err := cur.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *MongoRepository) Get(ctx context.Context, id string) (*Notification, error) {
	var n Notification
	err := r.col.FindOne(ctx, conn.IDFilter(id)).Decode(&n)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *MongoRepository) MarkRead(ctx context.Context, id string) (bool, error) {
	res, err := r.col.UpdateOne(ctx, conn.IDFilter(id), bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}
