package accounts

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"medivault-backend/conn"
)

// MongoRepository is the MongoDB Store, one document per account in "users".
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{col: db.Collection("users")}
}

func (r *MongoRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"email": email}, options.Count().SetLimit(1))
	return n > 0, err
}

func (r *MongoRepository) Create(ctx context.Context, a *Account) error {
	_, err := r.col.InsertOne(ctx, a)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateEmail
	}
	return err
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (*Account, error) {
	var a Account
	err := r.col.FindOne(ctx, filter).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *MongoRepository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (*Account, error) {
	return r.findOne(ctx, conn.IDFilter(id))
}

func (r *MongoRepository) Update(ctx context.Context, a *Account) error {
	_, err := r.col.UpdateOne(ctx, conn.IDFilter(a.ID), bson.M{"$set": bson.M{
		"name":             a.Name,
		"bloodGroup":       a.BloodGroup,
		"allergies":        a.Allergies,
		"emergencyContact": a.EmergencyContact,
		"specialization":   a.Specialization,
		"affiliation":      a.Affiliation,
		"licenseNumber":    a.LicenseNumber,
	}})
	return err
}

func (r *MongoRepository) ListByRole(ctx context.Context, role string) ([]Account, error) {
	cur, err := r.col.Find(ctx, bson.M{"role": role}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	list := make([]Account, 0)
	if err := cur.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}
