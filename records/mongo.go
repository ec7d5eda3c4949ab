package records

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"medivault-backend/analyzer"
	"medivault-backend/conn"
)

// MongoRepository is the MongoDB Store; aiSummary is an embedded document.
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{col: db.Collection("records")}
}

type recordDoc struct {
	ID             string    `bson:"_id"`
	Owner          string    `bson:"owner,omitempty"`
	FileName       string    `bson:"fileName"`
	StoredFileName string    `bson:"storedFileName,omitempty"`
	FileURL        string    `bson:"fileUrl"`
	FileType       string    `bson:"fileType"`
	UploadDate     time.Time `bson:"uploadDate"`
	IssuedBy       string    `bson:"issuedBy,omitempty"`
	AISummary      bson.M    `bson:"aiSummary"`
}

func toDoc(r *Record) recordDoc {
	summary := bson.M{}
	for k, v := range r.AISummary {
		summary[k] = v
	}
	return recordDoc{
		ID: r.ID, Owner: r.Owner, FileName: r.FileName, StoredFileName: r.StoredFileName,
		FileURL: r.FileURL, FileType: r.FileType, UploadDate: r.UploadDate, IssuedBy: r.IssuedBy,
		AISummary: summary,
	}
}

func (d recordDoc) record() Record {
	m, _ := plain(d.AISummary).(map[string]any)
	return Record{
		ID: d.ID, Owner: d.Owner, FileName: d.FileName, StoredFileName: d.StoredFileName,
		FileURL: d.FileURL, FileType: d.FileType, UploadDate: d.UploadDate.UTC(), IssuedBy: d.IssuedBy,
		AISummary: analyzer.Normalize(m),
	}
}

// plain converts driver container types back into the map/slice shapes that
// encoding/json produces, so Summary accessors work for both backends.
func plain(v any) any {
	switch t := v.(type) {
	case bson.M:
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[k] = plain(x)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[k] = plain(x)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = plain(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = plain(x)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = plain(x)
		}
		return out
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case primitive.DateTime:
		return t.Time().UTC().Format(time.RFC3339)
	}
	return v
}

func (r *MongoRepository) Create(ctx context.Context, rec *Record) error {
	_, err := r.col.InsertOne(ctx, toDoc(rec))
	return err
}

func (r *MongoRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]Record, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	list := make([]Record, 0)
	for cur.Next(ctx) {
		var d recordDoc
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		list = append(list, d.record())
	}
	return list, cur.Err()
}

func (r *MongoRepository) List(ctx context.Context, owner string) ([]Record, error) {
	filter := bson.M{}
	if owner != "" {
		filter["owner"] = owner
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "uploadDate", Value: -1}}))
}

func (r *MongoRepository) Recent(ctx context.Context, owner string, n int) ([]Record, error) {
	return r.find(ctx, bson.M{"owner": owner}, options.Find().SetSort(bson.D{{Key: "uploadDate", Value: -1}}).SetLimit(int64(n)))
}

func (r *MongoRepository) Get(ctx context.Context, id string) (*Record, error) {
	var d recordDoc
	err := r.col.FindOne(ctx, conn.IDFilter(id)).Decode(&d)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec := d.record()
	return &rec, nil
}

func (r *MongoRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.col.DeleteOne(ctx, conn.IDFilter(id))
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (r *MongoRepository) ClaimUnowned(ctx context.Context, owner string) (int64, error) {
	res, err := r.col.UpdateMany(ctx, bson.M{"$or": bson.A{
		bson.M{"owner": bson.M{"$exists": false}},
		bson.M{"owner": nil},
		bson.M{"owner": ""},
	}}, bson.M{"$set": bson.M{"owner": owner}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
