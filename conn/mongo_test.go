package conn

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestIDFilter(t *testing.T) {
	f := IDFilter("5e1c5c3e-8f3a-4c57-9a55-1d0c7b3b2a10")
	if f["_id"] != "5e1c5c3e-8f3a-4c57-9a55-1d0c7b3b2a10" {
		t.Fatalf("uuid id must match as a plain string: %v", f)
	}

	oid := primitive.NewObjectID()
	f = IDFilter(oid.Hex())
	in, ok := f["_id"].(bson.M)["$in"].(bson.A)
	if !ok || len(in) != 2 || in[0] != oid.Hex() || in[1] != oid {
		t.Fatalf("hex id must match string and ObjectID: %#v", f)
	}
}
