package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ Store = (*MongoStore)(nil)

// MongoStore maps every document collection onto a MongoDB collection of the
// same name, using the document id as _id.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoStore connects to uri and verifies the connection with a ping.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	if database == "" {
		return nil, errors.New("mongo database name is required")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &MongoStore{client: client, db: client.Database(database)}, nil
}

func (s *MongoStore) Get(ctx context.Context, collection, id string) (Document, error) {
	var raw bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	_, doc := fromBSON(raw)
	return doc, nil
}

func (s *MongoStore) Set(ctx context.Context, collection, id string, doc Document) error {
	replacement := toBSON(doc)
	delete(replacement, "_id")

	_, err := s.db.Collection(collection).ReplaceOne(ctx,
		bson.M{"_id": id},
		replacement,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *MongoStore) Update(ctx context.Context, collection, id string, fields Document) error {
	for name := range fields {
		if err := ValidateField(name); err != nil {
			return err
		}
	}

	res, err := s.db.Collection(collection).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": toBSON(fields)},
	)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *MongoStore) Query(ctx context.Context, q Query) ([]Snapshot, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	opts := options.Find()
	if q.OrderBy != "" {
		dir := 1
		if q.Direction == Descending {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: q.OrderBy, Value: dir}, {Key: "_id", Value: 1}})
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cursor, err := s.db.Collection(q.Collection).Find(ctx, mongoFilter(q.Filters), opts)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	defer cursor.Close(ctx)

	var rows []bson.M
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("read %s: %w", q.Collection, err)
	}

	snapshots := make([]Snapshot, 0, len(rows))
	for _, row := range rows {
		id, doc := fromBSON(row)
		snapshots = append(snapshots, Snapshot{ID: id, Data: doc})
	}
	return snapshots, nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// mongoFilter relies on MongoDB matching a scalar against array elements,
// which gives ArrayContains the same shape as Equal.
func mongoFilter(filters []Filter) bson.M {
	switch len(filters) {
	case 0:
		return bson.M{}
	case 1:
		return bson.M{filters[0].Field: filters[0].Value}
	}

	conds := make(bson.A, 0, len(filters))
	for _, f := range filters {
		conds = append(conds, bson.M{f.Field: f.Value})
	}
	return bson.M{"$and": conds}
}

func toBSON(doc Document) bson.M {
	out := make(bson.M, len(doc))
	for k, v := range doc {
		out[k] = toBSONValue(v)
	}
	return out
}

func toBSONValue(v any) any {
	switch val := v.(type) {
	case Document:
		return toBSON(val)
	case map[string]any:
		return toBSON(Document(val))
	case []any:
		out := make(bson.A, len(val))
		for i, item := range val {
			out[i] = toBSONValue(item)
		}
		return out
	case time.Time:
		return val.UTC()
	default:
		return val
	}
}

// fromBSON splits _id off a raw row and converts driver types to plain values.
func fromBSON(row bson.M) (string, Document) {
	id := ""
	switch raw := row["_id"].(type) {
	case string:
		id = raw
	case primitive.ObjectID:
		id = raw.Hex()
	case nil:
	default:
		id = fmt.Sprint(raw)
	}

	doc := make(Document, len(row))
	for k, v := range row {
		if k == "_id" {
			continue
		}
		doc[k] = fromBSONValue(v)
	}
	return id, doc
}

func fromBSONValue(v any) any {
	switch val := v.(type) {
	case primitive.DateTime:
		return val.Time().UTC()
	case primitive.Timestamp:
		return time.Unix(int64(val.T), 0).UTC()
	case primitive.ObjectID:
		return val.Hex()
	case int32:
		return int64(val)
	case int:
		return int64(val)
	case primitive.A:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = fromBSONValue(item)
		}
		return out
	case primitive.M:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = fromBSONValue(item)
		}
		return out
	case primitive.D:
		out := make(map[string]any, len(val))
		for _, e := range val {
			out[e.Key] = fromBSONValue(e.Value)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = fromBSONValue(item)
		}
		return out
	default:
		return val
	}
}
