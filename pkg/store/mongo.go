package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const reportCollection = "reports"

// MongoStore persists reports in a MongoDB collection for multi-instance
// server deployments. The report ID is the document _id; a unique index on
// sha256 keeps one stored report per archive.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to the MongoDB deployment at uri and prepares the
// reports collection in the given database, creating the sha256 index if
// needed. The connection is verified with a ping before returning.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	coll := client.Database(database).Collection(reportCollection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "sha256", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("create sha256 index: %w", err)
	}

	return &MongoStore{client: client, coll: coll}, nil
}

func (s *MongoStore) Put(ctx context.Context, rep *StoredReport) error {
	if rep == nil {
		return fmt.Errorf("nil report")
	}
	if rep.ID == "" {
		return fmt.Errorf("empty report id")
	}

	_, err := s.coll.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: rep.ID}},
		rep,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("store report %s: %w", rep.ID, err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (*StoredReport, error) {
	var rep StoredReport
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&rep)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load report %s: %w", id, err)
	}
	return &rep, nil
}

func (s *MongoStore) GetBySHA256(ctx context.Context, sum string) (*StoredReport, error) {
	if sum == "" {
		return nil, nil
	}

	var rep StoredReport
	err := s.coll.FindOne(ctx, bson.D{{Key: "sha256", Value: sum}}).Decode(&rep)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load report by digest: %w", err)
	}
	return &rep, nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}}); err != nil {
		return fmt.Errorf("delete report %s: %w", id, err)
	}
	return nil
}

func (s *MongoStore) List(ctx context.Context, limit int) ([]*StoredReport, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := s.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer cursor.Close(ctx)

	var reports []*StoredReport
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, fmt.Errorf("decode reports: %w", err)
	}
	return reports, nil
}

// Ping verifies connectivity to the MongoDB deployment.
// Health endpoints use this to report backend status.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
