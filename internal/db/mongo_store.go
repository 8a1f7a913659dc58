package db

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/causalfunnel/cartsurvey/internal/api"
	"github.com/causalfunnel/cartsurvey/internal/models"
)

// MongoStore persists the same documents the original app kept in MongoDB:
// one store document per shop, one response document per submission.
type MongoStore struct {
	client    *mongo.Client
	stores    *mongo.Collection
	responses *mongo.Collection
	customers *mongo.Collection
}

var _ api.Store = (*MongoStore)(nil)

// NewMongoStore connects to uri, ensures indexes, and returns a ready store.
func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	database := client.Database(dbName)
	s := &MongoStore{
		client:    client,
		stores:    database.Collection("stores"),
		responses: database.Collection("responses"),
		customers: database.Collection("customers"),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.stores.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "shop", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create stores index: %w", err)
	}
	_, err = s.responses.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "shop", Value: 1}, {Key: "submitted_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create responses index: %w", err)
	}
	_, err = s.customers.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "shop", Value: 1}, {Key: "customer_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create customers index: %w", err)
	}
	return nil
}

func (s *MongoStore) GetStore(ctx context.Context, shop string) (*models.StoreRecord, error) {
	var rec models.StoreRecord
	err := s.stores.FindOne(ctx, bson.M{"shop": shop}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find store %q: %w", shop, err)
	}
	return &rec, nil
}

func (s *MongoStore) UpsertStore(ctx context.Context, rec *models.StoreRecord) (*models.StoreRecord, error) {
	opts := options.Replace().SetUpsert(true)
	if _, err := s.stores.ReplaceOne(ctx, bson.M{"shop": rec.Shop}, rec, opts); err != nil {
		return nil, fmt.Errorf("upsert store %q: %w", rec.Shop, err)
	}
	return s.GetStore(ctx, rec.Shop)
}

func (s *MongoStore) DeleteStore(ctx context.Context, shop string) error {
	if _, err := s.stores.DeleteOne(ctx, bson.M{"shop": shop}); err != nil {
		return fmt.Errorf("delete store %q: %w", shop, err)
	}
	if _, err := s.customers.DeleteMany(ctx, bson.M{"shop": shop}); err != nil {
		return fmt.Errorf("delete customers for %q: %w", shop, err)
	}
	return nil
}

func (s *MongoStore) AddResponse(ctx context.Context, resp *models.Response) (*models.Response, error) {
	if _, err := s.responses.InsertOne(ctx, resp); err != nil {
		return nil, fmt.Errorf("insert response %q: %w", resp.ID, err)
	}
	return resp, nil
}

func (s *MongoStore) ListResponsesByShop(ctx context.Context, shop string) ([]*models.Response, error) {
	opts := options.Find().SetSort(bson.D{{Key: "submitted_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.responses.Find(ctx, bson.M{"shop": shop}, opts)
	if err != nil {
		return nil, fmt.Errorf("find responses for %q: %w", shop, err)
	}
	defer cur.Close(ctx)
	out := []*models.Response{}
	for cur.Next(ctx) {
		var resp models.Response
		if err := cur.Decode(&resp); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		out = append(out, &resp)
	}
	return out, cur.Err()
}

func (s *MongoStore) DeleteResponsesByShop(ctx context.Context, shop string) (int, error) {
	res, err := s.responses.DeleteMany(ctx, bson.M{"shop": shop})
	if err != nil {
		return 0, fmt.Errorf("delete responses for %q: %w", shop, err)
	}
	return int(res.DeletedCount), nil
}

func (s *MongoStore) UpsertCustomer(ctx context.Context, c *models.Customer) error {
	opts := options.Replace().SetUpsert(true)
	filter := bson.M{"shop": c.Shop, "customer_id": c.CustomerID}
	if _, err := s.customers.ReplaceOne(ctx, filter, c, opts); err != nil {
		return fmt.Errorf("upsert customer %q: %w", c.CustomerID, err)
	}
	return nil
}

func (s *MongoStore) GetCustomer(ctx context.Context, shop, customerID string) (*models.Customer, error) {
	var c models.Customer
	err := s.customers.FindOne(ctx, bson.M{"shop": shop, "customer_id": customerID}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find customer %q: %w", customerID, err)
	}
	return &c, nil
}

func (s *MongoStore) DeleteCustomerData(ctx context.Context, shop, customerID string) (int, error) {
	removed := 0
	res, err := s.customers.DeleteMany(ctx, bson.M{"shop": shop, "customer_id": customerID})
	if err != nil {
		return 0, fmt.Errorf("delete customer %q: %w", customerID, err)
	}
	removed += int(res.DeletedCount)
	res, err = s.responses.DeleteMany(ctx, bson.M{"shop": shop, "customer_id": customerID})
	if err != nil {
		return removed, fmt.Errorf("delete customer responses %q: %w", customerID, err)
	}
	removed += int(res.DeletedCount)
	return removed, nil
}

func (s *MongoStore) Ping(ctx context.Context) error { return s.client.Ping(ctx, nil) }

func (s *MongoStore) Close(ctx context.Context) error { return s.client.Disconnect(ctx) }
