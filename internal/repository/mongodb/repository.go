package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/stockwatch/internal/domain/models"
)

const (
	itemsCollection      = "inventory_items"
	recipientsCollection = "alert_recipients"
	stateCollection      = "low_stock_state"
)

// Repository defines the storage operations used by the low-stock evaluator.
type Repository interface {
	ListActiveItems(ctx context.Context) ([]models.InventoryItem, error)
	ListEnabledRecipients(ctx context.Context) ([]models.AlertRecipient, error)
	ListStates(ctx context.Context) ([]models.LowStockState, error)
	UpsertState(ctx context.Context, state models.LowStockState) error
}

// MongoDBRepository implements the Repository interface for MongoDB.
type MongoDBRepository struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{
		client: client,
		db:     client.Database(dbName),
	}, nil
}

// EnsureIndexes creates the unique item index on the state collection.
func (r *MongoDBRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.db.Collection(stateCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "item_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_item_id"),
	})
	if err != nil {
		return fmt.Errorf("create low stock state index: %w", err)
	}
	return nil
}

// ListActiveItems returns every active inventory item.
func (r *MongoDBRepository) ListActiveItems(ctx context.Context) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	if err := r.findAll(ctx, itemsCollection, bson.M{"is_active": true}, &items); err != nil {
		return nil, fmt.Errorf("list active items: %w", err)
	}
	return items, nil
}

// ListEnabledRecipients returns recipients that opted in to alerts.
func (r *MongoDBRepository) ListEnabledRecipients(ctx context.Context) ([]models.AlertRecipient, error) {
	var recipients []models.AlertRecipient
	if err := r.findAll(ctx, recipientsCollection, bson.M{"enabled": true}, &recipients); err != nil {
		return nil, fmt.Errorf("list alert recipients: %w", err)
	}
	return recipients, nil
}

// ListStates returns the whole low-stock state table.
func (r *MongoDBRepository) ListStates(ctx context.Context) ([]models.LowStockState, error) {
	var states []models.LowStockState
	if err := r.findAll(ctx, stateCollection, bson.M{}, &states); err != nil {
		return nil, fmt.Errorf("list low stock state: %w", err)
	}
	return states, nil
}

// UpsertState writes the full state document for state.ItemID.
func (r *MongoDBRepository) UpsertState(ctx context.Context, state models.LowStockState) error {
	if state.ItemID == "" {
		return errors.New("upsert low stock state: item id is empty")
	}

	filter := bson.M{"item_id": state.ItemID}
	update := bson.M{"$set": state}
	opts := options.Update().SetUpsert(true)

	if _, err := r.db.Collection(stateCollection).UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("upsert low stock state for %s: %w", state.ItemID, err)
	}
	return nil
}

// Ping verifies the server is reachable.
func (r *MongoDBRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func (r *MongoDBRepository) findAll(ctx context.Context, collection string, filter bson.M, out any) error {
	cursor, err := r.db.Collection(collection).Find(ctx, filter)
	if err != nil {
		return err
	}
	return cursor.All(ctx, out)
}
