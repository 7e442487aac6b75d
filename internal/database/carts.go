package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tekkistudio/viensonsconnait-sub001/flow"
)

// UpsertCart writes the abandoned-cart snapshot. converted_to_order is only
// ever set through MarkCartConverted, so the upsert deliberately leaves it
// out of the update set.
func (m *MongoDB) UpsertCart(ctx context.Context, cart *flow.AbandonedCart) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(cartsCollection)

	filter := bson.D{{Key: "_id", Value: cart.SessionID}}
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "store_id", Value: cart.StoreID},
			{Key: "customer", Value: cart.Customer},
			{Key: "cart_stage", Value: cart.CartStage},
			{Key: "metadata", Value: cart.Metadata},
			{Key: "updated_at", Value: time.Now()},
		}},
		{Key: "$setOnInsert", Value: bson.D{
			{Key: "converted_to_order", Value: false},
			{Key: "created_at", Value: cart.CreatedAt},
		}},
	}
	opts := options.Update().SetUpsert(true)

	_, err = collection.UpdateOne(ctx, filter, update, opts)
	return err
}

// GetCart loads a snapshot by session id; nil when absent.
func (m *MongoDB) GetCart(ctx context.Context, sessionID string) (*flow.AbandonedCart, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(cartsCollection)

	var cart flow.AbandonedCart
	err = collection.FindOne(ctx, bson.D{{Key: "_id", Value: sessionID}}).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, m.findError(err)
	}
	return &cart, nil
}

// MarkCartConverted atomically claims the cart for materialization: it
// flips converted_to_order false→true and reports whether this caller won.
func (m *MongoDB) MarkCartConverted(ctx context.Context, sessionID string) (bool, error) {
	connection, err := m.connect()
	if err != nil {
		return false, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(cartsCollection)

	filter := bson.D{{Key: "_id", Value: sessionID}, {Key: "converted_to_order", Value: false}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "converted_to_order", Value: true},
		{Key: "updated_at", Value: time.Now()},
	}}}

	res, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}
