package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tekkistudio/viensonsconnait-sub001/entity"
)

// InsertOrder writes the immutable order record. A duplicate session back
// reference is an invariant violation and surfaces as an error.
func (m *MongoDB) InsertOrder(ctx context.Context, order *entity.Order) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(ordersCollection)

	count, err := collection.CountDocuments(ctx, bson.D{{Key: "session_id", Value: order.SessionID}})
	if err != nil {
		return m.findError(err)
	}
	if count > 0 {
		return fmt.Errorf("order already exists for session %s", order.SessionID)
	}

	_, err = collection.InsertOne(ctx, order)
	if err != nil {
		return fmt.Errorf("mongodb insert error: %w", err)
	}
	return nil
}

// GetOrder loads an order by id; nil when absent.
func (m *MongoDB) GetOrder(ctx context.Context, id string) (*entity.Order, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(ordersCollection)

	var order entity.Order
	err = collection.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, m.findError(err)
	}
	return &order, nil
}
