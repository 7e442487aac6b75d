package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tekkistudio/viensonsconnait-sub001/entity"
)

// GetCustomer resolves a returning customer by phone; nil when unknown.
func (m *MongoDB) GetCustomer(ctx context.Context, phone string) (*entity.Customer, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(customersCollection)

	var customer entity.Customer
	err = collection.FindOne(ctx, bson.D{{Key: "_id", Value: phone}}).Decode(&customer)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, m.findError(err)
	}
	return &customer, nil
}

// UpsertCustomerStats bumps the customer's aggregate order count and spend
// after a materialized order.
func (m *MongoDB) UpsertCustomerStats(ctx context.Context, order *entity.Order) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(customersCollection)

	filter := bson.D{{Key: "_id", Value: order.Customer.Phone}}
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "first_name", Value: order.Customer.FirstName},
			{Key: "last_name", Value: order.Customer.LastName},
			{Key: "city", Value: order.Customer.City},
			{Key: "last_order_at", Value: time.Now()},
		}},
		{Key: "$inc", Value: bson.D{
			{Key: "order_count", Value: 1},
			{Key: "total_spend", Value: order.TotalAmount},
		}},
	}
	opts := options.Update().SetUpsert(true)

	_, err = collection.UpdateOne(ctx, filter, update, opts)
	return err
}
