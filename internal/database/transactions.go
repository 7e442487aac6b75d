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

// SaveTransaction inserts a payment transaction attempt.
func (m *MongoDB) SaveTransaction(ctx context.Context, tx *entity.PaymentTransaction) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(transactionsCollection)

	_, err = collection.InsertOne(ctx, tx)
	return err
}

// LatestTransaction returns the most recent transaction for a session; the
// latest by creation time is authoritative across retries and method
// switches.
func (m *MongoDB) LatestTransaction(ctx context.Context, sessionID string) (*entity.PaymentTransaction, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(transactionsCollection)

	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	var tx entity.PaymentTransaction
	err = collection.FindOne(ctx, bson.D{{Key: "order_id", Value: sessionID}}, opts).Decode(&tx)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, m.findError(err)
	}
	return &tx, nil
}

// UpdateTransactionStatus moves a transaction to a new status.
func (m *MongoDB) UpdateTransactionStatus(ctx context.Context, id, status string) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(transactionsCollection)

	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: status},
		{Key: "updated_at", Value: time.Now()},
	}}}
	_, err = collection.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, update)
	return err
}
