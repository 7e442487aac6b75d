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

// SaveSession upserts the conversation record by id.
func (m *MongoDB) SaveSession(ctx context.Context, sess *flow.Session) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(sessionsCollection)

	sess.UpdatedAt = time.Now()

	filter := bson.D{{Key: "_id", Value: sess.ID}}
	update := bson.D{{Key: "$set", Value: sess}}
	opts := options.Update().SetUpsert(true)

	_, err = collection.UpdateOne(ctx, filter, update, opts)
	return err
}

// GetSession loads a conversation record; nil when absent.
func (m *MongoDB) GetSession(ctx context.Context, id string) (*flow.Session, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(sessionsCollection)

	var sess flow.Session
	err = collection.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&sess)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, m.findError(err)
	}
	return &sess, nil
}

// SetSessionStep mirrors the current step onto the conversation record.
// Callers treat failures as non-critical.
func (m *MongoDB) SetSessionStep(ctx context.Context, id string, step flow.Step) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(sessionsCollection)

	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "current_step", Value: step},
		{Key: "updated_at", Value: time.Now()},
	}}}
	_, err = collection.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, update)
	return err
}

// RewriteSessionID moves all references from a temporary session id to the
// permanent one: cart snapshot, messages and payment transactions.
func (m *MongoDB) RewriteSessionID(ctx context.Context, oldID, newID string) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	db := connection.Database(m.database)

	var cart flow.AbandonedCart
	err = db.Collection(cartsCollection).FindOne(ctx, bson.D{{Key: "_id", Value: oldID}}).Decode(&cart)
	if err == nil {
		cart.SessionID = newID
		if _, err := db.Collection(cartsCollection).UpdateOne(ctx,
			bson.D{{Key: "_id", Value: newID}}, bson.D{{Key: "$set", Value: cart}}, options.Update().SetUpsert(true)); err != nil {
			return err
		}
		if _, err := db.Collection(cartsCollection).DeleteOne(ctx, bson.D{{Key: "_id", Value: oldID}}); err != nil {
			return err
		}
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return m.findError(err)
	}

	refUpdate := bson.D{{Key: "$set", Value: bson.D{{Key: "metadata.session_id", Value: newID}}}}
	if _, err := db.Collection(messagesCollection).UpdateMany(ctx, bson.D{{Key: "session_id", Value: oldID}}, bson.D{{Key: "$set", Value: bson.D{{Key: "session_id", Value: newID}}}}); err != nil {
		return err
	}
	if _, err := db.Collection(messagesCollection).UpdateMany(ctx, bson.D{{Key: "metadata.session_id", Value: oldID}}, refUpdate); err != nil {
		return err
	}
	if _, err := db.Collection(transactionsCollection).UpdateMany(ctx, bson.D{{Key: "order_id", Value: oldID}}, bson.D{{Key: "$set", Value: bson.D{{Key: "order_id", Value: newID}}}}); err != nil {
		return err
	}
	return nil
}
