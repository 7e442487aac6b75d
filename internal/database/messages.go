package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tekkistudio/viensonsconnait-sub001/flow"
)

type messageDoc struct {
	SessionID string       `bson:"session_id"`
	Message   flow.Message `bson:"message"`
	CreatedAt time.Time    `bson:"created_at"`
}

// SaveMessage appends one conversation turn.
func (m *MongoDB) SaveMessage(ctx context.Context, sessionID string, msg flow.Message) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(messagesCollection)

	doc := messageDoc{
		SessionID: sessionID,
		Message:   msg,
		CreatedAt: time.Now(),
	}
	_, err = collection.InsertOne(ctx, doc)
	return err
}

// History returns the last messages of a session, oldest first.
func (m *MongoDB) History(ctx context.Context, sessionID string, limit int) ([]flow.Message, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(messagesCollection)

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, bson.D{{Key: "session_id", Value: sessionID}}, opts)
	if err != nil {
		return nil, m.findError(err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var docs []messageDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	msgs := make([]flow.Message, 0, len(docs))
	for i := len(docs) - 1; i >= 0; i-- {
		msgs = append(msgs, docs[i].Message)
	}
	return msgs, nil
}
