package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Raniaaloun/chat-app/internal/core/domain"
)

const collectionMessages = "messages"

// MessageRepository implements ports.MessageRepository using MongoDB.
type MessageRepository struct {
	col *mongo.Collection
}

func NewMessageRepository(db *mongo.Database) *MessageRepository {
	return &MessageRepository{col: db.Collection(collectionMessages)}
}

type messageDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	SenderID   string             `bson:"sender_id"`
	ReceiverID string             `bson:"receiver_id"`
	Kind       string             `bson:"kind"`
	Content    string             `bson:"content"`
	Thumbnail  string             `bson:"thumbnail,omitempty"`
	Delivered  bool               `bson:"delivered"`
	Read       bool               `bson:"read"`
	ReadAt     *time.Time         `bson:"read_at,omitempty"`
	CreatedAt  time.Time          `bson:"created_at"`
}

func (d messageDoc) toDomain() *domain.Message {
	msg := &domain.Message{
		ID:         d.ID.Hex(),
		SenderID:   d.SenderID,
		ReceiverID: d.ReceiverID,
		Kind:       domain.MessageKind(d.Kind),
		Content:    d.Content,
		Thumbnail:  d.Thumbnail,
		Delivered:  d.Delivered,
		Read:       d.Read,
		CreatedAt:  d.CreatedAt.UTC(),
	}
	if d.ReadAt != nil {
		at := d.ReadAt.UTC()
		msg.ReadAt = &at
	}
	return msg
}

// Create inserts a new message document and assigns the generated id back
// onto msg.
func (r *MessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := messageDoc{
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		Kind:       string(msg.Kind),
		Content:    msg.Content,
		Thumbnail:  msg.Thumbnail,
		Delivered:  msg.Delivered,
		Read:       msg.Read,
		ReadAt:     msg.ReadAt,
		CreatedAt:  msg.CreatedAt,
	}

	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	msg.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return nil
}

func (r *MessageRepository) FindByID(ctx context.Context, id string) (*domain.Message, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrMessageNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc messageDoc
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, fmt.Errorf("find message: %w", err)
	}
	return doc.toDomain(), nil
}

// FindConversation returns every message between the two accounts, ascending
// by creation time (ties broken by id so the order is total).
func (r *MessageRepository) FindConversation(ctx context.Context, userA, userB string) ([]*domain.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"$or": bson.A{
		bson.M{"sender_id": userA, "receiver_id": userB},
		bson.M{"sender_id": userB, "receiver_id": userA},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	defer cur.Close(ctx)

	var messages []*domain.Message
	for cur.Next(ctx) {
		var doc messageDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		messages = append(messages, doc.toDomain())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversation: %w", err)
	}
	return messages, nil
}

// MarkDelivered flips the delivered flag. The update is a single document
// write, so the delivered transition is atomic with respect to concurrent
// read marking.
func (r *MessageRepository) MarkDelivered(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrMessageNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateByID(ctx, oid, bson.M{"$set": bson.M{"delivered": true}})
	if err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}

// BulkMarkRead selects the unread messages from senderID to receiverID and
// flips read, delivered, and read_at in one UpdateMany. Selecting the ids
// first lets the caller notify with the exact set changed; a concurrent
// identical call can at worst duplicate a notification, never lose one.
func (r *MessageRepository) BulkMarkRead(ctx context.Context, senderID, receiverID string, readAt time.Time) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"sender_id": senderID, "receiver_id": receiverID, "read": false}

	cur, err := r.col.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("select unread: %w", err)
	}

	var ids []primitive.ObjectID
	for cur.Next(ctx) {
		var doc struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			cur.Close(ctx)
			return nil, fmt.Errorf("decode unread id: %w", err)
		}
		ids = append(ids, doc.ID)
	}
	if err := cur.Err(); err != nil {
		cur.Close(ctx)
		return nil, fmt.Errorf("iterate unread: %w", err)
	}
	cur.Close(ctx)

	if len(ids) == 0 {
		return nil, nil
	}

	update := bson.M{"$set": bson.M{"read": true, "delivered": true, "read_at": readAt}}
	if _, err := r.col.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": ids}}, update); err != nil {
		return nil, fmt.Errorf("mark read: %w", err)
	}

	changed := make([]string, len(ids))
	for i, oid := range ids {
		changed[i] = oid.Hex()
	}
	return changed, nil
}

// LastMessageTimes aggregates the most recent message timestamp per
// conversation partner of the given user.
func (r *MessageRepository) LastMessageTimes(ctx context.Context, userID string) (map[string]time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"$or": bson.A{
			bson.M{"sender_id": userID},
			bson.M{"receiver_id": userID},
		}}}},
		{{Key: "$project", Value: bson.M{
			"created_at": 1,
			"other_user": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$sender_id", userID}},
				"$receiver_id",
				"$sender_id",
			}},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":             "$other_user",
			"last_message_at": bson.M{"$max": "$created_at"},
		}}},
	}

	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate last message times: %w", err)
	}
	defer cur.Close(ctx)

	result := make(map[string]time.Time)
	for cur.Next(ctx) {
		var row struct {
			OtherUser     string    `bson:"_id"`
			LastMessageAt time.Time `bson:"last_message_at"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode aggregation row: %w", err)
		}
		result[row.OtherUser] = row.LastMessageAt.UTC()
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate aggregation: %w", err)
	}
	return result, nil
}

// EnsureIndexes creates the conversation and unread-lookup indexes.
func (r *MessageRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "sender_id", Value: 1}, {Key: "receiver_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "receiver_id", Value: 1}, {Key: "read", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
