package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/glowspace/glowspace-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	messagesCollection  = "messages"
	defaultHistoryLimit = 50
	maxHistoryLimit     = 100
	maxMessageLength    = 5000
)

// MessageStore persists direct messages. It is the durable counterpart of the
// socket relay: clients write here first, then emit the live event.
type MessageStore struct {
	c *mongo.Collection
}

func NewMessageStore(db *mongo.Database) *MessageStore {
	return &MessageStore{c: db.Collection(messagesCollection)}
}

// ConversationID returns the stable key for the conversation between a and b.
func ConversationID(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return ids[0] + ":" + ids[1]
}

// EnsureIndexes configures indexes for the messages collection.
// Called on startup from main after Mongo has connected.
func (s *MessageStore) EnsureIndexes(ctx context.Context) error {
	idx := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "conversation_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_conversation_created"),
		},
		{
			Keys: bson.D{
				{Key: "receiver_id", Value: 1},
				{Key: "is_read", Value: 1},
			},
			Options: options.Index().SetName("idx_receiver_unread"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, idx)
	return err
}

// ValidateContent trims content and enforces the length limit.
func ValidateContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" || len([]rune(content)) > maxMessageLength {
		return "", ErrInvalidInput
	}
	return content, nil
}

func (s *MessageStore) Create(ctx context.Context, senderID, receiverID, content string, kind models.MessageType) (models.Message, error) {
	content, err := ValidateContent(content)
	if err != nil {
		return models.Message{}, err
	}
	if receiverID == "" || receiverID == senderID {
		return models.Message{}, ErrInvalidInput
	}
	if kind == "" {
		kind = models.MessageTypeText
	}
	if !kind.Valid() {
		return models.Message{}, ErrInvalidInput
	}

	now := time.Now().UTC()
	msg := models.Message{
		ID:             primitive.NewObjectID(),
		ConversationID: ConversationID(senderID, receiverID),
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Content:        content,
		MessageType:    kind,
		Reactions:      []models.Reaction{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if _, err := s.c.InsertOne(ctx, msg); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

func (s *MessageStore) FindByID(ctx context.Context, id string) (*models.Message, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var m models.Message
	if err := s.c.FindOne(ctx, bson.M{"_id": oid}).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// ListConversation returns paginated history between a and b.
// Pagination is based on created_at + limit (newest-first scrolling); the
// page itself is returned oldest-first for the UI.
func (s *MessageStore) ListConversation(ctx context.Context, a, b string, before *time.Time, limit int64) ([]models.Message, bool, error) {
	if limit <= 0 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}

	filter := bson.M{"conversation_id": ConversationID(a, b)}
	if before != nil {
		filter["created_at"] = bson.M{"$lt": before.UTC()}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit + 1)

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, false, err
	}
	defer cur.Close(ctx)

	msgs := make([]models.Message, 0, limit)
	for cur.Next(ctx) {
		var m models.Message
		if err := cur.Decode(&m); err != nil {
			continue
		}
		msgs = append(msgs, m)
	}
	if err := cur.Err(); err != nil {
		return nil, false, err
	}

	hasMore := int64(len(msgs)) > limit
	if hasMore {
		msgs = msgs[:len(msgs)-1]
	}
	reverseMessages(msgs)
	return msgs, hasMore, nil
}

func reverseMessages(msgs []models.Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}

// Edit replaces the content of a message. Only the sender may edit.
func (s *MessageStore) Edit(ctx context.Context, id, senderID, content string) (*models.Message, error) {
	content, err := ValidateContent(content)
	if err != nil {
		return nil, err
	}
	m, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.IsDeleted {
		return nil, ErrNotFound
	}
	if m.SenderID != senderID {
		return nil, ErrForbidden
	}

	now := time.Now().UTC()
	_, err = s.c.UpdateOne(ctx, bson.M{"_id": m.ID}, bson.M{"$set": bson.M{
		"content":    content,
		"is_edited":  true,
		"edited_at":  now,
		"updated_at": now,
	}})
	if err != nil {
		return nil, err
	}
	m.Content = content
	m.IsEdited = true
	m.EditedAt = &now
	m.UpdatedAt = now
	return m, nil
}

// SoftDelete hides a message's content. Only the sender may delete.
func (s *MessageStore) SoftDelete(ctx context.Context, id, senderID string) (*models.Message, error) {
	m, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.SenderID != senderID {
		return nil, ErrForbidden
	}
	if m.IsDeleted {
		return m, nil
	}

	now := time.Now().UTC()
	_, err = s.c.UpdateOne(ctx, bson.M{"_id": m.ID}, bson.M{"$set": bson.M{
		"content":    "",
		"is_deleted": true,
		"updated_at": now,
	}})
	if err != nil {
		return nil, err
	}
	m.Content = ""
	m.IsDeleted = true
	m.UpdatedAt = now
	return m, nil
}

// ToggleReaction adds userID's emoji reaction, or removes it if already present.
// Only the two participants of the conversation may react.
func (s *MessageStore) ToggleReaction(ctx context.Context, id, userID, emoji string) (*models.Message, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" || len(emoji) > 32 {
		return nil, ErrInvalidInput
	}
	m, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.IsDeleted {
		return nil, ErrNotFound
	}
	if userID != m.SenderID && userID != m.ReceiverID {
		return nil, ErrForbidden
	}

	now := time.Now().UTC()
	m.Reactions = ToggleReaction(m.Reactions, userID, emoji, now)
	_, err = s.c.UpdateOne(ctx, bson.M{"_id": m.ID}, bson.M{"$set": bson.M{
		"reactions":  m.Reactions,
		"updated_at": now,
	}})
	if err != nil {
		return nil, err
	}
	m.UpdatedAt = now
	return m, nil
}

// ToggleReaction returns reactions with (userID, emoji) removed if present,
// appended otherwise.
func ToggleReaction(reactions []models.Reaction, userID, emoji string, at time.Time) []models.Reaction {
	out := make([]models.Reaction, 0, len(reactions)+1)
	removed := false
	for _, r := range reactions {
		if r.UserID == userID && r.Emoji == emoji {
			removed = true
			continue
		}
		out = append(out, r)
	}
	if !removed {
		out = append(out, models.Reaction{UserID: userID, Emoji: emoji, CreatedAt: at})
	}
	return out
}

// MarkConversationRead marks every unread message from otherID to readerID as read.
func (s *MessageStore) MarkConversationRead(ctx context.Context, readerID, otherID string) (int64, error) {
	res, err := s.c.UpdateMany(ctx, bson.M{
		"conversation_id": ConversationID(readerID, otherID),
		"receiver_id":     readerID,
		"is_read":         false,
	}, bson.M{"$set": bson.M{"is_read": true}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
