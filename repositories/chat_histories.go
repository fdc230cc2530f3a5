package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"doha-explorer/db"
	"doha-explorer/models"
)

// ChatHistoryRepository 는 사용자별 대화 문서(user_id + chat_id)를 다룬다.
// 메시지 추가는 $addToSet 기반이라 같은 메시지를 다시 보내도 중복되지 않는다.
type ChatHistoryRepository struct {
	col    *mongo.Collection
	chatID string
}

func NewChatHistoryRepository(d *mongo.Database) *ChatHistoryRepository {
	return &ChatHistoryRepository{col: d.Collection(db.ChatHistoriesCollection), chatID: models.ActiveChatID}
}

func historyFilter(userID, chatID string) bson.M {
	return bson.M{"user_id": userID, "chat_id": chatID}
}

// appendUpdate builds the merge update for a single message.
// Only messages, last_updated and the insert-time fields are touched.
func appendUpdate(userID, chatID string, msg models.Message, now time.Time) bson.M {
	return bson.M{
		"$addToSet":    bson.M{"messages": msg},
		"$currentDate": bson.M{"last_updated": true},
		"$setOnInsert": bson.M{
			"user_id":    userID,
			"chat_id":    chatID,
			"created_at": now,
		},
	}
}

// LoadMessages returns the stored conversation in stored order.
// found is false when the user has no document yet.
func (r *ChatHistoryRepository) LoadMessages(ctx context.Context, userID string) ([]models.Message, bool, error) {
	var h models.ChatHistory
	err := r.col.FindOne(ctx, historyFilter(userID, r.chatID)).Decode(&h)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load chat history: %w", err)
	}
	return h.Messages, true, nil
}

// AppendMessage union-appends msg to the user's document, creating it if needed.
func (r *ChatHistoryRepository) AppendMessage(ctx context.Context, userID string, msg models.Message) error {
	opts := options.Update().SetUpsert(true)
	if _, err := r.col.UpdateOne(ctx, historyFilter(userID, r.chatID), appendUpdate(userID, r.chatID, msg, time.Now()), opts); err != nil {
		return fmt.Errorf("append chat message: %w", err)
	}
	return nil
}

// Clear removes the user's persisted conversation.
func (r *ChatHistoryRepository) Clear(ctx context.Context, userID string) error {
	_, err := r.col.DeleteOne(ctx, historyFilter(userID, r.chatID))
	return err
}
