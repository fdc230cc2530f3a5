package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActiveChatID 는 사용자별 현재 대화 문서의 고정 키다.
const ActiveChatID = "active_chat"

// ChatHistory stores the persisted conversation of one user
// Collection: chat_histories, unique on (user_id, chat_id)
type ChatHistory struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      string             `bson:"user_id" json:"user_id"`
	ChatID      string             `bson:"chat_id" json:"chat_id"`
	Messages    []Message          `bson:"messages" json:"messages"`
	LastUpdated time.Time          `bson:"last_updated" json:"last_updated"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}
