package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"doha-explorer/models"
)

// SQLiteChatHistoryRepository 는 ChatHistoryRepository 와 같은 계약을 SQLite 테이블 위에서 제공한다.
// (user_id, chat_id, message_id) 유니크 제약으로 같은 메시지는 한 번만 저장되고,
// 저장 순서는 seq 로 보존된다.
type SQLiteChatHistoryRepository struct {
	db     *sql.DB
	chatID string
}

func NewSQLiteChatHistoryRepository(d *sql.DB) *SQLiteChatHistoryRepository {
	return &SQLiteChatHistoryRepository{db: d, chatID: models.ActiveChatID}
}

func (r *SQLiteChatHistoryRepository) LoadMessages(ctx context.Context, userID string) ([]models.Message, bool, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT message_id, text, sender, sent_at
		FROM chat_messages
		WHERE user_id = ? AND chat_id = ?
		ORDER BY seq`, userID, r.chatID)
	if err != nil {
		return nil, false, fmt.Errorf("load chat history: %w", err)
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		var (
			msg    models.Message
			sender string
			sentAt int64
		)
		if err := rows.Scan(&msg.ID, &msg.Text, &sender, &sentAt); err != nil {
			return nil, false, fmt.Errorf("scan chat message: %w", err)
		}
		msg.Sender = models.ParseSender(sender)
		msg.Time = time.UnixMilli(sentAt).UTC()
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate chat messages: %w", err)
	}
	return msgs, len(msgs) > 0, nil
}

func (r *SQLiteChatHistoryRepository) AppendMessage(ctx context.Context, userID string, msg models.Message) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO chat_messages (user_id, chat_id, message_id, text, sender, sent_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		userID, r.chatID, msg.ID, msg.Text, string(msg.Sender), msg.Time.UnixMilli(), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("append chat message: %w", err)
	}
	return nil
}

func (r *SQLiteChatHistoryRepository) Clear(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE user_id = ? AND chat_id = ?`, userID, r.chatID)
	return err
}
