package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS chat_messages (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    TEXT NOT NULL,
	chat_id    TEXT NOT NULL,
	message_id TEXT NOT NULL,
	text       TEXT NOT NULL,
	sender     TEXT NOT NULL,
	sent_at    INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	UNIQUE (user_id, chat_id, message_id)
);
CREATE INDEX IF NOT EXISTS idx_chat_messages_user_chat ON chat_messages(user_id, chat_id, seq);
`

// OpenSQLite 는 로컬 히스토리 저장용 SQLite 파일을 열고 스키마를 보장한다.
// Mongo 없이 cmd/explorer 를 단독으로 돌릴 때 사용한다.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	// modernc 드라이버는 _pragma 파라미터만 읽는다.
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	d, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// 쓰기는 세션 writer 하나가 순서대로 보내므로 연결 하나로 충분하다.
	d.SetMaxOpenConns(1)
	d.SetConnMaxLifetime(30 * time.Minute)

	if err := d.PingContext(ctx); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := d.ExecContext(ctx, sqliteSchema); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return d, nil
}
