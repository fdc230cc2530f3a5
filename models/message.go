package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// legacySenderUser 는 이전 클라이언트가 저장하던 사용자 태그다.
const legacySenderUser = "users"

// ParseSender normalizes a stored sender tag.
// Unknown tags are treated as bot output so they never count as user input.
func ParseSender(tag string) Sender {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case string(SenderUser), legacySenderUser:
		return SenderUser
	default:
		return SenderBot
	}
}

// Message is a single immutable chat entry.
// Ordering is defined by position in the conversation, not by Time.
type Message struct {
	ID     string    `bson:"id" json:"id"`
	Text   string    `bson:"text" json:"text"`
	Sender Sender    `bson:"sender" json:"sender"`
	Time   time.Time `bson:"time" json:"time"`
}

// NewMessage creates a message with a fresh id.
func NewMessage(sender Sender, text string, at time.Time) Message {
	return Message{
		ID:     uuid.NewString(),
		Text:   text,
		Sender: sender,
		Time:   at,
	}
}

func (m Message) IsUser() bool { return m.Sender == SenderUser }

// Normalize returns a copy with a canonical sender tag and an id.
// Documents written before ids existed get one derived from their content,
// so repeated loads of the same document produce the same id.
func (m Message) Normalize() Message {
	m.Sender = ParseSender(string(m.Sender))
	if m.ID == "" {
		seed := string(m.Sender) + "\x00" + m.Text + "\x00" + m.Time.UTC().Format(time.RFC3339Nano)
		m.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
	}
	return m
}
