package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseSender(t *testing.T) {
	testCases := []struct {
		tag  string
		want Sender
	}{
		{tag: "user", want: SenderUser},
		{tag: "users", want: SenderUser},
		{tag: " User ", want: SenderUser},
		{tag: "bot", want: SenderBot},
		{tag: "", want: SenderBot},
		{tag: "assistant", want: SenderBot},
	}

	for _, testCase := range testCases {
		assert.Equal(t, testCase.want, ParseSender(testCase.tag), "tag %q", testCase.tag)
	}
}

func TestNewMessageAssignsUniqueIDs(t *testing.T) {
	now := time.Now()
	a := NewMessage(SenderUser, "hello", now)
	b := NewMessage(SenderUser, "hello", now)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.True(t, a.IsUser())
}

func TestNormalizeLegacyMessage(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	legacy := Message{Text: "Plan a trip", Sender: "users", Time: at}

	first := legacy.Normalize()
	second := legacy.Normalize()

	assert.Equal(t, SenderUser, first.Sender)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, first.ID, second.ID, "derived id must be stable across loads")

	withID := Message{ID: "fixed", Text: "x", Sender: SenderBot}
	assert.Equal(t, "fixed", withID.Normalize().ID)
}
