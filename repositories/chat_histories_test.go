package repositories

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"doha-explorer/models"
)

func TestAppendUpdateUsesMergeOperatorsOnly(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	msg := models.NewMessage(models.SenderUser, "Plan a trip", now)

	update := appendUpdate("uid-1", models.ActiveChatID, msg, now)

	assert.Len(t, update, 3)
	require.Contains(t, update, "$addToSet")
	require.Contains(t, update, "$currentDate")
	require.Contains(t, update, "$setOnInsert")
	assert.NotContains(t, update, "$set", "a plain $set would overwrite unrelated fields")

	addToSet := update["$addToSet"].(bson.M)
	assert.Equal(t, msg, addToSet["messages"])

	currentDate := update["$currentDate"].(bson.M)
	assert.Equal(t, true, currentDate["last_updated"])

	onInsert := update["$setOnInsert"].(bson.M)
	assert.Equal(t, "uid-1", onInsert["user_id"])
	assert.Equal(t, models.ActiveChatID, onInsert["chat_id"])
	assert.Equal(t, now, onInsert["created_at"])
}

func TestAppendUpdateMessageEncodesWithStableKeys(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	msg := models.Message{ID: "m-1", Text: "Marhaba", Sender: models.SenderBot, Time: at}

	raw, err := bson.Marshal(appendUpdate("uid-1", models.ActiveChatID, msg, at))
	require.NoError(t, err)

	var decoded struct {
		AddToSet struct {
			Messages models.Message `bson:"messages"`
		} `bson:"$addToSet"`
	}
	require.NoError(t, bson.Unmarshal(raw, &decoded))
	assert.Equal(t, "m-1", decoded.AddToSet.Messages.ID)
	assert.Equal(t, models.SenderBot, decoded.AddToSet.Messages.Sender)
	assert.True(t, at.Equal(decoded.AddToSet.Messages.Time))
}

func TestHistoryFilter(t *testing.T) {
	assert.Equal(t, bson.M{"user_id": "uid-1", "chat_id": "active_chat"}, historyFilter("uid-1", models.ActiveChatID))
}
