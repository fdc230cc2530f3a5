package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"doha-explorer/models"
)

const mockNS = "doha_explorer.chat_histories"

func mockRepo(mt *mtest.T) *ChatHistoryRepository {
	return &ChatHistoryRepository{col: mt.Coll, chatID: models.ActiveChatID}
}

func storedMessage(id, text, sender string, at time.Time) bson.D {
	return bson.D{
		{Key: "id", Value: id},
		{Key: "text", Value: text},
		{Key: "sender", Value: sender},
		{Key: "time", Value: primitive.NewDateTimeFromTime(at)},
	}
}

func TestChatHistoryRepositoryMongo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	mt.Run("load missing document", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, mockNS, mtest.FirstBatch))

		msgs, found, err := mockRepo(mt).LoadMessages(context.Background(), "uid-1")

		require.NoError(mt, err)
		assert.False(mt, found)
		assert.Nil(mt, msgs)

		var cmd struct {
			Filter bson.M `bson:"filter"`
		}
		require.NoError(mt, bson.Unmarshal(mt.GetStartedEvent().Command, &cmd))
		assert.Equal(mt, "uid-1", cmd.Filter["user_id"])
		assert.Equal(mt, models.ActiveChatID, cmd.Filter["chat_id"])
	})

	mt.Run("load keeps stored order", func(mt *mtest.T) {
		doc := bson.D{
			{Key: "user_id", Value: "uid-1"},
			{Key: "chat_id", Value: models.ActiveChatID},
			{Key: "messages", Value: bson.A{
				storedMessage("m2", "Where is Katara?", "user", at),
				storedMessage("m1", "Katara is north of West Bay.", "bot", at.Add(-time.Hour)),
			}},
		}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, mockNS, mtest.FirstBatch, doc))

		msgs, found, err := mockRepo(mt).LoadMessages(context.Background(), "uid-1")

		require.NoError(mt, err)
		assert.True(mt, found)
		require.Len(mt, msgs, 2)
		assert.Equal(mt, "m2", msgs[0].ID)
		assert.Equal(mt, models.SenderUser, msgs[0].Sender)
		assert.Equal(mt, "m1", msgs[1].ID)
		assert.True(mt, at.Add(-time.Hour).Equal(msgs[1].Time))
	})

	mt.Run("load wraps server error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Message: "bad filter",
			Name:    "BadValue",
		}))

		_, found, err := mockRepo(mt).LoadMessages(context.Background(), "uid-1")

		require.Error(mt, err)
		assert.False(mt, found)
		assert.Contains(mt, err.Error(), "load chat history")
		var ce mongo.CommandError
		require.ErrorAs(mt, err, &ce)
		assert.Equal(mt, int32(2), ce.Code)
	})

	mt.Run("append upserts with merge operators", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))
		msg := models.Message{ID: "m1", Text: "Plan a day trip", Sender: models.SenderUser, Time: at}

		require.NoError(mt, mockRepo(mt).AppendMessage(context.Background(), "uid-1", msg))

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "update", evt.CommandName)
		var cmd struct {
			Updates []struct {
				Q      bson.M `bson:"q"`
				U      bson.M `bson:"u"`
				Upsert bool   `bson:"upsert"`
			} `bson:"updates"`
		}
		require.NoError(mt, bson.Unmarshal(evt.Command, &cmd))
		require.Len(mt, cmd.Updates, 1)
		assert.True(mt, cmd.Updates[0].Upsert)
		assert.Equal(mt, "uid-1", cmd.Updates[0].Q["user_id"])
		assert.Contains(mt, cmd.Updates[0].U, "$addToSet")
		assert.NotContains(mt, cmd.Updates[0].U, "$set")
	})

	mt.Run("append wraps write error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key",
		}))

		err := mockRepo(mt).AppendMessage(context.Background(), "uid-1", models.NewMessage(models.SenderBot, "hi", at))

		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "append chat message")
		var we mongo.WriteException
		assert.ErrorAs(mt, err, &we)
	})

	mt.Run("clear deletes the user document", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		require.NoError(mt, mockRepo(mt).Clear(context.Background(), "uid-1"))

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "delete", evt.CommandName)
		var cmd struct {
			Deletes []struct {
				Q bson.M `bson:"q"`
			} `bson:"deletes"`
		}
		require.NoError(mt, bson.Unmarshal(evt.Command, &cmd))
		require.Len(mt, cmd.Deletes, 1)
		assert.Equal(mt, "uid-1", cmd.Deletes[0].Q["user_id"])
		assert.Equal(mt, models.ActiveChatID, cmd.Deletes[0].Q["chat_id"])
	})
}
