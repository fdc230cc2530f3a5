package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"doha-explorer/db"
	"doha-explorer/models"
)

type AILogRepository struct {
	col *mongo.Collection
}

func NewAILogRepository(d *mongo.Database) *AILogRepository {
	return &AILogRepository{col: d.Collection(db.AILogsCollection)}
}

func (r *AILogRepository) Insert(ctx context.Context, log models.AILog) (*mongo.InsertOneResult, error) {
	if log.RequestedAt.IsZero() {
		log.RequestedAt = time.Now()
	}
	return r.col.InsertOne(ctx, log)
}
