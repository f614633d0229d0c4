package repository

import (
	"context"
	"time"

	"flightsync-service/internal/domain/entity"
	"flightsync-service/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDeadLetterRepository implements the DeadLetterRepository interface
type MongoDeadLetterRepository struct {
	collection *mongo.Collection
}

// NewMongoDeadLetterRepository creates a new MongoDB dead letter repository
func NewMongoDeadLetterRepository(db *mongo.Database) repository.DeadLetterRepository {
	collection := db.Collection("dead_letters")

	ctx := context.Background()

	// Index on taskId so a redelivered task replaces its previous letter
	taskIDIndex := mongo.IndexModel{
		Keys:    bson.M{"taskId": 1},
		Options: options.Index().SetUnique(true),
	}

	// Index on failedAt for sorting and filtering
	failedAtIndex := mongo.IndexModel{
		Keys: bson.M{"failedAt": -1},
	}

	providerIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "provider", Value: 1},
			{Key: "kind", Value: 1},
		},
	}

	collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		taskIDIndex,
		failedAtIndex,
		providerIndex,
	})

	return &MongoDeadLetterRepository{
		collection: collection,
	}
}

// Save stores a dead letter, replacing any earlier letter of the same task
func (r *MongoDeadLetterRepository) Save(ctx context.Context, letter *entity.DeadLetter) error {
	if letter.CreatedAt.IsZero() {
		letter.CreatedAt = time.Now().UTC()
	}

	_, err := r.collection.ReplaceOne(ctx,
		bson.M{"taskId": letter.TaskID},
		letter,
		options.Replace().SetUpsert(true),
	)
	return err
}
