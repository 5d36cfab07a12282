package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/noah-isme/gradebook-api/internal/models"
)

type gradeGridDocument struct {
	ID               string `bson:"_id"`
	models.GradeGrid `bson:",inline"`
}

// GradeGridMongoRepository stores one document per grid at students/{id}/grades/{year}.
type GradeGridMongoRepository struct {
	coll *mongo.Collection
}

// NewGradeGridMongoRepository constructs the document-store grade grid repository.
func NewGradeGridMongoRepository(db *mongo.Database, collection string) *GradeGridMongoRepository {
	return &GradeGridMongoRepository{coll: db.Collection(collection)}
}

// Get loads the grid stored at student and year.
func (r *GradeGridMongoRepository) Get(ctx context.Context, studentID, academicYear string) (*models.GradeGrid, error) {
	key := models.GradeGridKey(studentID, academicYear)
	var doc gradeGridDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrGradeGridNotFound
		}
		return nil, fmt.Errorf("get grade grid %s: %w", key, err)
	}
	grid := doc.GradeGrid
	return &grid, nil
}

// Set replaces the whole document, creating it when missing.
func (r *GradeGridMongoRepository) Set(ctx context.Context, grid *models.GradeGrid) error {
	key := grid.Key()
	doc := gradeGridDocument{ID: key, GradeGrid: *grid}
	opts := options.Replace().SetUpsert(true)
	if _, err := r.coll.ReplaceOne(ctx, bson.M{"_id": key}, doc, opts); err != nil {
		return fmt.Errorf("save grade grid %s: %w", key, err)
	}
	return nil
}
