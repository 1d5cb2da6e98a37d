package repository

import (
	"context"
	"errors"
	"fmt"

	"eventtts/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ReportRepository struct {
	Collection *mongo.Collection
}

func NewReportRepository(collection *mongo.Collection) *ReportRepository {
	return &ReportRepository{Collection: collection}
}

func (repo *ReportRepository) InsertReport(ctx context.Context, r *models.Report) error {
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	_, err := repo.Collection.InsertOne(ctx, r)
	return err
}

func (repo *ReportRepository) FindReportByID(ctx context.Context, id primitive.ObjectID) (*models.Report, error) {
	var r models.Report
	err := repo.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("report %s: %w", id.Hex(), models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (repo *ReportRepository) FindReportsByEvent(ctx context.Context, eventID primitive.ObjectID) ([]models.Report, error) {
	var out []models.Report
	if err := findAll(ctx, repo.Collection, bson.M{"event": eventID}, options.Find().SetSort(newestFirst), &out); err != nil {
		return nil, err
	}
	return out, nil
}
