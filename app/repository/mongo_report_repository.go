package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trashmap/trashmap-api/app/models"
)

// mongoReportRepository implements ReportRepository on a MongoDB collection.
type mongoReportRepository struct {
	col *mongo.Collection
}

// NewMongoReportRepository creates a document backed report repository.
func NewMongoReportRepository(col *mongo.Collection) ReportRepository {
	return &mongoReportRepository{col: col}
}

func (r *mongoReportRepository) Create(ctx context.Context, report *models.Report) error {
	_, err := r.col.InsertOne(ctx, report)
	return err
}

func (r *mongoReportRepository) AttachJurisdiction(ctx context.Context, id string, j *models.Jurisdiction) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, jurisdictionUpdate(j))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrReportNotFound
	}
	return nil
}

func jurisdictionUpdate(j *models.Jurisdiction) bson.M {
	if j == nil {
		return bson.M{"$unset": bson.M{"region": "", "subregion": ""}}
	}
	if j.Subregion == "" {
		return bson.M{
			"$set":   bson.M{"region": j.Region},
			"$unset": bson.M{"subregion": ""},
		}
	}
	return bson.M{"$set": bson.M{"region": j.Region, "subregion": j.Subregion}}
}

func (r *mongoReportRepository) GetByID(ctx context.Context, id string) (*models.Report, error) {
	var report models.Report
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&report)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *mongoReportRepository) List(ctx context.Context, opts ListOptions) ([]models.Report, error) {
	filter := bson.M{}
	if opts.Since != nil {
		filter["submitted_at"] = bson.M{"$gte": opts.Since.UTC()}
	}
	findOpts := options.Find().
		SetSort(bson.D{{Key: "submitted_at", Value: -1}}).
		SetLimit(int64(opts.EffectiveLimit()))

	cur, err := r.col.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	reports := make([]models.Report, 0)
	if err := cur.All(ctx, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

func (r *mongoReportRepository) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrReportNotFound
	}
	return nil
}
