package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/provguard/provguard/internal/models"
)

const reportsCollection = "check_reports"

// ReportsRepository persists evidence reports produced by service-mode
// checks.
type ReportsRepository struct {
	mongoRepo *MongoRepository
}

func NewReportsRepository(mongoRepo *MongoRepository) *ReportsRepository {
	return &ReportsRepository{
		mongoRepo: mongoRepo,
	}
}

func (r *ReportsRepository) InsertCheckReport(ctx context.Context, report *models.CheckReport) error {
	report.CreatedAt = time.Now()

	err := r.mongoRepo.InsertOne(ctx, reportsCollection, report)
	if err != nil {
		return fmt.Errorf("failed to insert check report: %w", err)
	}

	return nil
}

func (r *ReportsRepository) GetLatestReportByPR(ctx context.Context, repo string, prNumber int) (*models.CheckReport, error) {
	filter := bson.M{"repo": repo, "prNumber": prNumber}
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	var report models.CheckReport
	err := r.mongoRepo.FindOne(ctx, reportsCollection, filter, opts).Decode(&report)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find check report: %w", err)
	}

	return &report, nil
}

func (r *ReportsRepository) CountMatchedReports(ctx context.Context, repo string) (int64, error) {
	return r.mongoRepo.CountDocuments(ctx, reportsCollection, bson.M{"repo": repo, "matched": true})
}
