package repository

import (
	"context"
	"database/sql"
	"time"

	domainRepo "github.com/biishnuthapa/easyreceipt/internal/domain/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type analyticsRepository struct {
	db *gorm.DB
}

// NewAnalyticsRepository creates a new analytics repository
func NewAnalyticsRepository(db *gorm.DB) domainRepo.AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) GetTotalRevenue(ctx context.Context, userID uuid.UUID) (float64, error) {
	var revenue float64
	err := r.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(total), 0)
		FROM receipts
		WHERE user_id = ? AND deleted_at IS NULL
	`, userID).Scan(&revenue).Error

	return revenue, err
}

func (r *analyticsRepository) GetMonthlyRevenue(ctx context.Context, userID uuid.UUID) (float64, error) {
	now := time.Now()
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	var revenue float64
	err := r.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(total), 0)
		FROM receipts
		WHERE user_id = ? AND deleted_at IS NULL AND created_at >= ?
	`, userID, startOfMonth).Scan(&revenue).Error

	return revenue, err
}

func (r *analyticsRepository) GetChannelBreakdown(ctx context.Context, userID uuid.UUID) ([]domainRepo.ChannelCountResult, error) {
	var results []domainRepo.ChannelCountResult

	err := r.db.WithContext(ctx).Raw(`
		SELECT
			sent_via as channel,
			COUNT(*) as count,
			COUNT(*) FILTER (WHERE delivered) as delivered
		FROM receipts
		WHERE user_id = ? AND deleted_at IS NULL
		GROUP BY sent_via
		ORDER BY count DESC
	`, userID).Scan(&results).Error

	if err != nil {
		return nil, err
	}

	return results, nil
}

func (r *analyticsRepository) GetDailyRevenue(ctx context.Context, userID uuid.UUID, days int) ([]domainRepo.DailyRevenueResult, error) {
	results := make([]domainRepo.DailyRevenueResult, 0, days)
	now := time.Now()

	// Generate dates for the last N days and get revenue for each
	for i := days - 1; i >= 0; i-- {
		date := now.AddDate(0, 0, -i)
		startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
		endOfDay := startOfDay.Add(24 * time.Hour)

		var row struct {
			Revenue sql.NullFloat64
			Count   int64
		}
		err := r.db.WithContext(ctx).Raw(`
			SELECT COALESCE(SUM(total), 0) as revenue, COUNT(*) as count
			FROM receipts
			WHERE user_id = ? AND deleted_at IS NULL
			AND created_at >= ? AND created_at < ?
		`, userID, startOfDay, endOfDay).Scan(&row).Error

		if err != nil {
			return nil, err
		}

		rev := 0.0
		if row.Revenue.Valid {
			rev = row.Revenue.Float64
		}

		results = append(results, domainRepo.DailyRevenueResult{
			Date:    startOfDay,
			Revenue: rev,
			Count:   row.Count,
		})
	}

	return results, nil
}

func (r *analyticsRepository) GetTopCustomers(ctx context.Context, userID uuid.UUID, limit int) ([]domainRepo.TopCustomerResult, error) {
	var results []domainRepo.TopCustomerResult

	err := r.db.WithContext(ctx).Raw(`
		SELECT
			customer_name,
			COALESCE(SUM(total), 0) as total_spent,
			COUNT(*) as receipt_count
		FROM receipts
		WHERE user_id = ? AND deleted_at IS NULL
		GROUP BY customer_name
		ORDER BY total_spent DESC
		LIMIT ?
	`, userID, limit).Scan(&results).Error

	if err != nil {
		return nil, err
	}

	return results, nil
}
