package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ChannelCountResult represents receipt counts per delivery channel
type ChannelCountResult struct {
	Channel   string
	Count     int64
	Delivered int64
}

// TopCustomerResult represents a customer's spending data
type TopCustomerResult struct {
	CustomerName string
	TotalSpent   float64
	ReceiptCount int64
}

// DailyRevenueResult represents receipt revenue for a single day
type DailyRevenueResult struct {
	Date    time.Time
	Revenue float64
	Count   int64
}

// AnalyticsRepository defines interface for analytics/aggregation queries
type AnalyticsRepository interface {
	// GetTotalRevenue returns total revenue across a user's receipts
	GetTotalRevenue(ctx context.Context, userID uuid.UUID) (float64, error)

	// GetMonthlyRevenue returns revenue for the current month
	GetMonthlyRevenue(ctx context.Context, userID uuid.UUID) (float64, error)

	// GetChannelBreakdown returns receipt counts per delivery channel
	GetChannelBreakdown(ctx context.Context, userID uuid.UUID) ([]ChannelCountResult, error)

	// GetDailyRevenue returns daily revenue for the last N days
	GetDailyRevenue(ctx context.Context, userID uuid.UUID, days int) ([]DailyRevenueResult, error)

	// GetTopCustomers returns top customers by total spending
	GetTopCustomers(ctx context.Context, userID uuid.UUID, limit int) ([]TopCustomerResult, error)
}
