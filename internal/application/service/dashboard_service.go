package service

import (
	"context"

	"github.com/biishnuthapa/easyreceipt/internal/domain/entity"
	"github.com/biishnuthapa/easyreceipt/internal/domain/repository"
	"github.com/biishnuthapa/easyreceipt/pkg/pagination"
	"github.com/google/uuid"
)

// DashboardService aggregates receipt statistics for the dashboard
type DashboardService struct {
	receiptRepo   repository.ReceiptRepository
	analyticsRepo repository.AnalyticsRepository
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(
	receiptRepo repository.ReceiptRepository,
	analyticsRepo repository.AnalyticsRepository,
) *DashboardService {
	return &DashboardService{
		receiptRepo:   receiptRepo,
		analyticsRepo: analyticsRepo,
	}
}

// DashboardStats represents the dashboard overview
type DashboardStats struct {
	TotalReceipts    int64                           `json:"total_receipts"`
	TotalRevenue     float64                         `json:"total_revenue"`
	MonthlyRevenue   float64                         `json:"monthly_revenue"`
	ChannelBreakdown []repository.ChannelCountResult `json:"channel_breakdown"`
	DailyRevenue     []repository.DailyRevenueResult `json:"daily_revenue"`
	TopCustomers     []repository.TopCustomerResult  `json:"top_customers"`
	RecentReceipts   []entity.Receipt                `json:"recent_receipts"`
}

// GetStats assembles the dashboard overview for a user
func (s *DashboardService) GetStats(ctx context.Context, userID uuid.UUID) (*DashboardStats, error) {
	totalRevenue, err := s.analyticsRepo.GetTotalRevenue(ctx, userID)
	if err != nil {
		return nil, err
	}

	monthlyRevenue, err := s.analyticsRepo.GetMonthlyRevenue(ctx, userID)
	if err != nil {
		return nil, err
	}

	channels, err := s.analyticsRepo.GetChannelBreakdown(ctx, userID)
	if err != nil {
		return nil, err
	}

	daily, err := s.analyticsRepo.GetDailyRevenue(ctx, userID, 30)
	if err != nil {
		return nil, err
	}

	topCustomers, err := s.analyticsRepo.GetTopCustomers(ctx, userID, 5)
	if err != nil {
		return nil, err
	}

	params := &pagination.PaginationParams{Page: 1, PerPage: 5}
	recent, total, err := s.receiptRepo.List(ctx, userID, params, "")
	if err != nil {
		return nil, err
	}

	return &DashboardStats{
		TotalReceipts:    total,
		TotalRevenue:     totalRevenue,
		MonthlyRevenue:   monthlyRevenue,
		ChannelBreakdown: channels,
		DailyRevenue:     daily,
		TopCustomers:     topCustomers,
		RecentReceipts:   recent,
	}, nil
}
