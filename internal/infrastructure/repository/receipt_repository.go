package repository

import (
	"context"
	"errors"

	"github.com/biishnuthapa/easyreceipt/internal/domain/entity"
	domainRepo "github.com/biishnuthapa/easyreceipt/internal/domain/repository"
	"github.com/biishnuthapa/easyreceipt/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type receiptRepository struct {
	db *gorm.DB
}

// NewReceiptRepository creates a new receipt repository
func NewReceiptRepository(db *gorm.DB) domainRepo.ReceiptRepository {
	return &receiptRepository{db: db}
}

func (r *receiptRepository) Create(ctx context.Context, receipt *entity.Receipt) error {
	return r.db.WithContext(ctx).Create(receipt).Error
}

func (r *receiptRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*entity.Receipt, error) {
	var receipt entity.Receipt
	err := r.db.WithContext(ctx).
		Scopes(OwnerScope(userID)).
		First(&receipt, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &receipt, err
}

func (r *receiptRepository) Update(ctx context.Context, receipt *entity.Receipt) error {
	return r.db.WithContext(ctx).Save(receipt).Error
}

func (r *receiptRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Scopes(OwnerScope(userID)).
		Delete(&entity.Receipt{}, "id = ?", id).Error
}

func (r *receiptRepository) List(ctx context.Context, userID uuid.UUID, params *pagination.PaginationParams, search string) ([]entity.Receipt, int64, error) {
	var receipts []entity.Receipt
	var total int64

	query := r.db.WithContext(ctx).
		Model(&entity.Receipt{}).
		Scopes(OwnerScope(userID))

	if search != "" {
		query = query.Where("receipt_no ILIKE ? OR customer_name ILIKE ?",
			"%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	params.Validate()
	err := query.Offset(params.Offset()).Limit(params.PerPage).
		Order("created_at DESC").
		Find(&receipts).Error

	return receipts, total, err
}
