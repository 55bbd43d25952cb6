package repository

import (
	"context"

	"github.com/biishnuthapa/easyreceipt/internal/domain/entity"
	"github.com/biishnuthapa/easyreceipt/pkg/pagination"
	"github.com/google/uuid"
)

// ReceiptRepository defines the interface for receipt data operations.
// All reads and writes are scoped to the owning user.
type ReceiptRepository interface {
	Create(ctx context.Context, receipt *entity.Receipt) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*entity.Receipt, error)
	Update(ctx context.Context, receipt *entity.Receipt) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID, params *pagination.PaginationParams, search string) ([]entity.Receipt, int64, error)
}
