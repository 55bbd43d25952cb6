package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OwnerScope returns a GORM scope that filters rows to a single owning user.
// Every receipt query must apply it so accounts never see each other's data.
func OwnerScope(userID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if userID == uuid.Nil {
			// Fail-safe: no owner means no rows, never all rows
			return db.Where("1 = 0")
		}
		return db.Where("user_id = ?", userID)
	}
}
