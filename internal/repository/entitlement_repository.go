package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"peakmind/internal/model"
)

type EntitlementRepository struct {
	db *gorm.DB
}

func NewEntitlementRepository(db *gorm.DB) *EntitlementRepository {
	return &EntitlementRepository{db: db}
}

func (r *EntitlementRepository) GetByUserID(userID uint) (*model.Entitlement, error) {
	var entitlement model.Entitlement
	if err := r.db.Where("user_id = ?", userID).First(&entitlement).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query entitlement failed: %w", err)
	}
	return &entitlement, nil
}

// Upsert writes the entitlement row keyed by user id. Used only by the
// billing webhook path.
func (r *EntitlementRepository) Upsert(entitlement *model.Entitlement) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"active", "stripe_customer_id", "stripe_subscription_id", "updated_at",
		}),
	}).Create(entitlement).Error
	if err != nil {
		return fmt.Errorf("upsert entitlement failed: %w", err)
	}
	return nil
}

func (r *EntitlementRepository) DeactivateByCustomerID(customerID string) (*model.Entitlement, error) {
	var entitlement model.Entitlement
	if err := r.db.Where("stripe_customer_id = ?", customerID).First(&entitlement).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query entitlement by customer failed: %w", err)
	}

	if err := r.db.Model(&entitlement).Update("active", false).Error; err != nil {
		return nil, fmt.Errorf("deactivate entitlement failed: %w", err)
	}
	entitlement.Active = false
	return &entitlement, nil
}
