package app

import (
	"context"
	"log"

	"peakmind/internal/cache"
	"peakmind/internal/model"
	"peakmind/internal/repository"
)

// EntitlementService answers the paid-access question for the request gate
// and applies billing webhook writes. Reads go through the Redis cache;
// writes invalidate it.
type EntitlementService struct {
	repo  *repository.EntitlementRepository
	cache *cache.EntitlementCache
}

func NewEntitlementService(repo *repository.EntitlementRepository, entitlementCache *cache.EntitlementCache) *EntitlementService {
	return &EntitlementService{
		repo:  repo,
		cache: entitlementCache,
	}
}

func (s *EntitlementService) IsPaid(ctx context.Context, userID uint) (bool, error) {
	if userID == 0 {
		return false, ErrInvalidInput
	}

	if s.cache != nil {
		if active, hit, err := s.cache.Get(ctx, userID); err == nil && hit {
			return active, nil
		}
	}

	entitlement, err := s.repo.GetByUserID(userID)
	if err != nil {
		return false, err
	}
	active := entitlement != nil && entitlement.Active

	if s.cache != nil {
		if err := s.cache.Set(ctx, userID, active); err != nil {
			log.Printf("cache entitlement failed: %v", err)
		}
	}
	return active, nil
}

func (s *EntitlementService) Activate(ctx context.Context, userID uint, customerID, subscriptionID string) error {
	if userID == 0 {
		return ErrInvalidInput
	}

	err := s.repo.Upsert(&model.Entitlement{
		UserID:               userID,
		Active:               true,
		StripeCustomerID:     customerID,
		StripeSubscriptionID: subscriptionID,
	})
	if err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, userID); err != nil {
			log.Printf("invalidate entitlement cache failed: %v", err)
		}
	}
	return nil
}

func (s *EntitlementService) DeactivateByCustomerID(ctx context.Context, customerID string) error {
	if customerID == "" {
		return ErrInvalidInput
	}

	entitlement, err := s.repo.DeactivateByCustomerID(customerID)
	if err != nil {
		return err
	}
	if entitlement == nil {
		// Unknown customer: nothing to revoke. Webhook retries stay idempotent.
		return nil
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, entitlement.UserID); err != nil {
			log.Printf("invalidate entitlement cache failed: %v", err)
		}
	}
	return nil
}
