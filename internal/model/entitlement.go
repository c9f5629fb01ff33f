package model

import "time"

// Entitlement is the paid-access flag for a user. It is written only from
// Stripe webhook events; the chat gate reads it.
type Entitlement struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	UserID               uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	Active               bool      `gorm:"not null;default:false" json:"active"`
	StripeCustomerID     string    `gorm:"size:64;index" json:"-"`
	StripeSubscriptionID string    `gorm:"size:64" json:"-"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}
