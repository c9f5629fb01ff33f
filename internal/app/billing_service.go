package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
	"github.com/stripe/stripe-go/v72/webhook"

	"peakmind/internal/config"
	"peakmind/internal/repository"
)

var (
	ErrBillingDisabled  = errors.New("billing is not configured")
	ErrWebhookSignature = errors.New("invalid webhook signature")
	ErrCheckoutFailed   = errors.New("create checkout session failed")
)

// BillingService owns the Stripe integration: it starts Checkout sessions
// and applies webhook events to the entitlement store. It is the only writer
// of entitlements in the system.
type BillingService struct {
	api          *client.API
	cfg          config.StripeConfig
	entitlements *EntitlementService
	userRepo     *repository.UserRepository
}

func NewBillingService(cfg config.StripeConfig, entitlements *EntitlementService, userRepo *repository.UserRepository) *BillingService {
	var api *client.API
	if cfg.SecretKey != "" {
		api = &client.API{}
		api.Init(cfg.SecretKey, nil)
	}
	return &BillingService{
		api:          api,
		cfg:          cfg,
		entitlements: entitlements,
		userRepo:     userRepo,
	}
}

// CreateCheckoutSession opens a subscription checkout for the user and
// returns the redirect URL. The user id travels as client_reference_id so
// the completion webhook can attribute the purchase.
func (s *BillingService) CreateCheckoutSession(ctx context.Context, userID uint) (string, error) {
	if s.api == nil || s.cfg.PriceID == "" {
		return "", ErrBillingDisabled
	}
	if userID == 0 {
		return "", ErrInvalidInput
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrInvalidInput
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(s.cfg.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(s.cfg.SuccessURL),
		CancelURL:         stripe.String(s.cfg.CancelURL),
		ClientReferenceID: stripe.String(strconv.FormatUint(uint64(userID), 10)),
		CustomerEmail:     stripe.String(user.Email),
	}
	params.Context = ctx

	session, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		log.Printf("stripe checkout session failed for user %d: %v", userID, err)
		return "", ErrCheckoutFailed
	}
	return session.URL, nil
}

// HandleWebhook verifies the Stripe signature and applies the event.
// Unhandled event types are acknowledged without effect so Stripe stops
// retrying them.
func (s *BillingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEvent(payload, signature, s.cfg.WebhookSecret)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWebhookSignature, err)
	}

	switch event.Type {
	case "checkout.session.completed":
		return s.handleCheckoutCompleted(ctx, event.Data.Raw)
	case "customer.subscription.deleted":
		return s.handleSubscriptionDeleted(ctx, event.Data.Raw)
	default:
		return nil
	}
}

func (s *BillingService) handleCheckoutCompleted(ctx context.Context, raw json.RawMessage) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return fmt.Errorf("parse checkout session event failed: %w", err)
	}

	userID64, err := strconv.ParseUint(session.ClientReferenceID, 10, 64)
	if err != nil || userID64 == 0 {
		return fmt.Errorf("checkout session missing client reference id: %q", session.ClientReferenceID)
	}

	var customerID, subscriptionID string
	if session.Customer != nil {
		customerID = session.Customer.ID
	}
	if session.Subscription != nil {
		subscriptionID = session.Subscription.ID
	}

	if err := s.entitlements.Activate(ctx, uint(userID64), customerID, subscriptionID); err != nil {
		return err
	}
	log.Printf("entitlement activated for user %d", userID64)
	return nil
}

func (s *BillingService) handleSubscriptionDeleted(ctx context.Context, raw json.RawMessage) error {
	var subscription stripe.Subscription
	if err := json.Unmarshal(raw, &subscription); err != nil {
		return fmt.Errorf("parse subscription event failed: %w", err)
	}
	if subscription.Customer == nil || subscription.Customer.ID == "" {
		return fmt.Errorf("subscription event missing customer")
	}

	if err := s.entitlements.DeactivateByCustomerID(ctx, subscription.Customer.ID); err != nil {
		return err
	}
	log.Printf("entitlement deactivated for customer %s", subscription.Customer.ID)
	return nil
}
