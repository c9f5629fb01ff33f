package handler

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"peakmind/internal/app"
	"peakmind/internal/transport/http/response"
)

// webhookBodyLimit bounds how much of a webhook payload we will read.
const webhookBodyLimit = 64 * 1024

type BillingHandler struct {
	billingService *app.BillingService
}

func NewBillingHandler(billingService *app.BillingService) *BillingHandler {
	return &BillingHandler{billingService: billingService}
}

// Checkout starts a Stripe Checkout session for the authenticated caller.
// Deliberately gated on authentication only: unpaid users are exactly the
// audience.
func (h *BillingHandler) Checkout(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.MsgAuthRequired)
		return
	}

	url, err := h.billingService.CreateCheckoutSession(c.Request.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrBillingDisabled):
			response.Fail(c, http.StatusNotFound, err.Error())
		case errors.Is(err, app.ErrInvalidInput):
			response.Fail(c, http.StatusBadRequest, response.MsgInvalidRequest)
		default:
			response.Fail(c, http.StatusInternalServerError, response.MsgUnavailable)
		}
		return
	}

	response.OK(c, gin.H{"checkout_url": url})
}

// Webhook receives Stripe events. Signature verification happens inside the
// billing service; unauthenticated by design since Stripe is the caller.
func (h *BillingHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, webhookBodyLimit))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.MsgInvalidRequest)
		return
	}

	err = h.billingService.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, app.ErrWebhookSignature) {
			response.Fail(c, http.StatusBadRequest, response.MsgInvalidRequest)
			return
		}
		log.Printf("webhook handling failed: %v", err)
		response.Fail(c, http.StatusInternalServerError, response.MsgUnavailable)
		return
	}

	response.OK(c, gin.H{"received": true})
}
