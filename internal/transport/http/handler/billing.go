package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"lexdesk/internal/app"
	"lexdesk/internal/model"
	"lexdesk/internal/transport/http/response"
)

const maxWebhookBody = 65536

type BillingHandler struct {
	billingService *app.BillingService
}

type CheckoutRequest struct {
	PlanType model.PlanType `json:"plan_type" binding:"required"`
}

func NewBillingHandler(billingService *app.BillingService) *BillingHandler {
	return &BillingHandler{billingService: billingService}
}

func billingError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrInvalidPlan), errors.Is(err, app.ErrPlanUnavailable):
		response.Error(c, http.StatusBadRequest, response.CodeInvalidPlan, err.Error())
	case errors.Is(err, app.ErrLawyerOnly):
		response.Error(c, http.StatusForbidden, response.CodeLawyerOnly, err.Error())
	case errors.Is(err, app.ErrAlreadySubscribed):
		response.Error(c, http.StatusConflict, response.CodeAlreadySubscribed, err.Error())
	case errors.Is(err, app.ErrNoBillingAccount):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
	case errors.Is(err, app.ErrUserNotFound):
		response.Error(c, http.StatusNotFound, response.CodeUserNotFound, err.Error())
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusBadGateway, response.CodeInternalServer, fallback)
	}
}

func (h *BillingHandler) Checkout(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	url, err := h.billingService.CreateCheckoutSession(c.Request.Context(), actor, req.PlanType)
	if err != nil {
		billingError(c, err, "create checkout session failed")
		return
	}
	response.OK(c, gin.H{"url": url})
}

func (h *BillingHandler) Portal(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	url, err := h.billingService.CreatePortalSession(c.Request.Context(), actor)
	if err != nil {
		billingError(c, err, "create portal session failed")
		return
	}
	response.OK(c, gin.H{"url": url})
}

func (h *BillingHandler) Subscription(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	view, err := h.billingService.GetSubscription(actor)
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "get subscription failed")
		return
	}
	response.OK(c, view)
}

func (h *BillingHandler) Invoices(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	invoices, err := h.billingService.ListInvoices(actor, queryInt(c, "limit", 24))
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list invoices failed")
		return
	}
	response.OK(c, invoices)
}

// Webhook must see the raw body for signature verification. Failures other
// than a bad signature answer 500 so Stripe redelivers.
func (h *BillingHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "read body failed")
		return
	}

	if err := h.billingService.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		if errors.Is(err, app.ErrWebhookSignature) {
			response.Error(c, http.StatusBadRequest, response.CodeInvalidSignature, err.Error())
			return
		}
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "webhook processing failed")
		return
	}
	response.OK(c, gin.H{"received": true})
}
