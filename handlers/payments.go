package handlers

import (
	"errors"
	"net/http"

	"quickbite-api/gateway"
	"quickbite-api/payments"
	"quickbite-api/store"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// SignatureHeader carries the gateway's HMAC over the raw webhook body
const SignatureHeader = "X-Signature"

// PaymentHandler serves the gateway-facing endpoints: webhook,
// redirect callback and status polling
type PaymentHandler struct {
	reconciler *payments.Reconciler
	resolver   *payments.Resolver
}

func NewPaymentHandler(rec *payments.Reconciler, res *payments.Resolver) *PaymentHandler {
	return &PaymentHandler{reconciler: rec, resolver: res}
}

// Webhook ingests a signed gateway event. Once the signature checks
// out the response is always 200 so the gateway never retry-storms us
// over our own persistence hiccups.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	if err := h.reconciler.HandleDelivery(raw, c.GetHeader(SignatureHeader)); err != nil {
		if errors.Is(err, payments.ErrInvalidSignature) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Callback handles the browser redirect after a hosted payment page.
// The gateway's self-reported status rides along as a query parameter
// but is never trusted directly; the resolver re-verifies against the
// gateway's own record.
func (h *PaymentHandler) Callback(c *gin.Context) {
	orderID := c.Query("order_id")
	if orderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order_id is required"})
		return
	}
	if reported := c.Query("link_status"); reported != "" {
		log.Debug().Str("order_id", orderID).Str("reported", reported).Msg("callback redirect received")
	}

	res, err := h.resolver.Resolve(c.Request.Context(), orderID)
	if err != nil {
		h.writeResolveError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Payment status confirmed",
		"result":  res,
	})
}

// Status answers payment-status polling for an order
func (h *PaymentHandler) Status(c *gin.Context) {
	res, err := h.resolver.Resolve(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		h.writeResolveError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *PaymentHandler) writeResolveError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
	default:
		var gwErr *gateway.Error
		if errors.As(err, &gwErr) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "Payment gateway error", "reason": gwErr.Description})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
