package handlers

import (
	"errors"
	"math"
	"net/http"
	"time"

	"quickbite-api/gateway"
	"quickbite-api/middleware"
	"quickbite-api/models"
	"quickbite-api/orders"
	"quickbite-api/payments"
	"quickbite-api/statemachine"
	"quickbite-api/store"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
)

type PlaceOrderItem struct {
	Name     string  `json:"name" binding:"required"`
	Price    float64 `json:"price" binding:"required,gt=0"`
	Quantity int     `json:"quantity" binding:"required,min=1"`
}

type PlaceOrderRequest struct {
	PaymentMethod models.PaymentMethod `json:"payment_method" binding:"required,oneof=COD UPI"`
	Items         []PlaceOrderItem     `json:"items" binding:"required,min=1,dive"`
	Total         float64              `json:"total" binding:"required,gt=0"`
	DestLat       *float64             `json:"dest_lat"`
	DestLng       *float64             `json:"dest_lng"`
}

// newOrderValidator verifies the claimed total matches the items sum
// (compared in cents to dodge float rounding)
func newOrderValidator() *validatorv10.Validate {
	v := validatorv10.New()
	v.RegisterStructValidation(func(sl validatorv10.StructLevel) {
		req := sl.Current().Interface().(PlaceOrderRequest)
		var sum float64
		for _, it := range req.Items {
			sum += float64(it.Quantity) * it.Price
		}
		if int(math.Round(sum*100)) != int(math.Round(req.Total*100)) {
			sl.ReportError(req.Total, "total", "Total", "total_match_items", "")
		}
	}, PlaceOrderRequest{})
	return v
}

// OrderHandler serves the customer-facing order endpoints
type OrderHandler struct {
	svc   *orders.Service
	store *store.Store
	links *payments.LinkManager
	v     *validatorv10.Validate
}

func NewOrderHandler(svc *orders.Service, st *store.Store, links *payments.LinkManager) *OrderHandler {
	return &OrderHandler{svc: svc, store: st, links: links, v: newOrderValidator()}
}

// PlaceOrder creates a new order; UPI orders come back with a payment link
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	customerID := middleware.GetUserID(c)

	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.v.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "Order total does not match items",
			"reason": err.Error(),
		})
		return
	}

	items := make([]orders.PlaceItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, orders.PlaceItem{Name: it.Name, Price: it.Price, Quantity: it.Quantity})
	}

	order, link, err := h.svc.Place(c.Request.Context(), orders.PlaceParams{
		CustomerID: customerID,
		Method:     req.PaymentMethod,
		Items:      items,
		Total:      req.Total,
		DestLat:    req.DestLat,
		DestLng:    req.DestLng,
	})
	if err != nil {
		if order != nil {
			// the order stands; the client can retry link issuance
			c.JSON(http.StatusBadGateway, gin.H{
				"error":    "Order placed but payment link creation failed",
				"order_id": order.ID,
				"reason":   err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to place order"})
		return
	}

	resp := gin.H{
		"message": "Order placed successfully",
		"order":   order,
	}
	if link != nil {
		resp["payment_link"] = link
	}
	c.JSON(http.StatusCreated, resp)
}

// ListOrders returns the customer's orders with a per-status summary
func (h *OrderHandler) ListOrders(c *gin.Context) {
	customerID := middleware.GetUserID(c)
	status := models.OrderStatus(c.Query("status"))

	list, err := h.store.ListOrdersByCustomer(customerID, status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	summary := map[string]int{}
	for _, o := range list {
		summary[string(o.Status)]++
	}
	c.JSON(http.StatusOK, gin.H{
		"count":         len(list),
		"order_summary": summary,
		"orders":        list,
	})
}

// GetOrder returns one order with its live courier position
func (h *OrderHandler) GetOrder(c *gin.Context) {
	customerID := middleware.GetUserID(c)

	order, err := h.svc.Get(c.Param("id"), customerID)
	if err != nil {
		writeOrderError(c, err)
		return
	}

	resp := gin.H{
		"order":           order,
		"minutes_elapsed": int(time.Since(order.CreatedAt).Minutes()),
	}
	if driver, derr := h.store.GetDriverByOrder(order.ID); derr == nil {
		resp["driver"] = driver
	}
	c.JSON(http.StatusOK, resp)
}

// CancelOrder runs the cancellation guard
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	customerID := middleware.GetUserID(c)
	orderID := c.Param("id")

	result, err := h.svc.Cancel(orderID, customerID)
	if err != nil {
		var nc *orders.NotCancellableError
		if errors.As(err, &nc) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":             "Cannot cancel order",
				"reason":            nc.Reason,
				"payment_method":    nc.Method,
				"current_status":    nc.Status,
				"payment_status":    nc.PaymentStatus,
				"valid_next_states": statemachine.ValidTransitionsFrom(nc.Status),
			})
			return
		}
		writeOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Order cancelled successfully",
		"order_id": orderID,
		"already":  result.Already,
	})
}

// CreatePaymentLink issues (or reuses) the payment link for an order
func (h *OrderHandler) CreatePaymentLink(c *gin.Context) {
	customerID := middleware.GetUserID(c)
	orderID := c.Param("id")

	if _, err := h.svc.Get(orderID, customerID); err != nil {
		writeOrderError(c, err)
		return
	}

	link, err := h.links.EnsureLink(c.Request.Context(), orderID)
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrAlreadyPaid):
			c.JSON(http.StatusConflict, gin.H{"error": "Order already paid", "order_id": orderID})
		case errors.Is(err, payments.ErrCashOrder):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			var gwErr *gateway.Error
			if errors.As(err, &gwErr) {
				c.JSON(http.StatusBadGateway, gin.H{"error": "Payment gateway error", "reason": gwErr.Description})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"payment_link": link})
}

func writeOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
	case errors.Is(err, orders.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "This order does not belong to you"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
