package orders

import (
	"context"
	"errors"
	"fmt"

	"quickbite-api/delivery"
	"quickbite-api/gateway"
	"quickbite-api/models"
	"quickbite-api/payments"
	"quickbite-api/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrNotOwner is returned when a customer touches someone else's order
var ErrNotOwner = errors.New("order does not belong to this customer")

// NotCancellableError reports a rejected cancellation with the
// decision inputs echoed for debuggability
type NotCancellableError struct {
	Reason        string
	Method        models.PaymentMethod
	Status        models.OrderStatus
	PaymentStatus models.PaymentStatus
}

func (e *NotCancellableError) Error() string {
	return fmt.Sprintf("not cancellable (%s): method=%s status=%s payment_status=%s",
		e.Reason, e.Method, e.Status, e.PaymentStatus)
}

// CancelResult distinguishes a fresh cancellation from a repeat
type CancelResult struct {
	Already bool `json:"already"`
}

// Service owns order creation and the cancellation guard
type Service struct {
	store *store.Store
	links *payments.LinkManager
	sims  *delivery.Registry
}

func NewService(st *store.Store, links *payments.LinkManager, sims *delivery.Registry) *Service {
	return &Service{store: st, links: links, sims: sims}
}

type PlaceItem struct {
	Name     string
	Price    float64
	Quantity int
}

type PlaceParams struct {
	CustomerID uint
	Method     models.PaymentMethod
	Items      []PlaceItem
	Total      float64
	DestLat    *float64
	DestLng    *float64
}

// Place creates the order and its courier record atomically, starts
// the delivery simulation, and for UPI orders issues a payment link.
// A link failure leaves the created order standing so the client can
// retry link issuance; the order is returned alongside the error.
func (s *Service) Place(ctx context.Context, p PlaceParams) (*models.Order, *gateway.Link, error) {
	lat, lng := normalizeDestination(p.DestLat, p.DestLng)

	items := make([]models.OrderItem, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, models.OrderItem{
			Name:     it.Name,
			Price:    it.Price,
			Quantity: it.Quantity,
		})
	}

	order := &models.Order{
		ID:            uuid.NewString(),
		CustomerID:    p.CustomerID,
		Status:        models.StatusPlaced,
		PaymentMethod: p.Method,
		PaymentStatus: models.PaymentPending,
		TotalPrice:    p.Total,
		DestLat:       lat,
		DestLng:       lng,
		Items:         items,
	}
	driver := &models.Driver{
		DestLat: lat,
		DestLng: lng,
		Status:  models.DeliveryPreparing,
	}
	if err := s.store.CreateOrderWithDriver(order, driver); err != nil {
		return nil, nil, err
	}

	s.sims.Start(order.ID)

	var link *gateway.Link
	if p.Method == models.MethodUPI {
		var err error
		link, err = s.links.EnsureLink(ctx, order.ID)
		if err != nil {
			return order, nil, fmt.Errorf("create payment link: %w", err)
		}
	}
	return order, link, nil
}

// Get returns an order after checking ownership
func (s *Service) Get(orderID string, customerID uint) (*models.Order, error) {
	order, err := s.store.GetOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != customerID {
		return nil, ErrNotOwner
	}
	return order, nil
}

// Cancel enforces the cancellation guard and performs the side
// effects: the order keeps a CANCELLED status for audit, the courier
// record is removed and the simulation stopped.
func (s *Service) Cancel(orderID string, customerID uint) (*CancelResult, error) {
	order, err := s.store.GetOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != customerID {
		return nil, ErrNotOwner
	}

	switch {
	case order.Status == models.StatusCancelled:
		return &CancelResult{Already: true}, nil
	case order.Status == models.StatusDelivered:
		return nil, &NotCancellableError{
			Reason:        "already_delivered",
			Method:        order.PaymentMethod,
			Status:        order.Status,
			PaymentStatus: order.PaymentStatus,
		}
	case order.PaymentMethod == models.MethodCOD:
		// cash orders are cancellable until they are delivered
	case order.PaymentMethod == models.MethodUPI &&
		(order.PaymentStatus == models.PaymentPending || order.Status == models.StatusPendingPayment):
		// unpaid UPI orders are still reversible
	default:
		return nil, &NotCancellableError{
			Reason:        "not_cancellable",
			Method:        order.PaymentMethod,
			Status:        order.Status,
			PaymentStatus: order.PaymentStatus,
		}
	}

	s.sims.Stop(orderID)
	if err := s.store.UpdateOrder(orderID, map[string]interface{}{
		"status": models.StatusCancelled,
	}); err != nil {
		return nil, err
	}
	if err := s.store.DeleteDriversByOrder(orderID); err != nil {
		// the order itself is the source of truth; a cleanup failure
		// is logged, not surfaced
		log.Warn().Err(err).Str("order_id", orderID).Msg("courier cleanup after cancellation")
	}
	log.Info().Str("order_id", orderID).Msg("order cancelled")
	return &CancelResult{}, nil
}

// normalizeDestination falls back to the origin for absent or invalid
// coordinates; a degraded input is logged, never fatal
func normalizeDestination(lat, lng *float64) (float64, float64) {
	if lat == nil || lng == nil {
		log.Warn().Msg("order destination missing, defaulting to (0,0)")
		return 0, 0
	}
	if *lat < -90 || *lat > 90 || *lng < -180 || *lng > 180 {
		log.Warn().
			Float64("lat", *lat).
			Float64("lng", *lng).
			Msg("order destination out of range, defaulting to (0,0)")
		return 0, 0
	}
	return *lat, *lng
}
