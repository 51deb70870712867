package payments

import (
	"context"
	"fmt"
	"strings"

	"quickbite-api/gateway"
	"quickbite-api/models"
	"quickbite-api/statemachine"
	"quickbite-api/store"

	"github.com/rs/zerolog/log"
)

// Resolution is the normalized answer to "what is the payment status
// of order X"
type Resolution struct {
	ReferenceID string               `json:"referenceId"`
	Status      models.PaymentStatus `json:"status"`
	RawStatus   string               `json:"rawStatus"`
}

// Resolver answers payment-status queries, consulting local state
// first and falling back to a live gateway fetch that self-heals the
// local record.
type Resolver struct {
	store *store.Store
	gw    gateway.Client
}

func NewResolver(st *store.Store, gw gateway.Client) *Resolver {
	return &Resolver{store: st, gw: gw}
}

// Resolve returns the current payment status for an order. Terminal
// local states answer without a remote call, so the common repeated
// poll stays cheap.
func (r *Resolver) Resolve(ctx context.Context, orderID string) (*Resolution, error) {
	order, err := r.store.GetOrder(orderID)
	if err != nil {
		return nil, err
	}

	if order.PaymentStatus == models.PaymentPaid || order.PaymentStatus == models.PaymentFailed {
		return &Resolution{
			ReferenceID: order.ID,
			Status:      order.PaymentStatus,
			RawStatus:   strings.ToLower(string(order.PaymentStatus)),
		}, nil
	}

	if order.LinkID == "" {
		return &Resolution{
			ReferenceID: order.ID,
			Status:      models.PaymentPending,
			RawStatus:   strings.ToLower(string(order.PaymentStatus)),
		}, nil
	}

	link, err := r.gw.FetchLink(ctx, order.LinkID)
	if err != nil {
		return nil, fmt.Errorf("fetch link for order %s: %w", orderID, err)
	}

	normalized := NormalizeLinkStatus(link.Status)
	if normalized != order.PaymentStatus {
		// a webhook was missed; repair local state so the next poll
		// takes the fast path
		fields := map[string]interface{}{"payment_status": normalized}
		if normalized == models.PaymentPaid &&
			statemachine.CanTransition(order.Status, models.StatusPlaced, "payment") == nil {
			fields["status"] = models.StatusPlaced
		}
		if err := r.store.UpdateOrder(order.ID, fields); err != nil {
			return nil, fmt.Errorf("self-heal order %s: %w", orderID, err)
		}
		log.Info().
			Str("order_id", orderID).
			Str("remote_status", link.Status).
			Str("normalized", string(normalized)).
			Msg("payment status self-healed from gateway")
	}

	return &Resolution{ReferenceID: order.ID, Status: normalized, RawStatus: link.Status}, nil
}

// NormalizeLinkStatus folds the gateway's link lifecycle into the
// order's three-valued payment axis
func NormalizeLinkStatus(remote string) models.PaymentStatus {
	switch remote {
	case gateway.LinkPaid:
		return models.PaymentPaid
	case gateway.LinkExpired, gateway.LinkCancelled:
		return models.PaymentFailed
	default:
		return models.PaymentPending
	}
}
