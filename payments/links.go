package payments

import (
	"context"
	"errors"
	"fmt"
	"math"

	"quickbite-api/gateway"
	"quickbite-api/models"
	"quickbite-api/store"

	"github.com/rs/zerolog/log"
)

// ErrAlreadyPaid is returned when a link is requested for an order
// whose existing link has already been paid. No new link is created.
var ErrAlreadyPaid = errors.New("order already paid")

// ErrCashOrder is returned when a payment link is requested for a COD order
var ErrCashOrder = errors.New("payment links are only issued for UPI orders")

// NotesReferenceKey is the annotation field carrying the order id on
// every remote link, so webhook events can be mapped back to an order
// without a secondary index.
const NotesReferenceKey = "referenceId"

// LinkManager creates, reuses and retries payment links for orders.
// Repeated or concurrent calls for the same order never create
// unbounded duplicate remote links.
type LinkManager struct {
	store        *store.Store
	gw           gateway.Client
	callbackBase string
	currency     string
}

func NewLinkManager(st *store.Store, gw gateway.Client, callbackBase, currency string) *LinkManager {
	return &LinkManager{store: st, gw: gw, callbackBase: callbackBase, currency: currency}
}

// EnsureLink returns a payable link for the order, reusing the current
// remote link when it is still live and minting a new attempt when it
// is dead or was never created.
func (m *LinkManager) EnsureLink(ctx context.Context, orderID string) (*gateway.Link, error) {
	order, err := m.store.GetOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentMethod != models.MethodUPI {
		return nil, ErrCashOrder
	}

	if order.LinkID != "" {
		link, err := m.gw.FetchLink(ctx, order.LinkID)
		if err != nil {
			return nil, fmt.Errorf("fetch existing link: %w", err)
		}
		switch link.Status {
		case gateway.LinkCreated, gateway.LinkIssued, gateway.LinkProcessing:
			return link, nil
		case gateway.LinkPaid:
			fields := map[string]interface{}{"payment_status": models.PaymentPaid}
			if order.Status == models.StatusPendingPayment {
				fields["status"] = models.StatusPlaced
			}
			if uerr := m.store.UpdateOrder(order.ID, fields); uerr != nil {
				return nil, fmt.Errorf("record paid link: %w", uerr)
			}
			return nil, ErrAlreadyPaid
		}
		// cancelled or expired: abandon it and mint a new attempt
	}

	return m.createLink(ctx, order)
}

func (m *LinkManager) createLink(ctx context.Context, order *models.Order) (*gateway.Link, error) {
	attempt := order.LinkAttempt + 1
	link, err := m.submit(ctx, order, attempt)
	if err != nil && gateway.IsDuplicateReference(err) {
		// A concurrent caller computed the same attempt number and won
		// the race. Adopt its link; failing that, try the next attempt.
		existing, lerr := m.gw.ListLinksByReference(ctx, referenceFor(order.ID, attempt))
		if lerr == nil && len(existing) > 0 {
			link = &existing[0]
			err = nil
		} else {
			log.Warn().
				Str("order_id", order.ID).
				Int("attempt", attempt).
				Msg("duplicate reference but no remote link found, retrying with next attempt")
			attempt++
			link, err = m.submit(ctx, order, attempt)
		}
	}
	if err != nil {
		return nil, err
	}

	if uerr := m.store.UpdateOrder(order.ID, map[string]interface{}{
		"link_id":        link.ID,
		"link_attempt":   attempt,
		"status":         models.StatusPendingPayment,
		"payment_status": models.PaymentPending,
	}); uerr != nil {
		return nil, fmt.Errorf("persist link: %w", uerr)
	}
	return link, nil
}

func (m *LinkManager) submit(ctx context.Context, order *models.Order, attempt int) (*gateway.Link, error) {
	return m.gw.CreateLink(ctx, gateway.CreateLinkParams{
		Amount:      int64(math.Round(order.TotalPrice * 100)),
		Currency:    m.currency,
		ReferenceID: referenceFor(order.ID, attempt),
		Description: fmt.Sprintf("QuickBite order %s", order.ID),
		Notes:       map[string]string{NotesReferenceKey: order.ID},
		CallbackURL: fmt.Sprintf("%s/api/payments/callback?order_id=%s", m.callbackBase, order.ID),
	})
}

// referenceFor derives a reference string unique per creation attempt,
// since the gateway rejects duplicate references
func referenceFor(orderID string, attempt int) string {
	return fmt.Sprintf("%s-%d", orderID, attempt)
}
