package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"quickbite-api/models"
	"quickbite-api/statemachine"
	"quickbite-api/store"

	"github.com/rs/zerolog/log"
)

// Webhook event types this system recognizes
const (
	EventLinkPaid        = "payment_link.paid"
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
)

// ErrInvalidSignature is returned when the webhook signature does not
// match the request body. No state is mutated.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// VerifySignature checks the HMAC-SHA256 of the exact raw body against
// the header-supplied hex signature.
func VerifySignature(body []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Event is the tagged union over recognized webhook payloads
type Event interface {
	isEvent()
}

type LinkPaidEvent struct {
	OrderID string
	LinkID  string
}

type PaymentCapturedEvent struct {
	OrderID   string
	PaymentID string
}

type PaymentFailedEvent struct {
	OrderID   string
	PaymentID string
}

// UnrecognizedEvent covers every event type we do not act on; it is
// acknowledged without mutation.
type UnrecognizedEvent struct {
	Type string
}

func (*LinkPaidEvent) isEvent()        {}
func (*PaymentCapturedEvent) isEvent() {}
func (*PaymentFailedEvent) isEvent()   {}
func (*UnrecognizedEvent) isEvent()    {}

type webhookEntity struct {
	ID     string            `json:"id"`
	Status string            `json:"status"`
	Notes  map[string]string `json:"notes"`
}

type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		PaymentLink *struct {
			Entity webhookEntity `json:"entity"`
		} `json:"payment_link"`
		Payment *struct {
			Entity webhookEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// ParseEvent decodes a raw webhook body into a typed event. Recognized
// types must carry their payload entity and the referenceId note;
// ambiguous shapes are rejected here rather than probed downstream.
func ParseEvent(raw []byte) (Event, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode webhook body: %w", err)
	}
	switch env.Event {
	case EventLinkPaid:
		if env.Payload.PaymentLink == nil {
			return nil, fmt.Errorf("%s event missing payment_link payload", env.Event)
		}
		ent := env.Payload.PaymentLink.Entity
		orderID := ent.Notes[NotesReferenceKey]
		if orderID == "" {
			return nil, fmt.Errorf("%s event missing notes.%s", env.Event, NotesReferenceKey)
		}
		return &LinkPaidEvent{OrderID: orderID, LinkID: ent.ID}, nil
	case EventPaymentCaptured, EventPaymentFailed:
		if env.Payload.Payment == nil {
			return nil, fmt.Errorf("%s event missing payment payload", env.Event)
		}
		ent := env.Payload.Payment.Entity
		orderID := ent.Notes[NotesReferenceKey]
		if orderID == "" {
			return nil, fmt.Errorf("%s event missing notes.%s", env.Event, NotesReferenceKey)
		}
		if env.Event == EventPaymentCaptured {
			return &PaymentCapturedEvent{OrderID: orderID, PaymentID: ent.ID}, nil
		}
		return &PaymentFailedEvent{OrderID: orderID, PaymentID: ent.ID}, nil
	default:
		return &UnrecognizedEvent{Type: env.Event}, nil
	}
}

// SimulatorStopper lets the reconciler halt a running delivery
// simulation when a failed payment cancels the order.
type SimulatorStopper interface {
	Stop(orderID string)
}

// Reconciler normalizes gateway webhook deliveries into order-state
// transitions, tolerating duplicate and out-of-order arrival.
type Reconciler struct {
	store  *store.Store
	sims   SimulatorStopper
	secret string
}

func NewReconciler(st *store.Store, sims SimulatorStopper, secret string) *Reconciler {
	return &Reconciler{store: st, sims: sims, secret: secret}
}

// HandleDelivery verifies and applies one raw webhook delivery. The
// returned error is a boundary error only (bad signature, malformed
// payload); a failed state update is logged and dropped so the caller
// can still ack and keep the gateway from retry-storming.
func (r *Reconciler) HandleDelivery(raw []byte, signature string) error {
	if r.secret == "" {
		// explicit insecure mode for local development
		log.Warn().Msg("webhook secret not configured, skipping signature verification")
	} else if !VerifySignature(raw, signature, r.secret) {
		return ErrInvalidSignature
	}

	ev, err := ParseEvent(raw)
	if err != nil {
		return err
	}

	if err := r.Apply(ev); err != nil {
		log.Error().Err(err).Msg("webhook state update failed, acking anyway")
	}
	return nil
}

// Apply performs at most one semantically meaningful transition per
// event. Transitions are whole-field assignments, so applying the same
// event twice leaves the order unchanged.
func (r *Reconciler) Apply(ev Event) error {
	switch e := ev.(type) {
	case *LinkPaidEvent:
		return r.markPaid(e.OrderID)
	case *PaymentCapturedEvent:
		return r.markPaid(e.OrderID)
	case *PaymentFailedEvent:
		return r.markFailed(e.OrderID)
	case *UnrecognizedEvent:
		log.Debug().Str("event", e.Type).Msg("ignoring unrecognized webhook event")
		return nil
	default:
		return fmt.Errorf("unhandled event %T", ev)
	}
}

func (r *Reconciler) markPaid(orderID string) error {
	order, err := r.store.GetOrder(orderID)
	if err != nil {
		return fmt.Errorf("load order %s: %w", orderID, err)
	}
	if order.Status == models.StatusCancelled {
		// money arrived for an order that no longer exists as far as
		// the customer is concerned; flag it, do not resurrect
		log.Warn().Str("order_id", orderID).Msg("payment received for cancelled order, needs manual follow-up")
		return nil
	}
	fields := map[string]interface{}{"payment_status": models.PaymentPaid}
	if statemachine.CanTransition(order.Status, models.StatusPlaced, "payment") == nil {
		fields["status"] = models.StatusPlaced
	}
	if err := r.store.UpdateOrder(orderID, fields); err != nil {
		return fmt.Errorf("mark order %s paid: %w", orderID, err)
	}
	log.Info().Str("order_id", orderID).Msg("payment confirmed via webhook")
	return nil
}

func (r *Reconciler) markFailed(orderID string) error {
	order, err := r.store.GetOrder(orderID)
	if err != nil {
		return fmt.Errorf("load order %s: %w", orderID, err)
	}
	if order.PaymentStatus == models.PaymentPaid {
		// a paid order is never cancelled; a late or misordered
		// failure event loses to the capture
		log.Warn().Str("order_id", orderID).Msg("ignoring payment failure for already-paid order")
		return nil
	}
	fields := map[string]interface{}{"payment_status": models.PaymentFailed}
	cancelled := false
	if statemachine.CanTransition(order.Status, models.StatusCancelled, "payment") == nil {
		fields["status"] = models.StatusCancelled
		cancelled = true
	}
	if err := r.store.UpdateOrder(orderID, fields); err != nil {
		return fmt.Errorf("mark order %s failed: %w", orderID, err)
	}
	if cancelled {
		if r.sims != nil {
			r.sims.Stop(orderID)
		}
		if err := r.store.DeleteDriversByOrder(orderID); err != nil {
			log.Warn().Err(err).Str("order_id", orderID).Msg("driver cleanup after failed payment")
		}
	}
	log.Info().Str("order_id", orderID).Bool("cancelled", cancelled).Msg("payment failed via webhook")
	return nil
}
