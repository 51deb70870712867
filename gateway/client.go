package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Remote payment-link lifecycle states as reported by the gateway
const (
	LinkCreated    = "created"
	LinkIssued     = "issued"
	LinkProcessing = "processing"
	LinkPaid       = "paid"
	LinkCancelled  = "cancelled"
	LinkExpired    = "expired"
)

// Link is the gateway's record of a hosted payment link
type Link struct {
	ID          string            `json:"id"`
	ShortURL    string            `json:"short_url"`
	Status      string            `json:"status"`
	Amount      int64             `json:"amount"` // smallest currency unit
	Currency    string            `json:"currency"`
	ReferenceID string            `json:"reference_id"`
	Description string            `json:"description"`
	Notes       map[string]string `json:"notes"`
	CallbackURL string            `json:"callback_url"`
}

// CreateLinkParams describes a new payment link. ReferenceID must be
// unique across all links ever created; the gateway rejects reuse.
type CreateLinkParams struct {
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	ReferenceID    string            `json:"reference_id"`
	Description    string            `json:"description"`
	Notes          map[string]string `json:"notes"`
	CallbackURL    string            `json:"callback_url"`
	CallbackMethod string            `json:"callback_method"`
}

// Client is the remote payment-link service surface
type Client interface {
	CreateLink(ctx context.Context, params CreateLinkParams) (*Link, error)
	FetchLink(ctx context.Context, linkID string) (*Link, error)
	ListLinksByReference(ctx context.Context, referenceID string) ([]Link, error)
}

// Error carries the remote-provided failure description
type Error struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway error %d (%s): %s", e.StatusCode, e.Code, e.Description)
}

// IsDuplicateReference reports whether err is the gateway rejecting a
// reference id that already exists remotely. This is the only gateway
// failure the link manager recovers from.
func IsDuplicateReference(err error) bool {
	var gwErr *Error
	if !errors.As(err, &gwErr) {
		return false
	}
	desc := strings.ToLower(gwErr.Description)
	return strings.Contains(desc, "reference") && strings.Contains(desc, "already exists")
}
