package payments

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"quickbite-api/gateway"
	"quickbite-api/models"
	"quickbite-api/store"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.Open(":memory:")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	return store.New(db)
}

func seedOrder(t *testing.T, st *store.Store, order *models.Order) {
	t.Helper()
	if order.PaymentStatus == "" {
		order.PaymentStatus = models.PaymentPending
	}
	if order.Status == "" {
		order.Status = models.StatusPlaced
	}
	require.NoError(t, st.CreateOrderWithDriver(order, &models.Driver{Status: models.DeliveryPreparing}))
}

// fakeGateway is an in-memory gateway.Client. It enforces reference
// uniqueness the way the real service does.
type fakeGateway struct {
	mu          sync.Mutex
	links       map[string]*gateway.Link // by link id
	byRef       map[string]*gateway.Link
	nextID      int
	createCalls int
	fetchCalls  int
	listCalls   int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{links: map[string]*gateway.Link{}, byRef: map[string]*gateway.Link{}}
}

func (f *fakeGateway) CreateLink(_ context.Context, params gateway.CreateLinkParams) (*gateway.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if _, dup := f.byRef[params.ReferenceID]; dup {
		return nil, &gateway.Error{StatusCode: 400, Code: "BAD_REQUEST_ERROR",
			Description: "Reference Id already exists"}
	}
	f.nextID++
	link := &gateway.Link{
		ID:          fmt.Sprintf("plink_%d", f.nextID),
		ShortURL:    fmt.Sprintf("https://pay.test/%d", f.nextID),
		Status:      gateway.LinkCreated,
		Amount:      params.Amount,
		Currency:    params.Currency,
		ReferenceID: params.ReferenceID,
		Notes:       params.Notes,
		CallbackURL: params.CallbackURL,
	}
	f.links[link.ID] = link
	f.byRef[link.ReferenceID] = link
	return link, nil
}

func (f *fakeGateway) FetchLink(_ context.Context, linkID string) (*gateway.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	link, ok := f.links[linkID]
	if !ok {
		return nil, &gateway.Error{StatusCode: 404, Code: "NOT_FOUND", Description: "payment link not found"}
	}
	cp := *link
	return &cp, nil
}

func (f *fakeGateway) ListLinksByReference(_ context.Context, referenceID string) ([]gateway.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if link, ok := f.byRef[referenceID]; ok && link.ID != "" {
		return []gateway.Link{*link}, nil
	}
	return nil, nil
}

// setStatus flips a remote link's lifecycle state for a test scenario
func (f *fakeGateway) setStatus(linkID, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.links[linkID].Status = status
}

// preloadRef plants a remote link under a reference that no local
// order knows about yet, simulating a concurrent caller winning the
// creation race.
func (f *fakeGateway) preloadRef(referenceID string) *gateway.Link {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	link := &gateway.Link{
		ID:          fmt.Sprintf("plink_%d", f.nextID),
		Status:      gateway.LinkCreated,
		ReferenceID: referenceID,
	}
	f.links[link.ID] = link
	f.byRef[referenceID] = link
	return link
}

// blockRef makes a reference collide without a listable link behind
// it, forcing the next-attempt retry path.
func (f *fakeGateway) blockRef(referenceID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byRef[referenceID] = &gateway.Link{} // collides on create, invisible to list
}

// stopRecorder records which simulations were asked to stop
type stopRecorder struct {
	mu      sync.Mutex
	stopped []string
}

func (s *stopRecorder) Stop(orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = append(s.stopped, orderID)
}

func (s *stopRecorder) stoppedOrders() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.stopped...)
}
