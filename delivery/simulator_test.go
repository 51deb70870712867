package delivery

import (
	"testing"
	"time"

	"quickbite-api/models"
	"quickbite-api/store"

	"github.com/stretchr/testify/assert"
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

func fastConfig() Config {
	return Config{
		PrepDelay:     5 * time.Millisecond,
		DispatchDelay: 5 * time.Millisecond,
		TickInterval:  2 * time.Millisecond,
		StepSize:      0.0005,
		ArriveEps:     0.0005,
	}
}

func seedOrder(t *testing.T, st *store.Store, method models.PaymentMethod) string {
	t.Helper()
	order := &models.Order{
		ID:            "ord-" + string(method),
		CustomerID:    1,
		Status:        models.StatusPlaced,
		PaymentMethod: method,
		PaymentStatus: models.PaymentPending,
		TotalPrice:    120,
		DestLat:       0.002,
		DestLng:       0.001,
	}
	driver := &models.Driver{
		DestLat: order.DestLat,
		DestLng: order.DestLng,
		Status:  models.DeliveryPreparing,
	}
	require.NoError(t, st.CreateOrderWithDriver(order, driver))
	return order.ID
}

func TestSimulationDeliversCODOrder(t *testing.T) {
	st := newTestStore(t)
	r := NewRegistry(st, fastConfig())
	t.Cleanup(r.StopAll)

	id := seedOrder(t, st, models.MethodCOD)
	r.Start(id)

	assert.Eventually(t, func() bool {
		order, err := st.GetOrder(id)
		return err == nil && order.Status == models.StatusDelivered
	}, 2*time.Second, 5*time.Millisecond)

	order, err := st.GetOrder(id)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, order.PaymentStatus, "cash is collected at the door")

	driver, err := st.GetDriverByOrder(id)
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryDelivered, driver.Status)
	assert.Equal(t, order.DestLat, driver.Lat, "courier snaps to the destination")
	assert.Equal(t, order.DestLng, driver.Lng)

	// the finished simulation deregisters itself
	assert.Eventually(t, func() bool { return !r.Running(id) }, time.Second, 5*time.Millisecond)
}

func TestSimulationKeepsUPIPaymentStatus(t *testing.T) {
	st := newTestStore(t)
	r := NewRegistry(st, fastConfig())
	t.Cleanup(r.StopAll)

	id := seedOrder(t, st, models.MethodUPI)
	r.Start(id)

	assert.Eventually(t, func() bool {
		order, err := st.GetOrder(id)
		return err == nil && order.Status == models.StatusDelivered
	}, 2*time.Second, 5*time.Millisecond)

	order, err := st.GetOrder(id)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, order.PaymentStatus,
		"delivery never settles an online payment")
}

func TestSimulationAdvancesThroughPreparing(t *testing.T) {
	st := newTestStore(t)
	cfg := fastConfig()
	cfg.DispatchDelay = time.Hour // hold the order in the kitchen
	r := NewRegistry(st, cfg)
	t.Cleanup(r.StopAll)

	id := seedOrder(t, st, models.MethodCOD)
	r.Start(id)

	assert.Eventually(t, func() bool {
		order, err := st.GetOrder(id)
		return err == nil && order.Status == models.StatusPreparing
	}, 2*time.Second, 5*time.Millisecond)

	driver, err := st.GetDriverByOrder(id)
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryPreparing, driver.Status, "the courier has not left yet")
}

func TestStopHaltsSimulation(t *testing.T) {
	st := newTestStore(t)
	cfg := fastConfig()
	cfg.PrepDelay = time.Hour
	r := NewRegistry(st, cfg)
	t.Cleanup(r.StopAll)

	id := seedOrder(t, st, models.MethodCOD)
	r.Start(id)
	require.True(t, r.Running(id))

	r.Stop(id)
	assert.False(t, r.Running(id))

	// nothing advanced
	order, err := st.GetOrder(id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPlaced, order.Status)
}

func TestStartIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	cfg := fastConfig()
	cfg.PrepDelay = time.Hour
	r := NewRegistry(st, cfg)
	t.Cleanup(r.StopAll)

	id := seedOrder(t, st, models.MethodCOD)
	r.Start(id)
	r.Start(id)
	assert.True(t, r.Running(id))

	// one Stop clears the single registered simulation
	r.Stop(id)
	assert.False(t, r.Running(id))
}

func TestSimulationHaltsWhenOrderVanishes(t *testing.T) {
	st := newTestStore(t)
	r := NewRegistry(st, fastConfig())
	t.Cleanup(r.StopAll)

	id := seedOrder(t, st, models.MethodCOD)
	require.NoError(t, st.DeleteOrder(id))
	require.NoError(t, st.DeleteDriversByOrder(id))

	r.Start(id)

	// the first persistence failure ends the goroutine
	assert.Eventually(t, func() bool { return !r.Running(id) }, 2*time.Second, 5*time.Millisecond)
}
