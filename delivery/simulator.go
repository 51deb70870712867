package delivery

import (
	"context"
	"math"
	"sync"
	"time"

	"quickbite-api/models"
	"quickbite-api/store"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config controls the pacing and geometry of the synthetic courier
type Config struct {
	PrepDelay     time.Duration // time before the kitchen starts (PLACED -> PREPARING)
	DispatchDelay time.Duration // prep time before the courier leaves (PREPARING -> ON_THE_WAY)
	TickInterval  time.Duration // movement cadence
	StepSize      float64       // per-axis movement per tick, in degrees
	ArriveEps     float64       // per-axis arrival threshold
}

func DefaultConfig() Config {
	return Config{
		PrepDelay:     5 * time.Second,
		DispatchDelay: 10 * time.Second,
		TickInterval:  2 * time.Second,
		StepSize:      0.0005,
		ArriveEps:     0.0005,
	}
}

// Registry runs at most one delivery simulation per order and lets a
// cancellation signal the goroutine before its next tick.
type Registry struct {
	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	store   *store.Store
	cfg     Config
	wg      sync.WaitGroup
}

func NewRegistry(st *store.Store, cfg Config) *Registry {
	return &Registry{
		cancels: map[string]context.CancelFunc{},
		store:   st,
		cfg:     cfg,
	}
}

// Start launches the simulation for an order. Starting an order that
// is already running is a no-op.
func (r *Registry) Start(orderID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, running := r.cancels[orderID]; running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancels[orderID] = cancel
	r.wg.Add(1)
	go r.run(ctx, orderID)
}

// Stop signals the order's simulation to halt. Safe to call for
// orders with no running simulation.
func (r *Registry) Stop(orderID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cancel, ok := r.cancels[orderID]; ok {
		cancel()
		delete(r.cancels, orderID)
	}
}

// StopAll halts every simulation and waits for the goroutines to exit
func (r *Registry) StopAll() {
	r.mu.Lock()
	for id, cancel := range r.cancels {
		cancel()
		delete(r.cancels, id)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

// Running reports whether the order currently has a simulation
func (r *Registry) Running(orderID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.cancels[orderID]
	return ok
}

func (r *Registry) remove(orderID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cancels, orderID)
}

// run drives the courier from the kitchen to the customer. Any
// persistence error is fatal to this one simulation, not the service.
func (r *Registry) run(ctx context.Context, orderID string) {
	defer r.wg.Done()
	defer r.remove(orderID)
	logger := log.With().Str("order_id", orderID).Logger()

	if !r.wait(ctx, r.cfg.PrepDelay) {
		return
	}
	if err := r.store.UpdateOrder(orderID, map[string]interface{}{
		"status": models.StatusPreparing,
	}); err != nil {
		logger.Error().Err(err).Msg("simulation halted at preparing")
		return
	}

	if !r.wait(ctx, r.cfg.DispatchDelay) {
		return
	}
	if err := r.store.UpdateOrder(orderID, map[string]interface{}{
		"status": models.StatusOnTheWay,
	}); err != nil {
		logger.Error().Err(err).Msg("simulation halted at dispatch")
		return
	}
	if err := r.store.UpdateDriverByOrder(orderID, map[string]interface{}{
		"status": models.DeliveryOnTheWay,
	}); err != nil {
		logger.Error().Err(err).Msg("simulation halted at dispatch")
		return
	}

	driver, err := r.store.GetDriverByOrder(orderID)
	if err != nil {
		logger.Error().Err(err).Msg("simulation halted, courier record gone")
		return
	}
	lat, lng := driver.Lat, driver.Lng

	ticker := time.NewTicker(r.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		lat = stepToward(lat, driver.DestLat, r.cfg.StepSize, r.cfg.ArriveEps)
		lng = stepToward(lng, driver.DestLng, r.cfg.StepSize, r.cfg.ArriveEps)

		if within(lat, driver.DestLat, r.cfg.ArriveEps) && within(lng, driver.DestLng, r.cfg.ArriveEps) {
			r.arrive(orderID, driver, logger)
			return
		}

		if err := r.store.UpdateDriverByOrder(orderID, map[string]interface{}{
			"lat": lat,
			"lng": lng,
		}); err != nil {
			logger.Error().Err(err).Msg("simulation halted mid-route")
			return
		}
	}
}

func (r *Registry) arrive(orderID string, driver *models.Driver, logger zerolog.Logger) {
	// snap to the destination exactly and settle both state machines
	if err := r.store.UpdateDriverByOrder(orderID, map[string]interface{}{
		"lat":    driver.DestLat,
		"lng":    driver.DestLng,
		"status": models.DeliveryDelivered,
	}); err != nil {
		logger.Error().Err(err).Msg("simulation halted at arrival")
		return
	}

	order, err := r.store.GetOrder(orderID)
	if err != nil {
		logger.Error().Err(err).Msg("simulation halted at arrival")
		return
	}
	fields := map[string]interface{}{"status": models.StatusDelivered}
	if order.PaymentMethod == models.MethodCOD {
		// cash orders are paid at the door
		fields["payment_status"] = models.PaymentPaid
	}
	if err := r.store.UpdateOrder(orderID, fields); err != nil {
		logger.Error().Err(err).Msg("simulation halted at arrival")
		return
	}
	logger.Info().Msg("order delivered")
}

// wait sleeps for d unless the simulation is cancelled first
func (r *Registry) wait(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

func stepToward(pos, dest, step, eps float64) float64 {
	delta := dest - pos
	if math.Abs(delta) <= eps {
		return pos
	}
	if delta > 0 {
		return pos + step
	}
	return pos - step
}

func within(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}
