package statemachine

import (
	"testing"

	"quickbite-api/models"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    models.OrderStatus
		to      models.OrderStatus
		actor   string
		allowed bool
	}{
		{"payment settles pending order", models.StatusPendingPayment, models.StatusPlaced, "payment", true},
		{"payment failure cancels", models.StatusPendingPayment, models.StatusCancelled, "payment", true},
		{"simulator starts the kitchen", models.StatusPlaced, models.StatusPreparing, "simulator", true},
		{"simulator cooks before payment", models.StatusPendingPayment, models.StatusPreparing, "simulator", true},
		{"simulator dispatches", models.StatusPreparing, models.StatusOnTheWay, "simulator", true},
		{"simulator delivers", models.StatusOnTheWay, models.StatusDelivered, "simulator", true},
		{"customer cancels en route", models.StatusOnTheWay, models.StatusCancelled, "customer", true},
		{"payment cannot skip to delivered", models.StatusPendingPayment, models.StatusDelivered, "payment", false},
		{"customer cannot cancel a delivered order", models.StatusDelivered, models.StatusCancelled, "customer", false},
		{"cancelled is terminal", models.StatusCancelled, models.StatusPlaced, "payment", false},
		{"actor matters", models.StatusPlaced, models.StatusPreparing, "customer", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanTransition(tt.from, tt.to, tt.actor)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidTransitionsFrom(t *testing.T) {
	assert.ElementsMatch(t,
		[]models.OrderStatus{models.StatusPlaced, models.StatusCancelled, models.StatusPreparing},
		ValidTransitionsFrom(models.StatusPendingPayment))
	assert.Empty(t, ValidTransitionsFrom(models.StatusDelivered))
	assert.Empty(t, ValidTransitionsFrom(models.StatusCancelled))
}

func TestTerminalStatesAreDescribed(t *testing.T) {
	err := CanTransition(models.StatusDelivered, models.StatusCancelled, "customer")
	assert.ErrorContains(t, err, "terminal state")
}

func TestGetAllTransitionsIsComplete(t *testing.T) {
	transitions := GetAllTransitions()
	assert.NotEmpty(t, transitions)
	for _, tr := range transitions {
		assert.NoError(t, CanTransition(tr.From, tr.To, tr.Actor))
	}
}
