package statemachine

import (
	"errors"

	"quickbite-api/models"
)

// Transition defines a valid state change and which actor performs it
type Transition struct {
	From  models.OrderStatus
	To    models.OrderStatus
	Actor string // "payment", "simulator", "customer"
}

// validTransitions is the authoritative fulfillment state machine
var validTransitions = []Transition{
	// A successful payment moves a UPI order out of PENDING_PAYMENT
	{From: models.StatusPendingPayment, To: models.StatusPlaced, Actor: "payment"},
	// A failed or abandoned payment cancels the order
	{From: models.StatusPendingPayment, To: models.StatusCancelled, Actor: "payment"},
	{From: models.StatusPendingPayment, To: models.StatusCancelled, Actor: "customer"},
	// The simulator moves the kitchen along regardless of payment
	{From: models.StatusPlaced, To: models.StatusPreparing, Actor: "simulator"},
	{From: models.StatusPendingPayment, To: models.StatusPreparing, Actor: "simulator"},
	{From: models.StatusPreparing, To: models.StatusOnTheWay, Actor: "simulator"},
	{From: models.StatusOnTheWay, To: models.StatusDelivered, Actor: "simulator"},
	// Customers can cancel until the order is delivered
	{From: models.StatusPlaced, To: models.StatusCancelled, Actor: "customer"},
	{From: models.StatusPreparing, To: models.StatusCancelled, Actor: "customer"},
	{From: models.StatusOnTheWay, To: models.StatusCancelled, Actor: "customer"},
}

type transitionKey struct {
	From  models.OrderStatus
	To    models.OrderStatus
	Actor string
}

var transitionMap = func() map[transitionKey]bool {
	m := make(map[transitionKey]bool)
	for _, t := range validTransitions {
		m[transitionKey{t.From, t.To, t.Actor}] = true
	}
	return m
}()

// ValidTransitionsFrom returns all valid next states from a given state
func ValidTransitionsFrom(status models.OrderStatus) []models.OrderStatus {
	var nexts []models.OrderStatus
	seen := map[models.OrderStatus]bool{}
	for _, t := range validTransitions {
		if t.From == status && !seen[t.To] {
			nexts = append(nexts, t.To)
			seen[t.To] = true
		}
	}
	return nexts
}

// CanTransition checks if a given actor can move from one state to another
func CanTransition(from, to models.OrderStatus, actor string) error {
	if transitionMap[transitionKey{From: from, To: to, Actor: actor}] {
		return nil
	}
	return errors.New(
		"invalid transition: " + string(from) + " -> " + string(to) +
			" is not allowed for actor '" + actor + "'. " +
			"Valid transitions from " + string(from) + " are: " + describeValidFrom(from),
	)
}

func describeValidFrom(status models.OrderStatus) string {
	nexts := ValidTransitionsFrom(status)
	if len(nexts) == 0 {
		return "none (terminal state)"
	}
	result := ""
	for i, s := range nexts {
		if i > 0 {
			result += ", "
		}
		result += string(s)
	}
	return result
}

// GetAllTransitions returns the full state machine for documentation
func GetAllTransitions() []Transition {
	return validTransitions
}
