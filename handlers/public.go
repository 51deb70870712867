package handlers

import (
	"net/http"

	"quickbite-api/statemachine"

	"github.com/gin-gonic/gin"
)

// GetStateMachineInfo returns the fulfillment state machine for
// informational purposes
func GetStateMachineInfo(c *gin.Context) {
	transitions := statemachine.GetAllTransitions()
	info := make([]gin.H, 0, len(transitions))
	for _, t := range transitions {
		info = append(info, gin.H{"from": t.From, "to": t.To, "actor": t.Actor})
	}
	c.JSON(http.StatusOK, gin.H{
		"state_machine":   info,
		"terminal_states": []string{"DELIVERED", "CANCELLED"},
		"description":     "Order Fulfillment Lifecycle State Machine",
	})
}
