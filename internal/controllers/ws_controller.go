package controllers

import (
	"net/http"

	"github.com/poofware/inventory-service/internal/notifications"
	"github.com/poofware/inventory-service/internal/utils"
)

type WSController struct {
	hub *notifications.Hub
}

func NewWSController(hub *notifications.Hub) *WSController {
	return &WSController{hub: hub}
}

// GET /api/v1/inventory/ws
func (c *WSController) ServeWSHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	c.hub.ServeWS(w, r, actor.ID.String(), actor.IsAdmin())
}
