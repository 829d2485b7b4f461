package handler

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the ingestion and delivery log endpoints
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST("/event", h.HandleEvent)

	webhook := r.Group("/webhook")
	webhook.POST("/affiliate", h.HandleAffiliateWebhook)
	webhook.POST("/psp", h.HandlePSPWebhook)
	webhook.POST("/universal", h.HandleUniversalWebhook)

	v1 := r.Group("/api/v1")
	v1.GET("/conversions/:conversion_id/deliveries", h.HandleListDeliveries)
}
