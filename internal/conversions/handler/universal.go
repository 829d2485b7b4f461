package handler

import (
	"fmt"

	"cpa-server/internal/apierrors"
	"cpa-server/internal/conversions/processor"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/shopspring/decimal"
)

// attributeKeys are copied from the universal payload into conversion details
var attributeKeys = func() []string {
	keys := []string{
		"country", "region", "city",
		"device_type", "os", "browser", "ip", "user_agent", "is_bot",
		"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
	}
	for i := 1; i <= 16; i++ {
		keys = append(keys, fmt.Sprintf("sub%d", i))
	}
	return keys
}()

// UniversalWebhookRequest is the tracker-agnostic webhook payload. Sub-params,
// geo, device and UTM fields are read from the raw body.
type UniversalWebhookRequest struct {
	EventType      string           `json:"event_type" binding:"required"`
	ClickID        string           `json:"clickid" binding:"required,max=255"`
	TxID           string           `json:"txid" binding:"max=255"`
	Source         string           `json:"source"`
	Status         string           `json:"status"`
	Amount         *decimal.Decimal `json:"amount"`
	Revenue        *decimal.Decimal `json:"revenue"`
	Payout         *decimal.Decimal `json:"payout"`
	Currency       *string          `json:"currency"`
	PartnerID      *string          `json:"partner_id"`
	CampaignID     *string          `json:"campaign_id"`
	OfferID        *string          `json:"offer_id"`
	FlowID         *string          `json:"flow_id"`
	AntifraudLevel *string          `json:"antifraud_level"`
	AntifraudScore *float64         `json:"antifraud_score"`
}

// HandleUniversalWebhook handles POST /webhook/universal
func (h *Handler) HandleUniversalWebhook(c *gin.Context) {
	var req UniversalWebhookRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		apierrors.RespondWithValidationError(c, err)
		return
	}
	var body map[string]interface{}
	if err := c.ShouldBindBodyWith(&body, binding.JSON); err != nil {
		apierrors.RespondWithValidationError(c, err)
		return
	}

	params, err := processor.NormalizeUniversal(processor.UniversalEvent{
		EventType:      req.EventType,
		ClickID:        req.ClickID,
		TxID:           req.TxID,
		Source:         req.Source,
		Status:         req.Status,
		Amount:         req.Amount,
		Revenue:        req.Revenue,
		Payout:         req.Payout,
		Currency:       req.Currency,
		PartnerID:      req.PartnerID,
		CampaignID:     req.CampaignID,
		OfferID:        req.OfferID,
		FlowID:         req.FlowID,
		AntifraudLevel: req.AntifraudLevel,
		AntifraudScore: req.AntifraudScore,
		Attributes:     collectAttributes(body),
	})
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	result, ok := h.ingest(c, params)
	if !ok {
		return
	}
	respondIngested(c, result)
}

// collectAttributes picks the known attribute keys from body. The webhook is
// called by the tracker's server, so request headers say nothing about the
// user and are not consulted.
func collectAttributes(body map[string]interface{}) map[string]interface{} {
	attrs := make(map[string]interface{})
	for _, key := range attributeKeys {
		if value, ok := body[key]; ok && value != nil && value != "" {
			attrs[key] = value
		}
	}
	return attrs
}
