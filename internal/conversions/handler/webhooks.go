package handler

import (
	"net/http"

	"cpa-server/internal/apierrors"
	"cpa-server/internal/conversions/processor"
	"cpa-server/internal/conversions/status"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// AffiliateWebhookRequest is an affiliate network status update for a registration
type AffiliateWebhookRequest struct {
	Type     string                 `json:"type" binding:"required,eq=reg"`
	TxID     string                 `json:"txid" binding:"required,max=255"`
	Status   string                 `json:"status" binding:"required"`
	Payout   *decimal.Decimal       `json:"payout"`
	Currency *string                `json:"currency"`
	Raw      map[string]interface{} `json:"raw"`
}

// PSPWebhookRequest is a payment provider status update for a purchase
type PSPWebhookRequest struct {
	Type     string                 `json:"type" binding:"required,eq=purchase"`
	TxID     string                 `json:"txid" binding:"required,max=255"`
	Status   string                 `json:"status" binding:"required"`
	Amount   *decimal.Decimal       `json:"amount"`
	Currency *string                `json:"currency"`
	Raw      map[string]interface{} `json:"raw"`
}

// HandleAffiliateWebhook handles POST /webhook/affiliate
func (h *Handler) HandleAffiliateWebhook(c *gin.Context) {
	var req AffiliateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.RespondWithValidationError(c, err)
		return
	}

	_, ok := h.ingest(c, processor.IngestParams{
		Channel:  "affiliate",
		Type:     req.Type,
		TxID:     req.TxID,
		Status:   string(status.MapExternalStatus(req.Status, status.SourceAffiliate)),
		Revenue:  req.Payout,
		Currency: req.Currency,
		Details:  rawDetails(req.Raw),
	})
	if !ok {
		return
	}
	c.Status(http.StatusNoContent)
}

// HandlePSPWebhook handles POST /webhook/psp
func (h *Handler) HandlePSPWebhook(c *gin.Context) {
	var req PSPWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.RespondWithValidationError(c, err)
		return
	}

	_, ok := h.ingest(c, processor.IngestParams{
		Channel:  "psp",
		Type:     req.Type,
		TxID:     req.TxID,
		Status:   string(status.MapExternalStatus(req.Status, status.SourcePSP)),
		Revenue:  req.Amount,
		Currency: req.Currency,
		Details:  rawDetails(req.Raw),
	})
	if !ok {
		return
	}
	c.Status(http.StatusNoContent)
}

// rawDetails keeps the provider's original payload under details.raw
func rawDetails(raw map[string]interface{}) map[string]interface{} {
	if len(raw) == 0 {
		return nil
	}
	return map[string]interface{}{"raw": raw}
}
