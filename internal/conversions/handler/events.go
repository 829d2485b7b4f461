package handler

import (
	"cpa-server/internal/apierrors"
	"cpa-server/internal/conversions/processor"
	"cpa-server/internal/conversions/status"
	"cpa-server/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// EventRequest is the tracking pixel payload
type EventRequest struct {
	Type           string                 `json:"type" binding:"required,oneof=reg purchase"`
	ClickID        string                 `json:"clickid" binding:"max=255"`
	TxID           string                 `json:"txid" binding:"required,max=255"`
	Value          *decimal.Decimal       `json:"value"`
	Currency       *string                `json:"currency"`
	Meta           map[string]interface{} `json:"meta"`
	AntifraudLevel *string                `json:"antifraud_level"`
	AntifraudScore *float64               `json:"antifraud_score"`
	PartnerID      *string                `json:"partner_id"`
	CampaignID     *string                `json:"campaign_id"`
	OfferID        *string                `json:"offer_id"`
	FlowID         *string                `json:"flow_id"`
}

// HandleEvent handles POST /event. The pixel is loaded by the user's browser,
// so the CDN viewer headers describe the user and fill the geo and device
// details the payload leaves out.
func (h *Handler) HandleEvent(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.RespondWithValidationError(c, err)
		return
	}

	typ := status.Type(req.Type)
	params := processor.IngestParams{
		Channel:        "event",
		Type:           req.Type,
		TxID:           req.TxID,
		Status:         string(processor.CandidateStatus(typ)),
		Revenue:        req.Value,
		Currency:       req.Currency,
		PartnerID:      req.PartnerID,
		CampaignID:     req.CampaignID,
		OfferID:        req.OfferID,
		FlowID:         req.FlowID,
		AntifraudLevel: req.AntifraudLevel,
		AntifraudScore: req.AntifraudScore,
		Details:        withViewer(req.Meta, observability.GetViewerInfo(c)),
	}
	if req.ClickID != "" {
		params.ClickID = &req.ClickID
	}

	result, ok := h.ingest(c, params)
	if !ok {
		return
	}
	respondIngested(c, result)
}

// withViewer returns a copy of meta with missing geo, device and bot details
// taken from the viewer
func withViewer(meta map[string]interface{}, viewer observability.ViewerInfo) map[string]interface{} {
	details := make(map[string]interface{}, len(meta)+8)
	for key, value := range meta {
		details[key] = value
	}

	fallbacks := map[string]string{
		"country":     viewer.CountryCode,
		"region":      viewer.Region,
		"city":        viewer.City,
		"device_type": viewer.DeviceType,
		"os":          viewer.DeviceOS,
		"ip":          viewer.IP,
		"user_agent":  viewer.UserAgent,
	}
	for key, value := range fallbacks {
		if current, ok := details[key]; (ok && current != nil && current != "") || value == "" {
			continue
		}
		details[key] = value
	}

	if _, ok := details["is_bot"]; !ok && viewer.UserAgent != "" {
		details["is_bot"] = observability.IsLikelyBot(viewer.UserAgent)
	}
	return details
}
