package handler

//go:generate go run go.uber.org/mock/mockgen@latest -source=handler.go -destination=mocks_test.go -package=handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"cpa-server/internal/apierrors"
	"cpa-server/internal/conversions/processor"
	"cpa-server/internal/observability"
	"cpa-server/internal/store"

	"github.com/gin-gonic/gin"
)

// AdvertiserHeader identifies the advertiser on inbound requests. The
// advertiser_id query parameter is accepted when the header is absent.
const AdvertiserHeader = "X-Advertiser-ID"

// ConversionProcessor defines the processor operations used by Handler
type ConversionProcessor interface {
	Ingest(ctx context.Context, params processor.IngestParams) (processor.IngestResult, error)
	ListDeliveries(ctx context.Context, advertiserID, conversionID string, limit, offset int) ([]store.DeliveryAttempt, error)
}

// Handler handles conversion ingestion HTTP requests
type Handler struct {
	processor ConversionProcessor
	logger    *observability.Logger
}

// New creates a new Handler
func New(processor ConversionProcessor, logger *observability.Logger) *Handler {
	return &Handler{
		processor: processor,
		logger:    logger,
	}
}

// IngestResponse is returned by the pixel and universal endpoints
type IngestResponse struct {
	Success            bool   `json:"success"`
	EventID            string `json:"eventId"`
	PostbacksTriggered bool   `json:"postbacksTriggered"`
}

// ListDeliveriesResponse is returned by the delivery log endpoint
type ListDeliveriesResponse struct {
	Deliveries []store.DeliveryAttempt `json:"deliveries"`
}

func advertiserID(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader(AdvertiserHeader)); id != "" {
		return id
	}
	return strings.TrimSpace(c.Query("advertiser_id"))
}

func (h *Handler) ingest(c *gin.Context, params processor.IngestParams) (processor.IngestResult, bool) {
	ctx := observability.WithFields(c.Request.Context(),
		observability.Field{Key: "channel", Value: params.Channel},
	)

	params.AdvertiserID = advertiserID(c)
	result, err := h.processor.Ingest(ctx, params)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return processor.IngestResult{}, false
	}
	return result, true
}

func respondIngested(c *gin.Context, result processor.IngestResult) {
	code := http.StatusOK
	if result.Created {
		code = http.StatusCreated
	}
	c.JSON(code, IngestResponse{
		Success:            true,
		EventID:            result.Conversion.ID.String(),
		PostbacksTriggered: result.PostbacksTriggered,
	})
}

// HandleListDeliveries handles GET /api/v1/conversions/:conversion_id/deliveries.
// Only the advertiser owning the conversion may read its log.
func (h *Handler) HandleListDeliveries(c *gin.Context) {
	ctx := c.Request.Context()

	limit, err := queryInt(c, "limit")
	if err != nil {
		apierrors.RespondWithError(c, apierrors.BadRequest(apierrors.CodeInvalidInput, "Invalid query parameter",
			apierrors.FieldDetail{Field: "limit", Message: "limit must be an integer"}))
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		apierrors.RespondWithError(c, apierrors.BadRequest(apierrors.CodeInvalidInput, "Invalid query parameter",
			apierrors.FieldDetail{Field: "offset", Message: "offset must be an integer"}))
		return
	}

	attempts, err := h.processor.ListDeliveries(ctx, advertiserID(c), c.Param("conversion_id"), limit, offset)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListDeliveriesResponse{Deliveries: attempts})
}

func queryInt(c *gin.Context, key string) (int, error) {
	value := c.Query(key)
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}
