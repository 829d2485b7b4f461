package processor

import (
	"strings"

	"cpa-server/internal/conversions/status"

	"github.com/shopspring/decimal"
)

var eventTypeAliases = map[string]status.Type{
	"reg":          status.TypeReg,
	"registration": status.TypeReg,
	"signup":       status.TypeReg,
	"lead":         status.TypeReg,
	"purchase":     status.TypePurchase,
	"sale":         status.TypePurchase,
	"deposit":      status.TypePurchase,
	"ftd":          status.TypePurchase,
	"dep":          status.TypePurchase,
}

// UniversalEvent is the tracker-agnostic webhook payload
type UniversalEvent struct {
	AdvertiserID string
	EventType    string
	ClickID      string
	TxID         string
	// Source selects the vocabulary Status is translated with, keitaro by default
	Source string
	Status string

	Amount   *decimal.Decimal
	Revenue  *decimal.Decimal
	Payout   *decimal.Decimal
	Currency *string

	PartnerID  *string
	CampaignID *string
	OfferID    *string
	FlowID     *string

	AntifraudLevel *string
	AntifraudScore *float64

	// Attributes holds sub-params, geo, device and UTM values, stored in details
	Attributes map[string]interface{}
}

// ResolveEventType maps a tracker event name onto a conversion type
func ResolveEventType(eventType string) (status.Type, bool) {
	t, ok := eventTypeAliases[strings.ToLower(strings.TrimSpace(eventType))]
	return t, ok
}

// NormalizeUniversal converts a universal webhook payload into IngestParams
func NormalizeUniversal(event UniversalEvent) (IngestParams, error) {
	errs := &InputError{}

	typ, ok := ResolveEventType(event.EventType)
	if !ok {
		errs.add("event_type", "event_type must be one of: reg registration signup lead purchase sale deposit ftd dep")
	}

	source := status.Source(strings.ToLower(strings.TrimSpace(event.Source)))
	if source == "" {
		source = status.SourceKeitaro
	}
	if !source.Valid() {
		errs.add("source", "source must be one of: keitaro affiliate psp")
	}

	clickID := strings.TrimSpace(event.ClickID)
	if clickID == "" {
		errs.add("clickid", "clickid is required")
	}

	if err := errs.errOrNil(); err != nil {
		return IngestParams{}, err
	}

	txID := strings.TrimSpace(event.TxID)
	if txID == "" {
		txID = clickID
	}

	candidate := CandidateStatus(typ)
	if strings.TrimSpace(event.Status) != "" {
		candidate = status.MapExternalStatus(event.Status, source)
	}

	return IngestParams{
		Channel:        "universal",
		AdvertiserID:   event.AdvertiserID,
		Type:           string(typ),
		TxID:           txID,
		ClickID:        &clickID,
		Status:         string(candidate),
		Revenue:        firstAmount(event.Amount, event.Revenue, event.Payout),
		Currency:       event.Currency,
		PartnerID:      event.PartnerID,
		CampaignID:     event.CampaignID,
		OfferID:        event.OfferID,
		FlowID:         event.FlowID,
		AntifraudLevel: event.AntifraudLevel,
		AntifraudScore: event.AntifraudScore,
		Details:        event.Attributes,
	}, nil
}

func firstAmount(amounts ...*decimal.Decimal) *decimal.Decimal {
	for _, a := range amounts {
		if a != nil {
			return a
		}
	}
	return nil
}
