package processor

import (
	"strings"

	"cpa-server/internal/conversions/status"
	"cpa-server/internal/store"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	maxIdentifierLength = 255
	defaultCurrency     = "USD"
)

var validate = validator.New()

// IngestParams is one inbound conversion observation. Optional fields left
// nil keep the stored value on update.
type IngestParams struct {
	// Channel names the inbound surface, for logs and metrics
	Channel string

	AdvertiserID string
	Type         string
	TxID         string
	ClickID      *string
	// Status is the candidate canonical status
	Status string

	Revenue  *decimal.Decimal
	Currency *string

	PartnerID  *string
	CampaignID *string
	OfferID    *string
	FlowID     *string

	AntifraudLevel *string
	AntifraudScore *float64

	Details map[string]interface{}
}

// IngestResult is the outcome of Ingest
type IngestResult struct {
	Conversion         store.Conversion
	Created            bool
	PreviousStatus     *status.Status
	PostbacksTriggered bool
}

// input is IngestParams after validation
type input struct {
	key            store.ConversionKey
	clickID        *string
	status         status.Status
	revenue        *decimal.Decimal
	currency       *string
	partnerID      *string
	campaignID     *string
	offerID        *string
	flowID         *string
	antifraudLevel *store.AntifraudLevel
	antifraudScore *float64
	details        map[string]interface{}
}

// CandidateStatus is the status a bare pixel event implies for its type
func CandidateStatus(t status.Type) status.Status {
	if t == status.TypePurchase {
		return status.Pending
	}
	return status.Initiated
}

func validateParams(params IngestParams) (input, error) {
	advertiserID, err := uuid.Parse(strings.TrimSpace(params.AdvertiserID))
	if err != nil || advertiserID == uuid.Nil {
		return input{}, ErrInvalidAdvertiser
	}

	var (
		in   = input{details: params.Details}
		errs = &InputError{}
	)
	in.key.AdvertiserID = advertiserID

	typ, err := status.ParseType(params.Type)
	if err != nil {
		errs.add("type", "type must be one of: reg purchase")
	}
	in.key.Type = typ

	in.key.TxID = strings.TrimSpace(params.TxID)
	switch {
	case in.key.TxID == "":
		errs.add("txid", "txid is required")
	case len(in.key.TxID) > maxIdentifierLength:
		errs.add("txid", "txid must be at most 255 characters")
	}

	if params.ClickID != nil {
		clickID := strings.TrimSpace(*params.ClickID)
		if len(clickID) > maxIdentifierLength {
			errs.add("clickid", "clickid must be at most 255 characters")
		}
		if clickID != "" {
			in.clickID = &clickID
		}
	}

	s, err := status.ParseStatus(params.Status)
	if err != nil {
		errs.add("status", "status must be a canonical conversion status")
	}
	in.status = s

	if params.Revenue != nil {
		if params.Revenue.IsNegative() {
			errs.add("revenue", "revenue must not be negative")
		}
		in.revenue = params.Revenue
	}

	if params.Currency != nil {
		currency := strings.ToUpper(strings.TrimSpace(*params.Currency))
		if currency != "" {
			if validate.Var(currency, "iso4217") != nil {
				errs.add("currency", "currency must be an ISO-4217 currency code")
			}
			in.currency = &currency
		}
	}

	in.partnerID = trimOptional(params.PartnerID)
	in.campaignID = trimOptional(params.CampaignID)
	in.offerID = trimOptional(params.OfferID)
	in.flowID = trimOptional(params.FlowID)

	if params.AntifraudLevel != nil && strings.TrimSpace(*params.AntifraudLevel) != "" {
		level := store.AntifraudLevel(strings.ToLower(strings.TrimSpace(*params.AntifraudLevel)))
		if !level.Valid() {
			errs.add("antifraud_level", "antifraud_level must be one of: ok soft hard")
		}
		in.antifraudLevel = &level
	}
	in.antifraudScore = params.AntifraudScore

	if err := errs.errOrNil(); err != nil {
		return input{}, err
	}
	return in, nil
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
