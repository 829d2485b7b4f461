package render

import (
	"fmt"
	"regexp"
	"time"

	"cpa-server/internal/store"
)

// MaxSubParams is the number of generic sub-parameters carried in details
const MaxSubParams = 16

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

var contextKeys = buildContextKeys()

func buildContextKeys() map[string]bool {
	keys := map[string]bool{
		"clickid":       true,
		"status":        true,
		"status_mapped": true,
		"revenue":       true,
		"currency":      true,
		"txid":          true,
		"conversion_id": true,
		"advertiser_id": true,
		"partner_id":    true,
		"offer_id":      true,
		"campaign_id":   true,
		"flow_id":       true,
		"type":          true,
		"timestamp":     true,
	}
	for i := 1; i <= MaxSubParams; i++ {
		keys[fmt.Sprintf("sub%d", i)] = true
	}
	return keys
}

// Context holds the values a template can reference
type Context map[string]string

// NewContext builds the rendering context for a conversion
func NewContext(conversion store.Conversion, statuses StatusTable, now time.Time) Context {
	ctx := Context{
		"clickid":       conversion.ClickID,
		"status":        conversion.Status.String(),
		"status_mapped": statuses.Resolve(conversion.Type, conversion.Status),
		"revenue":       conversion.Revenue.String(),
		"currency":      conversion.Currency,
		"txid":          conversion.TxID,
		"conversion_id": conversion.ID.String(),
		"advertiser_id": conversion.AdvertiserID.String(),
		"partner_id":    deref(conversion.PartnerID),
		"offer_id":      deref(conversion.OfferID),
		"campaign_id":   deref(conversion.CampaignID),
		"flow_id":       deref(conversion.FlowID),
		"type":          conversion.Type.String(),
		"timestamp":     fmt.Sprintf("%d", now.Unix()),
	}
	for i := 1; i <= MaxSubParams; i++ {
		key := fmt.Sprintf("sub%d", i)
		ctx[key] = detailString(conversion.Details, key)
	}
	return ctx
}

// Render substitutes every {{ key }} token. Keys outside the whitelist or
// without a value render as the empty string.
func Render(template string, ctx Context) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(token string) string {
		key := placeholderPattern.FindStringSubmatch(token)[1]
		if !contextKeys[key] {
			return ""
		}
		return ctx[key]
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func detailString(details store.JSONB, key string) string {
	switch v := details[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return fmt.Sprintf("%v", v)
	case bool:
		return fmt.Sprintf("%t", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
