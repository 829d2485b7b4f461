package store

// AntifraudLevel is the pre-computed fraud classification of a conversion
type AntifraudLevel string

const (
	AntifraudLevelOK   AntifraudLevel = "ok"
	AntifraudLevelSoft AntifraudLevel = "soft"
	AntifraudLevelHard AntifraudLevel = "hard"
)

// Valid reports whether l is a known level
func (l AntifraudLevel) Valid() bool {
	switch l {
	case AntifraudLevelOK, AntifraudLevelSoft, AntifraudLevelHard:
		return true
	}
	return false
}

// OwnerScope identifies who configured a postback profile
type OwnerScope string

const (
	OwnerScopeOwner      OwnerScope = "owner"
	OwnerScopeAdvertiser OwnerScope = "advertiser"
	OwnerScopePartner    OwnerScope = "partner"
)

// ScopeType narrows which conversions a profile applies to
type ScopeType string

const (
	ScopeTypeGlobal   ScopeType = "global"
	ScopeTypeCampaign ScopeType = "campaign"
	ScopeTypeOffer    ScopeType = "offer"
	ScopeTypeFlow     ScopeType = "flow"
)

// Specificity ranks scopes from broadest (0) to narrowest
func (s ScopeType) Specificity() int {
	switch s {
	case ScopeTypeCampaign:
		return 1
	case ScopeTypeOffer:
		return 2
	case ScopeTypeFlow:
		return 3
	default:
		return 0
	}
}

// HTTPMethod is the outbound postback method
type HTTPMethod string

const (
	HTTPMethodGet  HTTPMethod = "GET"
	HTTPMethodPost HTTPMethod = "POST"
)

// IDParam is the query/body key carrying the click id
type IDParam string

const (
	IDParamSubID   IDParam = "subid"
	IDParamClickID IDParam = "clickid"
)

// Outbox event types
const (
	OutboxEventConversionChanged = "conversion.changed"
)
