package store

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cpa-server/internal/conversions/status"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// JSONB is a custom type for JSONB fields
type JSONB map[string]interface{}

// Value implements the driver.Valuer interface for JSONB
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface for JSONB
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("incompatible type for JSONB")
	}

	// Handle empty or null JSON
	if len(bytes) == 0 || string(bytes) == "null" {
		*j = make(JSONB)
		return nil
	}

	result := make(JSONB)
	if err := json.Unmarshal(bytes, &result); err != nil {
		return err
	}
	*j = result
	return nil
}

// Merge returns a copy of j with every key of other applied on top
func (j JSONB) Merge(other map[string]interface{}) JSONB {
	merged := make(JSONB, len(j)+len(other))
	for k, v := range j {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}

// String returns the value under key when it is a non-empty string
func (j JSONB) String(key string) string {
	if v, ok := j[key].(string); ok {
		return v
	}
	return ""
}

// StringArray is a custom type for PostgreSQL text[] arrays
type StringArray []string

// Value implements the driver.Valuer interface for StringArray. Elements are
// encoded as a text[] literal, quoted and escaped where needed.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	// pgtype.Map caches plans and is not safe for concurrent use
	buf, err := pgtype.NewMap().Encode(pgtype.TextArrayOID, pgtype.TextFormatCode, []string(a), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to encode StringArray: %w", err)
	}
	return string(buf), nil
}

// Scan implements the sql.Scanner interface for StringArray
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}

	var src []byte
	switch v := value.(type) {
	case []byte:
		src = v
	case string:
		src = []byte(v)
	default:
		return fmt.Errorf("unsupported type for StringArray: %T", value)
	}

	var elems []string
	if err := pgtype.NewMap().Scan(pgtype.TextArrayOID, pgtype.TextFormatCode, src, &elems); err != nil {
		return fmt.Errorf("failed to scan StringArray: %w", err)
	}
	if elems == nil {
		elems = []string{}
	}
	*a = elems
	return nil
}

// RawJSON holds an opaque JSON document. Scan copies the driver buffer.
type RawJSON []byte

// Value implements the driver.Valuer interface for RawJSON
func (r RawJSON) Value() (driver.Value, error) {
	if len(r) == 0 {
		return nil, nil
	}
	return string(r), nil
}

// Scan implements the sql.Scanner interface for RawJSON
func (r *RawJSON) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*r = nil
	case []byte:
		*r = append(RawJSON(nil), v...)
	case string:
		*r = RawJSON(v)
	default:
		return fmt.Errorf("unsupported type for RawJSON: %T", value)
	}
	return nil
}

// ConversionKey is the natural key of a conversion
type ConversionKey struct {
	AdvertiserID uuid.UUID
	Type         status.Type
	TxID         string
}

// Conversion is the canonical record of a tracked action
type Conversion struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	AdvertiserID   uuid.UUID       `db:"advertiser_id" json:"advertiser_id"`
	Type           status.Type     `db:"type" json:"type"`
	TxID           string          `db:"txid" json:"txid"`
	ClickID        string          `db:"clickid" json:"clickid"`
	PartnerID      *string         `db:"partner_id" json:"partner_id,omitempty"`
	CampaignID     *string         `db:"campaign_id" json:"campaign_id,omitempty"`
	OfferID        *string         `db:"offer_id" json:"offer_id,omitempty"`
	FlowID         *string         `db:"flow_id" json:"flow_id,omitempty"`
	Revenue        decimal.Decimal `db:"revenue" json:"revenue"`
	Currency       string          `db:"currency" json:"currency"`
	Status         status.Status   `db:"status" json:"status"`
	AntifraudLevel *AntifraudLevel `db:"antifraud_level" json:"antifraud_level,omitempty"`
	AntifraudScore *float64        `db:"antifraud_score" json:"antifraud_score,omitempty"`
	Details        JSONB           `db:"details" json:"details"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// Key returns the natural key of the conversion
func (c Conversion) Key() ConversionKey {
	return ConversionKey{AdvertiserID: c.AdvertiserID, Type: c.Type, TxID: c.TxID}
}

// Level returns the antifraud level, treating an absent level as ok
func (c Conversion) Level() AntifraudLevel {
	if c.AntifraudLevel == nil {
		return AntifraudLevelOK
	}
	return *c.AntifraudLevel
}

// AntifraudPolicy controls how a profile treats flagged conversions
type AntifraudPolicy struct {
	BlockHard       bool `json:"blockHard"`
	SoftOnlyPending bool `json:"softOnlyPending"`
	LogBlocked      bool `json:"logBlocked"`
}

// DefaultAntifraudPolicy is applied when a profile has no stored policy
func DefaultAntifraudPolicy() AntifraudPolicy {
	return AntifraudPolicy{BlockHard: true, LogBlocked: true}
}

// Value implements the driver.Valuer interface for AntifraudPolicy
func (p AntifraudPolicy) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements the sql.Scanner interface for AntifraudPolicy
func (p *AntifraudPolicy) Scan(value interface{}) error {
	var bytes []byte
	switch v := value.(type) {
	case nil:
		*p = DefaultAntifraudPolicy()
		return nil
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported type for AntifraudPolicy: %T", value)
	}

	policy := DefaultAntifraudPolicy()
	if len(bytes) > 0 && string(bytes) != "null" {
		if err := json.Unmarshal(bytes, &policy); err != nil {
			return err
		}
	}
	*p = policy
	return nil
}

// StatusMap is the stored per-type destination status vocabulary:
// {"purchase": {"approved": "sale"}}
type StatusMap map[string]map[string]string

// Value implements the driver.Valuer interface for StatusMap
func (m StatusMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface for StatusMap
func (m *StatusMap) Scan(value interface{}) error {
	var bytes []byte
	switch v := value.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported type for StatusMap: %T", value)
	}

	result := StatusMap{}
	if len(bytes) > 0 && string(bytes) != "null" {
		if err := json.Unmarshal(bytes, &result); err != nil {
			return err
		}
	}
	*m = result
	return nil
}

// StringMap is a JSONB object of string values
type StringMap map[string]string

// Value implements the driver.Valuer interface for StringMap
func (m StringMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface for StringMap
func (m *StringMap) Scan(value interface{}) error {
	var bytes []byte
	switch v := value.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported type for StringMap: %T", value)
	}

	result := StringMap{}
	if len(bytes) > 0 && string(bytes) != "null" {
		if err := json.Unmarshal(bytes, &result); err != nil {
			return err
		}
	}
	*m = result
	return nil
}

// PostbackProfile is a configured outbound destination. Its JSON form carries
// credentials and is only written to the profile cache.
type PostbackProfile struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	AdvertiserID uuid.UUID  `db:"advertiser_id" json:"advertiser_id"`
	OwnerScope   OwnerScope `db:"owner_scope" json:"owner_scope"`
	OwnerID      string     `db:"owner_id" json:"owner_id"`
	ScopeType    ScopeType  `db:"scope_type" json:"scope_type"`
	ScopeID      *string    `db:"scope_id" json:"scope_id,omitempty"`
	Name         string     `db:"name" json:"name"`
	Enabled      bool       `db:"enabled" json:"enabled"`
	Priority     int        `db:"priority" json:"priority"`

	EndpointURL    string     `db:"endpoint_url" json:"endpoint_url"`
	Method         HTTPMethod `db:"method" json:"method"`
	IDParam        IDParam    `db:"id_param" json:"id_param"`
	ParamsTemplate StringMap  `db:"params_template" json:"params_template"`
	StatusMap      StatusMap  `db:"status_map" json:"status_map"`

	AuthQueryKey    *string `db:"auth_query_key" json:"auth_query_key,omitempty"`
	AuthQueryValue  *string `db:"auth_query_value" json:"auth_query_value,omitempty"`
	AuthHeaderName  *string `db:"auth_header_name" json:"auth_header_name,omitempty"`
	AuthHeaderValue *string `db:"auth_header_value" json:"auth_header_value,omitempty"`

	HMACEnabled    bool    `db:"hmac_enabled" json:"hmac_enabled"`
	HMACSecret     *string `db:"hmac_secret" json:"hmac_secret,omitempty"`
	HMACPayloadTpl *string `db:"hmac_payload_tpl" json:"hmac_payload_tpl,omitempty"`
	HMACParamName  *string `db:"hmac_param_name" json:"hmac_param_name,omitempty"`

	Retries        int `db:"retries" json:"retries"`
	TimeoutMs      int `db:"timeout_ms" json:"timeout_ms"`
	BackoffBaseSec int `db:"backoff_base_sec" json:"backoff_base_sec"`

	FilterRevenueGt0 bool            `db:"filter_revenue_gt0" json:"filter_revenue_gt0"`
	CountryAllow     StringArray     `db:"country_allow" json:"country_allow"`
	CountryDeny      StringArray     `db:"country_deny" json:"country_deny"`
	ExcludeBots      bool            `db:"exclude_bots" json:"exclude_bots"`
	AntifraudPolicy  AntifraudPolicy `db:"antifraud_policy" json:"antifraud_policy"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Profile reliability defaults
const (
	DefaultRetries        = 5
	DefaultTimeoutMs      = 4000
	DefaultBackoffBaseSec = 2
	DefaultHMACParamName  = "sig"
)

// MaxAttempts returns the configured retry count or the default
func (p PostbackProfile) MaxAttempts() int {
	if p.Retries <= 0 {
		return DefaultRetries
	}
	return p.Retries
}

// Timeout returns the per-attempt deadline
func (p PostbackProfile) Timeout() time.Duration {
	if p.TimeoutMs <= 0 {
		return DefaultTimeoutMs * time.Millisecond
	}
	return time.Duration(p.TimeoutMs) * time.Millisecond
}

// BackoffBase returns the retry backoff base
func (p PostbackProfile) BackoffBase() time.Duration {
	if p.BackoffBaseSec <= 0 {
		return DefaultBackoffBaseSec * time.Second
	}
	return time.Duration(p.BackoffBaseSec) * time.Second
}

// DeliveryAttempt is one row of the append-only postback delivery log
type DeliveryAttempt struct {
	ID             uuid.UUID `db:"id" json:"id"`
	ProfileID      uuid.UUID `db:"profile_id" json:"profile_id"`
	ConversionID   uuid.UUID `db:"conversion_id" json:"conversion_id"`
	Attempt        int       `db:"attempt" json:"attempt"`
	MaxAttempts    int       `db:"max_attempts" json:"max_attempts"`
	Success        bool      `db:"success" json:"success"`
	RequestMethod  string    `db:"request_method" json:"request_method"`
	RequestURL     string    `db:"request_url" json:"request_url"`
	RequestBody    *string   `db:"request_body" json:"request_body,omitempty"`
	RequestHeaders StringMap `db:"request_headers" json:"request_headers,omitempty"`
	ResponseCode   *int      `db:"response_code" json:"response_code,omitempty"`
	ResponseBody   *string   `db:"response_body" json:"response_body,omitempty"`
	DurationMs     *int      `db:"duration_ms" json:"duration_ms,omitempty"`
	Error          *string   `db:"error" json:"error,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// OutboxEvent records a delivery task that must reach the dispatcher
type OutboxEvent struct {
	ID           int64      `db:"id" json:"id"`
	ConversionID uuid.UUID  `db:"conversion_id" json:"conversion_id"`
	EventType    string     `db:"event_type" json:"event_type"`
	Payload      RawJSON    `db:"payload" json:"payload"`
	Attempts     int        `db:"attempts" json:"attempts"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	DispatchedAt *time.Time `db:"dispatched_at" json:"dispatched_at,omitempty"`
	PublishedAt  *time.Time `db:"published_at" json:"published_at,omitempty"`
}

// Conversion decodes the conversion snapshot carried by the event
func (e OutboxEvent) Conversion() (Conversion, error) {
	var c Conversion
	if err := json.Unmarshal(e.Payload, &c); err != nil {
		return Conversion{}, fmt.Errorf("failed to decode outbox payload %d: %w", e.ID, err)
	}
	return c, nil
}
