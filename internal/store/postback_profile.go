package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

const profileColumns = `id, advertiser_id, owner_scope, owner_id, scope_type, scope_id, name, enabled, priority,
endpoint_url, method, id_param, params_template, status_map,
auth_query_key, auth_query_value, auth_header_name, auth_header_value,
hmac_enabled, hmac_secret, hmac_payload_tpl, hmac_param_name,
retries, timeout_ms, backoff_base_sec,
filter_revenue_gt0, country_allow, country_deny, exclude_bots, antifraud_policy,
created_at, updated_at`

const sqlListEnabledProfilesByAdvertiser = `
SELECT ` + profileColumns + `
FROM postback_profiles
WHERE advertiser_id = $1 AND enabled = TRUE
ORDER BY priority DESC, created_at ASC
`

// ListEnabledProfilesByAdvertiser retrieves the enabled postback profiles of an
// advertiser, highest priority first
func (s *Store) ListEnabledProfilesByAdvertiser(ctx context.Context, advertiserID uuid.UUID) ([]PostbackProfile, error) {
	var profiles []PostbackProfile
	err := s.db.SelectContext(ctx, &profiles, sqlListEnabledProfilesByAdvertiser, advertiserID)
	if err != nil {
		s.logger.Error(ctx, "failed to list enabled postback profiles", err)
		return nil, fmt.Errorf("failed to list enabled postback profiles: %w", err)
	}
	return profiles, nil
}
