// Package antifraud decides which postback profiles may fire for a conversion.
package antifraud

import (
	"fmt"
	"strings"

	"cpa-server/internal/conversions/status"
	"cpa-server/internal/store"
)

// Reason explains why a profile was skipped
type Reason string

const (
	ReasonBlockedHard    Reason = "blocked_by_af_hard"
	ReasonSoftNonPending Reason = "soft_af_non_pending_blocked"
	ReasonRevenueFilter  Reason = "revenue_filter_failed"
	ReasonCountryFilter  Reason = "country_filter_failed"
	ReasonBotFiltered    Reason = "bot_filtered"
)

// Verdict is the gate's decision for one profile
type Verdict struct {
	Allowed bool
	Reason  Reason
	// Detail carries diagnostics recorded alongside the skip
	Detail string
	// Log reports whether the skip must be written to the delivery log
	Log bool
}

// Message is the text stored in the delivery log error column
func (v Verdict) Message() string {
	if v.Detail == "" {
		return string(v.Reason)
	}
	return fmt.Sprintf("%s: %s", v.Reason, v.Detail)
}

// Evaluate returns one verdict per profile, in the same order. A hard level
// blocks every profile; otherwise the first failing filter wins.
func Evaluate(conversion store.Conversion, profiles []store.PostbackProfile) []Verdict {
	verdicts := make([]Verdict, len(profiles))

	if conversion.Level() == store.AntifraudLevelHard {
		for i, p := range profiles {
			verdicts[i] = Verdict{Reason: ReasonBlockedHard, Log: p.AntifraudPolicy.LogBlocked}
		}
		return verdicts
	}

	for i, p := range profiles {
		verdicts[i] = evaluateProfile(conversion, p)
	}
	return verdicts
}

func evaluateProfile(conversion store.Conversion, p store.PostbackProfile) Verdict {
	if conversion.Level() == store.AntifraudLevelSoft && p.AntifraudPolicy.SoftOnlyPending && conversion.Status != status.Pending {
		return skip(ReasonSoftNonPending, "status="+conversion.Status.String())
	}

	if p.FilterRevenueGt0 && !conversion.Revenue.IsPositive() {
		return skip(ReasonRevenueFilter, "")
	}

	if len(p.CountryAllow) > 0 || len(p.CountryDeny) > 0 {
		country := strings.ToUpper(conversion.Details.String("country"))
		if len(p.CountryAllow) > 0 && !containsFold(p.CountryAllow, country) {
			return skip(ReasonCountryFilter, "country="+country)
		}
		if containsFold(p.CountryDeny, country) {
			return skip(ReasonCountryFilter, "country="+country)
		}
	}

	if p.ExcludeBots && isBot(conversion.Details) {
		return skip(ReasonBotFiltered, "")
	}

	return Verdict{Allowed: true}
}

func skip(reason Reason, detail string) Verdict {
	return Verdict{Reason: reason, Detail: detail, Log: true}
}

func containsFold(list []string, value string) bool {
	if value == "" {
		return false
	}
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), value) {
			return true
		}
	}
	return false
}

func isBot(details store.JSONB) bool {
	switch v := details["is_bot"].(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "1"
	case float64:
		return v != 0
	}
	return false
}
