package status

import "strings"

var pspStatuses = map[string]Status{
	"success":    Approved,
	"succeeded":  Approved,
	"paid":       Approved,
	"completed":  Approved,
	"processing": Pending,
	"created":    Pending,
	"failed":     Declined,
	"rejected":   Declined,
	"canceled":   Declined,
	"cancelled":  Declined,
	"refund":     Refunded,
	"reversed":   Chargeback,
	"dispute":    Chargeback,
	"disputed":   Chargeback,
}

var affiliateStatuses = map[string]Status{
	"hold":      Pending,
	"on_hold":   Pending,
	"confirmed": Approved,
	"accepted":  Approved,
	"rejected":  Declined,
	"trash":     Declined,
	"new":       Initiated,
}

var keitaroStatuses = map[string]Status{
	"lead":     Approved,
	"sale":     Approved,
	"rebill":   Approved,
	"trash":    Declined,
	"rejected": Declined,
	"hold":     Pending,
	"refund":   Refunded,
}

var vocabularies = map[Source]map[string]Status{
	SourcePSP:       pspStatuses,
	SourceAffiliate: affiliateStatuses,
	SourceKeitaro:   keitaroStatuses,
}

// MapExternalStatus translates a status reported by an external system into
// the canonical vocabulary. Canonical names map to themselves unless the
// source's table says otherwise; anything unrecognized becomes Pending.
func MapExternalStatus(external string, source Source) Status {
	key := strings.ToLower(strings.TrimSpace(external))

	if mapped, ok := vocabularies[source][key]; ok {
		return mapped
	}
	if canonical := Status(key); canonical.Valid() {
		return canonical
	}
	return Pending
}
