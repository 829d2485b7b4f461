// Package status holds the canonical conversion status state machine and the
// per-source vocabularies used to translate external statuses into it.
package status

import (
	"fmt"
	"strings"
)

// Status is a canonical conversion status.
type Status string

const (
	Initiated  Status = "initiated"
	Pending    Status = "pending"
	Approved   Status = "approved"
	Declined   Status = "declined"
	Refunded   Status = "refunded"
	Chargeback Status = "chargeback"
)

// Order is the canonical status order. Declined sits after approved but is a
// terminal sibling; it can never be reached once a later status is recorded.
var Order = []Status{Initiated, Pending, Approved, Declined, Refunded, Chargeback}

// Type is a conversion type.
type Type string

const (
	TypeReg      Type = "reg"
	TypePurchase Type = "purchase"
)

// Source identifies the vocabulary an external status comes from.
type Source string

const (
	SourceKeitaro   Source = "keitaro"
	SourceAffiliate Source = "affiliate"
	SourcePSP       Source = "psp"
)

// Index returns the position of s in Order, or -1 if s is not canonical.
func (s Status) Index() int {
	for i, candidate := range Order {
		if candidate == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is a canonical status.
func (s Status) Valid() bool {
	return s.Index() >= 0
}

// Reversal reports whether s undoes an approved conversion.
func (s Status) Reversal() bool {
	return s == Refunded || s == Chargeback
}

func (s Status) String() string {
	return string(s)
}

// Valid reports whether t is a known conversion type.
func (t Type) Valid() bool {
	return t == TypeReg || t == TypePurchase
}

func (t Type) String() string {
	return string(t)
}

// Valid reports whether src is a known status source.
func (src Source) Valid() bool {
	return src == SourceKeitaro || src == SourceAffiliate || src == SourcePSP
}

// ParseStatus parses a canonical status name.
func ParseStatus(value string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(value)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q", value)
	}
	return s, nil
}

// ParseType parses a conversion type.
func ParseType(value string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(value)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown conversion type %q", value)
	}
	return t, nil
}

// Normalize returns the status a conversion moves to when next is observed
// while prev is stored. Rejected transitions are clamped to prev.
func Normalize(prev *Status, next Status, t Type) Status {
	if prev == nil {
		return next
	}
	current := *prev

	if next.Reversal() {
		// Registrations carry no money to refund or charge back.
		if t == TypeReg {
			return current
		}
		if current == Approved {
			return next
		}
		return current
	}

	if next.Index() >= current.Index() {
		return next
	}
	return current
}

// AllowedNextStatuses lists every status a single Normalize call from current
// can land on for the given type, in canonical order.
func AllowedNextStatuses(current Status, t Type) []Status {
	allowed := make([]Status, 0, len(Order))
	for _, candidate := range Order {
		if Normalize(&current, candidate, t) == candidate {
			allowed = append(allowed, candidate)
		}
	}
	return allowed
}

// Ptr returns a pointer to s.
func Ptr(s Status) *Status {
	return &s
}
