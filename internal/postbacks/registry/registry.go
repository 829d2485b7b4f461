// Package registry resolves the postback profiles that apply to a conversion.
package registry

//go:generate go run go.uber.org/mock/mockgen@latest -source=registry.go -destination=mocks_test.go -package=registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"cpa-server/internal/clients/redis"
	"cpa-server/internal/observability"
	"cpa-server/internal/postbacks/render"
	"cpa-server/internal/store"

	"github.com/google/uuid"
)

const cacheKeyPrefix = "postback_profiles:"

// ProfileStore loads profiles from the database
type ProfileStore interface {
	ListEnabledProfilesByAdvertiser(ctx context.Context, advertiserID uuid.UUID) ([]store.PostbackProfile, error)
}

// Cache stores serialized profile lists per advertiser
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error
}

// Profile is a postback profile with its compiled status table
type Profile struct {
	store.PostbackProfile
	Statuses render.StatusTable
}

type Registry struct {
	store  ProfileStore
	cache  Cache
	ttl    time.Duration
	logger *observability.Logger
}

// Option configures a Registry
type Option func(*Registry)

// WithCache caches each advertiser's profile list for ttl
func WithCache(cache Cache, ttl time.Duration) Option {
	return func(r *Registry) {
		r.cache = cache
		r.ttl = ttl
	}
}

func New(profileStore ProfileStore, logger *observability.Logger, opts ...Option) *Registry {
	r := &Registry{
		store:  profileStore,
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ListEnabled returns every enabled profile that applies to the conversion,
// ordered by priority, then scope specificity, then creation time.
func (r *Registry) ListEnabled(ctx context.Context, conversion store.Conversion) ([]Profile, error) {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "advertiser_id", Value: conversion.AdvertiserID},
		observability.Field{Key: "conversion_id", Value: conversion.ID},
	)

	all, err := r.load(ctx, conversion.AdvertiserID)
	if err != nil {
		return nil, err
	}

	profiles := make([]Profile, 0, len(all))
	for _, p := range all {
		if !Matches(p, conversion) {
			continue
		}

		statuses, err := render.CompileStatusTable(p.StatusMap)
		if err != nil {
			r.logger.Error(observability.WithFields(ctx, observability.Field{Key: "profile_id", Value: p.ID}),
				"excluding postback profile with invalid status map", err)
			continue
		}
		if missing := statuses.Missing(); len(missing) > 0 {
			r.logger.Warn(observability.WithFields(ctx, observability.Field{Key: "profile_id", Value: p.ID}),
				fmt.Sprintf("status map has no entry for %s, canonical status will be sent", strings.Join(missing, ", ")))
		}

		profiles = append(profiles, Profile{PostbackProfile: p, Statuses: statuses})
	}

	Sort(profiles)
	return profiles, nil
}

func (r *Registry) load(ctx context.Context, advertiserID uuid.UUID) ([]store.PostbackProfile, error) {
	if r.cache != nil {
		cached, err := r.cache.Get(ctx, cacheKey(advertiserID))
		switch {
		case err == nil:
			var profiles []store.PostbackProfile
			if err := json.Unmarshal(cached, &profiles); err == nil {
				return profiles, nil
			}
			r.logger.Warn(ctx, "discarding undecodable cached profile list")
		case errors.Is(err, redis.ErrCacheMiss):
		default:
			r.logger.Error(ctx, "profile cache lookup failed, falling back to database", err)
		}
	}

	profiles, err := r.store.ListEnabledProfilesByAdvertiser(ctx, advertiserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load postback profiles: %w", err)
	}

	if r.cache != nil {
		if encoded, err := json.Marshal(profiles); err == nil {
			if err := r.cache.Set(ctx, cacheKey(advertiserID), encoded, r.ttl); err != nil {
				r.logger.Error(ctx, "failed to cache profile list", err)
			}
		}
	}
	return profiles, nil
}

// Matches reports whether the profile's owner and scope apply to the conversion
func Matches(p store.PostbackProfile, c store.Conversion) bool {
	if !p.Enabled || p.AdvertiserID != c.AdvertiserID {
		return false
	}

	if p.OwnerScope == store.OwnerScopePartner {
		if c.PartnerID == nil || *c.PartnerID != p.OwnerID {
			return false
		}
	}

	switch p.ScopeType {
	case store.ScopeTypeGlobal, "":
		return true
	case store.ScopeTypeCampaign:
		return equalID(p.ScopeID, c.CampaignID)
	case store.ScopeTypeOffer:
		return equalID(p.ScopeID, c.OfferID)
	case store.ScopeTypeFlow:
		return equalID(p.ScopeID, c.FlowID)
	default:
		return false
	}
}

// Sort orders profiles by priority desc, specificity desc, then created_at asc
func Sort(profiles []Profile) {
	sort.SliceStable(profiles, func(i, j int) bool {
		a, b := profiles[i], profiles[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if sa, sb := a.ScopeType.Specificity(), b.ScopeType.Specificity(); sa != sb {
			return sa > sb
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

func equalID(scopeID, conversionID *string) bool {
	return scopeID != nil && conversionID != nil && *scopeID == *conversionID
}

func cacheKey(advertiserID uuid.UUID) string {
	return cacheKeyPrefix + advertiserID.String()
}
