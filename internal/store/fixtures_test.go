package store

import (
	"context"
	"testing"

	"cpa-server/internal/conversions/status"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// Fixtures provides factory functions for creating test data.
// All factory methods use testify/require to fail fast on errors.
type Fixtures struct {
	t      *testing.T
	testDB *TestDB
	ctx    context.Context
}

// NewFixtures creates a new Fixtures instance for test data generation.
func NewFixtures(t *testing.T, testDB *TestDB) *Fixtures {
	t.Helper()
	return &Fixtures{
		t:      t,
		testDB: testDB,
		ctx:    context.Background(),
	}
}

// ProfileOpts customizes profile creation.
type ProfileOpts struct {
	AdvertiserID uuid.UUID
	Name         string
	Enabled      bool
	Priority     int
	EndpointURL  string
}

// CreateProfile inserts a postback profile with raw SQL since profiles are
// managed outside this service.
func (f *Fixtures) CreateProfile(opts ...func(*ProfileOpts)) PostbackProfile {
	f.t.Helper()
	o := ProfileOpts{
		AdvertiserID: uuid.New(),
		Name:         "tracker",
		Enabled:      true,
		EndpointURL:  "https://tracker.example.com/postback",
	}
	for _, fn := range opts {
		fn(&o)
	}

	var id uuid.UUID
	err := f.testDB.GetDB().GetContext(f.ctx, &id, `
		INSERT INTO postback_profiles (advertiser_id, owner_id, name, enabled, priority, endpoint_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		o.AdvertiserID, o.AdvertiserID.String(), o.Name, o.Enabled, o.Priority, o.EndpointURL)
	require.NoError(f.t, err, "failed to create test profile")

	return PostbackProfile{ID: id, AdvertiserID: o.AdvertiserID, Name: o.Name, Enabled: o.Enabled, Priority: o.Priority}
}

// CreateConversion stores a conversion without an outbox event.
func (f *Fixtures) CreateConversion(key ConversionKey) Conversion {
	f.t.Helper()
	result, err := f.testDB.Store.UpsertConversion(f.ctx, key, func(existing *Conversion) (Conversion, bool, error) {
		return Conversion{
			ClickID:  "click-" + key.TxID,
			Revenue:  decimal.Zero,
			Currency: "USD",
			Status:   status.Pending,
		}, false, nil
	})
	require.NoError(f.t, err, "failed to create test conversion")
	return result.Conversion
}
