package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"cpa-server/internal/observability"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const conversionColumns = `id, advertiser_id, type, txid, clickid, partner_id, campaign_id, offer_id, flow_id, revenue, currency, status, antifraud_level, antifraud_score, details, created_at, updated_at`

const sqlGetConversionByKey = `
SELECT ` + conversionColumns + `
FROM conversions
WHERE advertiser_id = $1 AND type = $2 AND txid = $3
`

// GetConversionByKey retrieves a conversion by its natural key
func (s *Store) GetConversionByKey(ctx context.Context, key ConversionKey) (Conversion, error) {
	var conversion Conversion
	err := s.db.GetContext(ctx, &conversion, sqlGetConversionByKey, key.AdvertiserID, key.Type, key.TxID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Conversion{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to get conversion by key", err)
		return Conversion{}, fmt.Errorf("failed to get conversion by key: %w", err)
	}
	return conversion, nil
}

const sqlGetConversionByID = `
SELECT ` + conversionColumns + `
FROM conversions
WHERE id = $1
`

// GetConversionByID retrieves a conversion by ID
func (s *Store) GetConversionByID(ctx context.Context, conversionID uuid.UUID) (Conversion, error) {
	var conversion Conversion
	err := s.db.GetContext(ctx, &conversion, sqlGetConversionByID, conversionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Conversion{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to get conversion", err)
		return Conversion{}, fmt.Errorf("failed to get conversion: %w", err)
	}
	return conversion, nil
}

const sqlLockConversionByKey = sqlGetConversionByKey + `FOR UPDATE`

const sqlInsertConversion = `
INSERT INTO conversions (advertiser_id, type, txid, clickid, partner_id, campaign_id, offer_id, flow_id, revenue, currency, status, antifraud_level, antifraud_score, details)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (advertiser_id, type, txid) DO NOTHING
RETURNING ` + conversionColumns

const sqlUpdateConversion = `
UPDATE conversions
SET clickid = $2,
    partner_id = $3,
    campaign_id = $4,
    offer_id = $5,
    flow_id = $6,
    revenue = $7,
    currency = $8,
    status = $9,
    antifraud_level = $10,
    antifraud_score = $11,
    details = $12,
    updated_at = CURRENT_TIMESTAMP
WHERE id = $1
RETURNING ` + conversionColumns

const sqlInsertOutboxEvent = `
INSERT INTO conversion_outbox (conversion_id, event_type, payload)
VALUES ($1, $2, $3)
RETURNING id, conversion_id, event_type, payload, attempts, created_at, published_at
`

// ConversionMutator computes the record to persist from the locked existing
// record (nil when the key has not been seen). The returned bool reports
// whether a delivery task should be recorded in the outbox.
type ConversionMutator func(existing *Conversion) (next Conversion, emit bool, err error)

// UpsertConversionResult describes what UpsertConversion persisted
type UpsertConversionResult struct {
	Conversion Conversion
	Previous   *Conversion
	Created    bool
	// Outbox is set when the mutator asked for a delivery task
	Outbox *OutboxEvent
}

// UpsertConversion creates or updates the conversion identified by key inside a
// single transaction. Updates to the same key are serialized by a row lock and
// the outbox row, if any, commits atomically with the conversion.
func (s *Store) UpsertConversion(ctx context.Context, key ConversionKey, mutate ConversionMutator) (result UpsertConversionResult, err error) {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "advertiser_id", Value: key.AdvertiserID},
		observability.Field{Key: "conversion_type", Value: key.Type},
		observability.Field{Key: "txid", Value: key.TxID},
	)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.Error(ctx, "failed to begin transaction", err)
		return UpsertConversionResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Error(ctx, "failed to rollback transaction", rbErr)
			}
		}
	}()

	existing, err := lockConversion(ctx, tx, key)
	if err != nil {
		s.logger.Error(ctx, "failed to lock conversion", err)
		return UpsertConversionResult{}, err
	}

	var (
		stored Conversion
		emit   bool
	)
	if existing == nil {
		var next Conversion
		next, emit, err = mutate(nil)
		if err != nil {
			return UpsertConversionResult{}, err
		}

		err = tx.GetContext(ctx, &stored, sqlInsertConversion,
			key.AdvertiserID, key.Type, key.TxID,
			next.ClickID, next.PartnerID, next.CampaignID, next.OfferID, next.FlowID,
			next.Revenue, next.Currency, next.Status,
			next.AntifraudLevel, next.AntifraudScore, detailsOrEmpty(next.Details))
		switch {
		case err == nil:
			result.Created = true
		case errors.Is(err, sql.ErrNoRows):
			// Lost the insert race; the winner's row is now visible and lockable.
			existing, err = lockConversion(ctx, tx, key)
			if err != nil {
				s.logger.Error(ctx, "failed to lock conversion after insert conflict", err)
				return UpsertConversionResult{}, err
			}
			if existing == nil {
				return UpsertConversionResult{}, fmt.Errorf("conversion vanished after insert conflict")
			}
		default:
			s.logger.Error(ctx, "failed to insert conversion", err)
			return UpsertConversionResult{}, fmt.Errorf("failed to insert conversion: %w", err)
		}
	}

	if existing != nil {
		var next Conversion
		next, emit, err = mutate(existing)
		if err != nil {
			return UpsertConversionResult{}, err
		}

		err = tx.GetContext(ctx, &stored, sqlUpdateConversion,
			existing.ID,
			next.ClickID, next.PartnerID, next.CampaignID, next.OfferID, next.FlowID,
			next.Revenue, next.Currency, next.Status,
			next.AntifraudLevel, next.AntifraudScore, detailsOrEmpty(next.Details))
		if err != nil {
			s.logger.Error(ctx, "failed to update conversion", err)
			return UpsertConversionResult{}, fmt.Errorf("failed to update conversion: %w", err)
		}
		result.Previous = existing
	}

	if emit {
		payload, marshalErr := json.Marshal(stored)
		if marshalErr != nil {
			err = fmt.Errorf("failed to marshal outbox payload: %w", marshalErr)
			return UpsertConversionResult{}, err
		}

		var event OutboxEvent
		err = tx.GetContext(ctx, &event, sqlInsertOutboxEvent, stored.ID, OutboxEventConversionChanged, RawJSON(payload))
		if err != nil {
			s.logger.Error(ctx, "failed to insert outbox event", err)
			return UpsertConversionResult{}, fmt.Errorf("failed to insert outbox event: %w", err)
		}
		result.Outbox = &event
	}

	if err = tx.Commit(); err != nil {
		s.logger.Error(ctx, "failed to commit transaction", err)
		return UpsertConversionResult{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	result.Conversion = stored
	return result, nil
}

func lockConversion(ctx context.Context, tx *sqlx.Tx, key ConversionKey) (*Conversion, error) {
	var conversion Conversion
	err := tx.GetContext(ctx, &conversion, sqlLockConversionByKey, key.AdvertiserID, key.Type, key.TxID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock conversion: %w", err)
	}
	return &conversion, nil
}

func detailsOrEmpty(details JSONB) JSONB {
	if details == nil {
		return JSONB{}
	}
	return details
}
