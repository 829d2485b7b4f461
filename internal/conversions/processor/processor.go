package processor

//go:generate go run go.uber.org/mock/mockgen@latest -source=processor.go -destination=mocks_test.go -package=processor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cpa-server/internal/clock"
	"cpa-server/internal/conversions/status"
	"cpa-server/internal/metrics"
	"cpa-server/internal/observability"
	"cpa-server/internal/store"
	"cpa-server/internal/workers"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultDeliveriesLimit = 100
	maxDeliveriesLimit     = 500
)

// ConversionStore defines the database operations required by ConversionProcessor
type ConversionStore interface {
	GetConversionByKey(ctx context.Context, key store.ConversionKey) (store.Conversion, error)
	GetConversionByID(ctx context.Context, conversionID uuid.UUID) (store.Conversion, error)
	UpsertConversion(ctx context.Context, key store.ConversionKey, mutate store.ConversionMutator) (store.UpsertConversionResult, error)
	MarkOutboxDispatched(ctx context.Context, id int64) error
	ListDeliveryAttemptsByConversion(ctx context.Context, conversionID uuid.UUID, limit, offset int) ([]store.DeliveryAttempt, error)
}

// TaskPublisher hands delivery tasks to the dispatcher
type TaskPublisher interface {
	Publish(ctx context.Context, task workers.Task) error
}

type ConversionProcessor struct {
	store     ConversionStore
	publisher TaskPublisher
	clock     clock.Clock
	logger    *observability.Logger
	metrics   *metrics.Metrics
}

func New(conversionStore ConversionStore, publisher TaskPublisher, clk clock.Clock, logger *observability.Logger, m *metrics.Metrics) ConversionProcessor {
	return ConversionProcessor{
		store:     conversionStore,
		publisher: publisher,
		clock:     clk,
		logger:    logger,
		metrics:   m,
	}
}

// Ingest validates an observation, folds it into the stored conversion and,
// when the conversion was created or its status changed, schedules postbacks.
func (p *ConversionProcessor) Ingest(ctx context.Context, params IngestParams) (IngestResult, error) {
	in, err := validateParams(params)
	if err != nil {
		return IngestResult{}, err
	}

	ctx = observability.WithFields(ctx,
		observability.Field{Key: "channel", Value: params.Channel},
		observability.Field{Key: "advertiser_id", Value: in.key.AdvertiserID},
		observability.Field{Key: "conversion_type", Value: in.key.Type},
		observability.Field{Key: "txid", Value: in.key.TxID},
	)

	lookup := func() (*store.Conversion, error) {
		return p.findRegistration(ctx, in.key)
	}

	upserted, err := p.store.UpsertConversion(ctx, in.key, mergeConversion(in, lookup))
	if err != nil {
		p.logger.Error(ctx, "failed to upsert conversion", err)
		return IngestResult{}, fmt.Errorf("failed to upsert conversion: %w", err)
	}

	result := IngestResult{
		Conversion:         upserted.Conversion,
		Created:            upserted.Created,
		PostbacksTriggered: upserted.Outbox != nil,
	}
	if upserted.Previous != nil {
		prev := upserted.Previous.Status
		result.PreviousStatus = &prev
	}

	ctx = observability.WithFields(ctx, observability.Field{Key: "conversion_id", Value: result.Conversion.ID})
	p.metrics.ConversionIngested(params.Channel, string(in.key.Type), result.Created)

	if result.PreviousStatus != nil && *result.PreviousStatus != result.Conversion.Status {
		p.logger.Info(ctx, fmt.Sprintf("conversion status %s -> %s", *result.PreviousStatus, result.Conversion.Status))
	} else if result.PreviousStatus != nil && in.status != result.Conversion.Status {
		p.logger.Info(ctx, fmt.Sprintf("transition to %s rejected, conversion stays %s", in.status, result.Conversion.Status))
	}

	if upserted.Outbox != nil {
		p.metrics.PostbackTriggered()
		p.publish(ctx, result.Conversion, upserted.Outbox.ID)
	}

	return result, nil
}

// publish hands the task to the dispatcher and starts the outbox lease. The
// row is marked published by the dispatcher once every postback is settled;
// until then the relay republishes it after the grace or lease expires.
func (p *ConversionProcessor) publish(ctx context.Context, conversion store.Conversion, outboxID int64) {
	task := workers.NewTask(conversion, outboxID, p.clock.Now())
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "task_id", Value: task.ID},
		observability.Field{Key: "outbox_id", Value: outboxID},
	)

	if err := p.publisher.Publish(ctx, task); err != nil {
		p.logger.InfoWithError(ctx, "delivery task not published, outbox relay will retry", err)
		return
	}
	if err := p.store.MarkOutboxDispatched(ctx, outboxID); err != nil {
		p.logger.Error(ctx, "failed to mark outbox event dispatched", err)
	}
}

// findRegistration returns the reg conversion sharing the purchase's txid
func (p *ConversionProcessor) findRegistration(ctx context.Context, key store.ConversionKey) (*store.Conversion, error) {
	reg, err := p.store.GetConversionByKey(ctx, store.ConversionKey{
		AdvertiserID: key.AdvertiserID,
		Type:         status.TypeReg,
		TxID:         key.TxID,
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		p.logger.Error(ctx, "failed to look up registration for purchase", err)
		return nil, fmt.Errorf("failed to look up registration: %w", err)
	}
	return &reg, nil
}

// siblingLookup finds the registration a new purchase inherits attribution from
type siblingLookup func() (*store.Conversion, error)

// mergeConversion returns the mutator applied under the row lock. The sibling
// lookup only runs when the key is new and the purchase has no clickid.
func mergeConversion(in input, lookup siblingLookup) store.ConversionMutator {
	return func(existing *store.Conversion) (store.Conversion, bool, error) {
		if existing == nil {
			var sibling *store.Conversion
			if in.key.Type == status.TypePurchase && in.clickID == nil && lookup != nil {
				var err error
				if sibling, err = lookup(); err != nil {
					return store.Conversion{}, false, err
				}
			}

			next := store.Conversion{
				AdvertiserID:   in.key.AdvertiserID,
				Type:           in.key.Type,
				TxID:           in.key.TxID,
				PartnerID:      in.partnerID,
				CampaignID:     in.campaignID,
				OfferID:        in.offerID,
				FlowID:         in.flowID,
				Revenue:        decimal.Zero,
				Currency:       defaultCurrency,
				Status:         status.Normalize(nil, in.status, in.key.Type),
				AntifraudLevel: in.antifraudLevel,
				AntifraudScore: in.antifraudScore,
				Details:        store.JSONB{}.Merge(in.details),
			}
			if in.clickID != nil {
				next.ClickID = *in.clickID
			}
			if in.revenue != nil {
				next.Revenue = *in.revenue
			}
			if in.currency != nil {
				next.Currency = *in.currency
			}
			if sibling != nil {
				inheritAttribution(&next, *sibling)
			}
			return next, true, nil
		}

		next := *existing
		prev := existing.Status
		next.Status = status.Normalize(&prev, in.status, in.key.Type)
		next.Details = existing.Details.Merge(in.details)

		if in.clickID != nil {
			next.ClickID = *in.clickID
		}
		if in.revenue != nil {
			next.Revenue = *in.revenue
		}
		if in.currency != nil {
			next.Currency = *in.currency
		}
		if in.partnerID != nil {
			next.PartnerID = in.partnerID
		}
		if in.campaignID != nil {
			next.CampaignID = in.campaignID
		}
		if in.offerID != nil {
			next.OfferID = in.offerID
		}
		if in.flowID != nil {
			next.FlowID = in.flowID
		}
		if in.antifraudLevel != nil {
			next.AntifraudLevel = in.antifraudLevel
		}
		if in.antifraudScore != nil {
			next.AntifraudScore = in.antifraudScore
		}

		return next, next.Status != existing.Status, nil
	}
}

// inheritAttribution copies click and attribution ids the purchase lacks from
// its registration
func inheritAttribution(purchase *store.Conversion, reg store.Conversion) {
	if purchase.ClickID == "" {
		purchase.ClickID = reg.ClickID
	}
	if purchase.PartnerID == nil {
		purchase.PartnerID = reg.PartnerID
	}
	if purchase.CampaignID == nil {
		purchase.CampaignID = reg.CampaignID
	}
	if purchase.OfferID == nil {
		purchase.OfferID = reg.OfferID
	}
	if purchase.FlowID == nil {
		purchase.FlowID = reg.FlowID
	}
}

// ListDeliveries returns the delivery log of a conversion owned by the
// advertiser, oldest first. Conversions of other advertisers are reported as
// not found.
func (p *ConversionProcessor) ListDeliveries(ctx context.Context, advertiserID, conversionID string, limit, offset int) ([]store.DeliveryAttempt, error) {
	owner, err := uuid.Parse(strings.TrimSpace(advertiserID))
	if err != nil || owner == uuid.Nil {
		return nil, ErrInvalidAdvertiser
	}

	id, err := uuid.Parse(strings.TrimSpace(conversionID))
	if err != nil {
		return nil, &InputError{Fields: []FieldError{{Field: "conversion_id", Message: "conversion_id must be a valid UUID"}}}
	}

	if limit <= 0 {
		limit = defaultDeliveriesLimit
	}
	if limit > maxDeliveriesLimit {
		limit = maxDeliveriesLimit
	}
	if offset < 0 {
		offset = 0
	}

	ctx = observability.WithFields(ctx, observability.Field{Key: "conversion_id", Value: id})

	conversion, err := p.store.GetConversionByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrConversionNotFound
	}
	if err != nil {
		p.logger.Error(ctx, "failed to get conversion", err)
		return nil, fmt.Errorf("failed to get conversion: %w", err)
	}
	if conversion.AdvertiserID != owner {
		return nil, ErrConversionNotFound
	}

	attempts, err := p.store.ListDeliveryAttemptsByConversion(ctx, id, limit, offset)
	if err != nil {
		p.logger.Error(ctx, "failed to list delivery attempts", err)
		return nil, fmt.Errorf("failed to list delivery attempts: %w", err)
	}
	if attempts == nil {
		attempts = []store.DeliveryAttempt{}
	}
	return attempts, nil
}
