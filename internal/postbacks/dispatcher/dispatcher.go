// Package dispatcher fans a conversion change out to every applicable postback
// profile.
package dispatcher

//go:generate go run go.uber.org/mock/mockgen@latest -source=dispatcher.go -destination=mocks_test.go -package=dispatcher

import (
	"context"
	"fmt"

	"cpa-server/internal/clock"
	"cpa-server/internal/metrics"
	"cpa-server/internal/observability"
	"cpa-server/internal/postbacks/antifraud"
	"cpa-server/internal/postbacks/delivery"
	"cpa-server/internal/postbacks/registry"
	"cpa-server/internal/postbacks/render"
	"cpa-server/internal/store"
	"cpa-server/internal/workers"

	"github.com/google/uuid"
)

// ReasonRenderFailed is logged when a profile's request cannot be built
const ReasonRenderFailed = "render_failed"

// ProfileResolver returns the profiles that apply to a conversion
type ProfileResolver interface {
	ListEnabled(ctx context.Context, conversion store.Conversion) ([]registry.Profile, error)
}

// DeliveryLog records skipped profiles
type DeliveryLog interface {
	CreateDeliveryAttempt(ctx context.Context, params store.CreateDeliveryAttemptParams) (store.DeliveryAttempt, error)
}

// OutboxMarker settles the outbox row a task was published from
type OutboxMarker interface {
	MarkOutboxPublished(ctx context.Context, id int64) error
}

// Deliverer sends one rendered postback with retries
type Deliverer interface {
	Deliver(ctx context.Context, profile store.PostbackProfile, conversionID uuid.UUID, req render.Request) delivery.Outcome
}

type Dispatcher struct {
	profiles  ProfileResolver
	log       DeliveryLog
	outbox    OutboxMarker
	deliverer Deliverer
	clock     clock.Clock
	logger    *observability.Logger
	metrics   *metrics.Metrics
}

func New(profiles ProfileResolver, log DeliveryLog, outbox OutboxMarker, deliverer Deliverer, clk clock.Clock, logger *observability.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		profiles:  profiles,
		log:       log,
		outbox:    outbox,
		deliverer: deliverer,
		clock:     clk,
		logger:    logger,
		metrics:   m,
	}
}

func (d *Dispatcher) Name() string {
	return "postback-dispatcher"
}

// Process delivers the task's conversion to its profiles one after another
// and then marks the task's outbox row published. It returns an error only
// when the task should be retried as a whole; the row then stays unpublished
// and the outbox relay hands the task out again once its lease expires.
func (d *Dispatcher) Process(ctx context.Context, task workers.Task) error {
	conversion := task.Conversion
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "conversion_id", Value: conversion.ID},
		observability.Field{Key: "advertiser_id", Value: conversion.AdvertiserID},
		observability.Field{Key: "status", Value: conversion.Status},
		observability.Field{Key: "outbox_id", Value: task.OutboxID},
	)

	if err := d.deliver(ctx, conversion); err != nil {
		return err
	}

	if task.OutboxID == 0 {
		return nil
	}
	if err := d.outbox.MarkOutboxPublished(ctx, task.OutboxID); err != nil {
		// postbacks already went out; the expired lease republishes the task
		d.logger.Error(ctx, "failed to mark outbox event published", err)
	}
	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, conversion store.Conversion) error {
	profiles, err := d.profiles.ListEnabled(ctx, conversion)
	if err != nil {
		return fmt.Errorf("failed to resolve postback profiles: %w", err)
	}
	if len(profiles) == 0 {
		d.logger.Debug(ctx, "no postback profiles apply to conversion")
		return nil
	}

	raw := make([]store.PostbackProfile, len(profiles))
	for i, p := range profiles {
		raw[i] = p.PostbackProfile
	}
	verdicts := antifraud.Evaluate(conversion, raw)

	for i, profile := range profiles {
		verdict := verdicts[i]
		profileCtx := observability.WithFields(ctx,
			observability.Field{Key: "profile_id", Value: profile.ID},
		)

		if !verdict.Allowed {
			d.metrics.ProfileSkipped(string(verdict.Reason))
			d.logger.Info(profileCtx, fmt.Sprintf("postback skipped: %s", verdict.Message()))
			if verdict.Log {
				d.recordSkip(profileCtx, profile.PostbackProfile, conversion.ID, verdict.Message())
			}
			continue
		}

		req, err := render.Build(profile.PostbackProfile, profile.Statuses, conversion, d.clock.Now())
		if err != nil {
			d.metrics.ProfileSkipped(ReasonRenderFailed)
			d.logger.Error(profileCtx, "failed to render postback", err)
			d.recordSkip(profileCtx, profile.PostbackProfile, conversion.ID, fmt.Sprintf("%s: %v", ReasonRenderFailed, err))
			continue
		}

		outcome := d.deliverer.Deliver(profileCtx, profile.PostbackProfile, conversion.ID, req)
		if outcome.State == delivery.StateCanceled {
			return fmt.Errorf("postback delivery interrupted: %w", outcome.Err)
		}
	}

	return nil
}

// recordSkip writes the zero-attempt row of a profile that was not contacted
func (d *Dispatcher) recordSkip(ctx context.Context, profile store.PostbackProfile, conversionID uuid.UUID, reason string) {
	_, err := d.log.CreateDeliveryAttempt(ctx, store.CreateDeliveryAttemptParams{
		ProfileID:     profile.ID,
		ConversionID:  conversionID,
		Attempt:       0,
		MaxAttempts:   profile.MaxAttempts(),
		Success:       false,
		RequestMethod: string(profile.Method),
		RequestURL:    profile.EndpointURL,
		Error:         &reason,
	})
	if err != nil {
		d.logger.Error(ctx, "failed to record skipped postback", err)
	}
}
