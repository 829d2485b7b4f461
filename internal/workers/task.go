package workers

import (
	"encoding/json"
	"fmt"
	"time"

	"cpa-server/internal/store"

	"github.com/google/uuid"
)

// Task asks the dispatcher to fan out one conversion change
type Task struct {
	ID         string           `json:"id"`
	OutboxID   int64            `json:"outbox_id,omitempty"`
	Conversion store.Conversion `json:"conversion"`
	EnqueuedAt time.Time        `json:"enqueued_at"`
}

// NewTask builds a task for a conversion snapshot
func NewTask(conversion store.Conversion, outboxID int64, now time.Time) Task {
	return Task{
		ID:         uuid.New().String(),
		OutboxID:   outboxID,
		Conversion: conversion,
		EnqueuedAt: now,
	}
}

// TaskFromOutbox rebuilds the task recorded by an outbox event
func TaskFromOutbox(event store.OutboxEvent, now time.Time) (Task, error) {
	conversion, err := event.Conversion()
	if err != nil {
		return Task{}, err
	}
	return NewTask(conversion, event.ID, now), nil
}

// Encode serializes the task for Kafka
func (t Task) Encode() ([]byte, error) {
	return json.Marshal(t)
}

// DecodeTask parses a task read from Kafka
func DecodeTask(data []byte) (Task, error) {
	var t Task
	if err := json.Unmarshal(data, &t); err != nil {
		return Task{}, fmt.Errorf("failed to decode task: %w", err)
	}
	if t.Conversion.ID == uuid.Nil {
		return Task{}, fmt.Errorf("task %s has no conversion", t.ID)
	}
	return t, nil
}
