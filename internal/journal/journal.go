package journal

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrConcurrencyConflict = errors.New("concurrency conflict: version mismatch")
	ErrInvalidVersion      = errors.New("invalid version number")
)

// Event is one entry in an aggregate's stream.
type Event struct {
	ID            int64             `json:"id"`
	AggregateID   string            `json:"aggregate_id"`
	AggregateType string            `json:"aggregate_type"`
	EventType     string            `json:"event_type"`
	EventData     json.RawMessage   `json:"event_data"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Version       int               `json:"version"`
	CreatedAt     time.Time         `json:"created_at"`
}

// Journal is an append-only, in-memory event log with per-aggregate
// optimistic versioning.
type Journal struct {
	mu       sync.RWMutex
	events   []Event
	versions map[string]int
	byAgg    map[string][]int
	now      func() time.Time
	tracer   trace.Tracer
}

// New creates an empty journal.
func New() *Journal {
	return &Journal{
		versions: make(map[string]int),
		byAgg:    make(map[string][]int),
		now:      time.Now,
		tracer:   otel.Tracer("librarydesk/journal"),
	}
}

// AppendEvents atomically appends events to an aggregate's stream. It fails
// with ErrConcurrencyConflict unless the stream is at expectedVersion.
func (j *Journal) AppendEvents(ctx context.Context, aggregateID, aggregateType string, expectedVersion int, events []Event) error {
	_, span := j.tracer.Start(ctx, "journal.append",
		trace.WithAttributes(
			attribute.String("aggregate.id", aggregateID),
			attribute.String("aggregate.type", aggregateType),
			attribute.Int("expected.version", expectedVersion),
			attribute.Int("event.count", len(events)),
		),
	)
	defer span.End()

	if expectedVersion < 0 {
		return ErrInvalidVersion
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	current := j.versions[aggregateID]
	if current != expectedVersion {
		span.SetAttributes(
			attribute.Int("actual.version", current),
			attribute.Bool("conflict.detected", true),
		)
		return ErrConcurrencyConflict
	}

	for i, event := range events {
		event.ID = int64(len(j.events) + 1)
		event.AggregateID = aggregateID
		event.AggregateType = aggregateType
		event.Version = expectedVersion + i + 1
		event.CreatedAt = j.now().UTC()

		j.byAgg[aggregateID] = append(j.byAgg[aggregateID], len(j.events))
		j.events = append(j.events, event)

		span.AddEvent("event.appended", trace.WithAttributes(
			attribute.Int64("event.id", event.ID),
			attribute.Int("event.version", event.Version),
			attribute.String("event.type", event.EventType),
		))
	}
	j.versions[aggregateID] = expectedVersion + len(events)

	span.SetAttributes(attribute.Bool("append.success", true))
	return nil
}

// LoadEvents returns an aggregate's events with fromVersion <= version and,
// when toVersion > 0, version <= toVersion.
func (j *Journal) LoadEvents(ctx context.Context, aggregateID string, fromVersion, toVersion int) ([]Event, error) {
	_, span := j.tracer.Start(ctx, "journal.load",
		trace.WithAttributes(
			attribute.String("aggregate.id", aggregateID),
			attribute.Int("from.version", fromVersion),
			attribute.Int("to.version", toVersion),
		),
	)
	defer span.End()

	j.mu.RLock()
	defer j.mu.RUnlock()

	events := []Event{}
	for _, idx := range j.byAgg[aggregateID] {
		e := j.events[idx]
		if e.Version < fromVersion {
			continue
		}
		if toVersion > 0 && e.Version > toVersion {
			break
		}
		events = append(events, e)
	}

	span.SetAttributes(attribute.Int("events.loaded", len(events)))
	return events, nil
}

// CurrentVersion returns the latest version for an aggregate, 0 if none.
func (j *Journal) CurrentVersion(ctx context.Context, aggregateID string) int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.versions[aggregateID]
}

// StreamEvents returns up to batchSize events with ID > fromID in append order.
func (j *Journal) StreamEvents(ctx context.Context, fromID int64, batchSize int) ([]Event, error) {
	_, span := j.tracer.Start(ctx, "journal.stream",
		trace.WithAttributes(
			attribute.Int64("from.id", fromID),
			attribute.Int("batch.size", batchSize),
		),
	)
	defer span.End()

	if batchSize <= 0 {
		return nil, errors.New("batch size must be positive")
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	start := int(fromID)
	if start < 0 {
		start = 0
	}
	if start > len(j.events) {
		start = len(j.events)
	}
	end := start + batchSize
	if end > len(j.events) {
		end = len(j.events)
	}

	events := make([]Event, end-start)
	copy(events, j.events[start:end])

	span.SetAttributes(attribute.Int("events.streamed", len(events)))
	return events, nil
}
