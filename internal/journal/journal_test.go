package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEvent struct {
	Message string `json:"message"`
}

func newEvent(t testing.TB, msg string) Event {
	data, err := json.Marshal(testEvent{Message: msg})
	require.NoError(t, err)
	return Event{EventType: "TestEvent", EventData: data}
}

func TestAppendAssignsVersions(t *testing.T) {
	ctx := context.Background()
	j := New()

	err := j.AppendEvents(ctx, "S001", "student", 0, []Event{newEvent(t, "a"), newEvent(t, "b")})
	require.NoError(t, err)
	assert.Equal(t, 2, j.CurrentVersion(ctx, "S001"))

	events, err := j.LoadEvents(ctx, "S001", 0, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, 1, events[0].Version)
	assert.Equal(t, 2, events[1].Version)
	assert.Equal(t, "student", events[1].AggregateType)
	assert.Equal(t, int64(2), events[1].ID)
}

func TestAppendDetectsConflict(t *testing.T) {
	ctx := context.Background()
	j := New()

	require.NoError(t, j.AppendEvents(ctx, "S001", "student", 0, []Event{newEvent(t, "a")}))

	err := j.AppendEvents(ctx, "S001", "student", 0, []Event{newEvent(t, "b")})
	assert.ErrorIs(t, err, ErrConcurrencyConflict)

	err = j.AppendEvents(ctx, "S001", "student", -1, nil)
	assert.ErrorIs(t, err, ErrInvalidVersion)
}

func TestLoadEventsRange(t *testing.T) {
	ctx := context.Background()
	j := New()
	for i := 0; i < 5; i++ {
		require.NoError(t, j.AppendEvents(ctx, "S002", "student", i, []Event{newEvent(t, fmt.Sprint(i))}))
	}
	require.NoError(t, j.AppendEvents(ctx, "S003", "student", 0, []Event{newEvent(t, "other")}))

	events, err := j.LoadEvents(ctx, "S002", 2, 4)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, 2, events[0].Version)
	assert.Equal(t, 4, events[2].Version)

	events, err = j.LoadEvents(ctx, "S404", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestStreamEvents(t *testing.T) {
	ctx := context.Background()
	j := New()
	require.NoError(t, j.AppendEvents(ctx, "S001", "student", 0, []Event{newEvent(t, "a")}))
	require.NoError(t, j.AppendEvents(ctx, "S002", "student", 0, []Event{newEvent(t, "b")}))
	require.NoError(t, j.AppendEvents(ctx, "S001", "student", 1, []Event{newEvent(t, "c")}))

	batch, err := j.StreamEvents(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "S002", batch[1].AggregateID)

	batch, err = j.StreamEvents(ctx, batch[1].ID, 10)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, int64(3), batch[0].ID)

	_, err = j.StreamEvents(ctx, 0, 0)
	assert.Error(t, err)
}

func BenchmarkAppendEvents(b *testing.B) {
	ctx := context.Background()
	j := New()
	ev := newEvent(b, "bench")

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if err := j.AppendEvents(ctx, "S001", "student", i, []Event{ev}); err != nil {
			b.Fatalf("AppendEvents failed: %v", err)
		}
	}
}

func BenchmarkLoadEvents(b *testing.B) {
	ctx := context.Background()
	j := New()
	for i := 0; i < 10; i++ {
		if err := j.AppendEvents(ctx, "S001", "student", i, []Event{newEvent(b, fmt.Sprint(i))}); err != nil {
			b.Fatalf("failed to setup events for benchmark: %v", err)
		}
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := j.LoadEvents(ctx, "S001", 0, 0); err != nil {
			b.Fatalf("LoadEvents failed: %v", err)
		}
	}
}
