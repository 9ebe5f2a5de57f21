package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_RecordAndGet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	e, err := m.RecordOutcome(ctx, HistoryEntry{Program: "zk_factor.aleo", Function: "mint_invoice", Status: "accepted"})
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.FinishedAt.IsZero())

	got, err := m.GetEntry(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e, got)

	_, err = m.GetEntry(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_ListFiltersAndOrders(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, st := range []string{"accepted", "failed", "accepted"} {
		_, err := m.RecordOutcome(ctx, HistoryEntry{
			ID:         string(rune('a' + i)),
			Program:    "zk_factor.aleo",
			Status:     st,
			FinishedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
	_, err := m.RecordOutcome(ctx, HistoryEntry{ID: "z", Program: "credits.aleo", Status: "accepted", FinishedAt: base})
	require.NoError(t, err)

	all, err := m.ListEntries(ctx, ListFilter{Program: "zk_factor.aleo"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID)
	assert.Equal(t, "a", all[2].ID)

	accepted, err := m.ListEntries(ctx, ListFilter{Status: "accepted", Limit: 2})
	require.NoError(t, err)
	require.Len(t, accepted, 2)
	assert.Equal(t, "c", accepted[0].ID)
}
