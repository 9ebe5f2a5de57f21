package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/zkfactor/internal/ledger"
)

func TestMemory_Expiry(t *testing.T) {
	m := NewMemory()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))
	v, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(v))

	now = now.Add(time.Minute)
	_, ok, err = m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecords_PutGetInvalidate(t *testing.T) {
	ctx := context.Background()
	r := NewRecords(NewMemory(), 0)

	_, ok, err := r.Get(ctx, "zk_factor.aleo")
	require.NoError(t, err)
	assert.False(t, ok)

	recs := []ledger.Record{{ID: "1", RecordName: "Invoice", Plaintext: "{ amount: 1u64 }"}}
	require.NoError(t, r.Put(ctx, "zk_factor.aleo", recs))
	require.NoError(t, r.Put(ctx, ledger.CreditsProgram, nil))

	got, ok, err := r.Get(ctx, "zk_factor.aleo")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, recs, got)

	require.NoError(t, r.Invalidate(ctx, "zk_factor.aleo", ledger.CreditsProgram))
	_, ok, _ = r.Get(ctx, "zk_factor.aleo")
	assert.False(t, ok)
	_, ok, _ = r.Get(ctx, ledger.CreditsProgram)
	assert.False(t, ok)
}

func TestRecords_CorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Set(ctx, RecordsKey("p"), []byte("{not json"), 0))

	_, ok, err := NewRecords(m, time.Minute).Get(ctx, "p")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisIntegration(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set; skipping redis integration test")
	}
	ctx := context.Background()
	r, err := NewRedis(ctx, addr, "", 0)
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Set(ctx, "it", []byte("v"), time.Minute))
	v, ok, err := r.Get(ctx, "it")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(v))

	require.NoError(t, r.Delete(ctx, "it"))
	_, ok, err = r.Get(ctx, "it")
	require.NoError(t, err)
	assert.False(t, ok)
}
