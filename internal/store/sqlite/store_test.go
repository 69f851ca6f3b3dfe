package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/rainfall-insurance-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open("  ")
	require.Error(t, err)
}

func TestStore_EmptyBeforeFirstPut(t *testing.T) {
	s, _ := openTestStore(t)

	_, found, err := s.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStore_PutGetRoundTrip(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	want := domain.Policy{
		Beneficiary:  "acct-courier",
		Location:     "Nairobi",
		ThresholdMm:  5.0,
		PayoutAmount: 200,
		Credential:   "owm-key",
		UpdatedAt:    time.Date(2024, time.April, 26, 15, 10, 0, 0, time.UTC),
	}
	require.NoError(t, s.Put(ctx, want))

	got, found, err := s.Get(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, got)
}

func TestStore_PutOverwritesAndPersists(t *testing.T) {
	s, path := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, domain.Policy{Beneficiary: "a", Location: "Nairobi", ThresholdMm: 5, PayoutAmount: 50, Credential: "k1"}))
	require.NoError(t, s.Put(ctx, domain.Policy{Beneficiary: "b", Location: "Lagos", ThresholdMm: 0.1, PayoutAmount: 10, PaidOut: true, Credential: "k2"}))
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	got, found, err := reopened.Get(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "b", got.Beneficiary)
	assert.Equal(t, "Lagos", got.Location)
	assert.Equal(t, 0.1, got.ThresholdMm)
	assert.Equal(t, uint64(10), got.PayoutAmount)
	assert.True(t, got.PaidOut)
	assert.Equal(t, "k2", got.Credential)
}

func TestStore_Ping(t *testing.T) {
	s, _ := openTestStore(t)
	require.NoError(t, s.Ping(context.Background()))
}
