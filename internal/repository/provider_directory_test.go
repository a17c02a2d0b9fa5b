package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/localserve/service-booking/internal/common/domain"
	"github.com/localserve/service-booking/internal/domain/provider"
)

func TestGormProviderDirectory_FindEligible(t *testing.T) {
	dir := NewGormProviderDirectory(newTestDB(t))
	plumbing, electrical := uuid.New(), uuid.New()

	good := &provider.Provider{ID: uuid.New(), DisplayName: "good", OfferedServices: []uuid.UUID{plumbing, electrical}, Verified: true, Active: true, Rating: 4.8}
	other := &provider.Provider{ID: uuid.New(), DisplayName: "other", OfferedServices: []uuid.UUID{plumbing}, Verified: true, Active: true, Rating: 4.1}
	unverified := &provider.Provider{ID: uuid.New(), DisplayName: "unverified", OfferedServices: []uuid.UUID{plumbing}, Active: true, Rating: 5}
	inactive := &provider.Provider{ID: uuid.New(), DisplayName: "inactive", OfferedServices: []uuid.UUID{plumbing}, Verified: true, Rating: 5}
	wrongService := &provider.Provider{ID: uuid.New(), DisplayName: "electrician", OfferedServices: []uuid.UUID{electrical}, Verified: true, Active: true, Rating: 5}
	for _, p := range []*provider.Provider{good, other, unverified, inactive, wrongService} {
		require.NoError(t, dir.Save(ctxT(), p))
	}

	candidates, err := dir.FindEligible(ctxT(), plumbing, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []provider.Candidate{
		{ProviderID: good.ID, Rating: 4.8},
		{ProviderID: other.ID, Rating: 4.1},
	}, candidates)

	candidates, err = dir.FindEligible(ctxT(), plumbing, []uuid.UUID{good.ID})
	require.NoError(t, err)
	assert.Equal(t, []provider.Candidate{{ProviderID: other.ID, Rating: 4.1}}, candidates)

	candidates, err = dir.FindEligible(ctxT(), uuid.New(), nil)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestGormProviderDirectory_FindByIDAndUpsert(t *testing.T) {
	dir := NewGormProviderDirectory(newTestDB(t))
	s1, s2 := uuid.New(), uuid.New()
	p := &provider.Provider{ID: uuid.New(), DisplayName: "Ada", OfferedServices: []uuid.UUID{s1}, Verified: false, Active: true, Rating: 3.5}
	require.NoError(t, dir.Save(ctxT(), p))

	p.Verified = true
	p.OfferedServices = []uuid.UUID{s2}
	require.NoError(t, dir.Save(ctxT(), p))

	found, err := dir.FindByID(ctxT(), p.ID)
	require.NoError(t, err)
	assert.True(t, found.Verified)
	assert.Equal(t, []uuid.UUID{s2}, found.OfferedServices)
	assert.True(t, found.EligibleFor(s2))
	assert.False(t, found.EligibleFor(s1))

	_, err = dir.FindByID(ctxT(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

type countingDirectory struct {
	provider.Directory
	eligibleCalls int
}

func (d *countingDirectory) FindEligible(ctx context.Context, serviceID uuid.UUID, exclude []uuid.UUID) ([]provider.Candidate, error) {
	d.eligibleCalls++
	return d.Directory.FindEligible(ctx, serviceID, exclude)
}

func TestCachedProviderDirectory_FallsBackWhenRedisIsDown(t *testing.T) {
	inner := NewGormProviderDirectory(newTestDB(t))
	serviceID := uuid.New()
	p := &provider.Provider{ID: uuid.New(), DisplayName: "p", OfferedServices: []uuid.UUID{serviceID}, Verified: true, Active: true, Rating: 4}
	require.NoError(t, inner.Save(ctxT(), p))

	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	counting := &countingDirectory{Directory: inner}
	cached := NewCachedProviderDirectory(counting, client, time.Minute, zap.NewNop())

	candidates, err := cached.FindEligible(ctxT(), serviceID, nil)
	require.NoError(t, err)
	assert.Len(t, candidates, 1)
	assert.Equal(t, 1, counting.eligibleCalls)

	found, err := cached.FindByID(ctxT(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, found.ID)

	_, err = cached.FindByID(ctxT(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

type failingDirectory struct{ provider.Directory }

func (failingDirectory) FindEligible(context.Context, uuid.UUID, []uuid.UUID) ([]provider.Candidate, error) {
	return nil, domain.NewStoreError("find eligible providers", errors.New("boom"))
}

func TestCachedProviderDirectory_PropagatesInnerErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	cached := NewCachedProviderDirectory(failingDirectory{}, client, time.Minute, zap.NewNop())
	_, err := cached.FindEligible(ctxT(), uuid.New(), nil)
	assert.True(t, domain.IsRetryable(err))
}

func TestEligibleKey_IgnoresExclusionOrder(t *testing.T) {
	s, a, b := uuid.New(), uuid.New(), uuid.New()
	assert.Equal(t, eligibleKey(s, []uuid.UUID{a, b}), eligibleKey(s, []uuid.UUID{b, a}))
	assert.NotEqual(t, eligibleKey(s, nil), eligibleKey(s, []uuid.UUID{a}))
}
