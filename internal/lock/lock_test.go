package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bsm/redislock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLockerExcludesConcurrentHolders(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	release, ok, err := l.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire must be refused while held")

	require.NoError(t, release(ctx))
	require.NoError(t, release(ctx), "double release is harmless")

	release, ok, err = l.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, release(ctx))
}

type fakeObtainer struct {
	err    error
	gotKey string
	gotTTL time.Duration
}

func (f *fakeObtainer) Obtain(_ context.Context, key string, ttl time.Duration, _ *redislock.Options) (*redislock.Lock, error) {
	f.gotKey = key
	f.gotTTL = ttl
	return nil, f.err
}

func TestRedisLockerNotObtained(t *testing.T) {
	fake := &fakeObtainer{err: redislock.ErrNotObtained}
	l := newRedisLocker(fake, "", 0, nil)

	release, ok, err := l.Acquire(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, release)
	assert.Equal(t, DefaultKey, fake.gotKey)
	assert.Equal(t, defaultTTL, fake.gotTTL)
}

func TestRedisLockerSurfacesErrors(t *testing.T) {
	boom := errors.New("connection refused")
	l := newRedisLocker(&fakeObtainer{err: boom}, "custom", time.Minute, nil)

	_, ok, err := l.Acquire(context.Background())
	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)
}

func TestNewRedisLockerRequiresClient(t *testing.T) {
	_, err := NewRedisLocker(nil, DefaultKey, time.Minute, nil)
	assert.Error(t, err)
}
