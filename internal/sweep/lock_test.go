package sweep

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestLocalLocker(t *testing.T) {
	var l LocalLocker
	ctx := context.Background()

	release, err := l.TryLock(ctx)
	require.NoError(t, err)
	_, err = l.TryLock(ctx)
	assert.ErrorIs(t, err, ErrSweepInProgress)

	release()
	release2, err := l.TryLock(ctx)
	require.NoError(t, err)
	release2()
}

func startRedis(ctx context.Context, t *testing.T) string {
	t.Helper()
	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = redisC.Terminate(ctx) })

	host, err := redisC.Host(ctx)
	require.NoError(t, err)
	port, err := redisC.MappedPort(ctx, "6379")
	require.NoError(t, err)
	return fmt.Sprintf("redis://%s:%s/0", host, port.Port())
}

func TestRedisLocker(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping Redis integration test in short mode")
	}
	ctx := context.Background()
	url := startRedis(ctx, t)

	a, err := NewRedisLocker(ctx, url, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	b, err := NewRedisLocker(ctx, url, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	release, err := a.TryLock(ctx)
	require.NoError(t, err)
	_, err = b.TryLock(ctx)
	assert.ErrorIs(t, err, ErrSweepInProgress, "second instance must not sweep")

	release()
	releaseB, err := b.TryLock(ctx)
	require.NoError(t, err)

	// A stale release from the first holder must not free b's lock.
	release()
	_, err = a.TryLock(ctx)
	assert.ErrorIs(t, err, ErrSweepInProgress)
	releaseB()
}

func TestRedisLockerExpires(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping Redis integration test in short mode")
	}
	ctx := context.Background()
	url := startRedis(ctx, t)

	l, err := NewRedisLocker(ctx, url, 200*time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	_, err = l.TryLock(ctx)
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		release, err := l.TryLock(ctx)
		if err != nil {
			return false
		}
		release()
		return true
	}, 5*time.Second, 50*time.Millisecond)
}
