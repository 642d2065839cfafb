package credit

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/flowcore/workflowengine/pkg/types"
)

func newTestRedisService(t *testing.T) *RedisService {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisService(client)
}

func TestRedisServiceEstimateMatchesLinearWorkflow(t *testing.T) {
	svc := newTestRedisService(t)
	wf := buildLinearWorkflow(t)

	estimate, err := svc.Estimate(wf)
	require.NoError(t, err)
	require.Equal(t, float64(3), estimate.TotalCredits)
}

func TestRedisServiceReserveFinalizeLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := newTestRedisService(t)

	require.NoError(t, svc.client.Set(ctx, balanceKey("ws1"), 100, 0).Err())

	allowed, err := svc.ShouldAllowExecution(ctx, ShouldAllowExecutionParams{WorkspaceID: "ws1", EstimatedCredits: 4})
	require.NoError(t, err)
	require.True(t, allowed)

	reserved, err := svc.ReserveCredits(ctx, ReserveCreditsParams{WorkspaceID: "ws1", EstimatedCredits: 4})
	require.NoError(t, err)
	require.True(t, reserved)

	reservedAmount, err := svc.client.Get(ctx, reservedKey("ws1")).Float64()
	require.NoError(t, err)
	require.Equal(t, float64(4), reservedAmount)

	require.NoError(t, svc.FinalizeCredits(ctx, FinalizeCreditsParams{
		WorkspaceID:    "ws1",
		ReservedAmount: 4,
		ActualAmount:   3,
	}))

	balance, err := svc.client.Get(ctx, balanceKey("ws1")).Float64()
	require.NoError(t, err)
	require.Equal(t, float64(97), balance)

	reservedAfter, err := svc.client.Get(ctx, reservedKey("ws1")).Float64()
	require.NoError(t, err)
	require.Equal(t, float64(0), reservedAfter)
}

func TestRedisServiceReserveDeniedWhenOverGraceRatio(t *testing.T) {
	ctx := context.Background()
	svc := newTestRedisService(t)

	require.NoError(t, svc.client.Set(ctx, balanceKey("ws1"), 1, 0).Err())

	reserved, err := svc.ReserveCredits(ctx, ReserveCreditsParams{WorkspaceID: "ws1", EstimatedCredits: 100})
	require.NoError(t, err)
	require.False(t, reserved)
}

func TestRedisServiceReleaseCreditsFloorsAtZero(t *testing.T) {
	ctx := context.Background()
	svc := newTestRedisService(t)

	require.NoError(t, svc.client.Set(ctx, reservedKey("ws1"), 2, 0).Err())
	require.NoError(t, svc.ReleaseCredits(ctx, ReleaseCreditsParams{WorkspaceID: "ws1", Amount: 5}))

	reservedAfter, err := svc.client.Get(ctx, reservedKey("ws1")).Float64()
	require.NoError(t, err)
	require.Equal(t, float64(0), reservedAfter)
}

func TestRedisServiceCalculateLLMAndNodeCredits(t *testing.T) {
	svc := newTestRedisService(t)

	require.Equal(t, float64(2), svc.CalculateLLMCredits(LLMCreditsParams{InputTokens: 150, OutputTokens: 10}))
	require.Equal(t, float64(1), svc.CalculateNodeCredits(types.NodeTypeTransform))
}
