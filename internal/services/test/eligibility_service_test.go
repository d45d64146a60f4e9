package services_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/bionicotaku/lingo-services-bonus/internal/services"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestEligibilityServiceCooldown(t *testing.T) {
	t.Parallel()

	ops := &opLog{}
	ledger := newFakeLedger(ops)
	svc := services.NewEligibilityService(testGrantConfig(), ledger, log.NewStdLogger(io.Discard))

	ctx := context.Background()
	userID := uuid.New()

	eligible, err := svc.CheckEligible(ctx, userID)
	require.NoError(t, err)
	require.True(t, eligible)

	// 窗口内的记录阻断领取。
	ledger.records[ledgerKey(userID, uuid.New())] = time.Now().Add(-6 * 24 * time.Hour).UnixMilli()
	eligible, err = svc.CheckEligible(ctx, userID)
	require.NoError(t, err)
	require.False(t, eligible)

	// 其他用户的记录不影响判定。
	other := uuid.New()
	eligible, err = svc.CheckEligible(ctx, other)
	require.NoError(t, err)
	require.True(t, eligible)
}

func TestEligibilityServiceWindowBoundary(t *testing.T) {
	t.Parallel()

	ops := &opLog{}
	ledger := newFakeLedger(ops)
	svc := services.NewEligibilityService(testGrantConfig(), ledger, log.NewStdLogger(io.Discard))

	userID := uuid.New()
	ledger.records[ledgerKey(userID, uuid.New())] = time.Now().Add(-7*24*time.Hour - time.Minute).UnixMilli()

	eligible, err := svc.CheckEligible(context.Background(), userID)
	require.NoError(t, err)
	require.True(t, eligible)
}
