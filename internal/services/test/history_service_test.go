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

func TestHistoryServiceListByUser(t *testing.T) {
	t.Parallel()

	ops := &opLog{}
	ledger := newFakeLedger(ops)
	svc := services.NewHistoryService(ledger, log.NewStdLogger(io.Discard))

	userID := uuid.New()
	other := uuid.New()
	videoA := uuid.New()
	videoB := uuid.New()
	claimedA := time.Now().Add(-48 * time.Hour).UnixMilli()
	claimedB := time.Now().Add(-time.Hour).UnixMilli()
	ledger.records[ledgerKey(userID, videoA)] = claimedA
	ledger.records[ledgerKey(userID, videoB)] = claimedB
	ledger.records[ledgerKey(other, uuid.New())] = time.Now().UnixMilli()

	items, err := svc.ListByUser(context.Background(), userID, 20)
	require.NoError(t, err)
	require.Len(t, items, 2)

	byVideo := map[string]time.Time{}
	for _, item := range items {
		byVideo[item.VideoID] = item.ClaimedAt
	}
	require.Equal(t, time.UnixMilli(claimedA).UTC(), byVideo[videoA.String()].UTC())
	require.Equal(t, time.UnixMilli(claimedB).UTC(), byVideo[videoB.String()].UTC())
}

func TestHistoryServiceEmpty(t *testing.T) {
	t.Parallel()

	ops := &opLog{}
	svc := services.NewHistoryService(newFakeLedger(ops), log.NewStdLogger(io.Discard))

	items, err := svc.ListByUser(context.Background(), uuid.New(), 20)
	require.NoError(t, err)
	require.Empty(t, items)
}
