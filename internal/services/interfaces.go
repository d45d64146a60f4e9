// Package services 实现奖励视频发放的业务编排。
package services

import (
	"context"
	"time"

	"github.com/bionicotaku/lingo-services-bonus/internal/clients"
	"github.com/bionicotaku/lingo-services-bonus/internal/models/po"
	"github.com/bionicotaku/lingo-services-bonus/internal/repositories"
	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/google/uuid"
)

// PoolRepository 抽象共享奖励池的领取与回补。
type PoolRepository interface {
	Claim(ctx context.Context, sess txmanager.Session) (*po.PoolItem, error)
	Restore(ctx context.Context, sess txmanager.Session, item *po.PoolItem) error
}

// AssignmentRepository 抽象领取记录的读写。
type AssignmentRepository interface {
	Record(ctx context.Context, sess txmanager.Session, input repositories.RecordAssignmentInput) error
	Remove(ctx context.Context, sess txmanager.Session, userID, videoID uuid.UUID) error
	HasSince(ctx context.Context, sess txmanager.Session, userID uuid.UUID, cutoffMS int64) (bool, error)
	ListByUser(ctx context.Context, sess txmanager.Session, userID uuid.UUID, limit int32) ([]*po.Assignment, error)
}

// OutboxWriter 抽象 Outbox 事件入队，与领取记录共享同一事务。
type OutboxWriter interface {
	Enqueue(ctx context.Context, sess txmanager.Session, msg repositories.OutboxMessage) error
}

// AssetStore 抽象视频资产的复制、删除与签名链接签发。
type AssetStore interface {
	CopyToUser(ctx context.Context, userID, videoID uuid.UUID) error
	CopyToShared(ctx context.Context, userID, videoID uuid.UUID) error
	DeleteUserCopy(ctx context.Context, userID, videoID uuid.UUID) error
	DeleteSharedCopy(ctx context.Context, videoID uuid.UUID) error
	IssueLink(ctx context.Context, userID, videoID uuid.UUID, ttl time.Duration) (string, time.Time, error)
}

var (
	_ PoolRepository       = (*repositories.VideoPoolRepository)(nil)
	_ AssignmentRepository = (*repositories.AssignmentRepository)(nil)
	_ OutboxWriter         = (*repositories.OutboxRepository)(nil)
	_ AssetStore           = (*clients.AssetStore)(nil)
)
