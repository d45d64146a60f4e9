// Package po 定义持久化层的数据行结构。
package po

import (
	"time"

	"github.com/google/uuid"
)

// PoolItem 表示 bonus.pool_items 表中一条待发放的奖励视频。
type PoolItem struct {
	VideoID    uuid.UUID
	ContentRef string
	CreatedAt  time.Time
}

// Assignment 表示 bonus.assignments 表中"用户已领取某视频"的事实。
type Assignment struct {
	UserID      uuid.UUID
	VideoID     uuid.UUID
	ClaimedAtMS int64
	CreatedAt   time.Time
}

// ClaimedAt 返回领取时间。
func (a *Assignment) ClaimedAt() time.Time {
	return time.UnixMilli(a.ClaimedAtMS).UTC()
}
