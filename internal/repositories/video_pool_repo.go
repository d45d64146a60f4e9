package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/bionicotaku/lingo-services-bonus/internal/models/po"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrPoolEmpty 表示奖励池没有可领取的条目。
	ErrPoolEmpty = errors.New("video pool is empty")
	// ErrClaimConflict 表示条目在读取与删除之间被并发 Run 抢走。
	ErrClaimConflict = errors.New("pool item already claimed")
)

// VideoPoolRepository 提供共享奖励池的原子领取与回补能力。
type VideoPoolRepository struct {
	db  *pgxpool.Pool
	log *log.Helper
}

// NewVideoPoolRepository 构造仓储实例。
func NewVideoPoolRepository(db *pgxpool.Pool, logger log.Logger) *VideoPoolRepository {
	return &VideoPoolRepository{
		db:  db,
		log: log.NewHelper(logger),
	}
}

// Claim 原子领取任意一条池条目：以条件删除（delete-and-return）实现，
// 两个并发 Run 不可能拿到同一个 video_id。SKIP LOCKED 让竞争 Run 直接
// 选择下一条而不是阻塞等锁。
func (r *VideoPoolRepository) Claim(ctx context.Context, sess txmanager.Session) (*po.PoolItem, error) {
	const query = `
		DELETE FROM bonus.pool_items
		WHERE video_id = (
			SELECT video_id
			FROM bonus.pool_items
			ORDER BY created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING video_id, content_ref, created_at`

	var item po.PoolItem
	err := querier(r.db, sess).QueryRow(ctx, query).Scan(&item.VideoID, &item.ContentRef, &item.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPoolEmpty
		}
		if isContentionError(err) {
			r.log.WithContext(ctx).Warnf("pool claim lost race: %v", err)
			return nil, ErrClaimConflict
		}
		r.log.WithContext(ctx).Errorf("pool claim failed: err=%v", err)
		return nil, fmt.Errorf("claim pool item: %w", err)
	}

	r.log.WithContext(ctx).Infof("pool item claimed: video_id=%s", item.VideoID)
	return &item, nil
}

// Restore 将条目放回池中。幂等：条目已存在时不报错也不覆盖。
func (r *VideoPoolRepository) Restore(ctx context.Context, sess txmanager.Session, item *po.PoolItem) error {
	const query = `
		INSERT INTO bonus.pool_items (video_id, content_ref)
		VALUES ($1, $2)
		ON CONFLICT (video_id) DO NOTHING`

	if _, err := querier(r.db, sess).Exec(ctx, query, item.VideoID, item.ContentRef); err != nil {
		r.log.WithContext(ctx).Errorf("pool restore failed: video_id=%s err=%v", item.VideoID, err)
		return fmt.Errorf("restore pool item: %w", err)
	}
	r.log.WithContext(ctx).Infof("pool item restored: video_id=%s", item.VideoID)
	return nil
}

// Add 新增池条目，供投放工具与测试使用。
func (r *VideoPoolRepository) Add(ctx context.Context, sess txmanager.Session, videoID uuid.UUID, contentRef string) error {
	const query = `
		INSERT INTO bonus.pool_items (video_id, content_ref)
		VALUES ($1, $2)
		ON CONFLICT (video_id) DO UPDATE SET content_ref = EXCLUDED.content_ref`

	if _, err := querier(r.db, sess).Exec(ctx, query, videoID, contentRef); err != nil {
		return fmt.Errorf("add pool item: %w", err)
	}
	return nil
}

// Count 返回池中剩余条目数。
func (r *VideoPoolRepository) Count(ctx context.Context, sess txmanager.Session) (int64, error) {
	var count int64
	if err := querier(r.db, sess).QueryRow(ctx, `SELECT count(*) FROM bonus.pool_items`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count pool items: %w", err)
	}
	return count, nil
}
