package repositories

import (
	"context"
	"fmt"

	"github.com/bionicotaku/lingo-services-bonus/internal/models/po"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AssignmentRepository 管理 bonus.assignments：用户已领取某视频的持久事实。
// Record 是整条发放链路的提交点，之后的冷却检查以这里的记录为准。
type AssignmentRepository struct {
	db  *pgxpool.Pool
	log *log.Helper
}

// NewAssignmentRepository 构造仓储实例。
func NewAssignmentRepository(db *pgxpool.Pool, logger log.Logger) *AssignmentRepository {
	return &AssignmentRepository{
		db:  db,
		log: log.NewHelper(logger),
	}
}

// RecordAssignmentInput 描述领取记录写入参数。
type RecordAssignmentInput struct {
	UserID      uuid.UUID
	VideoID     uuid.UUID
	ClaimedAtMS int64
}

// Record 写入领取记录。重试重放时覆盖写，保持幂等。
func (r *AssignmentRepository) Record(ctx context.Context, sess txmanager.Session, input RecordAssignmentInput) error {
	const query = `
		INSERT INTO bonus.assignments (user_id, video_id, claimed_at_ms)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, video_id) DO UPDATE SET claimed_at_ms = EXCLUDED.claimed_at_ms`

	if _, err := querier(r.db, sess).Exec(ctx, query, input.UserID, input.VideoID, input.ClaimedAtMS); err != nil {
		r.log.WithContext(ctx).Errorf("record assignment failed: user=%s video=%s err=%v", input.UserID, input.VideoID, err)
		return fmt.Errorf("record assignment: %w", err)
	}
	r.log.WithContext(ctx).Infof("assignment recorded: user=%s video=%s", input.UserID, input.VideoID)
	return nil
}

// Remove 删除领取记录。幂等：记录不存在时静默成功。
func (r *AssignmentRepository) Remove(ctx context.Context, sess txmanager.Session, userID, videoID uuid.UUID) error {
	const query = `DELETE FROM bonus.assignments WHERE user_id = $1 AND video_id = $2`

	if _, err := querier(r.db, sess).Exec(ctx, query, userID, videoID); err != nil {
		r.log.WithContext(ctx).Errorf("remove assignment failed: user=%s video=%s err=%v", userID, videoID, err)
		return fmt.Errorf("remove assignment: %w", err)
	}
	return nil
}

// HasSince 判断用户在 cutoff 毫秒时间戳之后是否已有领取记录。
func (r *AssignmentRepository) HasSince(ctx context.Context, sess txmanager.Session, userID uuid.UUID, cutoffMS int64) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM bonus.assignments
			WHERE user_id = $1 AND claimed_at_ms > $2
		)`

	var exists bool
	if err := querier(r.db, sess).QueryRow(ctx, query, userID, cutoffMS).Scan(&exists); err != nil {
		return false, fmt.Errorf("query assignments since cutoff: %w", err)
	}
	return exists, nil
}

// ListByUser 按领取时间倒序返回用户的领取历史。
func (r *AssignmentRepository) ListByUser(ctx context.Context, sess txmanager.Session, userID uuid.UUID, limit int32) ([]*po.Assignment, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `
		SELECT user_id, video_id, claimed_at_ms, created_at
		FROM bonus.assignments
		WHERE user_id = $1
		ORDER BY claimed_at_ms DESC
		LIMIT $2`

	rows, err := querier(r.db, sess).Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var records []*po.Assignment
	for rows.Next() {
		var record po.Assignment
		if err := rows.Scan(&record.UserID, &record.VideoID, &record.ClaimedAtMS, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignments: %w", err)
	}
	return records, nil
}
