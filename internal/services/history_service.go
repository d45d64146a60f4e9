package services

import (
	"context"
	"fmt"

	"github.com/bionicotaku/lingo-services-bonus/internal/models/vo"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// HistoryService 提供用户领取历史查询。
type HistoryService struct {
	ledger AssignmentRepository
	log    *log.Helper
}

// NewHistoryService 构造历史查询服务。
func NewHistoryService(ledger AssignmentRepository, logger log.Logger) *HistoryService {
	return &HistoryService{
		ledger: ledger,
		log:    log.NewHelper(log.With(logger, "module", "services/history")),
	}
}

// ListByUser 按领取时间倒序返回用户的领取记录。
func (s *HistoryService) ListByUser(ctx context.Context, userID uuid.UUID, limit int32) ([]vo.AssignmentItem, error) {
	records, err := s.ledger.ListByUser(ctx, nil, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list assignments for %s: %w", userID, err)
	}
	items := make([]vo.AssignmentItem, 0, len(records))
	for _, record := range records {
		items = append(items, vo.NewAssignmentItemFromPO(record))
	}
	return items, nil
}
