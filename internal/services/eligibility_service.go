package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// EligibilityService 判定用户是否已过冷却期。
// 冷却窗口以领取记录的毫秒时间戳为准，边界为严格大于。
type EligibilityService struct {
	ledger   AssignmentRepository
	cooldown time.Duration
	now      func() time.Time
	log      *log.Helper
}

// NewEligibilityService 构造冷却期判定服务。
func NewEligibilityService(cfg GrantConfig, ledger AssignmentRepository, logger log.Logger) *EligibilityService {
	cfg = cfg.normalized()
	return &EligibilityService{
		ledger:   ledger,
		cooldown: cfg.Cooldown,
		now:      time.Now,
		log:      log.NewHelper(log.With(logger, "module", "services/eligibility")),
	}
}

// CheckEligible 返回用户当前是否可领取。窗口内存在任意一条记录即不可领取。
func (s *EligibilityService) CheckEligible(ctx context.Context, userID uuid.UUID) (bool, error) {
	cutoff := s.now().Add(-s.cooldown).UnixMilli()
	claimed, err := s.ledger.HasSince(ctx, nil, userID, cutoff)
	if err != nil {
		return false, fmt.Errorf("check eligibility for %s: %w", userID, err)
	}
	return !claimed, nil
}
