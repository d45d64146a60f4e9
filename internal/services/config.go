package services

import (
	"time"

	"github.com/bionicotaku/lingo-services-bonus/internal/saga"
)

// GrantConfig 汇集发放链路的业务参数与重试策略。
type GrantConfig struct {
	// Cooldown 两次领取之间的最短间隔。
	Cooldown time.Duration
	// RunBudget 单次发放 Run 的墙钟预算。
	RunBudget time.Duration
	// LinkTTL 签名下载链接的有效期。
	LinkTTL time.Duration
	// StepRetry 普通步骤对瞬时错误的重试策略。
	StepRetry saga.Policy
	// ClaimRetry 领取步骤的重试策略，额外覆盖并发冲突。
	ClaimRetry saga.Policy
	// CompensationRetry 补偿操作的重试策略。
	CompensationRetry saga.Policy
}

func (c GrantConfig) normalized() GrantConfig {
	if c.Cooldown <= 0 {
		c.Cooldown = 7 * 24 * time.Hour
	}
	if c.RunBudget <= 0 {
		c.RunBudget = 15 * time.Second
	}
	if c.LinkTTL <= 0 {
		c.LinkTTL = 15 * time.Minute
	}
	if c.StepRetry.MaxAttempts <= 0 {
		c.StepRetry = saga.Policy{
			MaxAttempts:    2,
			RetryOn:        []saga.Kind{saga.KindTransient},
			InitialBackoff: 100 * time.Millisecond,
			MaxBackoff:     time.Second,
		}
	}
	if c.ClaimRetry.MaxAttempts <= 0 {
		c.ClaimRetry = saga.Policy{
			MaxAttempts:    2,
			RetryOn:        []saga.Kind{saga.KindTransient, saga.KindConflict},
			InitialBackoff: 50 * time.Millisecond,
			MaxBackoff:     time.Second,
		}
	}
	if c.CompensationRetry.MaxAttempts <= 0 {
		c.CompensationRetry = saga.Policy{
			MaxAttempts:    3,
			InitialBackoff: 100 * time.Millisecond,
			MaxBackoff:     2 * time.Second,
		}
	}
	return c
}
