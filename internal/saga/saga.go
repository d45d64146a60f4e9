// Package saga 实现一个声明式的 Saga 驱动器：按序执行固定步骤表，
// 对每个步骤应用独立的重试策略，终态失败时按完成顺序的逆序执行补偿操作。
// 步骤拓扑在装配期固定，不支持运行期动态编排。
package saga

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// Decision 表示步骤的前进决策：继续、或以业务终态提前结束。
type Decision struct {
	Halted bool
	Code   string
}

// Continue 表示进入下一步骤。
var Continue = Decision{}

// Halt 以业务终态结束 Run。终态不是错误：调用方用 Code 区分
// "不符合条件"与"无可用资源"等提前结束的成功出口。
func Halt(code string) Decision {
	return Decision{Halted: true, Code: code}
}

// Policy 定义单个步骤的重试策略。MaxAttempts 含首次执行；
// 只有分类命中 RetryOn 的错误才会被重试。
type Policy struct {
	MaxAttempts    int
	RetryOn        []Kind
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func (p Policy) retryable(kind Kind) bool {
	for _, k := range p.RetryOn {
		if k == kind {
			return true
		}
	}
	return false
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = 50 * time.Millisecond
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = time.Second
	}
	return p
}

// Step 描述一个前向步骤及其逆操作。
//   - Run 执行前向操作，返回 Continue、Halt 或错误。
//   - Cleanup 清理本步骤失败时可能遗留的部分效果（如复制到一半的对象）。
//   - Compensate 撤销本步骤已成功完成的效果，在后续步骤失败时逆序调用。
type Step[S any] struct {
	Name       string
	Run        func(ctx context.Context, state *S) (Decision, error)
	Cleanup    func(ctx context.Context, state *S) error
	Compensate func(ctx context.Context, state *S) error
	Retry      Policy
}

// Params 注入引擎依赖。
type Params[S any] struct {
	Name   string
	Steps  []Step[S]
	Budget time.Duration
	// CompensationRetry 应用于每个补偿操作；补偿不区分错误分类，
	// 有界重试耗尽即判定 CompensationFailure，不做无限重试。
	CompensationRetry Policy
	Logger            log.Logger
	Metrics           *Metrics
}

// Engine 按固定步骤表驱动 Run 至终态。
type Engine[S any] struct {
	name      string
	steps     []Step[S]
	budget    time.Duration
	compRetry Policy
	metrics   *Metrics
	log       *log.Helper
}

// NewEngine 构造 Saga 引擎。
func NewEngine[S any](params Params[S]) (*Engine[S], error) {
	if params.Name == "" {
		return nil, fmt.Errorf("saga: engine name is required")
	}
	if len(params.Steps) == 0 {
		return nil, fmt.Errorf("saga: at least one step is required")
	}
	for i, step := range params.Steps {
		if step.Name == "" {
			return nil, fmt.Errorf("saga: step %d has no name", i)
		}
		if step.Run == nil {
			return nil, fmt.Errorf("saga: step %s has no run func", step.Name)
		}
	}
	if params.Budget <= 0 {
		params.Budget = 15 * time.Second
	}
	steps := make([]Step[S], len(params.Steps))
	copy(steps, params.Steps)
	for i := range steps {
		steps[i].Retry = steps[i].Retry.normalized()
	}
	return &Engine[S]{
		name:      params.Name,
		steps:     steps,
		budget:    params.Budget,
		compRetry: params.CompensationRetry.normalized(),
		metrics:   params.Metrics,
		log:       log.NewHelper(params.Logger),
	}, nil
}

// Status 表示 Run 的终态。
type Status int

// Run 终态常量。
const (
	// StatusSucceeded 表示全部步骤完成。
	StatusSucceeded Status = iota
	// StatusHalted 表示某步骤以业务终态提前结束（成功出口）。
	StatusHalted
	// StatusFailed 表示终态失败（已补偿、补偿失败或超时）。
	StatusFailed
)

// Result 汇总一次 Run 的执行结果。
type Result struct {
	RunID       uuid.UUID
	Status      Status
	HaltCode    string
	FailedStep  string
	Compensated bool
	Err         error
}

// Execute 驱动一次 Run 至终态。整个 Run 受墙钟预算约束；
// 调用方负责传入已与客户端取消解耦的 Context，保证部分资源占用
// 总能被推进到可对账的终态而不是被放弃。
func (e *Engine[S]) Execute(ctx context.Context, runID uuid.UUID, state *S) Result {
	runCtx, cancel := context.WithTimeout(ctx, e.budget)
	defer cancel()

	started := time.Now()
	result := e.execute(runCtx, runID, state)
	e.metrics.recordRun(ctx, e.name, result, time.Since(started))
	return result
}

func (e *Engine[S]) execute(ctx context.Context, runID uuid.UUID, state *S) Result {
	completed := make([]int, 0, len(e.steps))

	for i := range e.steps {
		step := &e.steps[i]
		decision, err := e.runForward(ctx, runID, step, state)
		if err != nil {
			if KindOf(err) == KindTimeout {
				// 超预算：不做内联补偿，交由带外对账任务处理。
				e.log.WithContext(ctx).Errorw(
					"msg", "saga run exceeded budget",
					"saga", e.name, "run_id", runID, "step", step.Name, "error", err,
				)
				return Result{RunID: runID, Status: StatusFailed, FailedStep: step.Name, Err: err}
			}
			return e.compensate(ctx, runID, state, i, completed, err)
		}
		if decision.Halted {
			e.log.WithContext(ctx).Infof("saga %s run %s halted at %s: %s", e.name, runID, step.Name, decision.Code)
			return Result{RunID: runID, Status: StatusHalted, HaltCode: decision.Code}
		}
		completed = append(completed, i)
	}

	return Result{RunID: runID, Status: StatusSucceeded}
}

// runForward 执行单个前向步骤，按策略重试。尝试计数属于步骤，不属于 Run。
func (e *Engine[S]) runForward(ctx context.Context, runID uuid.UUID, step *Step[S], state *S) (Decision, error) {
	bo := newBackoff(step.Retry)
	var lastErr error

	for attempt := 1; attempt <= step.Retry.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Continue, &Error{Step: step.Name, Kind: KindTimeout, Err: ErrRunTimeout}
		}

		decision, err := step.Run(ctx, state)
		if err == nil {
			return decision, nil
		}
		lastErr = err

		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return Continue, &Error{Step: step.Name, Kind: KindTimeout, Err: ErrRunTimeout}
		}

		kind := KindOf(err)
		if !step.Retry.retryable(kind) || attempt == step.Retry.MaxAttempts {
			break
		}

		e.metrics.recordRetry(ctx, e.name, step.Name, kind)
		e.log.WithContext(ctx).Warnw(
			"msg", "saga step retrying",
			"saga", e.name, "run_id", runID, "step", step.Name,
			"attempt", attempt, "kind", kind.String(), "error", err,
		)
		if !sleep(ctx, bo.NextBackOff()) {
			return Continue, &Error{Step: step.Name, Kind: KindTimeout, Err: ErrRunTimeout}
		}
	}

	return Continue, &Error{Step: step.Name, Kind: KindOf(lastErr), Err: lastErr}
}

// compensate 先清理失败步骤的部分效果，再对已完成步骤逆序执行补偿。
// 任一补偿在重试耗尽后失败，Run 进入 CompensationFailure 终态并留给人工对账。
func (e *Engine[S]) compensate(ctx context.Context, runID uuid.UUID, state *S, failedIdx int, completed []int, cause error) Result {
	failed := &e.steps[failedIdx]
	e.log.WithContext(ctx).Warnw(
		"msg", "saga step failed, compensating",
		"saga", e.name, "run_id", runID, "step", failed.Name,
		"completed_steps", len(completed), "error", cause,
	)

	// 补偿无视 Run 预算：一旦开始必须尝试收尾，使用独立的小预算。
	compCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.budget)
	defer cancel()

	if failed.Cleanup != nil {
		if err := e.runInverse(compCtx, failed.Name+"/cleanup", failed.Cleanup, state); err != nil {
			return e.compensationFailure(ctx, runID, failed.Name, cause, err)
		}
	}
	for j := len(completed) - 1; j >= 0; j-- {
		step := &e.steps[completed[j]]
		if step.Compensate == nil {
			continue
		}
		if err := e.runInverse(compCtx, step.Name, step.Compensate, state); err != nil {
			return e.compensationFailure(ctx, runID, failed.Name, cause, err)
		}
	}

	e.metrics.recordCompensation(ctx, e.name, failed.Name, true)
	return Result{RunID: runID, Status: StatusFailed, FailedStep: failed.Name, Compensated: true, Err: cause}
}

func (e *Engine[S]) runInverse(ctx context.Context, name string, op func(context.Context, *S) error, state *S) error {
	bo := newBackoff(e.compRetry)
	operation := func() error {
		return op(ctx, state)
	}
	return backoff.Retry(operation, backoff.WithContext(
		backoff.WithMaxRetries(bo, uint64(e.compRetry.MaxAttempts-1)), ctx,
	))
}

func (e *Engine[S]) compensationFailure(ctx context.Context, runID uuid.UUID, failedStep string, cause, compErr error) Result {
	e.metrics.recordCompensation(ctx, e.name, failedStep, false)
	e.log.WithContext(ctx).Errorw(
		"msg", "saga compensation failed, manual reconciliation required",
		"saga", e.name, "run_id", runID, "step", failedStep,
		"cause", cause, "compensation_error", compErr,
	)
	return Result{
		RunID:      runID,
		Status:     StatusFailed,
		FailedStep: failedStep,
		Err:        fmt.Errorf("%w: %v (cause: %v)", ErrCompensationFailed, compErr, cause),
	}
}

func newBackoff(p Policy) *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.InitialBackoff
	bo.MaxInterval = p.MaxBackoff
	bo.MaxElapsedTime = 0
	bo.Reset()
	return bo
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
