package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bionicotaku/lingo-services-bonus/internal/clients"
	outboxevents "github.com/bionicotaku/lingo-services-bonus/internal/models/outbox_events"
	"github.com/bionicotaku/lingo-services-bonus/internal/models/po"
	"github.com/bionicotaku/lingo-services-bonus/internal/models/vo"
	"github.com/bionicotaku/lingo-services-bonus/internal/repositories"
	"github.com/bionicotaku/lingo-services-bonus/internal/saga"
	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// 步骤名称常量，补偿与指标按名称归属。
const (
	stepCheckEligibility = "check_eligibility"
	stepClaimVideo       = "claim_video"
	stepCopyToUser       = "copy_to_user"
	stepRemoveFromShared = "remove_from_shared"
	stepRecordAssignment = "record_assignment"
	stepIssueLink        = "issue_link"
)

// grantRun 承载一次发放 Run 的全部中间状态。
type grantRun struct {
	runID     uuid.UUID
	userID    uuid.UUID
	item      *po.PoolItem
	claimedAt time.Time
	recorded  bool
	link      string
	expiry    time.Time
}

// GrantService 编排奖励视频发放：冷却检查、池领取、资产搬运、
// 领取记录与链接签发。任何步骤失败后逆序回退已产生的副作用。
type GrantService struct {
	cfg         GrantConfig
	tx          txmanager.Manager
	eligibility *EligibilityService
	pool        PoolRepository
	ledger      AssignmentRepository
	outbox      OutboxWriter
	assets      AssetStore
	engine      *saga.Engine[grantRun]
	now         func() time.Time
	log         *log.Helper
}

// NewGrantService 构造发放服务并装配步骤表。
func NewGrantService(
	cfg GrantConfig,
	tx txmanager.Manager,
	eligibility *EligibilityService,
	pool PoolRepository,
	ledger AssignmentRepository,
	outbox OutboxWriter,
	assets AssetStore,
	metrics *saga.Metrics,
	logger log.Logger,
) (*GrantService, error) {
	s := &GrantService{
		cfg:         cfg.normalized(),
		tx:          tx,
		eligibility: eligibility,
		pool:        pool,
		ledger:      ledger,
		outbox:      outbox,
		assets:      assets,
		now:         time.Now,
		log:         log.NewHelper(log.With(logger, "module", "services/grant")),
	}

	engine, err := saga.NewEngine(saga.Params[grantRun]{
		Name:              "bonus_grant",
		Budget:            s.cfg.RunBudget,
		CompensationRetry: s.cfg.CompensationRetry,
		Logger:            logger,
		Metrics:           metrics,
		Steps: []saga.Step[grantRun]{
			{
				Name:  stepCheckEligibility,
				Run:   s.stepCheckEligibility,
				Retry: s.cfg.StepRetry,
			},
			{
				Name:       stepClaimVideo,
				Run:        s.stepClaimVideo,
				Compensate: s.compensateClaim,
				Retry:      s.cfg.ClaimRetry,
			},
			{
				Name:       stepCopyToUser,
				Run:        s.stepCopyToUser,
				Cleanup:    s.deleteUserCopy,
				Compensate: s.deleteUserCopy,
				Retry:      s.cfg.StepRetry,
			},
			{
				Name:       stepRemoveFromShared,
				Run:        s.stepRemoveFromShared,
				Compensate: s.compensateRemoveFromShared,
				Retry:      s.cfg.StepRetry,
			},
			{
				Name:       stepRecordAssignment,
				Run:        s.stepRecordAssignment,
				Compensate: s.compensateRecord,
				Retry:      s.cfg.StepRetry,
			},
			{
				Name:  stepIssueLink,
				Run:   s.stepIssueLink,
				Retry: s.cfg.StepRetry,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("build grant saga: %w", err)
	}
	s.engine = engine
	return s, nil
}

// Grant 为用户执行一次发放 Run。冷却未过与池空是正常业务终态；
// 基础设施失败在补偿完成后以错误返回。
func (s *GrantService) Grant(ctx context.Context, userID uuid.UUID) (*vo.GrantResult, error) {
	runID := uuid.New()
	state := &grantRun{runID: runID, userID: userID}

	// 与请求取消解耦：Run 一旦开始就以自身预算收尾，避免客户端断开
	// 把部分完成的资产搬运留在中间态。
	result := s.engine.Execute(context.WithoutCancel(ctx), runID, state)

	switch result.Status {
	case saga.StatusHalted:
		return &vo.GrantResult{Status: vo.GrantStatus(result.HaltCode)}, nil
	case saga.StatusSucceeded:
		s.log.WithContext(ctx).Infow(
			"msg", "bonus video granted",
			"run_id", runID, "user_id", userID, "video_id", state.item.VideoID,
		)
		return &vo.GrantResult{
			Status:  vo.GrantStatusGranted,
			VideoID: state.item.VideoID.String(),
			Link:    state.link,
			Expiry:  state.expiry,
		}, nil
	}

	// 领取步骤因并发冲突耗尽重试：池里当时确实没有本 Run 能拿到的条目。
	if result.FailedStep == stepClaimVideo && saga.KindOf(result.Err) == saga.KindConflict {
		s.log.WithContext(ctx).Warnf("run %s lost all claim races, treating pool as drained", runID)
		return &vo.GrantResult{Status: vo.GrantStatusNoVideoAvailable}, nil
	}
	return nil, fmt.Errorf("grant run %s: %w", runID, result.Err)
}

func (s *GrantService) stepCheckEligibility(ctx context.Context, state *grantRun) (saga.Decision, error) {
	eligible, err := s.eligibility.CheckEligible(ctx, state.userID)
	if err != nil {
		return saga.Continue, saga.Transient(err)
	}
	if !eligible {
		return saga.Halt(string(vo.GrantStatusNotYetEligible)), nil
	}
	return saga.Continue, nil
}

func (s *GrantService) stepClaimVideo(ctx context.Context, state *grantRun) (saga.Decision, error) {
	item, err := s.pool.Claim(ctx, nil)
	switch {
	case errors.Is(err, repositories.ErrPoolEmpty):
		return saga.Halt(string(vo.GrantStatusNoVideoAvailable)), nil
	case errors.Is(err, repositories.ErrClaimConflict):
		return saga.Continue, saga.Conflict(err)
	case err != nil:
		return saga.Continue, saga.Transient(err)
	}
	state.item = item
	return saga.Continue, nil
}

func (s *GrantService) compensateClaim(ctx context.Context, state *grantRun) error {
	return s.pool.Restore(ctx, nil, state.item)
}

func (s *GrantService) stepCopyToUser(ctx context.Context, state *grantRun) (saga.Decision, error) {
	err := s.assets.CopyToUser(ctx, state.userID, state.item.VideoID)
	switch {
	case errors.Is(err, clients.ErrSourceMissing):
		return saga.Continue, saga.NotFound(err)
	case err != nil:
		return saga.Continue, saga.Transient(err)
	}
	return saga.Continue, nil
}

func (s *GrantService) deleteUserCopy(ctx context.Context, state *grantRun) error {
	return s.assets.DeleteUserCopy(ctx, state.userID, state.item.VideoID)
}

func (s *GrantService) stepRemoveFromShared(ctx context.Context, state *grantRun) (saga.Decision, error) {
	if err := s.assets.DeleteSharedCopy(ctx, state.item.VideoID); err != nil {
		return saga.Continue, saga.Transient(err)
	}
	return saga.Continue, nil
}

// compensateRemoveFromShared 依赖用户副本仍然存在：逆序补偿保证
// copy_to_user 的删除在本补偿之后才执行。
func (s *GrantService) compensateRemoveFromShared(ctx context.Context, state *grantRun) error {
	return s.assets.CopyToShared(ctx, state.userID, state.item.VideoID)
}

func (s *GrantService) stepRecordAssignment(ctx context.Context, state *grantRun) (saga.Decision, error) {
	state.claimedAt = s.now()
	msg, err := s.buildGrantedMessage(state)
	if err != nil {
		return saga.Continue, saga.Mark(saga.KindInternal, err)
	}

	err = s.tx.WithinTx(ctx, txmanager.TxOptions{}, func(txCtx context.Context, sess txmanager.Session) error {
		if err := s.ledger.Record(txCtx, sess, repositories.RecordAssignmentInput{
			UserID:      state.userID,
			VideoID:     state.item.VideoID,
			ClaimedAtMS: state.claimedAt.UnixMilli(),
		}); err != nil {
			return err
		}
		return s.outbox.Enqueue(txCtx, sess, msg)
	})
	if err != nil {
		return saga.Continue, saga.Transient(err)
	}
	state.recorded = true
	return saga.Continue, nil
}

// compensateRecord 删除领取记录并入队撤销事件：发放事件已随记录事务提交，
// 只能用对冲事件让下游回滚，不能撤回。
func (s *GrantService) compensateRecord(ctx context.Context, state *grantRun) error {
	evt := outboxevents.NewBonusVideoRevoked(state.runID, state.userID, state.item.VideoID, "grant rolled back")
	payload, err := outboxevents.MarshalPayload(evt)
	if err != nil {
		return err
	}
	return s.tx.WithinTx(ctx, txmanager.TxOptions{}, func(txCtx context.Context, sess txmanager.Session) error {
		if removeErr := s.ledger.Remove(txCtx, sess, state.userID, state.item.VideoID); removeErr != nil {
			return removeErr
		}
		return s.outbox.Enqueue(txCtx, sess, repositories.OutboxMessage{
			EventID:       evt.EventID,
			AggregateType: evt.AggregateType,
			AggregateID:   evt.AggregateID,
			EventType:     evt.Kind.String(),
			Payload:       payload,
			Headers: map[string]string{
				"schema_version": outboxevents.SchemaVersionV1,
				"run_id":         state.runID.String(),
			},
			AvailableAt: evt.OccurredAt,
		})
	})
}

func (s *GrantService) stepIssueLink(ctx context.Context, state *grantRun) (saga.Decision, error) {
	link, expiry, err := s.assets.IssueLink(ctx, state.userID, state.item.VideoID, s.cfg.LinkTTL)
	switch {
	case errors.Is(err, clients.ErrAssetMissing):
		return saga.Continue, saga.NotFound(err)
	case err != nil:
		return saga.Continue, saga.Transient(err)
	}
	state.link = link
	state.expiry = expiry
	return saga.Continue, nil
}

func (s *GrantService) buildGrantedMessage(state *grantRun) (repositories.OutboxMessage, error) {
	evt := outboxevents.NewBonusVideoGranted(state.runID, state.userID, state.item.VideoID, state.claimedAt)
	payload, err := outboxevents.MarshalPayload(evt)
	if err != nil {
		return repositories.OutboxMessage{}, err
	}
	return repositories.OutboxMessage{
		EventID:       evt.EventID,
		AggregateType: evt.AggregateType,
		AggregateID:   evt.AggregateID,
		EventType:     evt.Kind.String(),
		Payload:       payload,
		Headers: map[string]string{
			"schema_version": outboxevents.SchemaVersionV1,
			"run_id":         state.runID.String(),
		},
		AvailableAt: state.claimedAt,
	}, nil
}
