package controllers

import (
	"context"
	nethttp "net/http"
	"strconv"

	"github.com/bionicotaku/lingo-services-bonus/internal/controllers/dto"
	metadata "github.com/bionicotaku/lingo-services-bonus/internal/metadata"
	"github.com/bionicotaku/lingo-services-bonus/internal/models/vo"
	"github.com/bionicotaku/lingo-services-bonus/internal/services"
	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

// BonusHandler 暴露奖励视频的发放与历史查询接口。
type BonusHandler struct {
	*BaseHandler
	grants  *services.GrantService
	history *services.HistoryService
	log     *log.Helper
}

// NewBonusHandler 构造奖励接口 Handler。
func NewBonusHandler(base *BaseHandler, grants *services.GrantService, history *services.HistoryService, logger log.Logger) *BonusHandler {
	return &BonusHandler{
		BaseHandler: base,
		grants:      grants,
		history:     history,
		log:         log.NewHelper(log.With(logger, "module", "controllers/bonus")),
	}
}

// Register 挂载路由。
func (h *BonusHandler) Register(srv *khttp.Server) {
	api := srv.Route("/api/v1")
	api.POST("/videos/next", h.GrantNext)
	api.GET("/videos", h.ListHistory)

	root := srv.Route("/")
	root.GET("/healthz", h.Health)
}

// GrantNext 处理领取下一个奖励视频的请求。
func (h *BonusHandler) GrantNext(ctx khttp.Context) error {
	identity := h.ExtractIdentity(ctx.Header())
	userID, ok := identity.UserUUID()
	if !ok {
		return kerrors.Unauthorized("UNAUTHENTICATED", "missing or invalid user identity")
	}

	handler := ctx.Middleware(func(reqCtx context.Context, _ any) (any, error) {
		runCtx, cancel := h.WithTimeout(metadata.Inject(reqCtx, identity), HandlerTypeCommand)
		defer cancel()
		return h.grants.Grant(runCtx, userID)
	})
	out, err := handler(ctx, nil)
	if err != nil {
		return err
	}
	result, ok := out.(*vo.GrantResult)
	if !ok {
		return kerrors.InternalServer("INTERNAL", "unexpected grant result type")
	}
	return ctx.Result(nethttp.StatusOK, dto.NewGrantResponse(result))
}

// ListHistory 返回当前用户的领取历史。
func (h *BonusHandler) ListHistory(ctx khttp.Context) error {
	identity := h.ExtractIdentity(ctx.Header())
	userID, ok := identity.UserUUID()
	if !ok {
		return kerrors.Unauthorized("UNAUTHENTICATED", "missing or invalid user identity")
	}
	limit := parseLimit(ctx.Query().Get("limit"))

	handler := ctx.Middleware(func(reqCtx context.Context, _ any) (any, error) {
		queryCtx, cancel := h.WithTimeout(metadata.Inject(reqCtx, identity), HandlerTypeQuery)
		defer cancel()
		return h.history.ListByUser(queryCtx, userID, limit)
	})
	out, err := handler(ctx, nil)
	if err != nil {
		return err
	}
	items, _ := out.([]vo.AssignmentItem)
	return ctx.Result(nethttp.StatusOK, dto.NewHistoryResponse(items))
}

// Health 健康检查。
func (h *BonusHandler) Health(ctx khttp.Context) error {
	return ctx.Result(nethttp.StatusOK, dto.HealthResponse{Status: "ok"})
}

func parseLimit(raw string) int32 {
	if raw == "" {
		return 0
	}
	value, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || value < 0 {
		return 0
	}
	return int32(value)
}
