// Package httpserver 负责装配入站 HTTP Server 及其中间件栈。
// 包括：追踪、日志、限流、恢复等中间件，以及统一的错误编码。
package httpserver

import (
	"encoding/json"
	nethttp "net/http"

	"github.com/bionicotaku/lingo-services-bonus/internal/controllers"
	configloader "github.com/bionicotaku/lingo-services-bonus/internal/infrastructure/configloader"

	"github.com/bionicotaku/lingo-utils/gcjwt"
	obsTrace "github.com/bionicotaku/lingo-utils/observability/tracing"
	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/middleware/logging"
	"github.com/go-kratos/kratos/v2/middleware/metadata"
	"github.com/go-kratos/kratos/v2/middleware/ratelimit"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// NewHTTPServer 构造配置完整的 Kratos HTTP Server 实例。
//
// 中间件链（按执行顺序）：
// 1. obsTrace.Server() - OpenTelemetry 追踪，自动创建 Span
// 2. recovery.Recovery() - Panic 恢复，防止服务崩溃
// 3. metadata.Server() - 元数据传播，转发配置前缀的 header
// 4. ratelimit.Server() - 限流保护
// 5. logging.Server() - 结构化日志记录（含 trace_id/span_id）
func NewHTTPServer(cfg configloader.ServerConfig, jwt gcjwt.ServerMiddleware, bonus *controllers.BonusHandler, logger log.Logger) *http.Server {
	mws := []middleware.Middleware{
		obsTrace.Server(),
		recovery.Recovery(),
		metadata.Server(metadata.WithPropagatedPrefix(cfg.MetadataKeys...)),
	}
	// 根据配置决定是否挂载 JWT 校验，默认置于限流之前。
	if jwt != nil {
		mws = append(mws, middleware.Middleware(jwt))
	}
	mws = append(mws,
		ratelimit.Server(),
		logging.Server(logger),
	)

	opts := []http.ServerOption{
		http.Middleware(mws...),
		http.ErrorEncoder(encodeError),
	}
	if cfg.Network != "" {
		opts = append(opts, http.Network(cfg.Network))
	}
	if cfg.Address != "" {
		opts = append(opts, http.Address(cfg.Address))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, http.Timeout(cfg.Timeout))
	}

	srv := http.NewServer(opts...)
	if bonus != nil {
		bonus.Register(srv)
	}
	return srv
}

type errorBody struct {
	Status  string `json:"status"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// encodeError 统一错误响应：基础设施失败返回 500 与 status=error，
// 带语义的 Kratos 错误保留其状态码与原因。
func encodeError(w nethttp.ResponseWriter, _ *nethttp.Request, err error) {
	body := errorBody{Status: "error"}
	code := nethttp.StatusInternalServerError

	// FromError 对未知错误兜底为 500；仅对带 Reason 的语义错误透出细节，
	// 基础设施错误不向客户端暴露内部信息。
	if se := kerrors.FromError(err); se != nil && se.Reason != "" {
		code = int(se.Code)
		body.Code = se.Reason
		body.Message = se.Message
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
