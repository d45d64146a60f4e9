//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

//go:generate go run github.com/google/wire/cmd/wire

package main

import (
	"context"

	"github.com/bionicotaku/lingo-services-bonus/internal/clients"
	"github.com/bionicotaku/lingo-services-bonus/internal/controllers"
	configloader "github.com/bionicotaku/lingo-services-bonus/internal/infrastructure/configloader"
	httpserver "github.com/bionicotaku/lingo-services-bonus/internal/infrastructure/httpserver"
	"github.com/bionicotaku/lingo-services-bonus/internal/repositories"
	"github.com/bionicotaku/lingo-services-bonus/internal/saga"
	"github.com/bionicotaku/lingo-services-bonus/internal/services"
	outboxtasks "github.com/bionicotaku/lingo-services-bonus/internal/tasks/outbox"

	"github.com/bionicotaku/lingo-utils/gcjwt"
	"github.com/bionicotaku/lingo-utils/gclog"
	"github.com/bionicotaku/lingo-utils/gcpubsub"
	obswire "github.com/bionicotaku/lingo-utils/observability"
	"github.com/bionicotaku/lingo-utils/pgxpoolx"
	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2"
	"github.com/google/wire"
)

// wireApp 构建整个 Kratos 应用，分阶段装配依赖。
//
// 依赖注入顺序:
//  1. 配置加载: configloader.ProviderSet 解析配置并派生组件配置
//  2. 基础设施: gclog → observability → gcjwt → pgxpoolx → txmanager → gcpubsub
//  3. 外部客户端: clients.ProviderSet（对象存储）
//  4. 业务层: repositories → saga metrics → services → controllers
//  5. 服务器: httpserver.ProviderSet 组装 HTTP Server
//  6. 应用: newApp 创建 Kratos App（挂载 Outbox 发布器 worker）
func wireApp(context.Context, configloader.Params) (*kratos.App, func(), error) {
	panic(wire.Build(
		configloader.ProviderSet, // 配置加载与解析
		gclog.ProviderSet,        // 结构化日志
		gcjwt.ProviderSet,        // JWT 认证中间件
		obswire.ProviderSet,      // OpenTelemetry 追踪和指标
		pgxpoolx.ProviderSet,     // PostgreSQL 连接池
		txmanager.ProviderSet,    // 事务管理器
		gcpubsub.ProviderSet,     // Pub/Sub 发布与订阅
		clients.ProviderSet,      // 对象存储客户端
		httpserver.ProviderSet,   // HTTP Server
		repositories.ProviderSet, // 数据访问层
		saga.NewMetrics,          // Saga 运行指标
		services.ProviderSet,     // 业务逻辑层（含仓储接口绑定）
		controllers.ProviderSet,  // 控制器层（HTTP handlers）
		outboxtasks.ProvideRunner,
		newApp, // 组装 Kratos 应用
	))
}
