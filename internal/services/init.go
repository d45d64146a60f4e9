package services

import (
	"github.com/bionicotaku/lingo-services-bonus/internal/clients"
	"github.com/bionicotaku/lingo-services-bonus/internal/repositories"
	"github.com/google/wire"
)

// ProviderSet 暴露 Services 层的构造函数供 Wire 依赖注入使用。
var ProviderSet = wire.NewSet(
	NewEligibilityService,
	NewGrantService,
	NewHistoryService,
	wire.Bind(new(PoolRepository), new(*repositories.VideoPoolRepository)),
	wire.Bind(new(AssignmentRepository), new(*repositories.AssignmentRepository)),
	wire.Bind(new(OutboxWriter), new(*repositories.OutboxRepository)),
	wire.Bind(new(AssetStore), new(*clients.AssetStore)),
)
