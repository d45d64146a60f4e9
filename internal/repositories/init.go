// Package repositories 实现数据访问层，封装对 bonus schema 的 SQL 访问。
package repositories

import "github.com/google/wire"

// ProviderSet 暴露 Repositories 层的构造函数供 Wire 依赖注入使用。
var ProviderSet = wire.NewSet(
	NewVideoPoolRepository,
	NewAssignmentRepository,
	NewOutboxRepository,
)
