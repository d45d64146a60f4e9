// Package clients 封装对外部存储服务的访问客户端。
package clients

import "github.com/google/wire"

// ProviderSet 暴露 Clients 层的构造函数供 Wire 依赖注入使用。
var ProviderSet = wire.NewSet(NewAssetStore)
