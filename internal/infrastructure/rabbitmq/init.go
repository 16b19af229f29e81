package rabbitmq

import "github.com/google/wire"

// ProviderSet 暴露 AMQP 组件的构造函数供 Wire 依赖注入使用。
var ProviderSet = wire.NewSet(NewComponent)
