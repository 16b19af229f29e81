package objectstorage

import "github.com/google/wire"

// ProviderSet 暴露对象存储组件的构造函数供 Wire 依赖注入使用。
var ProviderSet = wire.NewSet(NewComponent)
