//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

//go:generate go run github.com/google/wire/cmd/wire

package main

import (
	"context"

	"github.com/bionicotaku/lingo-services-media/internal/controllers"
	configloader "github.com/bionicotaku/lingo-services-media/internal/infrastructure/configloader"
	httpserver "github.com/bionicotaku/lingo-services-media/internal/infrastructure/httpserver"
	"github.com/bionicotaku/lingo-services-media/internal/infrastructure/objectstorage"
	"github.com/bionicotaku/lingo-services-media/internal/infrastructure/rabbitmq"
	"github.com/bionicotaku/lingo-services-media/internal/repositories"
	"github.com/bionicotaku/lingo-services-media/internal/services"
	outboxtask "github.com/bionicotaku/lingo-services-media/internal/tasks/outbox"
	resulttask "github.com/bionicotaku/lingo-services-media/internal/tasks/result"

	"github.com/bionicotaku/lingo-utils/gclog"
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
//  2. 基础设施: gclog → observability → pgxpoolx → txmanager → rabbitmq → objectstorage
//  3. 业务层: repositories → services → controllers
//  4. 服务器与任务: httpserver.ProviderSet / outbox relay / result consumer
//  5. 应用: newApp 创建 Kratos App
func wireApp(context.Context, configloader.Params) (*kratos.App, func(), error) {
	panic(wire.Build(
		configloader.ProviderSet,   // 配置加载与解析
		gclog.ProviderSet,          // 结构化日志
		obswire.ProviderSet,        // OpenTelemetry 追踪和指标
		pgxpoolx.ProviderSet,       // PostgreSQL 连接池
		txmanager.ProviderSet,      // 事务管理器
		rabbitmq.ProviderSet,       // AMQP 连接与拓扑声明
		objectstorage.ProviderSet,  // MinIO 对象存储
		httpserver.ProviderSet,     // HTTP Server
		repositories.ProviderSet,   // 数据访问层
		wire.Bind(new(services.VideoRepo), new(*repositories.VideoRepository)),
		wire.Bind(new(services.StatusRepo), new(*repositories.ProcessingStatusRepository)),
		wire.Bind(new(services.OutboxEnqueuer), new(*repositories.OutboxRepository)),
		wire.Bind(new(services.ObjectStorage), new(*objectstorage.Component)),
		services.ProviderSet,    // 业务逻辑层
		controllers.ProviderSet, // 控制器层（HTTP handlers）
		outboxtask.ProvideRunner,
		resulttask.ProvideRunner,
		newApp, // 组装 Kratos 应用
	))
}
