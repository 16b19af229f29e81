package configloader

import (
	"github.com/bionicotaku/lingo-utils/gclog"
	obswire "github.com/bionicotaku/lingo-utils/observability"
	"github.com/bionicotaku/lingo-utils/pgxpoolx"
	txconfig "github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/google/wire"

	"github.com/bionicotaku/lingo-services-media/internal/controllers"
	"github.com/bionicotaku/lingo-services-media/internal/infrastructure/objectstorage"
	"github.com/bionicotaku/lingo-services-media/internal/infrastructure/rabbitmq"
	"github.com/bionicotaku/lingo-services-media/internal/services"
	outboxtask "github.com/bionicotaku/lingo-services-media/internal/tasks/outbox"
	resulttask "github.com/bionicotaku/lingo-services-media/internal/tasks/result"
)

// ProviderSet 暴露配置加载相关的依赖注入入口。
var ProviderSet = wire.NewSet(
	LoadRuntimeConfig,
	ProvideServiceInfo,
	ProvideLoggerConfig,
	ProvideObservabilityConfig,
	ProvideObservabilityInfo,
	ProvideServerConfig,
	ProvideDatabaseConfig,
	ProvidePgxConfig,
	ProvideTxConfig,
	ProvideStorageConfig,
	ProvideMessagingConfig,
	ProvideRabbitConfig,
	ProvideProcessingTopology,
	ProvideOutboxRelayConfig,
	ProvideResultConsumerConfig,
	ProvideHandlerTimeouts,
)

// LoadRuntimeConfig 调用 Load 并供 Wire 使用。
func LoadRuntimeConfig(params Params) (RuntimeConfig, error) {
	return Load(params)
}

// ProvideServiceInfo 返回服务元信息。
func ProvideServiceInfo(cfg RuntimeConfig) ServiceInfo {
	return cfg.Service
}

// ProvideLoggerConfig 构造 gclog.Config。
func ProvideLoggerConfig(info ServiceInfo) gclog.Config {
	return gclog.Config{
		Service:              info.Name,
		Version:              info.Version,
		Environment:          info.Environment,
		InstanceID:           info.InstanceID,
		EnableSourceLocation: true,
		StaticLabels: map[string]string{
			"service.id": info.InstanceID,
		},
	}
}

// ProvideObservabilityConfig 将 ObservabilityConfig 转换为 obswire.ObservabilityConfig。
func ProvideObservabilityConfig(cfg RuntimeConfig) obswire.ObservabilityConfig {
	tracing := cfg.Observability.Tracing
	metrics := cfg.Observability.Metrics

	var tracingCfg *obswire.TracingConfig
	if tracing.Enabled || tracing.Endpoint != "" || tracing.Exporter != "" {
		tracingCfg = &obswire.TracingConfig{
			Enabled:       tracing.Enabled,
			Exporter:      tracing.Exporter,
			Endpoint:      tracing.Endpoint,
			Insecure:      tracing.Insecure,
			SamplingRatio: tracing.SamplingRatio,
			Required:      tracing.Required,
		}
	}

	var metricsCfg *obswire.MetricsConfig
	if metrics.Enabled || metrics.Exporter != "" || metrics.Endpoint != "" {
		metricsCfg = &obswire.MetricsConfig{
			Enabled:             metrics.Enabled,
			Exporter:            metrics.Exporter,
			Endpoint:            metrics.Endpoint,
			Insecure:            metrics.Insecure,
			Interval:            metrics.Interval,
			DisableRuntimeStats: metrics.DisableRuntimeStats,
			Required:            metrics.Required,
		}
	}

	return obswire.ObservabilityConfig{
		Tracing:          tracingCfg,
		Metrics:          metricsCfg,
		GlobalAttributes: cfg.Observability.GlobalAttributes,
	}
}

// ProvideObservabilityInfo 转换为 obswire.ServiceInfo。
func ProvideObservabilityInfo(info ServiceInfo) obswire.ServiceInfo {
	return obswire.ServiceInfo{
		Name:        info.Name,
		Version:     info.Version,
		Environment: info.Environment,
	}
}

// ProvideServerConfig 返回服务端 HTTP 配置。
func ProvideServerConfig(cfg RuntimeConfig) ServerConfig {
	return cfg.Server
}

// ProvideDatabaseConfig 返回数据库配置。
func ProvideDatabaseConfig(cfg RuntimeConfig) DatabaseConfig {
	return cfg.Database
}

// ProvidePgxConfig 将 DatabaseConfig 转换为 pgxpoolx.Config。
func ProvidePgxConfig(dbCfg DatabaseConfig) pgxpoolx.Config {
	enablePrepared := dbCfg.PreparedStmts
	metricsEnabled := dbCfg.PoolMetrics
	return pgxpoolx.Config{
		DSN:                dbCfg.DSN,
		MaxConns:           int32(dbCfg.MaxOpenConns),
		MinConns:           int32(dbCfg.MinOpenConns),
		MaxConnLifetime:    dbCfg.MaxConnLifetime,
		MaxConnIdleTime:    dbCfg.MaxConnIdleTime,
		HealthCheckPeriod:  dbCfg.HealthCheckPeriod,
		Schema:             dbCfg.Schema,
		EnablePreparedStmt: &enablePrepared,
		MetricsEnabled:     &metricsEnabled,
	}
}

// ProvideTxConfig 构造 txmanager.Config。
func ProvideTxConfig(cfg RuntimeConfig) txconfig.Config {
	tx := cfg.Database.Transaction
	return txconfig.Config{
		DefaultIsolation: tx.DefaultIsolation,
		DefaultTimeout:   tx.DefaultTimeout,
		LockTimeout:      tx.LockTimeout,
		MaxRetries:       tx.MaxRetries,
		MetricsEnabled:   boolPtr(tx.MetricsEnabled),
	}
}

// ProvideStorageConfig 将 StorageConfig 转换为对象存储组件配置。
func ProvideStorageConfig(cfg RuntimeConfig) objectstorage.Config {
	s := cfg.Storage
	return objectstorage.Config{
		Endpoint:       s.Endpoint,
		AccessKey:      s.AccessKey,
		SecretKey:      s.SecretKey,
		Bucket:         s.Bucket,
		Region:         s.Region,
		UseSSL:         s.UseSSL,
		RequestTimeout: s.RequestTimeout,
	}
}

// ProvideMessagingConfig 返回消息相关配置。
func ProvideMessagingConfig(cfg RuntimeConfig) MessagingConfig {
	return cfg.Messaging
}

// ProvideRabbitConfig 将 MessagingConfig 转换为 AMQP 组件配置。
func ProvideRabbitConfig(msg MessagingConfig) rabbitmq.Config {
	return rabbitmq.Config{
		URL:              msg.URL,
		Exchange:         msg.Exchange,
		WorkQueue:        msg.WorkQueue,
		ResultQueue:      msg.ResultQueue,
		DeadLetterQueue:  msg.DeadLetterQueue,
		WorkRoutingKey:   msg.WorkRoutingKey,
		ResultRoutingKey: msg.ResultRoutingKey,
		Prefetch:         msg.Prefetch,
	}
}

// ProvideProcessingTopology 返回命令侧投递处理请求所需的路由信息。
func ProvideProcessingTopology(msg MessagingConfig) services.ProcessingTopology {
	return services.ProcessingTopology{
		WorkRoutingKey: msg.WorkRoutingKey,
	}
}

// ProvideOutboxRelayConfig 构造 Outbox 中继配置。
func ProvideOutboxRelayConfig(msg MessagingConfig) outboxtask.Config {
	return outboxtask.Config{
		BatchSize:      msg.Outbox.BatchSize,
		TickInterval:   msg.Outbox.TickInterval,
		InitialBackoff: msg.Outbox.InitialBackoff,
		MaxBackoff:     msg.Outbox.MaxBackoff,
		PublishTimeout: msg.Outbox.PublishTimeout,
		LockTTL:        msg.Outbox.LockTTL,
	}
}

// ProvideResultConsumerConfig 构造结果消费者配置。
func ProvideResultConsumerConfig(msg MessagingConfig) resulttask.Config {
	return resulttask.Config{
		Workers:       msg.ConsumerWorkers,
		MaxDeliveries: msg.MaxDeliveries,
	}
}

// ProvideHandlerTimeouts 将 Server 层配置映射为控制层使用的超时策略。
func ProvideHandlerTimeouts(cfg RuntimeConfig) controllers.HandlerTimeouts {
	handlers := cfg.Server.Handlers
	return controllers.HandlerTimeouts{
		Default: handlers.Default,
		Command: handlers.Command,
		Query:   handlers.Query,
	}
}

func boolPtr(v bool) *bool {
	return &v
}
