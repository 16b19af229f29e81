// Package configloader 提供配置加载与归一化能力，供 Wire 装配使用。
package configloader

import "time"

// RuntimeConfig 聚合应用在运行期所需的配置片段。
type RuntimeConfig struct {
	Service       ServiceInfo
	Server        ServerConfig
	Database      DatabaseConfig
	Storage       StorageConfig
	Messaging     MessagingConfig
	Observability ObservabilityConfig
}

// ServiceInfo 描述服务标识与运行环境。
type ServiceInfo struct {
	Name        string
	Version     string
	Environment string
	InstanceID  string
}

// ServerConfig 收敛入站 HTTP 服务所需的网络配置。
type ServerConfig struct {
	Network  string
	Address  string
	Timeout  time.Duration
	Handlers HandlerTimeoutConfig
}

// HandlerTimeoutConfig 定义不同类型 Handler 的超时策略。
type HandlerTimeoutConfig struct {
	Default time.Duration
	Command time.Duration
	Query   time.Duration
}

// DatabaseConfig 包含 PostgreSQL 连接池及事务默认值。
type DatabaseConfig struct {
	DSN               string
	MaxOpenConns      int
	MinOpenConns      int
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	Schema            string
	PreparedStmts     bool
	PoolMetrics       bool
	Transaction       TransactionConfig
}

// TransactionConfig 指定事务默认隔离级别与超时策略。
type TransactionConfig struct {
	DefaultIsolation string
	DefaultTimeout   time.Duration
	LockTimeout      time.Duration
	MaxRetries       int
	MetricsEnabled   bool
}

// StorageConfig 描述对象存储的连接与桶信息。
type StorageConfig struct {
	Endpoint       string
	AccessKey      string
	SecretKey      string
	Bucket         string
	Region         string
	UseSSL         bool
	RequestTimeout time.Duration
}

// MessagingConfig 汇总 AMQP 代理拓扑与消费者行为配置。
type MessagingConfig struct {
	URL              string
	Exchange         string
	WorkQueue        string
	ResultQueue      string
	DeadLetterQueue  string
	WorkRoutingKey   string
	ResultRoutingKey string
	Prefetch         int
	ConsumerWorkers  int
	MaxDeliveries    int
	Outbox           OutboxRelayConfig
}

// OutboxRelayConfig 配置 Outbox 中继的运行参数。
type OutboxRelayConfig struct {
	BatchSize      int
	TickInterval   time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	PublishTimeout time.Duration
	LockTTL        time.Duration
}

// ObservabilityConfig 聚合 tracing 与 metrics 的配置。
type ObservabilityConfig struct {
	GlobalAttributes map[string]string
	Tracing          TracingConfig
	Metrics          MetricsConfig
}

// TracingConfig 描述 OpenTelemetry 追踪导出的行为。
type TracingConfig struct {
	Enabled       bool
	Exporter      string
	Endpoint      string
	Insecure      bool
	SamplingRatio float64
	Required      bool
}

// MetricsConfig 描述 OpenTelemetry 指标导出的行为。
type MetricsConfig struct {
	Enabled             bool
	Exporter            string
	Endpoint            string
	Insecure            bool
	Interval            time.Duration
	DisableRuntimeStats bool
	Required            bool
}
