package configloader

import (
	"fmt"
	"time"
)

// bootstrap 映射配置文件结构。时长字段使用 Go duration 字符串（如 "5s"）。
type bootstrap struct {
	Server struct {
		HTTP struct {
			Network  string `json:"network"`
			Addr     string `json:"addr"`
			Timeout  string `json:"timeout"`
			Handlers struct {
				DefaultTimeout string `json:"default_timeout"`
				CommandTimeout string `json:"command_timeout"`
				QueryTimeout   string `json:"query_timeout"`
			} `json:"handlers"`
		} `json:"http"`
	} `json:"server"`
	Data struct {
		Postgres struct {
			DSN               string `json:"dsn"`
			MaxOpenConns      int    `json:"max_open_conns"`
			MinOpenConns      int    `json:"min_open_conns"`
			MaxConnLifetime   string `json:"max_conn_lifetime"`
			MaxConnIdleTime   string `json:"max_conn_idle_time"`
			HealthCheckPeriod string `json:"health_check_period"`
			Schema            string `json:"schema"`
			PreparedStmts     bool   `json:"prepared_statements_enabled"`
			PoolMetrics       bool   `json:"pool_metrics_enabled"`
			Transaction       struct {
				DefaultIsolation string `json:"default_isolation"`
				DefaultTimeout   string `json:"default_timeout"`
				LockTimeout      string `json:"lock_timeout"`
				MaxRetries       int    `json:"max_retries"`
				MetricsEnabled   bool   `json:"metrics_enabled"`
			} `json:"transaction"`
		} `json:"postgres"`
	} `json:"data"`
	Storage struct {
		Endpoint       string `json:"endpoint"`
		AccessKey      string `json:"access_key"`
		SecretKey      string `json:"secret_key"`
		Bucket         string `json:"bucket"`
		Region         string `json:"region"`
		UseSSL         bool   `json:"use_ssl"`
		RequestTimeout string `json:"request_timeout"`
	} `json:"storage"`
	Messaging struct {
		URL              string `json:"url"`
		Exchange         string `json:"exchange"`
		WorkQueue        string `json:"work_queue"`
		ResultQueue      string `json:"result_queue"`
		DeadLetterQueue  string `json:"dead_letter_queue"`
		WorkRoutingKey   string `json:"work_routing_key"`
		ResultRoutingKey string `json:"result_routing_key"`
		Prefetch         int    `json:"prefetch"`
		ConsumerWorkers  int    `json:"consumer_workers"`
		MaxDeliveries    int    `json:"max_deliveries"`
		Outbox           struct {
			BatchSize      int    `json:"batch_size"`
			TickInterval   string `json:"tick_interval"`
			InitialBackoff string `json:"initial_backoff"`
			MaxBackoff     string `json:"max_backoff"`
			PublishTimeout string `json:"publish_timeout"`
			LockTTL        string `json:"lock_ttl"`
		} `json:"outbox"`
	} `json:"messaging"`
	Observability struct {
		GlobalAttributes map[string]string `json:"global_attributes"`
		Tracing          struct {
			Enabled       bool    `json:"enabled"`
			Exporter      string  `json:"exporter"`
			Endpoint      string  `json:"endpoint"`
			Insecure      bool    `json:"insecure"`
			SamplingRatio float64 `json:"sampling_ratio"`
			Required      bool    `json:"required"`
		} `json:"tracing"`
		Metrics struct {
			Enabled             bool   `json:"enabled"`
			Exporter            string `json:"exporter"`
			Endpoint            string `json:"endpoint"`
			Insecure            bool   `json:"insecure"`
			Interval            string `json:"interval"`
			DisableRuntimeStats bool   `json:"disable_runtime_stats"`
			Required            bool   `json:"required"`
		} `json:"metrics"`
	} `json:"observability"`
}

func fromBootstrap(b *bootstrap) (RuntimeConfig, error) {
	if b == nil {
		return RuntimeConfig{}, nil
	}
	p := newDurationParser()

	rc := RuntimeConfig{
		Server: ServerConfig{
			Network: b.Server.HTTP.Network,
			Address: b.Server.HTTP.Addr,
			Timeout: p.parse("server.http.timeout", b.Server.HTTP.Timeout),
			Handlers: HandlerTimeoutConfig{
				Default: p.parse("server.http.handlers.default_timeout", b.Server.HTTP.Handlers.DefaultTimeout),
				Command: p.parse("server.http.handlers.command_timeout", b.Server.HTTP.Handlers.CommandTimeout),
				Query:   p.parse("server.http.handlers.query_timeout", b.Server.HTTP.Handlers.QueryTimeout),
			},
		},
		Database: DatabaseConfig{
			DSN:               b.Data.Postgres.DSN,
			MaxOpenConns:      b.Data.Postgres.MaxOpenConns,
			MinOpenConns:      b.Data.Postgres.MinOpenConns,
			MaxConnLifetime:   p.parse("data.postgres.max_conn_lifetime", b.Data.Postgres.MaxConnLifetime),
			MaxConnIdleTime:   p.parse("data.postgres.max_conn_idle_time", b.Data.Postgres.MaxConnIdleTime),
			HealthCheckPeriod: p.parse("data.postgres.health_check_period", b.Data.Postgres.HealthCheckPeriod),
			Schema:            b.Data.Postgres.Schema,
			PreparedStmts:     b.Data.Postgres.PreparedStmts,
			PoolMetrics:       b.Data.Postgres.PoolMetrics,
			Transaction: TransactionConfig{
				DefaultIsolation: b.Data.Postgres.Transaction.DefaultIsolation,
				DefaultTimeout:   p.parse("data.postgres.transaction.default_timeout", b.Data.Postgres.Transaction.DefaultTimeout),
				LockTimeout:      p.parse("data.postgres.transaction.lock_timeout", b.Data.Postgres.Transaction.LockTimeout),
				MaxRetries:       b.Data.Postgres.Transaction.MaxRetries,
				MetricsEnabled:   b.Data.Postgres.Transaction.MetricsEnabled,
			},
		},
		Storage: StorageConfig{
			Endpoint:       b.Storage.Endpoint,
			AccessKey:      b.Storage.AccessKey,
			SecretKey:      b.Storage.SecretKey,
			Bucket:         b.Storage.Bucket,
			Region:         b.Storage.Region,
			UseSSL:         b.Storage.UseSSL,
			RequestTimeout: p.parse("storage.request_timeout", b.Storage.RequestTimeout),
		},
		Messaging: MessagingConfig{
			URL:              b.Messaging.URL,
			Exchange:         b.Messaging.Exchange,
			WorkQueue:        b.Messaging.WorkQueue,
			ResultQueue:      b.Messaging.ResultQueue,
			DeadLetterQueue:  b.Messaging.DeadLetterQueue,
			WorkRoutingKey:   b.Messaging.WorkRoutingKey,
			ResultRoutingKey: b.Messaging.ResultRoutingKey,
			Prefetch:         b.Messaging.Prefetch,
			ConsumerWorkers:  b.Messaging.ConsumerWorkers,
			MaxDeliveries:    b.Messaging.MaxDeliveries,
			Outbox: OutboxRelayConfig{
				BatchSize:      b.Messaging.Outbox.BatchSize,
				TickInterval:   p.parse("messaging.outbox.tick_interval", b.Messaging.Outbox.TickInterval),
				InitialBackoff: p.parse("messaging.outbox.initial_backoff", b.Messaging.Outbox.InitialBackoff),
				MaxBackoff:     p.parse("messaging.outbox.max_backoff", b.Messaging.Outbox.MaxBackoff),
				PublishTimeout: p.parse("messaging.outbox.publish_timeout", b.Messaging.Outbox.PublishTimeout),
				LockTTL:        p.parse("messaging.outbox.lock_ttl", b.Messaging.Outbox.LockTTL),
			},
		},
		Observability: ObservabilityConfig{
			GlobalAttributes: b.Observability.GlobalAttributes,
			Tracing: TracingConfig{
				Enabled:       b.Observability.Tracing.Enabled,
				Exporter:      b.Observability.Tracing.Exporter,
				Endpoint:      b.Observability.Tracing.Endpoint,
				Insecure:      b.Observability.Tracing.Insecure,
				SamplingRatio: b.Observability.Tracing.SamplingRatio,
				Required:      b.Observability.Tracing.Required,
			},
			Metrics: MetricsConfig{
				Enabled:             b.Observability.Metrics.Enabled,
				Exporter:            b.Observability.Metrics.Exporter,
				Endpoint:            b.Observability.Metrics.Endpoint,
				Insecure:            b.Observability.Metrics.Insecure,
				Interval:            p.parse("observability.metrics.interval", b.Observability.Metrics.Interval),
				DisableRuntimeStats: b.Observability.Metrics.DisableRuntimeStats,
				Required:            b.Observability.Metrics.Required,
			},
		},
	}
	if p.err != nil {
		return RuntimeConfig{}, p.err
	}
	return rc, nil
}

type durationParser struct {
	err error
}

func newDurationParser() *durationParser { return &durationParser{} }

// parse 解析 duration 字符串，空串返回 0。首个错误被保留。
func (p *durationParser) parse(field, raw string) time.Duration {
	if raw == "" {
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("parse %s=%q: %w", field, raw, err)
	}
	return d
}

const (
	defaultHandlerTimeout = 5 * time.Second
	defaultQueryTimeout   = 3 * time.Second
)

func fillDefaults(rc *RuntimeConfig) {
	if rc.Server.Network == "" {
		rc.Server.Network = "tcp"
	}
	if rc.Server.Address == "" {
		rc.Server.Address = ":8080"
	}
	if rc.Server.Timeout <= 0 {
		rc.Server.Timeout = 30 * time.Second
	}
	if rc.Server.Handlers.Default <= 0 {
		rc.Server.Handlers.Default = defaultHandlerTimeout
	}
	if rc.Server.Handlers.Command <= 0 {
		rc.Server.Handlers.Command = rc.Server.Handlers.Default
	}
	if rc.Server.Handlers.Query <= 0 {
		rc.Server.Handlers.Query = defaultQueryTimeout
	}
	if rc.Database.Schema == "" {
		rc.Database.Schema = "media"
	}
	if rc.Storage.Bucket == "" {
		rc.Storage.Bucket = "videos"
	}
	if rc.Storage.RequestTimeout <= 0 {
		rc.Storage.RequestTimeout = 30 * time.Second
	}
	m := &rc.Messaging
	if m.Exchange == "" {
		m.Exchange = "video-processing"
	}
	if m.WorkQueue == "" {
		m.WorkQueue = "video-processing-queue"
	}
	if m.ResultQueue == "" {
		m.ResultQueue = "video-result-queue"
	}
	if m.DeadLetterQueue == "" {
		m.DeadLetterQueue = "dead.letter.queue"
	}
	if m.WorkRoutingKey == "" {
		m.WorkRoutingKey = "video-processing"
	}
	if m.ResultRoutingKey == "" {
		m.ResultRoutingKey = "video-result"
	}
	if m.Prefetch <= 0 {
		m.Prefetch = 8
	}
	if m.ConsumerWorkers <= 0 {
		m.ConsumerWorkers = 4
	}
	if m.MaxDeliveries <= 0 {
		m.MaxDeliveries = 5
	}
	o := &m.Outbox
	if o.BatchSize <= 0 {
		o.BatchSize = 64
	}
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = 2 * time.Second
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 5 * time.Minute
	}
	if o.PublishTimeout <= 0 {
		o.PublishTimeout = 10 * time.Second
	}
	if o.LockTTL <= 0 {
		o.LockTTL = time.Minute
	}
}
