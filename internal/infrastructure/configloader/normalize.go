package configloader

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// raw* 结构对应配置文件的原始形态，时长字段以字符串表示。
// Kratos 的 config.Scan 按 json tag 解码。

type rawBootstrap struct {
	Server        rawServer        `json:"server" validate:"required"`
	Data          rawData          `json:"data" validate:"required"`
	Storage       rawStorage       `json:"storage" validate:"required"`
	Bonus         rawBonus         `json:"bonus"`
	Observability rawObservability `json:"observability"`
	Messaging     rawMessaging     `json:"messaging"`
}

type rawServer struct {
	HTTP rawHTTPServer `json:"http" validate:"required"`
}

type rawHTTPServer struct {
	Network      string          `json:"network"`
	Addr         string          `json:"addr" validate:"required"`
	Timeout      string          `json:"timeout"`
	JWT          rawServerJWT    `json:"jwt"`
	Handlers     rawHandlerTimes `json:"handlers"`
	MetadataKeys []string        `json:"metadata_keys"`
}

type rawServerJWT struct {
	ExpectedAudience string `json:"expected_audience"`
	SkipValidate     bool   `json:"skip_validate"`
	Required         bool   `json:"required"`
	HeaderKey        string `json:"header_key"`
}

type rawHandlerTimes struct {
	Default string `json:"default"`
	Command string `json:"command"`
	Query   string `json:"query"`
}

type rawData struct {
	Postgres rawPostgres `json:"postgres" validate:"required"`
}

type rawPostgres struct {
	DSN               string         `json:"dsn" validate:"required"`
	MaxOpenConns      int            `json:"max_open_conns"`
	MinOpenConns      int            `json:"min_open_conns"`
	MaxConnLifetime   string         `json:"max_conn_lifetime"`
	MaxConnIdleTime   string         `json:"max_conn_idle_time"`
	HealthCheckPeriod string         `json:"health_check_period"`
	Schema            string         `json:"schema"`
	PreparedStmts     bool           `json:"prepared_stmts"`
	PoolMetrics       bool           `json:"pool_metrics"`
	Transaction       rawTransaction `json:"transaction"`
}

type rawTransaction struct {
	DefaultIsolation string `json:"default_isolation"`
	DefaultTimeout   string `json:"default_timeout"`
	LockTimeout      string `json:"lock_timeout"`
	MaxRetries       int    `json:"max_retries"`
	MetricsEnabled   bool   `json:"metrics_enabled"`
}

type rawStorage struct {
	SharedBucket string `json:"shared_bucket" validate:"required"`
	UsersBucket  string `json:"users_bucket" validate:"required"`
}

type rawBonus struct {
	Cooldown          string   `json:"cooldown"`
	RunBudget         string   `json:"run_budget"`
	LinkTTL           string   `json:"link_ttl"`
	StepRetry         rawRetry `json:"step_retry"`
	ClaimRetry        rawRetry `json:"claim_retry"`
	CompensationRetry rawRetry `json:"compensation_retry"`
}

type rawRetry struct {
	MaxAttempts    int    `json:"max_attempts"`
	InitialBackoff string `json:"initial_backoff"`
	MaxBackoff     string `json:"max_backoff"`
}

type rawObservability struct {
	GlobalAttributes map[string]string `json:"global_attributes"`
	Tracing          rawTracing        `json:"tracing"`
	Metrics          rawMetrics        `json:"metrics"`
}

type rawTracing struct {
	Enabled            bool              `json:"enabled"`
	Exporter           string            `json:"exporter"`
	Endpoint           string            `json:"endpoint"`
	Headers            map[string]string `json:"headers"`
	Insecure           bool              `json:"insecure"`
	SamplingRatio      float64           `json:"sampling_ratio"`
	BatchTimeout       string            `json:"batch_timeout"`
	ExportTimeout      string            `json:"export_timeout"`
	MaxQueueSize       int               `json:"max_queue_size"`
	MaxExportBatchSize int               `json:"max_export_batch_size"`
	Required           bool              `json:"required"`
	Attributes         map[string]string `json:"attributes"`
}

type rawMetrics struct {
	Enabled             bool              `json:"enabled"`
	Exporter            string            `json:"exporter"`
	Endpoint            string            `json:"endpoint"`
	Headers             map[string]string `json:"headers"`
	Insecure            bool              `json:"insecure"`
	Interval            string            `json:"interval"`
	DisableRuntimeStats bool              `json:"disable_runtime_stats"`
	Required            bool              `json:"required"`
	ResourceAttributes  map[string]string `json:"resource_attributes"`
}

type rawMessaging struct {
	Schema string    `json:"schema"`
	PubSub rawPubSub `json:"pubsub"`
	Outbox rawOutbox `json:"outbox"`
}

type rawPubSub struct {
	ProjectID           string       `json:"project_id"`
	TopicID             string       `json:"topic_id"`
	SubscriptionID      string       `json:"subscription_id"`
	OrderingKeyEnabled  bool         `json:"ordering_key_enabled"`
	LoggingEnabled      bool         `json:"logging_enabled"`
	MetricsEnabled      bool         `json:"metrics_enabled"`
	EmulatorEndpoint    string       `json:"emulator_endpoint"`
	PublishTimeout      string       `json:"publish_timeout"`
	ExactlyOnceDelivery bool         `json:"exactly_once_delivery"`
	Receive             rawPSReceive `json:"receive"`
}

type rawPSReceive struct {
	NumGoroutines          int    `json:"num_goroutines"`
	MaxOutstandingMessages int    `json:"max_outstanding_messages"`
	MaxOutstandingBytes    int    `json:"max_outstanding_bytes"`
	MaxExtension           string `json:"max_extension"`
	MaxExtensionPeriod     string `json:"max_extension_period"`
}

type rawOutbox struct {
	BatchSize      int    `json:"batch_size"`
	TickInterval   string `json:"tick_interval"`
	InitialBackoff string `json:"initial_backoff"`
	MaxBackoff     string `json:"max_backoff"`
	MaxAttempts    int    `json:"max_attempts"`
	PublishTimeout string `json:"publish_timeout"`
	Workers        int    `json:"workers"`
	LockTTL        string `json:"lock_ttl"`
	LoggingEnabled *bool  `json:"logging_enabled"`
	MetricsEnabled *bool  `json:"metrics_enabled"`
}

func validateBootstrap(raw *rawBootstrap) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(raw); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}

// fromRaw 将原始配置转换为 RuntimeConfig，时长字段在此统一解析。
func fromRaw(raw *rawBootstrap) (RuntimeConfig, error) {
	p := newDurationParser()

	cfg := RuntimeConfig{
		Server: ServerConfig{
			Network: raw.Server.HTTP.Network,
			Address: raw.Server.HTTP.Addr,
			Timeout: p.parse("server.http.timeout", raw.Server.HTTP.Timeout),
			JWT: ServerJWTConfig{
				ExpectedAudience: raw.Server.HTTP.JWT.ExpectedAudience,
				SkipValidate:     raw.Server.HTTP.JWT.SkipValidate,
				Required:         raw.Server.HTTP.JWT.Required,
				HeaderKey:        raw.Server.HTTP.JWT.HeaderKey,
			},
			Handlers: HandlerTimeoutConfig{
				Default: p.parse("server.http.handlers.default", raw.Server.HTTP.Handlers.Default),
				Command: p.parse("server.http.handlers.command", raw.Server.HTTP.Handlers.Command),
				Query:   p.parse("server.http.handlers.query", raw.Server.HTTP.Handlers.Query),
			},
			MetadataKeys: raw.Server.HTTP.MetadataKeys,
		},
		Database: DatabaseConfig{
			DSN:               raw.Data.Postgres.DSN,
			MaxOpenConns:      raw.Data.Postgres.MaxOpenConns,
			MinOpenConns:      raw.Data.Postgres.MinOpenConns,
			MaxConnLifetime:   p.parse("data.postgres.max_conn_lifetime", raw.Data.Postgres.MaxConnLifetime),
			MaxConnIdleTime:   p.parse("data.postgres.max_conn_idle_time", raw.Data.Postgres.MaxConnIdleTime),
			HealthCheckPeriod: p.parse("data.postgres.health_check_period", raw.Data.Postgres.HealthCheckPeriod),
			Schema:            raw.Data.Postgres.Schema,
			PreparedStmts:     raw.Data.Postgres.PreparedStmts,
			PoolMetrics:       raw.Data.Postgres.PoolMetrics,
			Transaction: TransactionConfig{
				DefaultIsolation: raw.Data.Postgres.Transaction.DefaultIsolation,
				DefaultTimeout:   p.parse("data.postgres.transaction.default_timeout", raw.Data.Postgres.Transaction.DefaultTimeout),
				LockTimeout:      p.parse("data.postgres.transaction.lock_timeout", raw.Data.Postgres.Transaction.LockTimeout),
				MaxRetries:       raw.Data.Postgres.Transaction.MaxRetries,
				MetricsEnabled:   raw.Data.Postgres.Transaction.MetricsEnabled,
			},
		},
		Storage: StorageConfig{
			SharedBucket: raw.Storage.SharedBucket,
			UsersBucket:  raw.Storage.UsersBucket,
		},
		Bonus: BonusConfig{
			Cooldown:          p.parse("bonus.cooldown", raw.Bonus.Cooldown),
			RunBudget:         p.parse("bonus.run_budget", raw.Bonus.RunBudget),
			LinkTTL:           p.parse("bonus.link_ttl", raw.Bonus.LinkTTL),
			StepRetry:         p.retry("bonus.step_retry", raw.Bonus.StepRetry),
			ClaimRetry:        p.retry("bonus.claim_retry", raw.Bonus.ClaimRetry),
			CompensationRetry: p.retry("bonus.compensation_retry", raw.Bonus.CompensationRetry),
		},
		Observability: ObservabilityConfig{
			GlobalAttributes: raw.Observability.GlobalAttributes,
			Tracing: TracingConfig{
				Enabled:            raw.Observability.Tracing.Enabled,
				Exporter:           raw.Observability.Tracing.Exporter,
				Endpoint:           raw.Observability.Tracing.Endpoint,
				Headers:            raw.Observability.Tracing.Headers,
				Insecure:           raw.Observability.Tracing.Insecure,
				SamplingRatio:      raw.Observability.Tracing.SamplingRatio,
				BatchTimeout:       p.parse("observability.tracing.batch_timeout", raw.Observability.Tracing.BatchTimeout),
				ExportTimeout:      p.parse("observability.tracing.export_timeout", raw.Observability.Tracing.ExportTimeout),
				MaxQueueSize:       raw.Observability.Tracing.MaxQueueSize,
				MaxExportBatchSize: raw.Observability.Tracing.MaxExportBatchSize,
				Required:           raw.Observability.Tracing.Required,
				Attributes:         raw.Observability.Tracing.Attributes,
			},
			Metrics: MetricsConfig{
				Enabled:             raw.Observability.Metrics.Enabled,
				Exporter:            raw.Observability.Metrics.Exporter,
				Endpoint:            raw.Observability.Metrics.Endpoint,
				Headers:             raw.Observability.Metrics.Headers,
				Insecure:            raw.Observability.Metrics.Insecure,
				Interval:            p.parse("observability.metrics.interval", raw.Observability.Metrics.Interval),
				DisableRuntimeStats: raw.Observability.Metrics.DisableRuntimeStats,
				Required:            raw.Observability.Metrics.Required,
				ResourceAttributes:  raw.Observability.Metrics.ResourceAttributes,
			},
		},
		Messaging: MessagingConfig{
			Schema: raw.Messaging.Schema,
			PubSub: PubSubConfig{
				ProjectID:           raw.Messaging.PubSub.ProjectID,
				TopicID:             raw.Messaging.PubSub.TopicID,
				SubscriptionID:      raw.Messaging.PubSub.SubscriptionID,
				OrderingKeyEnabled:  raw.Messaging.PubSub.OrderingKeyEnabled,
				LoggingEnabled:      raw.Messaging.PubSub.LoggingEnabled,
				MetricsEnabled:      raw.Messaging.PubSub.MetricsEnabled,
				EmulatorEndpoint:    raw.Messaging.PubSub.EmulatorEndpoint,
				PublishTimeout:      p.parse("messaging.pubsub.publish_timeout", raw.Messaging.PubSub.PublishTimeout),
				ExactlyOnceDelivery: raw.Messaging.PubSub.ExactlyOnceDelivery,
				Receive: PubSubReceiveConfig{
					NumGoroutines:          raw.Messaging.PubSub.Receive.NumGoroutines,
					MaxOutstandingMessages: raw.Messaging.PubSub.Receive.MaxOutstandingMessages,
					MaxOutstandingBytes:    raw.Messaging.PubSub.Receive.MaxOutstandingBytes,
					MaxExtension:           p.parse("messaging.pubsub.receive.max_extension", raw.Messaging.PubSub.Receive.MaxExtension),
					MaxExtensionPeriod:     p.parse("messaging.pubsub.receive.max_extension_period", raw.Messaging.PubSub.Receive.MaxExtensionPeriod),
				},
			},
			Outbox: OutboxPublisherConfig{
				BatchSize:      raw.Messaging.Outbox.BatchSize,
				TickInterval:   p.parse("messaging.outbox.tick_interval", raw.Messaging.Outbox.TickInterval),
				InitialBackoff: p.parse("messaging.outbox.initial_backoff", raw.Messaging.Outbox.InitialBackoff),
				MaxBackoff:     p.parse("messaging.outbox.max_backoff", raw.Messaging.Outbox.MaxBackoff),
				MaxAttempts:    raw.Messaging.Outbox.MaxAttempts,
				PublishTimeout: p.parse("messaging.outbox.publish_timeout", raw.Messaging.Outbox.PublishTimeout),
				Workers:        raw.Messaging.Outbox.Workers,
				LockTTL:        p.parse("messaging.outbox.lock_ttl", raw.Messaging.Outbox.LockTTL),
				LoggingEnabled: raw.Messaging.Outbox.LoggingEnabled,
				MetricsEnabled: raw.Messaging.Outbox.MetricsEnabled,
			},
		},
	}

	if err := p.err(); err != nil {
		return RuntimeConfig{}, err
	}
	return cfg, nil
}

func (p *durationParser) retry(field string, raw rawRetry) RetryConfig {
	return RetryConfig{
		MaxAttempts:    raw.MaxAttempts,
		InitialBackoff: p.parse(field+".initial_backoff", raw.InitialBackoff),
		MaxBackoff:     p.parse(field+".max_backoff", raw.MaxBackoff),
	}
}

// durationParser 收集解析过程中遇到的首个错误，让转换代码保持线性。
type durationParser struct {
	firstErr error
}

func newDurationParser() *durationParser {
	return &durationParser{}
}

func (p *durationParser) parse(field, raw string) time.Duration {
	if raw == "" {
		return 0
	}
	value, err := time.ParseDuration(raw)
	if err != nil && p.firstErr == nil {
		p.firstErr = fmt.Errorf("parse duration %s=%q: %w", field, raw, err)
	}
	return value
}

func (p *durationParser) err() error {
	return p.firstErr
}

// fillDefaults 为缺省配置补齐与运行环境无关的默认值。
func fillDefaults(cfg *RuntimeConfig) {
	if cfg.Database.Schema == "" {
		cfg.Database.Schema = "bonus"
	}
	if cfg.Messaging.Schema == "" {
		cfg.Messaging.Schema = cfg.Database.Schema
	}
	if cfg.Server.Timeout <= 0 {
		cfg.Server.Timeout = 30 * time.Second
	}
	if len(cfg.Server.MetadataKeys) == 0 {
		cfg.Server.MetadataKeys = []string{"x-md-"}
	}
}
